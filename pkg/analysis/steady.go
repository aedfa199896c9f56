package analysis

import (
	"fmt"
	"log/slog"

	"github.com/edp1096/toy-transport/pkg/problem"
	"github.com/edp1096/toy-transport/pkg/solver"
)

// Steady runs the multi-group solve once, refining the mesh GridSteps times.
type Steady struct{ BaseAnalysis }

func NewSteady(cfg solver.Config, logger *slog.Logger, opts ...solver.Option) *Steady {
	return &Steady{
		BaseAnalysis: *NewBaseAnalysis(cfg, logger, opts...),
	}
}

func (st *Steady) Setup(p *problem.Problem) error {
	st.Problem = p
	p.SetTimeCoefficients(nil)
	return nil
}

func (st *Steady) Execute() error {
	o, err := st.orchestrator(st.config.GridSteps)
	if err != nil {
		return fmt.Errorf("steady setup error: %w", err)
	}

	st.logger.Info("steady solve", slog.String("strategy", o.Strategy().String()))
	if err := st.run(o); err != nil {
		return fmt.Errorf("steady solve: %w", err)
	}

	st.StoreProfile()
	for name, value := range st.totals() {
		st.results[name] = []float64{value}
	}
	return nil
}
