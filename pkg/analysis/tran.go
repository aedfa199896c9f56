package analysis

import (
	"fmt"
	"log/slog"

	"github.com/edp1096/toy-transport/pkg/problem"
	"github.com/edp1096/toy-transport/pkg/solver"
	"github.com/edp1096/toy-transport/pkg/util"
)

// Transient advances the problem with fixed time steps. Mesh refinement
// only happens during the first step.
type Transient struct {
	BaseAnalysis
	steady     *Steady
	time       float64
	stopTime   float64
	timeStep   float64
	scheme     util.TimeScheme
	fromSteady bool
}

func NewTransient(cfg solver.Config, tStop, tStep float64, scheme util.TimeScheme, fromSteady bool,
	logger *slog.Logger, opts ...solver.Option) *Transient {
	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(cfg, logger, opts...),
		steady:       NewSteady(cfg, logger, opts...),
		stopTime:     tStop,
		timeStep:     tStep,
		scheme:       scheme,
		fromSteady:   fromSteady,
	}
}

func (tr *Transient) Setup(p *problem.Problem) error {
	if !(tr.timeStep > 0) || !(tr.stopTime > 0) {
		return fmt.Errorf("invalid time stepping: step=%g stop=%g", tr.timeStep, tr.stopTime)
	}
	tr.Problem = p

	if tr.fromSteady {
		if err := tr.steady.Setup(p); err != nil {
			return fmt.Errorf("steady state setup error: %w", err)
		}
		if err := tr.steady.Execute(); err != nil {
			return fmt.Errorf("steady state initial condition: %w", err)
		}
		tr.config.GridSteps = 0
	}
	return nil
}

func (tr *Transient) Execute() error {
	if tr.Problem == nil {
		return fmt.Errorf("problem not set")
	}

	first, err := tr.orchestrator(tr.config.GridSteps)
	if err != nil {
		return fmt.Errorf("transient setup error: %w", err)
	}
	rest, err := tr.orchestrator(0)
	if err != nil {
		return fmt.Errorf("transient setup error: %w", err)
	}
	defer tr.Problem.SetTimeCoefficients(nil)

	tr.StoreTimeResult(tr.time, tr.totals())

	o := first
	for step := 0; tr.time < tr.stopTime; step++ {
		dt := tr.timeStep
		if tr.time+dt > tr.stopTime {
			dt = tr.stopTime - tr.time
		}

		tr.Problem.PushHistory(tr.scheme.Order())
		order := min(tr.scheme.Order(), tr.Problem.HistoryLevels())
		tr.Problem.SetTimeCoefficients(util.BDFCoeffs(order, dt))

		if err := tr.run(o); err != nil {
			return fmt.Errorf("time step %d (t=%s): %w", step, util.FormatValueFactor(tr.time+dt, "s"), err)
		}
		o = rest

		tr.time += dt
		tr.logger.Info("time step",
			slog.Int("step", step),
			slog.Float64("time", tr.time),
			slog.Int("bdf_order", order))
		tr.StoreTimeResult(tr.time, tr.totals())
	}

	tr.StoreProfile()
	return nil
}
