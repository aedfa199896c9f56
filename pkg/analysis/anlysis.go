package analysis

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/edp1096/toy-transport/pkg/problem"
	"github.com/edp1096/toy-transport/pkg/solver"
	"github.com/edp1096/toy-transport/pkg/util"
)

const (
	STEADY int = iota
	TRAN
)

var ErrNotConverged = errors.New("analysis: solve did not converge")

type Analysis interface {
	Setup(p *problem.Problem) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Problem *problem.Problem
	results map[string][]float64 // key: variable name, value: result by time or by cell
	config  solver.Config
	options []solver.Option
	logger  *slog.Logger
}

func NewBaseAnalysis(cfg solver.Config, logger *slog.Logger, opts ...solver.Option) *BaseAnalysis {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BaseAnalysis{
		results: make(map[string][]float64),
		config:  cfg,
		options: append([]solver.Option{solver.WithLogger(logger)}, opts...),
		logger:  logger.With(slog.String("component", "analysis")),
	}
}

func (a *BaseAnalysis) orchestrator(gridSteps int) (*solver.Orchestrator, error) {
	if a.Problem == nil {
		return nil, fmt.Errorf("problem not set")
	}
	cfg := a.config
	cfg.GridSteps = gridSteps
	return solver.New(a.Problem.SolverConfig(cfg), a.Problem, a.Problem, a.options...)
}

func (a *BaseAnalysis) run(o *solver.Orchestrator) error {
	ok, err := o.Solve()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConverged
	}
	return nil
}

func FluxKey(group int) string { return fmt.Sprintf("PHI_G%d", group) }

func TotalKey(group int) string { return fmt.Sprintf("TOTAL_G%d", group) }

// StoreProfile replaces the spatial results with the current scalar flux.
func (a *BaseAnalysis) StoreProfile() {
	a.results["X"] = a.Problem.Positions()
	for g, phi := range a.Problem.ScalarFluxes() {
		a.results[FluxKey(g)] = phi
	}
}

func (a *BaseAnalysis) StoreTimeResult(time float64, solution map[string]float64) {
	// Ignore same time
	if len(a.results["TIME"]) > 0 {
		lastTime := a.results["TIME"][len(a.results["TIME"])-1]
		if time == lastTime {
			return
		}
		// Compare rounded string. 1.999999e-05 == 2.000000e-05
		if util.FormatValueFactor(time, "s") == util.FormatValueFactor(lastTime, "s") {
			return
		}
	}

	a.results["TIME"] = append(a.results["TIME"], time)
	for name, value := range solution {
		a.results[name] = append(a.results[name], value)
	}
}

func (a *BaseAnalysis) totals() map[string]float64 {
	solution := make(map[string]float64)
	for g, total := range a.Problem.GroupTotals() {
		solution[TotalKey(g)] = total
	}
	return solution
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}
