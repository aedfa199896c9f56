package solver

import (
	"fmt"
	"io"
	"log/slog"
)

// Orchestrator decides which group/ordinate systems are solved, in what
// order and how often, and whether a multi-group solve succeeded.
type Orchestrator struct {
	cfg      Config
	strategy Strategy
	topology *Topology

	host     Host
	reporter Reporter
	logger   *slog.Logger
}

type Option func(*Orchestrator)

func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New validates cfg and resolves its equation systems. A configuration error
// leaves no usable orchestrator.
func New(cfg Config, resolver Resolver, host Host, opts ...Option) (*Orchestrator, error) {
	if resolver == nil || host == nil {
		return nil, fmt.Errorf("%w: resolver and host are required", ErrInvalidConfig)
	}

	topology, err := NewTopology(cfg, resolver)
	if err != nil {
		return nil, err
	}

	cfg.Systems = append([]string(nil), cfg.Systems...)
	o := &Orchestrator{
		cfg:      cfg,
		strategy: StrategyFor(cfg.EnableUpscattering, cfg.WithinGroup),
		topology: topology,
		host:     host,
		reporter: nopReporter{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(slog.String("component", "solver"))

	return o, nil
}

func (o *Orchestrator) Strategy() Strategy { return o.strategy }

func (o *Orchestrator) Topology() *Topology { return o.topology }

func (o *Orchestrator) Config() Config { return o.cfg }

// Solve runs the selected strategy once per grid step, refining the mesh
// between steps. It returns false as soon as a solved step fails to
// converge. A non-nil error is fatal: the strategy is not implemented or the
// host failed outside of a solve.
func (o *Orchestrator) Solve() (bool, error) {
	converged := false
	for step := 0; step <= o.cfg.GridSteps; step++ {
		var err error
		converged, err = o.run()
		if err != nil {
			return false, err
		}

		if o.host.ShouldSolve() {
			o.reporter.StepOutcome(step, true, converged)
			if !converged {
				o.logger.Info("solve did not converge", slog.Int("grid_step", step))
				return false, nil
			}
			o.logger.Info("solve converged", slog.Int("grid_step", step))
		} else {
			o.reporter.StepOutcome(step, false, converged)
			o.logger.Info("solve skipped", slog.Int("grid_step", step))
		}

		if step != o.cfg.GridSteps {
			if err := o.host.RefineUniformly(); err != nil {
				return false, fmt.Errorf("refining mesh after grid step %d: %w", step, err)
			}
		}
	}

	return converged, nil
}

func (o *Orchestrator) run() (bool, error) {
	switch o.strategy {
	case GaussSeidelSourceIteration:
		return o.gaussSeidelSourceIteration()
	case GaussSeidelMonolithic:
		return o.gaussSeidelMonolithic()
	case ForwardSubSourceIteration:
		return o.forwardSubSourceIteration()
	case ForwardSubMonolithic:
		return o.forwardSubMonolithic()
	default:
		return false, fmt.Errorf("%w: strategy %v", ErrInvalidConfig, o.strategy)
	}
}

func (o *Orchestrator) gaussSeidelSourceIteration() (bool, error) {
	return false, fmt.Errorf("%v: %w", o.strategy, ErrStrategyNotImplemented)
}

func (o *Orchestrator) gaussSeidelMonolithic() (bool, error) {
	return false, fmt.Errorf("%v: %w", o.strategy, ErrStrategyNotImplemented)
}

// forwardSubSourceIteration assumes no group depends on a later group.
func (o *Orchestrator) forwardSubSourceIteration() (bool, error) {
	for g := 0; g < o.topology.Groups(); g++ {
		ok, err := o.innerIteration(g)
		if err != nil {
			return false, err
		}
		if !ok {
			o.reporter.GroupOutcome(o.strategy, g, false)
			return false, nil
		}
		o.reporter.GroupOutcome(o.strategy, g, true)
	}
	return true, nil
}

func (o *Orchestrator) forwardSubMonolithic() (bool, error) {
	for g := 0; g < o.topology.Groups(); g++ {
		sys := o.topology.Group(g)
		if err := sys.PrepareForSolve(); err != nil {
			return false, fmt.Errorf("preparing group %d: %w", g, err)
		}
		ok := o.solveOne(sys, g, 0)
		o.reporter.GroupOutcome(o.strategy, g, ok)
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// innerIteration is the scattering source iteration of group g. Flux moments
// must start from zero. The residual checked after each pass is the maximum
// ResidualNorm of the pass, measured by PrepareForSolve against the sources
// lagged from the previous pass.
func (o *Orchestrator) innerIteration(g int) (bool, error) {
	ordinates := o.topology.Ordinates(g)
	tracker := NewTracker(o.cfg.InnerAbsoluteTolerance, o.cfg.MaxInnerIterations)
	allConverged := true

	for tracker.Continue() {
		for n, sys := range ordinates {
			if err := sys.PrepareForSolve(); err != nil {
				return false, fmt.Errorf("preparing group %d ordinate %d: %w", g, n, err)
			}
		}
		for n, sys := range ordinates {
			if !o.solveOne(sys, g, n) {
				allConverged = false
			}
		}
		if !allConverged {
			break
		}

		// Maximum over ordinates, reset every pass.
		residual := 0.0
		for _, sys := range ordinates {
			residual = max(residual, sys.ResidualNorm())
		}
		tracker.Residual = residual
		o.reporter.InnerIteration(g, tracker.Iterations, residual)
		o.logger.Debug("scattering source iteration",
			slog.Int("group", g),
			slog.Int("iteration", tracker.Iterations),
			slog.Float64("residual", residual))

		// Moments are recomputed here and nowhere else so that the scattering
		// source stays lagged by exactly one pass.
		if err := o.host.UpdateMoments(g); err != nil {
			return false, fmt.Errorf("updating flux moments of group %d: %w", g, err)
		}

		tracker.Step()
	}

	if !allConverged || !tracker.Converged() {
		o.logger.Info("scattering source iteration did not converge",
			slog.Int("group", g),
			slog.Int("iterations", tracker.Iterations),
			slog.Float64("residual", tracker.Residual))
		return false, nil
	}
	return true, nil
}

func (o *Orchestrator) solveOne(sys EquationSystem, g, n int) bool {
	if err := sys.Solve(); err != nil {
		o.logger.Warn("equation system solve failed",
			slog.String("system", o.topology.Name(g, n)),
			slog.String("error", err.Error()))
		return false
	}
	return sys.HasConverged()
}
