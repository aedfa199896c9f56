package solver

// EquationSystem is one coupled system: a single energy group, or a single
// (group, ordinate) pair when source iteration is enabled.
type EquationSystem interface {
	// PrepareForSolve resets residual bookkeeping before a solve pass.
	PrepareForSolve() error
	// Solve blocks until the system is solved. A returned error is a failed
	// solve and is treated as non-convergence.
	Solve() error
	HasConverged() bool
	// ResidualNorm is the residual measured at setup of the latest solve.
	ResidualNorm() float64
}

// Resolver maps configured system identifiers to equation systems.
type Resolver interface {
	System(name string) (EquationSystem, error)
}

// Host is the simulation driver the orchestrator runs inside of.
type Host interface {
	// ShouldSolve is false for administratively skipped (dry run) steps.
	ShouldSolve() bool
	RefineUniformly() error
	// UpdateMoments recomputes the coupling data (flux moments) of a group
	// from its latest ordinate solutions.
	UpdateMoments(group int) error
}

// Reporter receives human-readable progress and pass/fail notifications.
type Reporter interface {
	StepOutcome(step int, solved, converged bool)
	GroupOutcome(strategy Strategy, group int, converged bool)
	InnerIteration(group, iteration int, residual float64)
}

type nopReporter struct{}

func (nopReporter) StepOutcome(int, bool, bool)      {}
func (nopReporter) GroupOutcome(Strategy, int, bool) {}
func (nopReporter) InnerIteration(int, int, float64) {}

// Reporters fans notifications out to several reporters in order.
type Reporters []Reporter

func (rs Reporters) StepOutcome(step int, solved, converged bool) {
	for _, r := range rs {
		r.StepOutcome(step, solved, converged)
	}
}

func (rs Reporters) GroupOutcome(strategy Strategy, group int, converged bool) {
	for _, r := range rs {
		r.GroupOutcome(strategy, group, converged)
	}
}

func (rs Reporters) InnerIteration(group, iteration int, residual float64) {
	for _, r := range rs {
		r.InnerIteration(group, iteration, residual)
	}
}
