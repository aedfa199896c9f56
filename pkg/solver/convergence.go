package solver

import "github.com/edp1096/toy-transport/internal/consts"

// ShouldContinue is the loop predicate shared by the inner (within-group) and
// outer (group-to-group) iterations.
func ShouldContinue(residual, tolerance float64, count, maxCount int) bool {
	return residual > tolerance && count < maxCount
}

// Tracker holds the state of one loop invocation. It is created on entry to
// a loop and discarded on exit.
type Tracker struct {
	Tolerance     float64
	MaxIterations int

	Residual   float64
	Iterations int
}

func NewTracker(tolerance float64, maxIterations int) *Tracker {
	return &Tracker{
		Tolerance:     tolerance,
		MaxIterations: maxIterations,
		Residual:      consts.SentinelResidual,
	}
}

func (t *Tracker) Continue() bool {
	return ShouldContinue(t.Residual, t.Tolerance, t.Iterations, t.MaxIterations)
}

func (t *Tracker) Step() { t.Iterations++ }

func (t *Tracker) Converged() bool { return t.Residual <= t.Tolerance }
