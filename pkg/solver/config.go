package solver

import (
	"fmt"

	"github.com/edp1096/toy-transport/internal/consts"
)

// WithinGroup selects how the equations of one energy group are solved.
type WithinGroup int

const (
	Monolithic WithinGroup = iota
	SourceIteration
)

func (w WithinGroup) String() string {
	switch w {
	case Monolithic:
		return "monolithic"
	case SourceIteration:
		return "source_iteration"
	default:
		return fmt.Sprintf("WithinGroup(%d)", int(w))
	}
}

// ParseWithinGroup accepts the names printed by WithinGroup.String.
func ParseWithinGroup(name string) (WithinGroup, error) {
	switch name {
	case "", "monolithic":
		return Monolithic, nil
	case "source_iteration":
		return SourceIteration, nil
	default:
		return Monolithic, fmt.Errorf("%w: within-group solve type %q", ErrInvalidConfig, name)
	}
}

// Config is immutable once an Orchestrator has been built from it.
type Config struct {
	Groups             int
	Ordinates          int
	EnableUpscattering bool
	WithinGroup        WithinGroup

	MaxInnerIterations     int
	MaxOuterIterations     int
	InnerAbsoluteTolerance float64
	OuterAbsoluteTolerance float64

	// GridSteps is the number of uniform mesh refinements; the strategy runs
	// GridSteps+1 times.
	GridSteps int

	// Systems lists equation system identifiers in (group, ordinate) order.
	Systems []string
}

func DefaultConfig() Config {
	return Config{
		Groups:                 1,
		Ordinates:              1,
		EnableUpscattering:     true,
		WithinGroup:            Monolithic,
		MaxInnerIterations:     consts.DefaultMaxInnerIterations,
		MaxOuterIterations:     consts.DefaultMaxOuterIterations,
		InnerAbsoluteTolerance: consts.DefaultInnerTolerance,
		OuterAbsoluteTolerance: consts.DefaultOuterTolerance,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Groups <= 0:
		return fmt.Errorf("%w: num_groups must be > 0, got %d", ErrInvalidConfig, c.Groups)
	case c.Ordinates <= 0:
		return fmt.Errorf("%w: num_ordinates must be > 0, got %d", ErrInvalidConfig, c.Ordinates)
	case c.MaxInnerIterations <= 0:
		return fmt.Errorf("%w: max_inner_iterations must be > 0, got %d", ErrInvalidConfig, c.MaxInnerIterations)
	case c.MaxOuterIterations <= 0:
		return fmt.Errorf("%w: max_outer_iterations must be > 0, got %d", ErrInvalidConfig, c.MaxOuterIterations)
	case !(c.InnerAbsoluteTolerance > 0):
		return fmt.Errorf("%w: inner_absolute_tolerance must be > 0, got %g", ErrInvalidConfig, c.InnerAbsoluteTolerance)
	case !(c.OuterAbsoluteTolerance > 0):
		return fmt.Errorf("%w: outer_absolute_tolerance must be > 0, got %g", ErrInvalidConfig, c.OuterAbsoluteTolerance)
	case c.GridSteps < 0:
		return fmt.Errorf("%w: grid steps must be >= 0, got %d", ErrInvalidConfig, c.GridSteps)
	case c.WithinGroup != Monolithic && c.WithinGroup != SourceIteration:
		return fmt.Errorf("%w: within-group solve type %v", ErrInvalidConfig, c.WithinGroup)
	}
	return nil
}

// ExpectedSystems is G*N with source iteration, G otherwise.
func (c Config) ExpectedSystems() int {
	if c.WithinGroup == SourceIteration {
		return c.Groups * c.Ordinates
	}
	return c.Groups
}
