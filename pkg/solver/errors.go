package solver

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate for out-of-range settings.
	ErrInvalidConfig = errors.New("solver: invalid configuration")

	// ErrSystemCountMismatch means the number of equation system identifiers
	// does not match G*N (source iteration) or G (monolithic).
	ErrSystemCountMismatch = errors.New("solver: equation system count mismatch")

	// ErrUnknownSystem is returned when a resolver cannot find a system.
	ErrUnknownSystem = errors.New("solver: unknown equation system")

	// ErrStrategyNotImplemented is returned by Solve for the Gauss-Seidel
	// strategies. Up-scattering needs inter-group residual coupling which is
	// not supported yet.
	ErrStrategyNotImplemented = errors.New("solver: Gauss-Seidel iteration for the multi-group equations has not been implemented yet")
)
