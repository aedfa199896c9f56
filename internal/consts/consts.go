package consts

const (
	SentinelResidual = 1.0 // Seed residual for every convergence loop, larger than any usable tolerance

	DefaultMaxInnerIterations = 1000
	DefaultMaxOuterIterations = 1000
	DefaultInnerTolerance     = 1e-8
	DefaultOuterTolerance     = 1e-8

	DefaultMaxNonlinearIterations = 50    // Per equation system solve
	DefaultNonlinearAbsTol        = 1e-10 // Per equation system solve
	DefaultNonlinearRelTol        = 1e-8  // Relative to the initial residual of a solve
)
