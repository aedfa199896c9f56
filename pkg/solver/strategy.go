package solver

import "fmt"

// Strategy is one of the four multi-group solution schemes.
type Strategy int

const (
	GaussSeidelSourceIteration Strategy = iota
	GaussSeidelMonolithic
	ForwardSubSourceIteration
	ForwardSubMonolithic
)

// StrategyFor maps the two configuration switches onto a strategy.
func StrategyFor(upscattering bool, within WithinGroup) Strategy {
	switch {
	case upscattering && within == SourceIteration:
		return GaussSeidelSourceIteration
	case upscattering:
		return GaussSeidelMonolithic
	case within == SourceIteration:
		return ForwardSubSourceIteration
	default:
		return ForwardSubMonolithic
	}
}

func (s Strategy) String() string {
	switch s {
	case GaussSeidelSourceIteration:
		return "gauss-seidel/source-iteration"
	case GaussSeidelMonolithic:
		return "gauss-seidel/monolithic"
	case ForwardSubSourceIteration:
		return "forward-substitution/source-iteration"
	case ForwardSubMonolithic:
		return "forward-substitution/monolithic"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

func (s Strategy) GaussSeidel() bool {
	return s == GaussSeidelSourceIteration || s == GaussSeidelMonolithic
}

func (s Strategy) SourceIteration() bool {
	return s == GaussSeidelSourceIteration || s == ForwardSubSourceIteration
}
