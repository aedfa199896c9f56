package util

import "fmt"

// TimeScheme selects the backward differentiation formula used for the
// particle time derivative.
type TimeScheme int

const (
	ImplicitEuler TimeScheme = iota
	BDF2
)

func ParseTimeScheme(name string) (TimeScheme, error) {
	switch name {
	case "", "implicit-euler", "bdf1":
		return ImplicitEuler, nil
	case "bdf2":
		return BDF2, nil
	default:
		return ImplicitEuler, fmt.Errorf("unknown time scheme %q", name)
	}
}

func (s TimeScheme) Order() int {
	if s == BDF2 {
		return 2
	}
	return 1
}

func (s TimeScheme) String() string {
	if s == BDF2 {
		return "bdf2"
	}
	return "implicit-euler"
}

type backwardDifference struct {
	alpha []float64
	beta  float64
}

var bdfTable = [6]backwardDifference{
	{[]float64{1.0}, 1.0},
	{[]float64{4.0 / 3.0, -1.0 / 3.0}, 2.0 / 3.0},
	{[]float64{18.0 / 11.0, -9.0 / 11.0, 2.0 / 11.0}, 6.0 / 11.0},
	{[]float64{48.0 / 25.0, -36.0 / 25.0, 16.0 / 25.0, -3.0 / 25.0}, 12.0 / 25.0},
	{[]float64{300.0 / 137.0, -300.0 / 137.0, 200.0 / 137.0, -75.0 / 137.0, 12.0 / 137.0}, 60.0 / 137.0},
	{[]float64{360.0 / 147.0, -450.0 / 147.0, 400.0 / 147.0, -225.0 / 147.0, 72.0 / 147.0, -10.0 / 147.0}, 60.0 / 147.0},
}

// BDFCoeffs returns c with du/dt ~ c[0]*u(n+1) + c[1]*u(n) + ... + c[order]*u(n+1-order).
func BDFCoeffs(order int, dt float64) []float64 {
	if order < 1 || order > len(bdfTable) {
		order = 1
	}

	bdf := bdfTable[order-1]
	coeffs := make([]float64, order+1)
	scale := 1.0 / (bdf.beta * dt)
	coeffs[0] = scale
	for i := 1; i <= order; i++ {
		coeffs[i] = -bdf.alpha[i-1] * scale
	}

	return coeffs
}
