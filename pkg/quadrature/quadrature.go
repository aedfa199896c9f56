// Package quadrature provides discrete ordinate sets for slab geometry.
package quadrature

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate/quad"
)

var ErrInvalidOrder = errors.New("quadrature: number of ordinates must be even and > 0")

// Set is a Gauss-Legendre set on mu in [-1, 1], sorted by ascending mu.
// Weights sum to 2.
type Set struct {
	Mu     []float64
	Weight []float64
}

func GaussLegendre(n int) (*Set, error) {
	if n <= 0 || n%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}

	mu := make([]float64, n)
	w := make([]float64, n)
	quad.Legendre{}.FixedLocations(mu, w, -1, 1)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return mu[idx[a]] < mu[idx[b]] })

	s := &Set{Mu: make([]float64, n), Weight: make([]float64, n)}
	for k, i := range idx {
		s.Mu[k] = mu[i]
		s.Weight[k] = w[i]
	}
	return s, nil
}

func (s *Set) Len() int { return len(s.Mu) }

// Mirror is the ordinate with opposite direction cosine.
func (s *Set) Mirror(n int) int { return len(s.Mu) - 1 - n }

// ScalarFlux integrates angular fluxes psi[n] over all ordinates.
func (s *Set) ScalarFlux(psi []float64) float64 {
	phi := 0.0
	for n, w := range s.Weight {
		phi += w * psi[n]
	}
	return phi
}
