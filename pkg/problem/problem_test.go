package problem

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-transport/pkg/kernel"
	"github.com/edp1096/toy-transport/pkg/material"
	"github.com/edp1096/toy-transport/pkg/mesh"
	"github.com/edp1096/toy-transport/pkg/solver"
)

var reflective = kernel.Boundary{Kind: kernel.Reflective}

func absorber() material.Library {
	return material.Library{
		"fuel": {
			Name:            "fuel",
			Total:           []float64{1},
			Scatter:         [][]float64{{0.5}},
			Source:          []float64{1},
			InverseVelocity: []float64{1},
		},
	}
}

func newSlab(t *testing.T, settings Settings, lib material.Library, cells int) *Problem {
	t.Helper()
	m, err := mesh.New([]mesh.Region{{Material: "fuel", Width: 1, Cells: cells}})
	require.NoError(t, err)

	p, err := New("slab", settings, m, lib)
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	return p
}

func solve(t *testing.T, p *Problem, gridSteps int) bool {
	t.Helper()
	cfg := solver.DefaultConfig()
	cfg.GridSteps = gridSteps
	o, err := solver.New(p.SolverConfig(cfg), p, p)
	require.NoError(t, err)

	ok, err := o.Solve()
	require.NoError(t, err)
	return ok
}

func TestInfiniteMedium(t *testing.T) {
	cases := []struct {
		name   string
		method Method
		within solver.WithinGroup
		delta  float64
	}{
		{"sn monolithic", DiscreteOrdinates, solver.Monolithic, 1e-9},
		{"sn source iteration", DiscreteOrdinates, solver.SourceIteration, 1e-5},
		{"diffusion", Diffusion, solver.Monolithic, 1e-9},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := DefaultSettings()
			settings.Ordinates = 4
			settings.Method = tc.method
			settings.WithinGroup = tc.within
			settings.Left, settings.Right = reflective, reflective

			p := newSlab(t, settings, absorber(), 4)
			require.True(t, solve(t, p, 0))

			// phi = S / (total - self scatter)
			for i, phi := range p.ScalarFluxes()[0] {
				assert.InDelta(t, 2.0, phi, tc.delta, "cell %d", i)
			}
		})
	}
}

func TestDownscatter(t *testing.T) {
	lib := material.Library{
		"fuel": {
			Name:    "fuel",
			Total:   []float64{1, 2},
			Scatter: [][]float64{{0.2, 0.3}, {0, 0.5}},
			Source:  []float64{1, 0},
		},
	}
	settings := DefaultSettings()
	settings.Groups = 2
	settings.Left, settings.Right = reflective, reflective

	p := newSlab(t, settings, lib, 3)
	require.True(t, solve(t, p, 0))

	phi := p.ScalarFluxes()
	for i := range phi[0] {
		assert.InDelta(t, 1.25, phi[0][i], 1e-9)
		assert.InDelta(t, 0.3*1.25/1.5, phi[1][i], 1e-9)
	}
	assert.InDelta(t, 1.25, p.GroupTotals()[0], 1e-9)
}

func TestUpscatteringIsNotImplemented(t *testing.T) {
	lib := material.Library{
		"fuel": {Name: "fuel", Total: []float64{1, 1}, Scatter: [][]float64{{0.1, 0.1}, {0.1, 0.1}}},
	}
	settings := DefaultSettings()
	settings.Groups = 2
	settings.Upscattering = lib.HasUpscattering()

	p := newSlab(t, settings, lib, 2)
	o, err := solver.New(p.SolverConfig(solver.DefaultConfig()), p, p)
	require.NoError(t, err)

	ok, err := o.Solve()
	assert.False(t, ok)
	assert.ErrorIs(t, err, solver.ErrStrategyNotImplemented)
	assert.Equal(t, [][]float64{{0, 0}, {0, 0}}, p.ScalarFluxes())
}

func TestSourceIterationMatchesMonolithic(t *testing.T) {
	run := func(within solver.WithinGroup) []float64 {
		settings := DefaultSettings()
		settings.Ordinates = 4
		settings.WithinGroup = within
		settings.Left = kernel.Boundary{Kind: kernel.Incoming, Values: []float64{0.5}}

		p := newSlab(t, settings, absorber(), 8)
		require.True(t, solve(t, p, 0))
		return p.ScalarFluxes()[0]
	}

	mono, si := run(solver.Monolithic), run(solver.SourceIteration)
	require.Len(t, si, len(mono))
	for i := range mono {
		assert.InDelta(t, mono[i], si[i], 1e-5, "cell %d", i)
	}
}

func TestVacuumSlabIsSymmetric(t *testing.T) {
	settings := DefaultSettings()
	settings.Ordinates = 8

	p := newSlab(t, settings, absorber(), 10)
	require.True(t, solve(t, p, 0))

	phi := p.ScalarFluxes()[0]
	last := len(phi) - 1
	for i := range phi {
		assert.Greater(t, phi[i], 0.0)
		assert.Less(t, phi[i], 2.0, "leakage keeps the flux below the infinite medium value")
		assert.InDelta(t, phi[i], phi[last-i], 1e-9)
	}
	assert.Greater(t, phi[last/2], phi[0])
}

func TestRefinement(t *testing.T) {
	settings := DefaultSettings()
	settings.Left, settings.Right = reflective, reflective

	p := newSlab(t, settings, absorber(), 2)
	require.True(t, solve(t, p, 2))

	assert.Equal(t, 8, p.Mesh().NumCells())
	assert.Equal(t, 2, p.Mesh().Generation())
	require.Len(t, p.Positions(), 8)
	assert.InDelta(t, 1.0/16, p.Positions()[0], 1e-15)
	for _, phi := range p.ScalarFluxes()[0] {
		assert.InDelta(t, 2.0, phi, 1e-9)
	}
}

func TestDryRun(t *testing.T) {
	settings := DefaultSettings()
	settings.WithinGroup = solver.SourceIteration
	settings.Solve = false

	p := newSlab(t, settings, absorber(), 2)
	assert.False(t, p.ShouldSolve())
	require.True(t, solve(t, p, 1))
	assert.Equal(t, [][]float64{{0, 0, 0, 0}}, p.ScalarFluxes())
}

func TestSystemNames(t *testing.T) {
	lib := material.Library{
		"fuel": {Name: "fuel", Total: []float64{1, 1}, Scatter: [][]float64{{0, 0}, {0, 0}}},
	}
	settings := DefaultSettings()
	settings.Groups = 2
	settings.WithinGroup = solver.SourceIteration

	p := newSlab(t, settings, lib, 1)
	assert.Equal(t, []string{"flux_g0_n0", "flux_g0_n1", "flux_g1_n0", "flux_g1_n1"}, p.SystemNames())

	cfg := p.SolverConfig(solver.DefaultConfig())
	assert.Equal(t, 2, cfg.Groups)
	assert.Equal(t, 2, cfg.Ordinates)
	assert.Equal(t, solver.SourceIteration, cfg.WithinGroup)

	sys, err := p.System("flux_g1_n0")
	require.NoError(t, err)
	assert.Equal(t, 1, sys.(*System).Group())

	_, err = p.System("flux_g2_n0")
	assert.ErrorIs(t, err, ErrUnknownSystem)
}

func TestSolveBeforePrepare(t *testing.T) {
	p := newSlab(t, DefaultSettings(), absorber(), 1)
	sys, err := p.System("flux_g0")
	require.NoError(t, err)
	assert.Error(t, sys.Solve())
	assert.False(t, sys.HasConverged())
}

func TestPrepareTwiceReassembles(t *testing.T) {
	settings := DefaultSettings()
	settings.Left, settings.Right = reflective, reflective
	p := newSlab(t, settings, absorber(), 3)

	sys, err := p.System("flux_g0")
	require.NoError(t, err)

	require.NoError(t, sys.PrepareForSolve())
	assert.Greater(t, sys.ResidualNorm(), 0.0)
	require.NoError(t, sys.Solve())

	// Same mesh generation: the matrix is cleared and stamped again.
	require.NoError(t, sys.PrepareForSolve())
	assert.InDelta(t, 0.0, sys.ResidualNorm(), 1e-6)
	require.NoError(t, sys.Solve())
	assert.True(t, sys.HasConverged())
}

func TestMonolithicSolveUpdatesScalarFlux(t *testing.T) {
	settings := DefaultSettings()
	settings.Left, settings.Right = reflective, reflective
	p := newSlab(t, settings, absorber(), 2)

	sys, err := p.System("flux_g0")
	require.NoError(t, err)
	require.NoError(t, sys.PrepareForSolve())
	require.NoError(t, sys.Solve())

	for i := 0; i < 2; i++ {
		for n := 0; n < settings.Ordinates; n++ {
			assert.InDelta(t, 1.0, p.AngularFlux(0, n, i), 1e-9)
		}
		assert.InDelta(t, 2.0, p.ScalarFlux(0, i), 1e-9, "cell %d", i)
	}
}

func TestSettingsValidation(t *testing.T) {
	m, err := mesh.New([]mesh.Region{{Material: "fuel", Width: 1, Cells: 1}})
	require.NoError(t, err)

	settings := DefaultSettings()
	settings.Method = Diffusion
	settings.WithinGroup = solver.SourceIteration
	_, err = New("bad", settings, m, absorber())
	assert.ErrorIs(t, err, ErrInvalidSettings)

	settings = DefaultSettings()
	settings.Ordinates = 3
	_, err = New("odd", settings, m, absorber())
	assert.Error(t, err)

	settings = DefaultSettings()
	_, err = New("missing", settings, m, material.Library{})
	assert.ErrorIs(t, err, material.ErrUnknownMaterial)

	method, err := ParseMethod("diffusion")
	require.NoError(t, err)
	assert.Equal(t, Diffusion, method)
	_, err = ParseMethod("p3")
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestPrintSystems(t *testing.T) {
	p := newSlab(t, DefaultSettings(), absorber(), 1)

	var buf bytes.Buffer
	p.PrintSystems(&buf)
	assert.Contains(t, buf.String(), "flux_g0: not assembled")

	require.True(t, solve(t, p, 0))
	buf.Reset()
	p.PrintSystems(&buf)
	assert.Contains(t, buf.String(), "flux_g0 (group 0):")
	assert.Contains(t, buf.String(), "Equation 2:")
}
