// Package material holds multigroup macroscopic cross sections.
package material

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownMaterial = errors.New("material: unknown material")
	ErrInvalidMaterial = errors.New("material: invalid cross sections")
)

// Material is isotropic-scattering multigroup data. Scatter[from][to] is the
// transfer cross section from group "from" into group "to".
type Material struct {
	Name            string
	Total           []float64
	Scatter         [][]float64
	Source          []float64
	InverseVelocity []float64
	Diffusion       []float64 // optional; 1/(3*Total) when empty
}

func (m *Material) Validate(groups int) error {
	if len(m.Total) != groups {
		return fmt.Errorf("%w: %s: %d total cross sections for %d groups", ErrInvalidMaterial, m.Name, len(m.Total), groups)
	}
	if len(m.Scatter) != groups {
		return fmt.Errorf("%w: %s: scattering matrix has %d rows for %d groups", ErrInvalidMaterial, m.Name, len(m.Scatter), groups)
	}
	for from, row := range m.Scatter {
		if len(row) != groups {
			return fmt.Errorf("%w: %s: scattering row %d has %d entries", ErrInvalidMaterial, m.Name, from, len(row))
		}
		for to, v := range row {
			if v < 0 || math.IsNaN(v) {
				return fmt.Errorf("%w: %s: scatter[%d][%d]=%g", ErrInvalidMaterial, m.Name, from, to, v)
			}
		}
	}
	for g, st := range m.Total {
		if st < 0 || math.IsNaN(st) {
			return fmt.Errorf("%w: %s: total[%d]=%g", ErrInvalidMaterial, m.Name, g, st)
		}
	}
	for name, v := range map[string][]float64{"source": m.Source, "inverse_velocity": m.InverseVelocity, "diffusion": m.Diffusion} {
		if len(v) != 0 && len(v) != groups {
			return fmt.Errorf("%w: %s: %d %s values for %d groups", ErrInvalidMaterial, m.Name, len(v), name, groups)
		}
	}
	return nil
}

// HasUpscattering reports a transfer from a group into an earlier group.
func (m *Material) HasUpscattering() bool {
	for from, row := range m.Scatter {
		for to := 0; to < from; to++ {
			if row[to] != 0 {
				return true
			}
		}
	}
	return false
}

func (m *Material) SelfScatter(g int) float64 { return m.Scatter[g][g] }

func (m *Material) Transfer(from, to int) float64 { return m.Scatter[from][to] }

func (m *Material) Removal(g int) float64 { return m.Total[g] - m.Scatter[g][g] }

func (m *Material) ExternalSource(g int) float64 {
	if len(m.Source) == 0 {
		return 0
	}
	return m.Source[g]
}

func (m *Material) InvVelocity(g int) float64 {
	if len(m.InverseVelocity) == 0 {
		return 0
	}
	return m.InverseVelocity[g]
}

func (m *Material) DiffusionCoefficient(g int) float64 {
	if len(m.Diffusion) != 0 {
		return m.Diffusion[g]
	}
	return 1.0 / (3.0 * m.Total[g])
}

type Library map[string]*Material

func (l Library) Get(name string) (*Material, error) {
	m, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}
	return m, nil
}

func (l Library) Validate(groups int) error {
	for _, m := range l {
		if err := m.Validate(groups); err != nil {
			return err
		}
	}
	return nil
}

func (l Library) HasUpscattering() bool {
	for _, m := range l {
		if m.HasUpscattering() {
			return true
		}
	}
	return false
}
