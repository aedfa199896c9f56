// Package mesh is a one-dimensional slab mesh with uniform refinement.
package mesh

import (
	"errors"
	"fmt"
)

var ErrInvalidRegion = errors.New("mesh: invalid region")

type Region struct {
	Material string
	Width    float64
	Cells    int
}

type Cell struct {
	Left   float64
	Width  float64
	Region int
}

func (c Cell) Center() float64 { return c.Left + c.Width/2 }

type Mesh struct {
	regions    []Region
	cells      []Cell
	generation int
}

func New(regions []Region) (*Mesh, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: no regions", ErrInvalidRegion)
	}

	m := &Mesh{regions: append([]Region(nil), regions...)}
	left := 0.0
	for r, region := range regions {
		if !(region.Width > 0) || region.Cells <= 0 {
			return nil, fmt.Errorf("%w: region %d (%s) width=%g cells=%d",
				ErrInvalidRegion, r, region.Material, region.Width, region.Cells)
		}
		h := region.Width / float64(region.Cells)
		for i := 0; i < region.Cells; i++ {
			m.cells = append(m.cells, Cell{Left: left + float64(i)*h, Width: h, Region: r})
		}
		left += region.Width
	}
	return m, nil
}

func (m *Mesh) NumCells() int { return len(m.cells) }

func (m *Mesh) Cells() []Cell { return m.cells }

func (m *Mesh) Cell(i int) Cell { return m.cells[i] }

func (m *Mesh) Regions() []Region { return m.regions }

func (m *Mesh) Length() float64 {
	last := m.cells[len(m.cells)-1]
	return last.Left + last.Width
}

// Generation counts refinements; systems compare it to decide whether to
// rebuild their matrices.
func (m *Mesh) Generation() int { return m.generation }

// RefineUniformly bisects every cell.
func (m *Mesh) RefineUniformly() {
	refined := make([]Cell, 0, 2*len(m.cells))
	for _, c := range m.cells {
		h := c.Width / 2
		refined = append(refined,
			Cell{Left: c.Left, Width: h, Region: c.Region},
			Cell{Left: c.Left + h, Width: h, Region: c.Region})
	}
	m.cells = refined
	m.generation++
}

// Prolong maps a cell field of the previous generation onto the bisected
// cells by injection.
func Prolong(field []float64) []float64 {
	out := make([]float64, 2*len(field))
	for i, v := range field {
		out[2*i] = v
		out[2*i+1] = v
	}
	return out
}
