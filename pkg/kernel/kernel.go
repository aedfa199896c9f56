// Package kernel contains the per-cell terms of the discretised group
// equations. Each kernel stamps its matrix and right-hand side contributions
// for one equation system; cell equations are integrated over the cell
// width.
package kernel

import (
	"errors"
	"fmt"

	"github.com/edp1096/toy-transport/pkg/material"
	"github.com/edp1096/toy-transport/pkg/matrix"
	"github.com/edp1096/toy-transport/pkg/mesh"
)

var ErrBadStatus = errors.New("kernel: inconsistent status")

type Kernel interface {
	GetName() string
	GetType() string
	Stamp(m matrix.Stamper, status *Status) error
}

type BaseKernel struct {
	Name string
}

func (k *BaseKernel) GetName() string { return k.Name }

// ScalarOrdinate marks the block of a diffusion (scalar flux) system.
const ScalarOrdinate = -1

// Block is the unknown range of one ordinate inside a system.
type Block struct {
	Ordinate int
	Mu       float64
	Weight   float64
	Offset   int
}

// Dof is the 1-based unknown index of cell i.
func (b Block) Dof(i int) int { return b.Offset + i + 1 }

// Fields exposes the latest solution state of the whole problem.
type Fields interface {
	ScalarFlux(group, cell int) float64
	AngularFlux(group, ordinate, cell int) float64
	// History is the value k time levels back (k >= 1).
	History(k, group, ordinate, cell int) float64
}

type Status struct {
	Group     int
	Cells     []mesh.Cell
	Materials []*material.Material // per cell
	Blocks    []Block

	// IsotropicFactor converts a scalar source into the source of one
	// block: 1/sum(weights) for ordinates, 1 for scalar unknowns.
	IsotropicFactor float64

	Fields     Fields
	TimeCoeffs []float64 // BDF coefficients, nil for steady state

	// Upscattering includes transfers from later groups in the source.
	Upscattering bool
}

func (s *Status) validate() error {
	if len(s.Cells) == 0 || len(s.Materials) != len(s.Cells) || len(s.Blocks) == 0 {
		return fmt.Errorf("%w: cells=%d materials=%d blocks=%d",
			ErrBadStatus, len(s.Cells), len(s.Materials), len(s.Blocks))
	}
	if s.Fields == nil {
		return fmt.Errorf("%w: no fields", ErrBadStatus)
	}
	return nil
}

// Block returns the block of a global ordinate if this system holds it.
func (s *Status) Block(ordinate int) (Block, bool) {
	for _, b := range s.Blocks {
		if b.Ordinate == ordinate {
			return b, true
		}
	}
	return Block{}, false
}

type BoundaryKind int

const (
	Vacuum BoundaryKind = iota
	Reflective
	Incoming
)

func ParseBoundaryKind(name string) (BoundaryKind, error) {
	switch name {
	case "", "vacuum":
		return Vacuum, nil
	case "reflective":
		return Reflective, nil
	case "incoming":
		return Incoming, nil
	default:
		return Vacuum, fmt.Errorf("unknown boundary condition %q", name)
	}
}

func (k BoundaryKind) String() string {
	switch k {
	case Reflective:
		return "reflective"
	case Incoming:
		return "incoming"
	default:
		return "vacuum"
	}
}

// Boundary is a slab face condition. Values holds the isotropic incoming
// angular flux per group for Incoming faces.
type Boundary struct {
	Kind   BoundaryKind
	Values []float64
}

func (b Boundary) Value(g int) float64 {
	if b.Kind != Incoming || g >= len(b.Values) {
		return 0
	}
	return b.Values[g]
}
