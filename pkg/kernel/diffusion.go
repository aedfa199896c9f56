package kernel

import (
	"fmt"

	"github.com/edp1096/toy-transport/pkg/matrix"
)

// Diffusion is the cell-centred leakage operator -d/dx D d(phi)/dx. Cell
// faces use the harmonic mean of the neighbouring half-cell resistances and
// slab faces follow the Marshak condition.
type Diffusion struct {
	BaseKernel
	Left, Right Boundary
}

var _ Kernel = (*Diffusion)(nil)

func NewDiffusion(name string, left, right Boundary) *Diffusion {
	return &Diffusion{BaseKernel: BaseKernel{Name: name}, Left: left, Right: right}
}

func (k *Diffusion) GetType() string { return "Diffusion" }

func (k *Diffusion) Stamp(m matrix.Stamper, status *Status) error {
	if err := status.validate(); err != nil {
		return err
	}
	if len(status.Blocks) != 1 || status.Blocks[0].Ordinate != ScalarOrdinate {
		return fmt.Errorf("diffusion %s: needs a single scalar block", k.Name)
	}

	g := status.Group
	b := status.Blocks[0]
	last := len(status.Cells) - 1

	halfResistance := func(i int) float64 {
		return status.Cells[i].Width / (2 * status.Materials[i].DiffusionCoefficient(g))
	}

	for i := 0; i < last; i++ {
		a := 1 / (halfResistance(i) + halfResistance(i+1))
		m.AddElement(b.Dof(i), b.Dof(i), a)
		m.AddElement(b.Dof(i), b.Dof(i+1), -a)
		m.AddElement(b.Dof(i+1), b.Dof(i+1), a)
		m.AddElement(b.Dof(i+1), b.Dof(i), -a)
	}

	k.stampFace(m, b, 0, 1/halfResistance(0), k.Left.Kind, k.Left.Value(g))
	k.stampFace(m, b, last, 1/halfResistance(last), k.Right.Kind, k.Right.Value(g))
	return nil
}

// stampFace applies phi/4 - J/2 = psiIn/2 on a slab face, where beta is the
// conductance 2D/h of the half cell next to it.
func (k *Diffusion) stampFace(m matrix.Stamper, b Block, cell int, beta float64, kind BoundaryKind, psiIn float64) {
	if kind == Reflective {
		return
	}
	m.AddElement(b.Dof(cell), b.Dof(cell), beta/(2*beta+1))
	if kind == Incoming && psiIn != 0 {
		m.AddRHS(b.Dof(cell), 2*psiIn*beta/(2*beta+1))
	}
}
