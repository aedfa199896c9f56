package kernel

import "github.com/edp1096/toy-transport/pkg/matrix"

// Collision is the loss term of a cell. Ordinate systems lose particles at
// the total cross section; diffusion systems use the removal cross section
// since in-group scattering never leaves the scalar flux.
type Collision struct {
	BaseKernel
	Removal bool
}

var _ Kernel = (*Collision)(nil)

func NewCollision(name string, removal bool) *Collision {
	return &Collision{BaseKernel: BaseKernel{Name: name}, Removal: removal}
}

func (k *Collision) GetType() string {
	if k.Removal {
		return "Removal"
	}
	return "Collision"
}

func (k *Collision) Stamp(m matrix.Stamper, status *Status) error {
	if err := status.validate(); err != nil {
		return err
	}

	g := status.Group
	for i, cell := range status.Cells {
		mat := status.Materials[i]
		sigma := mat.Total[g]
		if k.Removal {
			sigma = mat.Removal(g)
		}
		for _, b := range status.Blocks {
			m.AddElement(b.Dof(i), b.Dof(i), sigma*cell.Width)
		}
	}
	return nil
}
