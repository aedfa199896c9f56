package kernel

import "github.com/edp1096/toy-transport/pkg/matrix"

// Source is the fixed isotropic material source.
type Source struct {
	BaseKernel
}

var _ Kernel = (*Source)(nil)

func NewSource(name string) *Source {
	return &Source{BaseKernel{Name: name}}
}

func (k *Source) GetType() string { return "Source" }

func (k *Source) Stamp(m matrix.Stamper, status *Status) error {
	if err := status.validate(); err != nil {
		return err
	}

	g := status.Group
	for i, cell := range status.Cells {
		s := status.Materials[i].ExternalSource(g)
		if s == 0 {
			continue
		}
		for _, b := range status.Blocks {
			m.AddRHS(b.Dof(i), status.IsotropicFactor*s*cell.Width)
		}
	}
	return nil
}
