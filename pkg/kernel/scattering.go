package kernel

import "github.com/edp1096/toy-transport/pkg/matrix"

// LaggedScattering puts the in-group scattering source of the latest scalar
// flux on the right-hand side. Source iteration converges on it.
type LaggedScattering struct {
	BaseKernel
}

var _ Kernel = (*LaggedScattering)(nil)

func NewLaggedScattering(name string) *LaggedScattering {
	return &LaggedScattering{BaseKernel{Name: name}}
}

func (k *LaggedScattering) GetType() string { return "LaggedScattering" }

func (k *LaggedScattering) Stamp(m matrix.Stamper, status *Status) error {
	if err := status.validate(); err != nil {
		return err
	}

	g := status.Group
	for i, cell := range status.Cells {
		q := status.IsotropicFactor * status.Materials[i].SelfScatter(g) *
			status.Fields.ScalarFlux(g, i) * cell.Width
		for _, b := range status.Blocks {
			m.AddRHS(b.Dof(i), q)
		}
	}
	return nil
}

// Scattering couples every ordinate block of a cell through the quadrature
// weights so a single solve holds the in-group scattering implicitly.
type Scattering struct {
	BaseKernel
}

var _ Kernel = (*Scattering)(nil)

func NewScattering(name string) *Scattering {
	return &Scattering{BaseKernel{Name: name}}
}

func (k *Scattering) GetType() string { return "Scattering" }

func (k *Scattering) Stamp(m matrix.Stamper, status *Status) error {
	if err := status.validate(); err != nil {
		return err
	}

	g := status.Group
	for i, cell := range status.Cells {
		coupling := status.IsotropicFactor * status.Materials[i].SelfScatter(g) * cell.Width
		if coupling == 0 {
			continue
		}
		for _, row := range status.Blocks {
			for _, col := range status.Blocks {
				m.AddElement(row.Dof(i), col.Dof(i), -coupling*col.Weight)
			}
		}
	}
	return nil
}

// GroupTransfer is the scattering source into the system group from the
// other groups. Transfers from later groups only count with upscattering on.
type GroupTransfer struct {
	BaseKernel
	Groups int
}

var _ Kernel = (*GroupTransfer)(nil)

func NewGroupTransfer(name string, groups int) *GroupTransfer {
	return &GroupTransfer{BaseKernel: BaseKernel{Name: name}, Groups: groups}
}

func (k *GroupTransfer) GetType() string { return "GroupTransfer" }

func (k *GroupTransfer) Stamp(m matrix.Stamper, status *Status) error {
	if err := status.validate(); err != nil {
		return err
	}

	g := status.Group
	last := g
	if status.Upscattering {
		last = k.Groups
	}
	for i, cell := range status.Cells {
		mat := status.Materials[i]
		total := 0.0
		for from := 0; from < last; from++ {
			if from == g {
				continue
			}
			total += mat.Transfer(from, g) * status.Fields.ScalarFlux(from, i)
		}
		if total == 0 {
			continue
		}
		q := status.IsotropicFactor * total * cell.Width
		for _, b := range status.Blocks {
			m.AddRHS(b.Dof(i), q)
		}
	}
	return nil
}
