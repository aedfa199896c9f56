package kernel

import "github.com/edp1096/toy-transport/pkg/matrix"

// TimeDerivative is (1/v) d(psi)/dt discretised with backward differences.
// It stamps nothing for steady-state systems.
type TimeDerivative struct {
	BaseKernel
}

var _ Kernel = (*TimeDerivative)(nil)

func NewTimeDerivative(name string) *TimeDerivative {
	return &TimeDerivative{BaseKernel{Name: name}}
}

func (k *TimeDerivative) GetType() string { return "TimeDerivative" }

func (k *TimeDerivative) Stamp(m matrix.Stamper, status *Status) error {
	if len(status.TimeCoeffs) == 0 {
		return nil
	}
	if err := status.validate(); err != nil {
		return err
	}

	g := status.Group
	coeffs := status.TimeCoeffs
	for i, cell := range status.Cells {
		scale := status.Materials[i].InvVelocity(g) * cell.Width
		for _, b := range status.Blocks {
			m.AddElement(b.Dof(i), b.Dof(i), coeffs[0]*scale)

			past := 0.0
			for lvl := 1; lvl < len(coeffs); lvl++ {
				past += coeffs[lvl] * status.Fields.History(lvl, g, b.Ordinate, i)
			}
			m.AddRHS(b.Dof(i), -past*scale)
		}
	}
	return nil
}
