package kernel

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-transport/pkg/matrix"
)

// Streaming is mu*d(psi)/dx with step (upwind) differencing. The outflow of
// a cell is its own cell value.
type Streaming struct {
	BaseKernel
	Left, Right Boundary
	Mirror      func(ordinate int) int
}

var _ Kernel = (*Streaming)(nil)

func NewStreaming(name string, left, right Boundary, mirror func(int) int) *Streaming {
	return &Streaming{BaseKernel: BaseKernel{Name: name}, Left: left, Right: right, Mirror: mirror}
}

func (k *Streaming) GetType() string { return "Streaming" }

func (k *Streaming) Stamp(m matrix.Stamper, status *Status) error {
	if err := status.validate(); err != nil {
		return err
	}

	last := len(status.Cells) - 1
	for _, b := range status.Blocks {
		if b.Ordinate == ScalarOrdinate || b.Mu == 0 {
			return fmt.Errorf("streaming %s: block %d has no direction", k.Name, b.Ordinate)
		}
		mu := math.Abs(b.Mu)

		// Sweep direction: inflow face is the left one for mu > 0.
		first, step, face := 0, 1, k.Left
		if b.Mu < 0 {
			first, step, face = last, -1, k.Right
		}

		for i := 0; i <= last; i++ {
			m.AddElement(b.Dof(i), b.Dof(i), mu)
			upwind := i - step
			if upwind >= 0 && upwind <= last {
				m.AddElement(b.Dof(i), b.Dof(upwind), -mu)
			}
		}

		if err := k.stampInflow(m, status, b, first, mu, face); err != nil {
			return err
		}
	}
	return nil
}

func (k *Streaming) stampInflow(m matrix.Stamper, status *Status, b Block, cell int, mu float64, face Boundary) error {
	switch face.Kind {
	case Vacuum:
	case Incoming:
		m.AddRHS(b.Dof(cell), mu*face.Value(status.Group))
	case Reflective:
		if k.Mirror == nil {
			return fmt.Errorf("streaming %s: reflective face without mirror map", k.Name)
		}
		mirror := k.Mirror(b.Ordinate)
		if mb, ok := status.Block(mirror); ok {
			m.AddElement(b.Dof(cell), mb.Dof(cell), -mu)
		} else {
			// Mirror ordinate lives in another system: lag its outflow.
			m.AddRHS(b.Dof(cell), mu*status.Fields.AngularFlux(status.Group, mirror, cell))
		}
	}
	return nil
}
