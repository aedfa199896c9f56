package problem

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"github.com/edp1096/toy-transport/pkg/kernel"
	"github.com/edp1096/toy-transport/pkg/matrix"
	"github.com/edp1096/toy-transport/pkg/solver"
)

// System is the equation system of one group, holding either all of its
// ordinates, a single ordinate or the scalar flux.
type System struct {
	name      string
	problem   *Problem
	group     int
	ordinates []int
	kernels   []kernel.Kernel

	matrix     *matrix.SystemMatrix
	generation int

	residual   float64
	converged  bool
	iterations int
	assembled  bool

	logger *slog.Logger
}

var _ solver.EquationSystem = (*System)(nil)

func newSystem(name string, p *Problem, group int, ordinates []int) *System {
	s := &System{
		name:       name,
		problem:    p,
		group:      group,
		ordinates:  ordinates,
		generation: -1,
		logger:     p.logger.With(slog.String("system", name)),
	}
	s.kernels = s.buildKernels()
	return s
}

func (s *System) buildKernels() []kernel.Kernel {
	st := s.problem.settings
	transfer := kernel.NewGroupTransfer(s.name+":transfer", st.Groups)
	source := kernel.NewSource(s.name + ":source")
	dt := kernel.NewTimeDerivative(s.name + ":time")

	if st.Method == Diffusion {
		return []kernel.Kernel{
			kernel.NewDiffusion(s.name+":diffusion", st.Left, st.Right),
			kernel.NewCollision(s.name+":removal", true),
			transfer, source, dt,
		}
	}

	streaming := kernel.NewStreaming(s.name+":streaming", st.Left, st.Right, s.problem.quad.Mirror)
	collision := kernel.NewCollision(s.name+":collision", false)
	if len(s.ordinates) == 1 {
		return []kernel.Kernel{streaming, collision, kernel.NewLaggedScattering(s.name + ":scattering"), transfer, source, dt}
	}
	return []kernel.Kernel{streaming, collision, kernel.NewScattering(s.name + ":scattering"), transfer, source, dt}
}

func (s *System) Name() string { return s.name }

func (s *System) Group() int { return s.group }

// Iterations is the Newton iteration count of the latest solve.
func (s *System) Iterations() int { return s.iterations }

func (s *System) status() *kernel.Status {
	p := s.problem
	cells := p.mesh.Cells()
	blocks := make([]kernel.Block, len(s.ordinates))
	factor := 1.0
	for k, n := range s.ordinates {
		blocks[k] = kernel.Block{Ordinate: n, Offset: k * len(cells)}
		if n != kernel.ScalarOrdinate {
			blocks[k].Mu = p.quad.Mu[n]
			blocks[k].Weight = p.quad.Weight[n]
		}
	}
	if p.quad != nil {
		factor = 1 / floats.Sum(p.quad.Weight)
	}

	return &kernel.Status{
		Group:           s.group,
		Cells:           cells,
		Materials:       p.cellMaterials,
		Blocks:          blocks,
		IsotropicFactor: factor,
		Fields:          p,
		TimeCoeffs:      p.timeCoeffs,
		Upscattering:    p.settings.Upscattering,
	}
}

func (s *System) size() int { return len(s.ordinates) * s.problem.mesh.NumCells() }

// ensureMatrix rebuilds the sparse matrix after a mesh refinement.
func (s *System) ensureMatrix() error {
	gen := s.problem.mesh.Generation()
	if s.matrix != nil && s.generation == gen {
		return nil
	}
	s.destroy()

	mat, err := matrix.NewMatrix(s.size())
	if err != nil {
		return fmt.Errorf("system %s: %w", s.name, err)
	}
	s.matrix = mat
	s.generation = gen
	return nil
}

// unknowns gathers the current field values of this system, 1-based.
func (s *System) unknowns() []float64 {
	p := s.problem
	cells := p.mesh.NumCells()
	x := make([]float64, s.size()+1)
	for k, n := range s.ordinates {
		for i := 0; i < cells; i++ {
			if n == kernel.ScalarOrdinate {
				x[k*cells+i+1] = p.current.scalar[s.group][i]
			} else {
				x[k*cells+i+1] = p.current.angular[s.group][n][i]
			}
		}
	}
	return x
}

// store writes x back into the fields. A system holding every ordinate of
// its group also owns the scalar flux of that group.
func (s *System) store(x []float64) {
	p := s.problem
	cells := p.mesh.NumCells()
	for k, n := range s.ordinates {
		for i := 0; i < cells; i++ {
			if n == kernel.ScalarOrdinate {
				p.current.scalar[s.group][i] = x[k*cells+i+1]
			} else {
				p.current.angular[s.group][n][i] = x[k*cells+i+1]
			}
		}
	}
	if p.quad != nil && len(s.ordinates) == p.quad.Len() {
		p.integrateMoments(s.group)
	}
}

// PrepareForSolve assembles the system from the latest fields and measures
// the residual of the current solution against it.
func (s *System) PrepareForSolve() error {
	s.converged = false
	s.iterations = 0
	s.assembled = false
	if !s.problem.ShouldSolve() {
		s.residual = 0
		return nil
	}

	if err := s.ensureMatrix(); err != nil {
		return err
	}

	s.matrix.Clear()
	status := s.status()
	for _, k := range s.kernels {
		if err := k.Stamp(s.matrix, status); err != nil {
			return fmt.Errorf("stamping %s: %w", k.GetName(), err)
		}
	}
	if err := s.matrix.Err(); err != nil {
		return fmt.Errorf("system %s: %w", s.name, err)
	}

	s.residual = floats.Norm(s.matrix.Residual(s.unknowns()), 2)
	s.assembled = true
	return nil
}

// Solve runs Newton iterations on F(x) = b - A x until the residual drops
// below abstol + reltol*r0.
func (s *System) Solve() error {
	if !s.problem.ShouldSolve() {
		s.converged = true
		return nil
	}
	if !s.assembled {
		return fmt.Errorf("system %s: solve before prepare", s.name)
	}

	opts := s.problem.settings.Nonlinear
	tol := opts.AbsTol + opts.RelTol*s.residual
	x := s.unknowns()
	norm := s.residual

	for iter := range opts.MaxIterations {
		if norm <= tol {
			s.converged = true
			break
		}

		dx, err := s.matrix.SolveWith(s.matrix.Residual(x))
		if err != nil {
			return fmt.Errorf("system %s: %w", s.name, err)
		}
		for i := 1; i < len(x); i++ {
			x[i] += dx[i]
		}

		norm = floats.Norm(s.matrix.Residual(x), 2)
		s.iterations = iter + 1
	}
	if !s.converged && norm <= tol {
		s.converged = true
	}

	s.store(x)
	s.logger.Debug("system solved",
		slog.Int("iterations", s.iterations),
		slog.Float64("initial_residual", s.residual),
		slog.Float64("final_residual", norm),
		slog.Bool("converged", s.converged))

	if !s.converged {
		return fmt.Errorf("system %s: failed to converge in %d iterations", s.name, opts.MaxIterations)
	}
	return nil
}

func (s *System) HasConverged() bool { return s.converged }

func (s *System) ResidualNorm() float64 { return s.residual }

func (s *System) destroy() {
	if s.matrix != nil {
		s.matrix.Destroy()
		s.matrix = nil
	}
}
