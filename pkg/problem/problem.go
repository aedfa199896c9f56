// Package problem is the 1D slab radiation transport host driven by the
// iteration orchestrator. It owns the mesh, the cross sections, the angular
// and scalar flux fields and one equation system per group (monolithic) or
// per group and ordinate (source iteration).
package problem

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/edp1096/toy-transport/internal/consts"
	"github.com/edp1096/toy-transport/pkg/kernel"
	"github.com/edp1096/toy-transport/pkg/material"
	"github.com/edp1096/toy-transport/pkg/mesh"
	"github.com/edp1096/toy-transport/pkg/quadrature"
	"github.com/edp1096/toy-transport/pkg/solver"
)

var (
	ErrInvalidSettings = errors.New("problem: invalid settings")
	ErrUnknownSystem   = errors.New("problem: unknown equation system")
)

// Method is the angular discretisation of the group equations.
type Method int

const (
	DiscreteOrdinates Method = iota
	Diffusion
)

func ParseMethod(name string) (Method, error) {
	switch name {
	case "", "sn":
		return DiscreteOrdinates, nil
	case "diffusion":
		return Diffusion, nil
	default:
		return DiscreteOrdinates, fmt.Errorf("%w: method %q", ErrInvalidSettings, name)
	}
}

func (m Method) String() string {
	if m == Diffusion {
		return "diffusion"
	}
	return "sn"
}

// NonlinearOptions bound the Newton loop of a single system solve.
type NonlinearOptions struct {
	MaxIterations int
	AbsTol        float64
	RelTol        float64
}

type Settings struct {
	Groups       int
	Ordinates    int // ignored for diffusion
	Method       Method
	WithinGroup  solver.WithinGroup
	Upscattering bool
	Left, Right  kernel.Boundary
	Nonlinear    NonlinearOptions

	// Solve false turns every step into a dry run.
	Solve bool
}

func DefaultSettings() Settings {
	return Settings{
		Groups:      1,
		Ordinates:   2,
		Method:      DiscreteOrdinates,
		WithinGroup: solver.Monolithic,
		Nonlinear: NonlinearOptions{
			MaxIterations: consts.DefaultMaxNonlinearIterations,
			AbsTol:        consts.DefaultNonlinearAbsTol,
			RelTol:        consts.DefaultNonlinearRelTol,
		},
		Solve: true,
	}
}

// fieldState is the solution of one time level.
type fieldState struct {
	angular [][][]float64 // [group][ordinate][cell]
	scalar  [][]float64   // [group][cell]
}

func newFieldState(groups, ordinates, cells int) fieldState {
	s := fieldState{
		angular: make([][][]float64, groups),
		scalar:  make([][]float64, groups),
	}
	for g := range s.angular {
		s.angular[g] = make([][]float64, ordinates)
		for n := range s.angular[g] {
			s.angular[g][n] = make([]float64, cells)
		}
		s.scalar[g] = make([]float64, cells)
	}
	return s
}

func (s fieldState) clone() fieldState {
	c := fieldState{
		angular: make([][][]float64, len(s.angular)),
		scalar:  make([][]float64, len(s.scalar)),
	}
	for g := range s.angular {
		c.angular[g] = make([][]float64, len(s.angular[g]))
		for n, psi := range s.angular[g] {
			c.angular[g][n] = append([]float64(nil), psi...)
		}
		c.scalar[g] = append([]float64(nil), s.scalar[g]...)
	}
	return c
}

func (s fieldState) prolong() fieldState {
	p := fieldState{
		angular: make([][][]float64, len(s.angular)),
		scalar:  make([][]float64, len(s.scalar)),
	}
	for g := range s.angular {
		p.angular[g] = make([][]float64, len(s.angular[g]))
		for n, psi := range s.angular[g] {
			p.angular[g][n] = mesh.Prolong(psi)
		}
		p.scalar[g] = mesh.Prolong(s.scalar[g])
	}
	return p
}

// Problem implements solver.Resolver, solver.Host and kernel.Fields.
type Problem struct {
	name      string
	settings  Settings
	mesh      *mesh.Mesh
	materials material.Library
	quad      *quadrature.Set // nil for diffusion

	cellMaterials []*material.Material

	current    fieldState
	history    []fieldState // history[k-1] is k time levels back
	timeCoeffs []float64

	systems map[string]*System
	order   []string

	logger *slog.Logger
}

var (
	_ solver.Resolver = (*Problem)(nil)
	_ solver.Host     = (*Problem)(nil)
	_ kernel.Fields   = (*Problem)(nil)
)

type Option func(*Problem)

func WithLogger(l *slog.Logger) Option {
	return func(p *Problem) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(name string, settings Settings, m *mesh.Mesh, lib material.Library, opts ...Option) (*Problem, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: no mesh", ErrInvalidSettings)
	}
	if err := lib.Validate(settings.Groups); err != nil {
		return nil, err
	}

	p := &Problem{
		name:      name,
		settings:  settings,
		mesh:      m,
		materials: lib,
		systems:   make(map[string]*System),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "problem"), slog.String("problem", name))

	ordinates := 0
	if settings.Method == DiscreteOrdinates {
		quad, err := quadrature.GaussLegendre(settings.Ordinates)
		if err != nil {
			return nil, fmt.Errorf("building quadrature: %w", err)
		}
		p.quad = quad
		ordinates = quad.Len()
	}

	if err := p.assignMaterials(); err != nil {
		return nil, err
	}
	p.current = newFieldState(settings.Groups, ordinates, m.NumCells())

	if err := p.setupSystems(); err != nil {
		return nil, err
	}

	p.logger.Info("problem created",
		slog.String("method", settings.Method.String()),
		slog.String("within_group", settings.WithinGroup.String()),
		slog.Int("groups", settings.Groups),
		slog.Int("ordinates", ordinates),
		slog.Int("cells", m.NumCells()),
		slog.Int("systems", len(p.order)))

	return p, nil
}

func (s Settings) validate() error {
	switch {
	case s.Groups <= 0:
		return fmt.Errorf("%w: groups must be > 0, got %d", ErrInvalidSettings, s.Groups)
	case s.Method == DiscreteOrdinates && s.Ordinates <= 0:
		return fmt.Errorf("%w: ordinates must be > 0, got %d", ErrInvalidSettings, s.Ordinates)
	case s.Method == Diffusion && s.WithinGroup == solver.SourceIteration:
		return fmt.Errorf("%w: diffusion has no ordinates to iterate over", ErrInvalidSettings)
	case s.Nonlinear.MaxIterations <= 0:
		return fmt.Errorf("%w: nonlinear max iterations must be > 0", ErrInvalidSettings)
	case !(s.Nonlinear.AbsTol > 0) || s.Nonlinear.RelTol < 0:
		return fmt.Errorf("%w: nonlinear tolerances abs=%g rel=%g", ErrInvalidSettings, s.Nonlinear.AbsTol, s.Nonlinear.RelTol)
	}
	return nil
}

func (p *Problem) assignMaterials() error {
	regions := p.mesh.Regions()
	mats := make([]*material.Material, len(regions))
	for r, region := range regions {
		mat, err := p.materials.Get(region.Material)
		if err != nil {
			return fmt.Errorf("region %d: %w", r, err)
		}
		mats[r] = mat
	}

	p.cellMaterials = make([]*material.Material, p.mesh.NumCells())
	for i, cell := range p.mesh.Cells() {
		p.cellMaterials[i] = mats[cell.Region]
	}
	return nil
}

func (p *Problem) setupSystems() error {
	for g := 0; g < p.settings.Groups; g++ {
		switch {
		case p.settings.Method == Diffusion:
			p.addSystem(newSystem(fmt.Sprintf("flux_g%d", g), p, g, []int{kernel.ScalarOrdinate}))
		case p.settings.WithinGroup == solver.SourceIteration:
			for n := 0; n < p.quad.Len(); n++ {
				p.addSystem(newSystem(fmt.Sprintf("flux_g%d_n%d", g, n), p, g, []int{n}))
			}
		default:
			all := make([]int, p.quad.Len())
			for n := range all {
				all[n] = n
			}
			p.addSystem(newSystem(fmt.Sprintf("flux_g%d", g), p, g, all))
		}
	}
	return nil
}

func (p *Problem) addSystem(s *System) {
	p.systems[s.name] = s
	p.order = append(p.order, s.name)
}

func (p *Problem) Name() string { return p.name }

func (p *Problem) Settings() Settings { return p.settings }

func (p *Problem) Mesh() *mesh.Mesh { return p.mesh }

// SystemNames lists system identifiers in (group, ordinate) order.
func (p *Problem) SystemNames() []string {
	return append([]string(nil), p.order...)
}

// System implements solver.Resolver.
func (p *Problem) System(name string) (solver.EquationSystem, error) {
	s, ok := p.systems[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSystem, name)
	}
	return s, nil
}

// SolverConfig fills the problem dependent fields of base.
func (p *Problem) SolverConfig(base solver.Config) solver.Config {
	cfg := base
	cfg.Groups = p.settings.Groups
	cfg.Ordinates = 1
	if p.quad != nil {
		cfg.Ordinates = p.quad.Len()
	}
	cfg.EnableUpscattering = p.settings.Upscattering
	cfg.WithinGroup = p.settings.WithinGroup
	cfg.Systems = p.SystemNames()
	return cfg
}

func (p *Problem) ShouldSolve() bool { return p.settings.Solve }

// RefineUniformly bisects every cell and carries all fields over.
func (p *Problem) RefineUniformly() error {
	p.mesh.RefineUniformly()
	if err := p.assignMaterials(); err != nil {
		return err
	}

	p.current = p.current.prolong()
	for k := range p.history {
		p.history[k] = p.history[k].prolong()
	}

	p.logger.Info("mesh refined",
		slog.Int("generation", p.mesh.Generation()),
		slog.Int("cells", p.mesh.NumCells()))
	return nil
}

// UpdateMoments recomputes the scalar flux of a group from its ordinates.
func (p *Problem) UpdateMoments(group int) error {
	if group < 0 || group >= p.settings.Groups {
		return fmt.Errorf("%w: group %d", ErrInvalidSettings, group)
	}
	p.integrateMoments(group)
	return nil
}

func (p *Problem) integrateMoments(group int) {
	if p.quad == nil {
		return
	}

	psi := make([]float64, p.quad.Len())
	for i := range p.current.scalar[group] {
		for n := range psi {
			psi[n] = p.current.angular[group][n][i]
		}
		p.current.scalar[group][i] = p.quad.ScalarFlux(psi)
	}
}

func (p *Problem) ScalarFlux(group, cell int) float64 {
	return p.current.scalar[group][cell]
}

func (p *Problem) AngularFlux(group, ordinate, cell int) float64 {
	return p.current.angular[group][ordinate][cell]
}

func (p *Problem) History(k, group, ordinate, cell int) float64 {
	if k < 1 || k > len(p.history) {
		return 0
	}
	state := p.history[k-1]
	if ordinate == kernel.ScalarOrdinate {
		return state.scalar[group][cell]
	}
	return state.angular[group][ordinate][cell]
}

// SetTimeCoefficients switches the systems to a transient step with the
// given backward difference coefficients. nil means steady state.
func (p *Problem) SetTimeCoefficients(coeffs []float64) {
	p.timeCoeffs = append([]float64(nil), coeffs...)
	if len(coeffs) == 0 {
		p.timeCoeffs = nil
	}
}

// HistoryLevels is the number of stored past time levels.
func (p *Problem) HistoryLevels() int { return len(p.history) }

// PushHistory stores the current solution as the newest past level and keeps
// at most depth levels.
func (p *Problem) PushHistory(depth int) {
	p.history = append([]fieldState{p.current.clone()}, p.history...)
	if len(p.history) > depth {
		p.history = p.history[:depth]
	}
}

// ScalarFluxes returns a copy of the scalar flux, indexed [group][cell].
func (p *Problem) ScalarFluxes() [][]float64 {
	out := make([][]float64, len(p.current.scalar))
	for g, phi := range p.current.scalar {
		out[g] = append([]float64(nil), phi...)
	}
	return out
}

// Positions returns the cell centres.
func (p *Problem) Positions() []float64 {
	x := make([]float64, p.mesh.NumCells())
	for i, c := range p.mesh.Cells() {
		x[i] = c.Center()
	}
	return x
}

// GroupTotals integrates the scalar flux of each group over the slab.
func (p *Problem) GroupTotals() []float64 {
	totals := make([]float64, len(p.current.scalar))
	for g, phi := range p.current.scalar {
		for i, c := range p.mesh.Cells() {
			totals[g] += phi[i] * c.Width
		}
	}
	return totals
}

// PrintSystems writes the latest assembled system of every equation system.
func (p *Problem) PrintSystems(w io.Writer) {
	for _, name := range p.order {
		s := p.systems[name]
		if s.matrix == nil {
			fmt.Fprintf(w, "\n%s: not assembled\n", name)
			continue
		}
		fmt.Fprintf(w, "\n%s (group %d):", name, s.group)
		s.matrix.PrintSystem(w)
	}
}

// Destroy releases the sparse matrices of all systems.
func (p *Problem) Destroy() {
	for _, s := range p.systems {
		s.destroy()
	}
}
