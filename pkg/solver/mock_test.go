package solver

import (
	"errors"
	"fmt"
)

type call struct {
	group, ordinate int
}

// recorder is shared by every mock system of one test so that the global
// solve order can be checked.
type recorder struct {
	solves []call
}

type mockSystem struct {
	rec             *recorder
	group, ordinate int

	// converge and residual are consulted with the 1-based solve count.
	converge func(solve int) bool
	residual func(solve int) float64
	solveErr error
	prepErr  error

	prepares  int
	solved    int
	converged bool
	lastResid float64
}

func (m *mockSystem) PrepareForSolve() error {
	m.prepares++
	return m.prepErr
}

func (m *mockSystem) Solve() error {
	m.solved++
	m.rec.solves = append(m.rec.solves, call{m.group, m.ordinate})
	if m.solveErr != nil {
		m.converged = false
		return m.solveErr
	}
	m.converged = true
	if m.converge != nil {
		m.converged = m.converge(m.solved)
	}
	m.lastResid = 0
	if m.residual != nil {
		m.lastResid = m.residual(m.solved)
	}
	return nil
}

func (m *mockSystem) HasConverged() bool    { return m.converged }
func (m *mockSystem) ResidualNorm() float64 { return m.lastResid }

type mockResolver map[string]*mockSystem

func (r mockResolver) System(name string) (EquationSystem, error) {
	sys, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}
	return sys, nil
}

type mockHost struct {
	skip      bool
	refines   int
	moments   []int
	momentErr error
}

func (h *mockHost) ShouldSolve() bool { return !h.skip }

func (h *mockHost) RefineUniformly() error {
	h.refines++
	return nil
}

func (h *mockHost) UpdateMoments(group int) error {
	h.moments = append(h.moments, group)
	return h.momentErr
}

type stepOutcome struct {
	step              int
	solved, converged bool
}

type groupOutcome struct {
	group     int
	converged bool
}

type mockReporter struct {
	steps  []stepOutcome
	groups []groupOutcome
	passes map[int][]int
}

func (r *mockReporter) StepOutcome(step int, solved, converged bool) {
	r.steps = append(r.steps, stepOutcome{step, solved, converged})
}

func (r *mockReporter) GroupOutcome(_ Strategy, group int, converged bool) {
	r.groups = append(r.groups, groupOutcome{group, converged})
}

func (r *mockReporter) InnerIteration(group, iteration int, _ float64) {
	if r.passes == nil {
		r.passes = make(map[int][]int)
	}
	r.passes[group] = append(r.passes[group], iteration)
}

// fixture builds named mock systems for G groups and N ordinates per group
// (N=1 for monolithic) and a config listing them in order.
type fixture struct {
	rec      *recorder
	systems  [][]*mockSystem
	resolver mockResolver
	host     *mockHost
	reporter *mockReporter
	cfg      Config
}

func newFixture(groups, ordinates int, within WithinGroup) *fixture {
	f := &fixture{
		rec:      &recorder{},
		resolver: mockResolver{},
		host:     &mockHost{},
		reporter: &mockReporter{},
	}

	perGroup := 1
	if within == SourceIteration {
		perGroup = ordinates
	}

	cfg := DefaultConfig()
	cfg.Groups = groups
	cfg.Ordinates = ordinates
	cfg.EnableUpscattering = false
	cfg.WithinGroup = within

	f.systems = make([][]*mockSystem, groups)
	for g := 0; g < groups; g++ {
		for n := 0; n < perGroup; n++ {
			name := fmt.Sprintf("flux_g%d_n%d", g, n)
			sys := &mockSystem{rec: f.rec, group: g, ordinate: n}
			f.systems[g] = append(f.systems[g], sys)
			f.resolver[name] = sys
			cfg.Systems = append(cfg.Systems, name)
		}
	}
	f.cfg = cfg
	return f
}

func (f *fixture) build() (*Orchestrator, error) {
	return New(f.cfg, f.resolver, f.host, WithReporter(f.reporter))
}

func (f *fixture) solveCount(g int) int {
	total := 0
	for _, sys := range f.systems[g] {
		total += sys.solved
	}
	return total
}

func (f *fixture) totalSolves() int {
	return len(f.rec.solves)
}

var errSingular = errors.New("matrix: singular matrix")
