package solver

import "fmt"

// Topology is the ordered equation system collection of a multi-group
// problem. Systems are stored group-major, ordinate-minor and never reordered.
type Topology struct {
	groups    int
	ordinates int // per system slice of a group; 1 for monolithic solves

	names   []string
	systems []EquationSystem
}

func NewTopology(cfg Config, resolver Resolver) (*Topology, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	want := cfg.ExpectedSystems()
	if len(cfg.Systems) != want {
		if cfg.WithinGroup == SourceIteration {
			return nil, fmt.Errorf("%w: got %d systems, want groups*ordinates = %d*%d = %d",
				ErrSystemCountMismatch, len(cfg.Systems), cfg.Groups, cfg.Ordinates, want)
		}
		return nil, fmt.Errorf("%w: got %d systems, want groups = %d",
			ErrSystemCountMismatch, len(cfg.Systems), want)
	}

	perGroup := 1
	if cfg.WithinGroup == SourceIteration {
		perGroup = cfg.Ordinates
	}

	t := &Topology{
		groups:    cfg.Groups,
		ordinates: perGroup,
		names:     make([]string, 0, want),
		systems:   make([]EquationSystem, 0, want),
	}
	for g := 0; g < cfg.Groups; g++ {
		for n := 0; n < perGroup; n++ {
			name := cfg.Systems[g*perGroup+n]
			sys, err := resolver.System(name)
			if err != nil {
				return nil, fmt.Errorf("resolving system %q (group %d, ordinate %d): %w", name, g, n, err)
			}
			if sys == nil {
				return nil, fmt.Errorf("%w: %q", ErrUnknownSystem, name)
			}
			t.names = append(t.names, name)
			t.systems = append(t.systems, sys)
		}
	}

	return t, nil
}

func (t *Topology) Groups() int { return t.groups }

// OrdinatesPerGroup is N for source iteration and 1 for monolithic solves.
func (t *Topology) OrdinatesPerGroup() int { return t.ordinates }

func (t *Topology) Len() int { return len(t.systems) }

// Group returns the first system of group g, which is the only one for
// monolithic solves.
func (t *Topology) Group(g int) EquationSystem {
	return t.systems[g*t.ordinates]
}

// Ordinates returns the systems of group g in ordinate order.
func (t *Topology) Ordinates(g int) []EquationSystem {
	lo, hi := g*t.ordinates, (g+1)*t.ordinates
	return t.systems[lo:hi:hi]
}

func (t *Topology) Name(g, n int) string {
	return t.names[g*t.ordinates+n]
}
