// Package input reads YAML problem decks.
package input

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edp1096/toy-transport/internal/consts"
	"github.com/edp1096/toy-transport/pkg/kernel"
	"github.com/edp1096/toy-transport/pkg/material"
	"github.com/edp1096/toy-transport/pkg/mesh"
	"github.com/edp1096/toy-transport/pkg/problem"
	"github.com/edp1096/toy-transport/pkg/solver"
	"github.com/edp1096/toy-transport/pkg/util"
)

var ErrInvalidDeck = errors.New("input: invalid deck")

type Deck struct {
	Title        string                  `yaml:"title"`
	Method       string                  `yaml:"method"`
	Groups       int                     `yaml:"groups"`
	Ordinates    int                     `yaml:"ordinates"`
	WithinGroup  string                  `yaml:"within_group"`
	Upscattering *bool                   `yaml:"upscattering,omitempty"` // nil: detect from materials
	Solve        *bool                   `yaml:"solve,omitempty"`
	Boundary     BoundaryDeck            `yaml:"boundary"`
	Materials    map[string]MaterialDeck `yaml:"materials"`
	Regions      []RegionDeck            `yaml:"regions"`
	Solver       SolverDeck              `yaml:"solver"`
	Transient    *TransientDeck          `yaml:"transient,omitempty"`
}

type BoundaryDeck struct {
	Left  FaceDeck `yaml:"left"`
	Right FaceDeck `yaml:"right"`
}

type FaceDeck struct {
	Type string    `yaml:"type"`
	Flux []float64 `yaml:"flux,omitempty"` // incoming angular flux per group
}

type MaterialDeck struct {
	Total           []float64   `yaml:"total"`
	Scatter         [][]float64 `yaml:"scatter"`
	Source          []float64   `yaml:"source,omitempty"`
	InverseVelocity []float64   `yaml:"inverse_velocity,omitempty"`
	Diffusion       []float64   `yaml:"diffusion,omitempty"`
}

type RegionDeck struct {
	Material string  `yaml:"material"`
	Width    float64 `yaml:"width"`
	Cells    int     `yaml:"cells"`
}

type SolverDeck struct {
	MaxInnerIterations int           `yaml:"max_inner_iterations"`
	MaxOuterIterations int           `yaml:"max_outer_iterations"`
	InnerTolerance     float64       `yaml:"inner_tolerance"`
	OuterTolerance     float64       `yaml:"outer_tolerance"`
	GridSteps          int           `yaml:"grid_steps"`
	Nonlinear          NonlinearDeck `yaml:"nonlinear"`
}

type NonlinearDeck struct {
	MaxIterations int     `yaml:"max_iterations"`
	AbsTol        float64 `yaml:"abs_tol"`
	RelTol        float64 `yaml:"rel_tol"`
}

type TransientDeck struct {
	EndTime    Quantity `yaml:"end_time"`
	TimeStep   Quantity `yaml:"time_step"`
	Scheme     string   `yaml:"scheme"`
	FromSteady bool     `yaml:"from_steady"`
}

// Load reads and validates a deck file.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Deck, error) {
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse deck: %w", err)
	}

	d.applyDefaults()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// applyDefaults fills in missing values with defaults
func (d *Deck) applyDefaults() {
	if d.Title == "" {
		d.Title = "untitled"
	}
	if d.Method == "" {
		d.Method = problem.DiscreteOrdinates.String()
	}
	if d.Groups == 0 {
		d.Groups = 1
	}
	if d.Ordinates == 0 {
		d.Ordinates = 2
	}
	if d.WithinGroup == "" {
		d.WithinGroup = solver.Monolithic.String()
	}

	s := &d.Solver
	if s.MaxInnerIterations == 0 {
		s.MaxInnerIterations = consts.DefaultMaxInnerIterations
	}
	if s.MaxOuterIterations == 0 {
		s.MaxOuterIterations = consts.DefaultMaxOuterIterations
	}
	if s.InnerTolerance == 0 {
		s.InnerTolerance = consts.DefaultInnerTolerance
	}
	if s.OuterTolerance == 0 {
		s.OuterTolerance = consts.DefaultOuterTolerance
	}
	if s.Nonlinear.MaxIterations == 0 {
		s.Nonlinear.MaxIterations = consts.DefaultMaxNonlinearIterations
	}
	if s.Nonlinear.AbsTol == 0 {
		s.Nonlinear.AbsTol = consts.DefaultNonlinearAbsTol
	}
	if s.Nonlinear.RelTol == 0 {
		s.Nonlinear.RelTol = consts.DefaultNonlinearRelTol
	}

	if d.Transient != nil && d.Transient.Scheme == "" {
		d.Transient.Scheme = util.ImplicitEuler.String()
	}
}

func (d *Deck) Validate() error {
	if _, err := problem.ParseMethod(d.Method); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	if _, err := solver.ParseWithinGroup(d.WithinGroup); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	if d.Groups < 0 || d.Ordinates < 0 {
		return fmt.Errorf("%w: groups=%d ordinates=%d", ErrInvalidDeck, d.Groups, d.Ordinates)
	}
	if len(d.Materials) == 0 {
		return fmt.Errorf("%w: no materials", ErrInvalidDeck)
	}
	if len(d.Regions) == 0 {
		return fmt.Errorf("%w: no regions", ErrInvalidDeck)
	}
	for i, r := range d.Regions {
		if _, ok := d.Materials[r.Material]; !ok {
			return fmt.Errorf("%w: region %d uses unknown material %q", ErrInvalidDeck, i, r.Material)
		}
	}
	for side, face := range map[string]FaceDeck{"left": d.Boundary.Left, "right": d.Boundary.Right} {
		kind, err := kernel.ParseBoundaryKind(face.Type)
		if err != nil {
			return fmt.Errorf("%w: %s boundary: %v", ErrInvalidDeck, side, err)
		}
		if kind == kernel.Incoming && len(face.Flux) != d.Groups {
			return fmt.Errorf("%w: %s boundary needs %d incoming fluxes, got %d", ErrInvalidDeck, side, d.Groups, len(face.Flux))
		}
	}
	if tr := d.Transient; tr != nil {
		if _, err := util.ParseTimeScheme(tr.Scheme); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
		}
		if !(tr.EndTime > 0) || !(tr.TimeStep > 0) {
			return fmt.Errorf("%w: transient end_time=%g time_step=%g", ErrInvalidDeck, float64(tr.EndTime), float64(tr.TimeStep))
		}
	}
	return nil
}

func (d *Deck) Library() material.Library {
	lib := make(material.Library, len(d.Materials))
	for name, m := range d.Materials {
		lib[name] = &material.Material{
			Name:            name,
			Total:           m.Total,
			Scatter:         m.Scatter,
			Source:          m.Source,
			InverseVelocity: m.InverseVelocity,
			Diffusion:       m.Diffusion,
		}
	}
	return lib
}

func (d *Deck) Mesh() (*mesh.Mesh, error) {
	regions := make([]mesh.Region, len(d.Regions))
	for i, r := range d.Regions {
		regions[i] = mesh.Region{Material: r.Material, Width: r.Width, Cells: r.Cells}
	}
	return mesh.New(regions)
}

func (f FaceDeck) boundary() kernel.Boundary {
	kind, _ := kernel.ParseBoundaryKind(f.Type)
	return kernel.Boundary{Kind: kind, Values: f.Flux}
}

func (d *Deck) Settings(lib material.Library) problem.Settings {
	method, _ := problem.ParseMethod(d.Method)
	within, _ := solver.ParseWithinGroup(d.WithinGroup)

	s := problem.DefaultSettings()
	s.Groups = d.Groups
	s.Ordinates = d.Ordinates
	s.Method = method
	s.WithinGroup = within
	s.Upscattering = lib.HasUpscattering()
	if d.Upscattering != nil {
		s.Upscattering = *d.Upscattering
	}
	s.Left = d.Boundary.Left.boundary()
	s.Right = d.Boundary.Right.boundary()
	s.Nonlinear = problem.NonlinearOptions{
		MaxIterations: d.Solver.Nonlinear.MaxIterations,
		AbsTol:        d.Solver.Nonlinear.AbsTol,
		RelTol:        d.Solver.Nonlinear.RelTol,
	}
	s.Solve = d.Solve == nil || *d.Solve
	return s
}

// SolverConfig holds the iteration controls; the problem fills in the rest.
func (d *Deck) SolverConfig() solver.Config {
	cfg := solver.DefaultConfig()
	cfg.MaxInnerIterations = d.Solver.MaxInnerIterations
	cfg.MaxOuterIterations = d.Solver.MaxOuterIterations
	cfg.InnerAbsoluteTolerance = d.Solver.InnerTolerance
	cfg.OuterAbsoluteTolerance = d.Solver.OuterTolerance
	cfg.GridSteps = d.Solver.GridSteps
	return cfg
}

// Build creates the problem described by the deck.
func (d *Deck) Build(opts ...problem.Option) (*problem.Problem, error) {
	m, err := d.Mesh()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	lib := d.Library()
	return problem.New(d.Title, d.Settings(lib), m, lib, opts...)
}
