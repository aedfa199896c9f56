// Package fluxplot draws scalar flux profiles.
package fluxplot

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/edp1096/toy-transport/pkg/analysis"
)

var ErrNoProfile = errors.New("fluxplot: results hold no flux profile")

// Save writes one line per group; the file extension picks the format.
func Save(path, title string, x []float64, fluxes [][]float64) error {
	if len(x) == 0 || len(fluxes) == 0 {
		return ErrNoProfile
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "scalar flux"
	p.Add(plotter.NewGrid())

	for g, phi := range fluxes {
		if len(phi) != len(x) {
			return fmt.Errorf("fluxplot: group %d has %d values for %d positions", g, len(phi), len(x))
		}
		pts := make(plotter.XYs, len(x))
		for i := range x {
			pts[i].X = x[i]
			pts[i].Y = phi[i]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("fluxplot: group %d: %w", g, err)
		}
		line.Color = plotutil.Color(g)
		line.Dashes = plotutil.Dashes(g)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("group %d", g), line)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// SaveResults plots the profile stored by an analysis.
func SaveResults(path, title string, results map[string][]float64) error {
	var fluxes [][]float64
	for g := 0; ; g++ {
		phi, ok := results[analysis.FluxKey(g)]
		if !ok {
			break
		}
		fluxes = append(fluxes, phi)
	}
	return Save(path, title, results["X"], fluxes)
}
