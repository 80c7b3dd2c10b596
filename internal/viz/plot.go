package viz

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/mmst/internal/storage"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	pngWidth  = 8 * vg.Inch
	pngHeight = 4 * vg.Inch
)

// PopulationChart renders every population series of rec as one
// terminal chart.
func PopulationChart(rec *storage.Recording, width, height int) (string, error) {
	if rec.Len() < 2 {
		return "", fmt.Errorf("recording has %d samples, need at least 2", rec.Len())
	}
	n := len(rec.Populations[0])
	series := make([][]float64, n)
	legends := make([]string, n)
	for i := range series {
		series[i] = rec.Population(i)
		legends[i] = fmt.Sprintf("P%d", i)
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(CurrentTheme.seriesColors(n)...),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption(fmt.Sprintf("populations, t = %.3g … %.3g", rec.Times[0], rec.Times[rec.Len()-1]))), nil
}

// EnergyChart renders the energy deviation E(t) - E(0).
func EnergyChart(rec *storage.Recording, width, height int) (string, error) {
	if rec.Len() < 2 {
		return "", fmt.Errorf("recording has %d samples, need at least 2", rec.Len())
	}
	dev := make([]float64, rec.Len())
	for i, e := range rec.Energies {
		dev[i] = e - rec.Energies[0]
	}
	return asciigraph.Plot(dev,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.Caption("E(t) - E(0)")), nil
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X, pts[i].Y = xs[i], ys[i]
	}
	return pts
}

// PopulationPlot builds a gonum plot of every population against time.
func PopulationPlot(rec *storage.Recording, title string) (*plot.Plot, error) {
	if rec.Len() == 0 {
		return nil, fmt.Errorf("empty recording")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t"
	p.Y.Label.Text = "population"
	p.Add(plotter.NewGrid())

	for i := range rec.Populations[0] {
		line, err := plotter.NewLine(xys(rec.Times, rec.Population(i)))
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("P%d", i), line)
	}
	p.Legend.Top = true
	return p, nil
}

// EnergyPlot builds a gonum plot of E(t) - E(0).
func EnergyPlot(rec *storage.Recording, title string) (*plot.Plot, error) {
	if rec.Len() == 0 {
		return nil, fmt.Errorf("empty recording")
	}
	dev := make([]float64, rec.Len())
	for i, e := range rec.Energies {
		dev[i] = e - rec.Energies[0]
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t"
	p.Y.Label.Text = "E(t) - E(0)"
	p.Add(plotter.NewGrid())
	if err := plotutil.AddLines(p, "energy", xys(rec.Times, dev)); err != nil {
		return nil, err
	}
	return p, nil
}

// WritePNG encodes p as a PNG image to w.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNGs writes populations.png and energy.png for rec into dir and
// returns their paths.
func SavePNGs(rec *storage.Recording, dir, title string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	pop, err := PopulationPlot(rec, title)
	if err != nil {
		return nil, err
	}
	energy, err := EnergyPlot(rec, title)
	if err != nil {
		return nil, err
	}

	paths := []string{filepath.Join(dir, "populations.png"), filepath.Join(dir, "energy.png")}
	for i, p := range []*plot.Plot{pop, energy} {
		if err := p.Save(pngWidth, pngHeight, paths[i]); err != nil {
			return nil, err
		}
	}
	return paths, nil
}
