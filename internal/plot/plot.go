// Package plot renders PNG charts (and a minimal static HTML page
// embedding them) summarizing one run, grounded on the original project's
// plot module (soc_plot, grid_timeseries).
package plot

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SoCSeries renders every vehicle's SoC-over-time line onto one chart.
func SoCSeries(path string, start time.Time, stepMinutes int, series map[string][]float64) error {
	p := plot.New()
	p.Title.Text = "SoC of vehicles over time"
	p.Y.Label.Text = "SoC"
	p.X.Label.Text = "time step"

	for name, values := range series {
		pts := make(plotter.XYs, len(values))
		for i, v := range values {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build soc line for %s: %w", name, err)
		}
		p.Add(line)
		p.Legend.Add(name, line)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// LocationPower renders one location's aggregate charging power over time.
func LocationPower(path, locationName string, totalPower []float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s total charging power", locationName)
	p.Y.Label.Text = "kW"
	p.X.Label.Text = "time step"

	pts := make(plotter.XYs, len(totalPower))
	for i, v := range totalPower {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build power line for %s: %w", locationName, err)
	}
	p.Add(line)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

var pageTemplate = template.Must(template.New("plots").Parse(`<!DOCTYPE html>
<html>
<head><title>fleema run plots</title></head>
<body>
{{range .}}<img src="{{.}}" /><br/>{{end}}
</body>
</html>
`))

// Page writes a minimal static HTML page embedding the given PNG paths.
// The pack carries no interactive-plotting dependency, so this wrapper is
// hand-rolled rather than borrowed from an example repo.
func Page(path string, pngPaths []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pageTemplate.Execute(f, pngPaths)
}
