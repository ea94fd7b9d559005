package cubespec

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotSpectra renders one star's three method spectra as a scatter plot
// over wavelength. Missing values are dropped before rendering, so gaps
// show as gaps rather than zeros or interpolated segments.
func PlotSpectra(res *StarResult, outputPath string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Star %s", res.Star.Ident())
	p.X.Label.Text = "Wavelength"
	p.Y.Label.Text = "Intensity"

	for _, m := range Methods {
		xy := presentPoints(res.Wavelengths, res.Spectra[m])
		if len(xy) == 0 {
			continue
		}
		s, err := plotter.NewScatter(xy)
		if err != nil {
			return fmt.Errorf("star %s: building %s series: %w", res.Star.Ident(), m, err)
		}
		s.GlyphStyle.Radius = vg.Points(2)
		s.GlyphStyle.Color = plotutil.Color(int(m))
		p.Add(s)
		p.Legend.Add(m.String(), s)
	}

	if err := p.Save(10*vg.Inch, 6*vg.Inch, outputPath); err != nil {
		return fmt.Errorf("saving plot %s: %w", outputPath, err)
	}
	return nil
}

func presentPoints(wavelengths, seq []float64) plotter.XYs {
	xy := make(plotter.XYs, 0, len(seq))
	for i, v := range seq {
		if math.IsNaN(v) || i >= len(wavelengths) {
			continue
		}
		xy = append(xy, plotter.XY{X: wavelengths[i], Y: v})
	}
	return xy
}
