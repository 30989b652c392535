package charts

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

// DistributionFeatures are the features drawn as box and violin subplots.
var DistributionFeatures = []string{
	domain.FeatureDanceability,
	domain.FeatureEnergy,
	domain.FeatureValence,
	domain.FeatureTempo,
}

const violinHalfWidth = 0.4

// FeatureSeries holds one artist's values for one feature.
type FeatureSeries struct {
	Artist string
	Color  color.RGBA
	Values []float64
}

// FeaturePanel is one subplot: a feature and the two artists' series.
type FeaturePanel struct {
	Feature string
	Title   string
	Series  [2]FeatureSeries
}

// DistributionSpec is the shared input for the box and violin charts.
type DistributionSpec struct {
	Names  [2]string
	Panels []FeaturePanel
}

// BuildDistributions filters records by display name for each feature.
func BuildDistributions(records []domain.TrackRecord, name1, name2 string) DistributionSpec {
	spec := DistributionSpec{Names: [2]string{name1, name2}}
	colors := [2]color.RGBA{ColorLeft, ColorRight}
	for _, feature := range DistributionFeatures {
		panel := FeaturePanel{Feature: feature, Title: "Distribution of " + feature}
		for i, name := range spec.Names {
			panel.Series[i] = FeatureSeries{
				Artist: name,
				Color:  colors[i],
				Values: domain.FeatureValues(records, name, feature),
			}
		}
		spec.Panels = append(spec.Panels, panel)
	}
	return spec
}

// RenderBoxplot draws one box per artist in each feature subplot.
func RenderBoxplot(spec DistributionSpec, w io.Writer) error {
	return renderPanels(spec, w, func(p *plot.Plot, loc float64, s FeatureSeries) error {
		box, err := plotter.NewBoxPlot(vg.Points(28), loc, plotter.Values(s.Values))
		if err != nil {
			return err
		}
		box.FillColor = translucent(s.Color, 0x99)
		box.BoxStyle.Color = s.Color
		box.MedianStyle.Color = s.Color
		box.MedianStyle.Width = vg.Points(1.5)
		box.WhiskerStyle.Color = s.Color
		box.GlyphStyle.Color = s.Color
		p.Add(box)
		return nil
	})
}

// RenderViolin draws a mirrored density outline per artist in each subplot.
func RenderViolin(spec DistributionSpec, w io.Writer) error {
	return renderPanels(spec, w, func(p *plot.Plot, loc float64, s FeatureSeries) error {
		outline := violinOutline(gaussianKDE(s.Values), loc)
		if len(outline) == 0 {
			return nil
		}
		poly, err := plotter.NewPolygon(outline)
		if err != nil {
			return err
		}
		poly.Color = translucent(s.Color, 0x99)
		poly.LineStyle.Color = s.Color
		poly.LineStyle.Width = vg.Points(1)
		p.Add(poly)
		return nil
	})
}

// violinOutline mirrors the density around loc, scaled so the widest point
// spans violinHalfWidth on each side.
func violinOutline(d density, loc float64) plotter.XYs {
	peak := d.max()
	if peak == 0 {
		return nil
	}
	scale := violinHalfWidth / peak
	out := make(plotter.XYs, 0, 2*len(d.Y))
	for i := range d.Y {
		out = append(out, plotter.XY{X: loc + d.D[i]*scale, Y: d.Y[i]})
	}
	for i := len(d.Y) - 1; i >= 0; i-- {
		out = append(out, plotter.XY{X: loc - d.D[i]*scale, Y: d.Y[i]})
	}
	return out
}

type seriesPainter func(p *plot.Plot, loc float64, s FeatureSeries) error

func renderPanels(spec DistributionSpec, w io.Writer, paint seriesPainter) error {
	if len(spec.Panels) == 0 {
		return fmt.Errorf("charts: no feature panels to render")
	}

	row := make([]*plot.Plot, len(spec.Panels))
	for j, panel := range spec.Panels {
		p := plot.New()
		p.Title.Text = panel.Title
		p.Y.Label.Text = panel.Feature
		for i, s := range panel.Series {
			// an empty series leaves its slot blank
			if len(s.Values) == 0 {
				continue
			}
			if err := paint(p, float64(i), s); err != nil {
				return fmt.Errorf("charts: %s for %q: %w", panel.Feature, s.Artist, err)
			}
		}
		p.NominalX(spec.Names[0], spec.Names[1])
		p.X.Min = -0.5
		p.X.Max = 1.5
		row[j] = p
	}

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(row),
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	width := vg.Length(len(row)) * 4 * vg.Inch
	return writeSVG(w, width, 5*vg.Inch, func(dc draw.Canvas) error {
		canvases := plot.Align([][]*plot.Plot{row}, tiles, dc)
		for j, p := range row {
			p.Draw(canvases[0][j])
		}
		return nil
	})
}
