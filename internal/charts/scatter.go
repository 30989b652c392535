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

// ScatterSeries is one artist's points.
type ScatterSeries struct {
	ArtistID string
	Label    string
	Color    color.RGBA
	Points   plotter.XYs
}

// ScatterSpec is danceability against loudness for exactly two artists.
type ScatterSpec struct {
	Title  string
	XLabel string
	YLabel string
	Series []ScatterSeries
}

// BuildScatter groups records by artist id into the left and right series.
// Records belonging to neither artist are ignored. Both series are always
// present so the legend has two entries even when one artist has no tracks.
func BuildScatter(records []domain.TrackRecord, left, right domain.ArtistProfile) ScatterSpec {
	spec := ScatterSpec{
		Title:  "Danceability vs. Loudness",
		XLabel: "Danceability",
		YLabel: "Loudness (dB)",
		Series: []ScatterSeries{
			{ArtistID: left.ID, Label: left.Name, Color: ColorLeft},
			{ArtistID: right.ID, Label: right.Name, Color: ColorRight},
		},
	}
	for _, r := range records {
		for i := range spec.Series {
			if r.ArtistID != spec.Series[i].ArtistID {
				continue
			}
			spec.Series[i].Points = append(spec.Series[i].Points, plotter.XY{X: r.Danceability(), Y: r.Loudness()})
			break
		}
	}
	return spec
}

// scatterAlpha lets overlapping tracks show through.
const scatterAlpha = 0xb3

// RenderScatter draws the spec as an SVG document.
func RenderScatter(spec ScatterSpec, w io.Writer) error {
	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for _, s := range spec.Series {
		sc, err := newSeriesScatter(s)
		if err != nil {
			return err
		}
		if len(s.Points) > 0 {
			p.Add(sc)
		}
		p.Legend.Add(s.Label, sc)
	}

	return writeSVG(w, 8*vg.Inch, 6*vg.Inch, func(dc draw.Canvas) error {
		p.Draw(dc)
		return nil
	})
}

func newSeriesScatter(s ScatterSeries) (*plotter.Scatter, error) {
	sc, err := plotter.NewScatter(s.Points)
	if err != nil {
		return nil, fmt.Errorf("charts: scatter %q: %w", s.Label, err)
	}
	sc.GlyphStyle.Color = translucent(s.Color, scatterAlpha)
	sc.GlyphStyle.Radius = vg.Points(3.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	return sc, nil
}
