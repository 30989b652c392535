// Package charts builds and renders the comparison charts as SVG.
package charts

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

// Kind names a renderable chart.
type Kind string

const (
	KindScatter Kind = "scatter"
	KindBoxplot Kind = "boxplot"
	KindViolin  Kind = "violin"
)

// Kinds lists every chart in dashboard order.
var Kinds = []Kind{KindScatter, KindBoxplot, KindViolin}

// ParseKind validates a chart name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("charts: unknown chart kind %q", s)
}

// Render draws one chart of a finished comparison.
func Render(kind Kind, c domain.Comparison, w io.Writer) error {
	left, right := c.Names()
	switch kind {
	case KindScatter:
		return RenderScatter(BuildScatter(c.Records, c.Left, c.Right), w)
	case KindBoxplot:
		return RenderBoxplot(BuildDistributions(c.Records, left, right), w)
	case KindViolin:
		return RenderViolin(BuildDistributions(c.Records, left, right), w)
	default:
		return fmt.Errorf("charts: unknown chart kind %q", kind)
	}
}

// Two-colour palette, left artist first.
var (
	ColorLeft  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	ColorRight = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

func translucent(c color.RGBA, alpha uint8) color.RGBA {
	// premultiplied
	return color.RGBA{
		R: uint8(uint16(c.R) * uint16(alpha) / 0xff),
		G: uint8(uint16(c.G) * uint16(alpha) / 0xff),
		B: uint8(uint16(c.B) * uint16(alpha) / 0xff),
		A: alpha,
	}
}

func writeSVG(w io.Writer, width, height vg.Length, paint func(dc draw.Canvas) error) error {
	c := vgsvg.New(width, height)
	if err := paint(draw.New(c)); err != nil {
		return err
	}
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("charts: write svg: %w", err)
	}
	return nil
}
