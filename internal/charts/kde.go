package charts

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const kdePoints = 64

// density is a Gaussian kernel density estimate sampled on an even grid.
type density struct {
	Y []float64
	D []float64
}

func (d density) max() float64 {
	m := 0.0
	for _, v := range d.D {
		m = math.Max(m, v)
	}
	return m
}

// silvermanBandwidth returns 1.06·σ·n^(-1/5). Degenerate samples (a single
// value or zero spread) get a small bandwidth relative to the data scale.
func silvermanBandwidth(values []float64) float64 {
	n := float64(len(values))
	if len(values) > 1 {
		if sd := stat.StdDev(values, nil); sd > 0 {
			return 1.06 * sd * math.Pow(n, -0.2)
		}
	}
	scale := math.Abs(stat.Mean(values, nil))
	if scale < 1 {
		scale = 1
	}
	return 0.05 * scale
}

func gaussianKDE(values []float64) density {
	if len(values) == 0 {
		return density{}
	}
	bw := silvermanBandwidth(values)
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo -= 3 * bw
	hi += 3 * bw

	step := (hi - lo) / float64(kdePoints-1)
	d := density{Y: make([]float64, kdePoints), D: make([]float64, kdePoints)}
	norm := 1 / (float64(len(values)) * bw)
	for i := range d.Y {
		y := lo + float64(i)*step
		sum := 0.0
		for _, v := range values {
			sum += distuv.UnitNormal.Prob((y - v) / bw)
		}
		d.Y[i] = y
		d.D[i] = sum * norm
	}
	return d
}
