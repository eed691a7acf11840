// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package reduce

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/stackcore/internal/raster"
)

// Mode selects one of the four reducers.
type Mode int

const (
	Average Mode = iota
	Median
	Sigma
	Laplacian
)

const defaultSigmaK = 2.0

// Reduce combines an aligned stack (rasters all sharing the reference's
// dimensions, already warped) into a single output raster. A stack element
// may be the zero Raster to mark a frame excluded upstream by registration.
func Reduce(stack []raster.Raster, mode Mode, sigmaK float32) (raster.Raster, error) {
	if sigmaK <= 0 {
		sigmaK = defaultSigmaK
	}

	var w, h int32
	for _, r := range stack {
		if r.Data != nil {
			w, h = r.W, r.H
			break
		}
	}
	if w == 0 || h == 0 {
		return raster.Raster{}, ErrNoValidInput
	}

	if mode == Laplacian {
		return reduceLaplacian(stack, w, h)
	}

	out := raster.New(w, h)
	rGather := make([]float64, 0, len(stack))
	gGather := make([]float64, 0, len(stack))
	bGather := make([]float64, 0, len(stack))
	anyContribution := false

	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			rVals := gatherChannel(stack, x, y, 0, rGather[:0])
			gVals := gatherChannel(stack, x, y, 1, gGather[:0])
			bVals := gatherChannel(stack, x, y, 2, bGather[:0])

			if len(rVals) == 0 {
				continue
			}
			anyContribution = true

			var rOut, gOut, bOut float64
			switch mode {
			case Average:
				rOut, gOut, bOut = averageOf(rVals), averageOf(gVals), averageOf(bVals)
			case Median:
				rOut, gOut, bOut = medianOf(rVals), medianOf(gVals), medianOf(bVals)
			case Sigma:
				rOut, gOut, bOut = sigmaClip(rVals, sigmaK), sigmaClip(gVals, sigmaK), sigmaClip(bVals, sigmaK)
			}
			out.SetRGBA(x, y, clampByte(rOut), clampByte(gOut), clampByte(bOut), 255)
		}
	}
	if !anyContribution {
		return raster.Raster{}, ErrNoValidInput
	}
	return out, nil
}

// gatherChannel collects the values of the given channel (0=R,1=G,2=B) at
// (x,y) across the stack from frames whose alpha at that pixel exceeds
// alphaContributing. dst is reused for scratch across calls.
func gatherChannel(stack []raster.Raster, x, y int32, channel int, dst []float64) []float64 {
	for _, r := range stack {
		if r.Data == nil || !r.InBounds(x, y) {
			continue
		}
		red, green, blue, alpha := r.RGBA(x, y)
		if alpha <= alphaContributing {
			continue
		}
		var v uint8
		switch channel {
		case 0:
			v = red
		case 1:
			v = green
		default:
			v = blue
		}
		dst = append(dst, float64(v))
	}
	return dst
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func averageOf(values []float64) float64 {
	return fastAverage(values)
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sigmaClip implements the Sigma reducer: n<3 falls back to the arithmetic
// mean; otherwise values more than k population-standard-deviations from
// the population mean are discarded and the mean of the remainder is
// returned. If sigma is 0, or the filter rejects everything, the policy
// documented in the design notes applies: sigma==0 returns the mean, and an
// all-rejected filter falls back to the median of the original values.
func sigmaClip(values []float64, k float32) float64 {
	if len(values) < 3 {
		return fastAverage(values)
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	sigma := math.Sqrt(variance)
	if sigma == 0 {
		return mean
	}

	var kept []float64
	for _, v := range values {
		if math.Abs(v-mean) < float64(k)*sigma {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return medianOf(values)
	}
	return fastAverage(kept)
}
