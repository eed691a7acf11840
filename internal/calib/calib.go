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

// Package calib is an optional pre-core hook: it applies dark/bias
// subtraction and flat-field division to a light frame before it ever
// reaches registration. The stacking core itself has no notion of
// calibration frames -- this package is a stand-in external collaborator a
// CLI or HTTP caller may invoke ahead of pipeline.Stack, the way the
// teacher's dark/flat loaders feed its preprocessing stage ahead of its own
// stacking call.
package calib

import "github.com/mlnoga/stackcore/internal/raster"

// Calibrate subtracts the averaged bias and dark frames and divides by the
// normalized averaged flat frame, per channel. Any of the three frame sets
// may be empty, in which case that correction is skipped. light, darks,
// flats and bias must all share light's dimensions; mismatched frames are
// ignored rather than erroring, since this hook sits outside the core's
// error taxonomy.
func Calibrate(light raster.Raster, darks, flats, bias []raster.Raster) raster.Raster {
	darkAvg := averageChannel(darks, light.W, light.H)
	biasAvg := averageChannel(bias, light.W, light.H)
	flatAvg := averageChannel(flats, light.W, light.H)
	flatMean := meanOf(flatAvg)

	out := raster.New(light.W, light.H)
	for y := int32(0); y < light.H; y++ {
		for x := int32(0); x < light.W; x++ {
			red, green, blue, alpha := light.RGBA(x, y)
			idx := y*light.W + x

			r := float64(red) - darkAvg[idx] - biasAvg[idx]
			g := float64(green) - darkAvg[idx] - biasAvg[idx]
			b := float64(blue) - darkAvg[idx] - biasAvg[idx]

			if flatMean > 0 && len(flatAvg) > 0 {
				gain := flatMean / (flatAvg[idx] + 1e-6)
				r *= gain
				g *= gain
				b *= gain
			}
			out.SetRGBA(x, y, clampByte(r), clampByte(g), clampByte(b), alpha)
		}
	}
	return out
}

func averageChannel(frames []raster.Raster, w, h int32) []float64 {
	n := int(w) * int(h)
	out := make([]float64, n)
	if len(frames) == 0 {
		return out
	}
	used := 0
	for _, f := range frames {
		if f.W != w || f.H != h {
			continue
		}
		used++
		for y := int32(0); y < h; y++ {
			for x := int32(0); x < w; x++ {
				red, green, blue, _ := f.RGBA(x, y)
				out[y*w+x] += (float64(red) + float64(green) + float64(blue)) / 3
			}
		}
	}
	if used == 0 {
		return out
	}
	for i := range out {
		out[i] /= float64(used)
	}
	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
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
