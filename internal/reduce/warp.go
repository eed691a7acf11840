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

// Package reduce inverse-warps aligned frames onto a common reference grid
// and reduces the resulting stack with one of four outlier-aware reducers.
package reduce

import (
	"errors"

	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/transform"
)

// ErrNoValidInput is returned by a reducer invoked with zero contributing
// frames.
var ErrNoValidInput = errors.New("reduce: no valid input")

// alphaContributing is the threshold above which a source pixel's alpha
// marks it as contributing to the stack.
const alphaContributing = 128

// Warp inverse-warps src onto a dstW x dstH grid under transform t: for
// each destination pixel, t.Inverse locates the corresponding source
// pixel, which is bilinearly interpolated if it falls within the source
// bounds, else the destination pixel is zeroed (including alpha).
func Warp(src raster.Raster, dstW, dstH int32, t transform.Transform) raster.Raster {
	dst := raster.New(dstW, dstH)
	w, h := float64(src.W-1), float64(src.H-1)

	for yd := int32(0); yd < dstH; yd++ {
		for xd := int32(0); xd < dstW; xd++ {
			src2 := t.Inverse(transform.Point{X: float32(xd), Y: float32(yd)})
			xs, ys := float64(src2.X), float64(src2.Y)

			if xs < 0 || xs > w || ys < 0 || ys > h {
				continue // already zeroed by raster.New
			}

			x0 := int32(xs)
			y0 := int32(ys)
			x1, y1 := x0+1, y0+1
			if x1 > src.W-1 {
				x1 = src.W - 1
			}
			if y1 > src.H-1 {
				y1 = src.H - 1
			}
			fx, fy := xs-float64(x0), ys-float64(y0)

			r00, g00, b00, _ := src.RGBA(x0, y0)
			r10, g10, b10, _ := src.RGBA(x1, y0)
			r01, g01, b01, _ := src.RGBA(x0, y1)
			r11, g11, b11, _ := src.RGBA(x1, y1)

			r := bilerp(fx, fy, r00, r10, r01, r11)
			g := bilerp(fx, fy, g00, g10, g01, g11)
			b := bilerp(fx, fy, b00, b10, b01, b11)

			a := uint8(0)
			if r != 0 || g != 0 || b != 0 {
				a = 255
			}
			dst.SetRGBA(xd, yd, r, g, b, a)
		}
	}
	return dst
}

func bilerp(fx, fy float64, v00, v10, v01, v11 uint8) uint8 {
	top := float64(v00)*(1-fx) + float64(v10)*fx
	bottom := float64(v01)*(1-fx) + float64(v11)*fx
	v := top*(1-fy) + bottom*fy
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}
