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

import "github.com/mlnoga/stackcore/internal/raster"

// reduceLaplacian implements the focus-stacking fusion reducer: for each
// output pixel, among the contributing frames it copies the RGB of whichever
// frame has the largest 8-neighborhood Laplacian magnitude at that pixel.
func reduceLaplacian(stack []raster.Raster, w, h int32) (raster.Raster, error) {
	lapMaps := make([][]float64, len(stack))
	for i, r := range stack {
		if r.Data == nil {
			continue
		}
		lapMaps[i] = laplacianMagnitude(r)
	}

	out := raster.New(w, h)
	anyContribution := false

	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			bestMag := -1.0
			bestIdx := -1
			for i, r := range stack {
				if r.Data == nil || !r.InBounds(x, y) {
					continue
				}
				if r.Alpha(x, y) <= alphaContributing {
					continue
				}
				mag := lapMaps[i][y*w+x]
				if mag > bestMag {
					bestMag, bestIdx = mag, i
				}
			}
			if bestIdx < 0 {
				continue
			}
			anyContribution = true
			red, green, blue, _ := stack[bestIdx].RGBA(x, y)
			out.SetRGBA(x, y, red, green, blue, 255)
		}
	}
	if !anyContribution {
		return raster.Raster{}, ErrNoValidInput
	}
	return out, nil
}

// laplacianMagnitude computes an 8-neighborhood Laplacian magnitude map on
// the raster's grayscale luminance.
func laplacianMagnitude(r raster.Raster) []float64 {
	w, h := r.W, r.H
	gray := make([]float64, int(w)*int(h))
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			red, green, blue, _ := r.RGBA(x, y)
			gray[y*w+x] = 0.299*float64(red) + 0.587*float64(green) + 0.114*float64(blue)
		}
	}

	mag := make([]float64, int(w)*int(h))
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			center := gray[y*w+x]
			var sum float64
			for dy := int32(-1); dy <= 1; dy++ {
				for dx := int32(-1); dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					sum += gray[ny*w+nx]
				}
			}
			lap := 8*center - sum
			if lap < 0 {
				lap = -lap
			}
			mag[y*w+x] = lap
		}
	}
	return mag
}
