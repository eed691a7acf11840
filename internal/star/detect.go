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

package star

import "github.com/mlnoga/stackcore/internal/raster"

// Default detector tunables, per the configuration table.
const (
	DefaultThreshold = 180
	DefaultMinSize   = 2
	DefaultMaxSize   = 500

	adaptiveStep  = 10
	adaptiveFloor = 150

	brightestPixelStart = 255
	brightestPixelFloor = 200
)

// Detect returns all blob centroids whose pixels all satisfy R>t && G>t &&
// B>t and whose connected-component size lies in [minSize,maxSize]. Result
// is sorted by decreasing brightness; never fails, returns an empty slice
// when nothing qualifies.
func Detect(r raster.Raster, threshold uint8, minSize, maxSize int32) []Star {
	w, h := r.W, r.H
	visited := make([]bool, int(w)*int(h))
	queue := make([]int32, 0, 64)

	var stars []Star
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			idx := y*w + x
			if visited[idx] || !qualifies(r, x, y, threshold) {
				continue
			}

			queue = queue[:0]
			queue = append(queue, idx)
			visited[idx] = true

			var sumB, sumXB, sumYB float32
			var size int32

			for qi := 0; qi < len(queue); qi++ {
				cur := queue[qi]
				cx, cy := cur%w, cur/w

				red, green, blue, _ := r.RGBA(cx, cy)
				b := (float32(red) + float32(green) + float32(blue)) / 3.0

				sumB += b
				sumXB += float32(cx) * b
				sumYB += float32(cy) * b
				size++

				for dy := int32(-1); dy <= 1; dy++ {
					ny := cy + dy
					if ny < 0 || ny >= h {
						continue
					}
					for dx := int32(-1); dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx := cx + dx
						if nx < 0 || nx >= w {
							continue
						}
						nidx := ny*w + nx
						if visited[nidx] || !qualifies(r, nx, ny, threshold) {
							continue
						}
						visited[nidx] = true
						queue = append(queue, nidx)
					}
				}
			}

			if size < minSize || size > maxSize || sumB == 0 {
				continue
			}
			stars = append(stars, Star{
				X:          sumXB / sumB,
				Y:          sumYB / sumB,
				Brightness: sumB,
				Size:       size,
			})
		}
	}

	SortDesc(stars)
	return stars
}

func qualifies(r raster.Raster, x, y int32, threshold uint8) bool {
	red, green, blue, _ := r.RGBA(x, y)
	return red > threshold && green > threshold && blue > threshold
}

// DetectAdaptive repeats Detect with a lower threshold each round:
// starting at startThreshold (0 selects DefaultThreshold), decreasing by 10
// until at least minStars are found or the threshold reaches its floor of
// 150. Always returns the final list, which may still be smaller than
// minStars.
func DetectAdaptive(r raster.Raster, minStars int, startThreshold uint8, minSize, maxSize int32) []Star {
	threshold := int(startThreshold)
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	var stars []Star
	for {
		stars = Detect(r, uint8(threshold), minSize, maxSize)
		if len(stars) >= minStars || threshold <= adaptiveFloor {
			return stars
		}
		threshold -= adaptiveStep
		if threshold < adaptiveFloor {
			threshold = adaptiveFloor
		}
	}
}

// DetectBrightestPixel is a degenerate detector used by the
// minimal-assumption strategy: it accepts only pixels where all channels
// equal the threshold, starting at 255 and decrementing to a floor of 200,
// and emits 1-pixel "stars".
func DetectBrightestPixel(r raster.Raster) []Star {
	w, h := r.W, r.H
	for threshold := brightestPixelStart; threshold >= brightestPixelFloor; threshold-- {
		var stars []Star
		for y := int32(0); y < h; y++ {
			for x := int32(0); x < w; x++ {
				red, green, blue, _ := r.RGBA(x, y)
				if int(red) == threshold && int(green) == threshold && int(blue) == threshold {
					stars = append(stars, Star{
						X:          float32(x),
						Y:          float32(y),
						Brightness: float32(threshold),
						Size:       1,
					})
				}
			}
		}
		if len(stars) > 0 {
			SortDesc(stars)
			return stars
		}
	}
	return nil
}
