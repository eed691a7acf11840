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

// Package star extracts sub-pixel stellar centroids from RGBA rasters via
// connected-component labeling and brightness-weighted moments.
package star

import "sort"

// A star, as found by connected-component detection over a raster.
type Star struct {
	X          float32 // sub-pixel centroid x, in raster coordinates
	Y          float32 // sub-pixel centroid y, in raster coordinates
	Brightness float32 // sum of per-pixel brightness over the blob
	Size       int32   // pixel count of the originating blob
}

// SortDesc sorts stars by decreasing brightness, the canonical rank order.
// Ties preserve the stable row-major discovery order of the detector.
func SortDesc(stars []Star) {
	sort.SliceStable(stars, func(i, j int) bool {
		return stars[i].Brightness > stars[j].Brightness
	})
}

// TopN returns up to n brightest stars. stars must already be sorted
// descending by brightness (see SortDesc).
func TopN(stars []Star, n int) []Star {
	if n > len(stars) {
		n = len(stars)
	}
	return stars[:n]
}
