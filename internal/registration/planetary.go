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

package registration

import (
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/transform"
)

// grayscale converts a raster to ITU-R BT.601 luma, L = .299R + .587G + .114B.
func grayscale(r raster.Raster) []float64 {
	out := make([]float64, int(r.W)*int(r.H))
	for y := int32(0); y < r.H; y++ {
		for x := int32(0); x < r.W; x++ {
			red, green, blue, _ := r.RGBA(x, y)
			out[y*r.W+x] = 0.299*float64(red) + 0.587*float64(green) + 0.114*float64(blue)
		}
	}
	return out
}

// downsampleNearest nearest-neighbor resamples a WxH grayscale buffer to an
// nxn grid. This is faithful to the reference implementation: small source
// images produce quantized, integer-ratio shifts once translated back to
// original coordinates -- a documented limitation, not a bug to fix here.
func downsampleNearest(gray []float64, w, h int32, n int) []float64 {
	out := make([]float64, n*n)
	for y := 0; y < n; y++ {
		sy := int32(y * int(h) / n)
		if sy >= h {
			sy = h - 1
		}
		for x := 0; x < n; x++ {
			sx := int32(x * int(w) / n)
			if sx >= w {
				sx = w - 1
			}
			out[y*n+x] = gray[sy*w+sx]
		}
	}
	return out
}

// sharpness computes the mean squared 4-neighborhood Laplacian of an nxn
// grayscale grid over its central half (the middle 50% of rows and
// columns), used as a focus proxy.
func sharpness(grid []float64, n int) float64 {
	lo, hi := n/4, n-n/4
	var values []float64
	for y := lo; y < hi; y++ {
		for x := lo; x < hi; x++ {
			center := grid[y*n+x]
			left := valueOr(grid, n, x-1, y, center)
			right := valueOr(grid, n, x+1, y, center)
			up := valueOr(grid, n, x, y-1, center)
			down := valueOr(grid, n, x, y+1, center)
			lap := 4*center - left - right - up - down
			values = append(values, lap*lap)
		}
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func valueOr(grid []float64, n, x, y int, fallback float64) float64 {
	if x < 0 || x >= n || y < 0 || y >= n {
		return fallback
	}
	return grid[y*n+x]
}

type planetaryFrame struct {
	index      int
	grid       []float64 // downsampled grayscale, n x n
	sharpness  float64
}

// registerPlanetary implements phase-correlation registration for extended,
// non-point-like targets (solar/lunar/planetary imaging): the sharpest
// frame becomes the reference, only the top qualityPercent of frames (by
// Laplacian sharpness, minimum 2) are retained, and translation-only shifts
// are recovered via the FFT cross-power spectrum peak.
func registerPlanetary(frames []raster.Raster, cfg Config, obs Observer) (Result, error) {
	n := cfg.fftSize()

	planetFrames := make([]planetaryFrame, len(frames))
	for i, f := range frames {
		gray := grayscale(f)
		grid := downsampleNearest(gray, f.W, f.H, n)
		planetFrames[i] = planetaryFrame{index: i, grid: grid, sharpness: sharpness(grid, n)}
		obs.Progress(0.5 * float32(i+1) / float32(len(frames)))
	}

	ranked := append([]planetaryFrame(nil), planetFrames...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].sharpness > ranked[j].sharpness
	})

	keep := len(frames) * cfg.quality() / 100
	if keep < 2 {
		keep = 2
	}
	if keep > len(frames) {
		keep = len(frames)
	}
	if len(frames) < 2 {
		return Result{}, &ErrAlignmentFailed{Strategy: Planetary, Reason: "fewer than 2 frames"}
	}

	retained := make(map[int]bool, keep)
	for i := 0; i < keep; i++ {
		retained[ranked[i].index] = true
	}

	refIndex := ranked[0].index
	refGrid := planetFrames[refIndex].grid

	transforms := make([]*transform.Transform, len(frames))
	identity := transform.Identity()
	transforms[refIndex] = &identity

	for i, f := range frames {
		if i == refIndex {
			continue
		}
		obs.Progress(0.5 + 0.5*float32(i+1)/float32(len(frames)))
		if !retained[i] {
			obs.Logf("planetary: frame %d below quality threshold, excluding", i)
			continue
		}
		dx, dy := phaseCorrelationShift(planetFrames[i].grid, refGrid, n)
		// Translate from FFT-window coordinates to the frame's own pixel
		// coordinates: wrap to the nearest signed offset, then scale by the
		// ratio of original to FFT-window size.
		scaleX := float64(f.W) / float64(n)
		scaleY := float64(f.H) / float64(n)
		tr := transform.Transform{
			Dx: float32(-dx * scaleX),
			Dy: float32(-dy * scaleY),
			S:  1,
		}
		transforms[i] = &tr
	}
	obs.Progress(1)
	return Result{Reference: refIndex, Transforms: transforms}, nil
}

// phaseCorrelationShift returns the (x,y) pixel shift of target relative to
// reference in FFT-window coordinates, via the normalized cross-power
// spectrum peak.
func phaseCorrelationShift(target, reference []float64, n int) (dx, dy float64) {
	f := make([]complex128, n*n)
	g := make([]complex128, n*n)
	for i := range f {
		f[i] = complex(target[i], 0)
		g[i] = complex(reference[i], 0)
	}
	fft2D(f, n)
	fft2D(g, n)

	const epsilon = 1e-12
	cross := make([]complex128, n*n)
	for i := range cross {
		x := f[i] * cmplx.Conj(g[i])
		cross[i] = x / complex(cmplx.Abs(x)+epsilon, 0)
	}
	ifft2D(cross, n)

	best := -1.0
	bestX, bestY := 0, 0
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			mag := cmplx.Abs(cross[y*n+x])
			if mag > best {
				best, bestX, bestY = mag, x, y
			}
		}
	}

	xStar, yStar := float64(bestX), float64(bestY)
	if xStar > float64(n)/2 {
		xStar -= float64(n)
	}
	if yStar > float64(n)/2 {
		yStar -= float64(n)
	}
	return xStar, yStar
}
