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
	"testing"

	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/transform"
)

func solidFrame(w, h int32, v uint8) raster.Raster {
	r := raster.New(w, h)
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			r.SetRGBA(x, y, v, v, v, 255)
		}
	}
	return r
}

func solidRGBFrame(w, h int32, red, green, blue uint8) raster.Raster {
	r := raster.New(w, h)
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			r.SetRGBA(x, y, red, green, blue, 255)
		}
	}
	return r
}

// TestReduceKeepsChannelsIndependent guards against the reducer's per-pixel
// scratch slices aliasing one another: a grayscale stack can't catch that,
// so each frame here carries distinct R/G/B values.
func TestReduceKeepsChannelsIndependent(t *testing.T) {
	stack := []raster.Raster{
		solidRGBFrame(2, 2, 10, 100, 200),
		solidRGBFrame(2, 2, 20, 120, 220),
	}
	out, err := Reduce(stack, Average, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	red, green, blue, _ := out.RGBA(0, 0)
	if red != 15 || green != 110 || blue != 210 {
		t.Errorf("got (%d,%d,%d), want (15,110,210) -- channels must not alias", red, green, blue)
	}
}

func TestReduceNoValidInput(t *testing.T) {
	stack := []raster.Raster{{}, {}}
	_, err := Reduce(stack, Average, 0)
	if err != ErrNoValidInput {
		t.Fatalf("expected ErrNoValidInput, got %v", err)
	}
}

func TestReduceAverage(t *testing.T) {
	stack := []raster.Raster{solidFrame(4, 4, 100), solidFrame(4, 4, 200)}
	out, err := Reduce(stack, Average, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, g, b, a := out.RGBA(1, 1)
	if r != 150 || g != 150 || b != 150 || a != 255 {
		t.Errorf("got (%d,%d,%d,%d), want (150,150,150,255)", r, g, b, a)
	}
}

func TestReduceMedianOddCount(t *testing.T) {
	stack := []raster.Raster{solidFrame(2, 2, 10), solidFrame(2, 2, 50), solidFrame(2, 2, 90)}
	out, err := Reduce(stack, Median, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _, _, _ := out.RGBA(0, 0)
	if r != 50 {
		t.Errorf("median = %d, want 50", r)
	}
}

func TestReduceSigmaRejectsOutlier(t *testing.T) {
	// Five near-identical frames plus one wild outlier: sigma clip should
	// reject the outlier and return close to the common value.
	stack := make([]raster.Raster, 0, 6)
	for _, v := range []uint8{100, 101, 99, 100, 102} {
		stack = append(stack, solidFrame(2, 2, v))
	}
	stack = append(stack, solidFrame(2, 2, 250))

	out, err := Reduce(stack, Sigma, 2.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _, _, _ := out.RGBA(0, 0)
	if r < 95 || r > 105 {
		t.Errorf("sigma-clipped value = %d, want close to 100 with the outlier rejected", r)
	}
}

func TestReduceSigmaSmallSampleFallsBackToMean(t *testing.T) {
	stack := []raster.Raster{solidFrame(2, 2, 10), solidFrame(2, 2, 30)}
	out, err := Reduce(stack, Sigma, 2.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _, _, _ := out.RGBA(0, 0)
	if r != 20 {
		t.Errorf("got %d, want 20 (plain mean for n<3)", r)
	}
}

func TestReduceLaplacianPicksSharperFrame(t *testing.T) {
	blurry := solidFrame(6, 6, 128)
	sharp := solidFrame(6, 6, 128)
	// Punch a single bright spot into the "sharp" frame so its Laplacian
	// magnitude dominates at that pixel.
	sharp.SetRGBA(3, 3, 255, 255, 255, 255)

	stack := []raster.Raster{blurry, sharp}
	out, err := Reduce(stack, Laplacian, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _, _, _ := out.RGBA(3, 3)
	if r != 255 {
		t.Errorf("expected the sharper frame's pixel to win at (3,3), got %d", r)
	}
}

func TestWarpIdentityIsNoOp(t *testing.T) {
	src := solidFrame(5, 5, 77)
	out := Warp(src, 5, 5, transform.Identity())
	for y := int32(0); y < 5; y++ {
		for x := int32(0); x < 5; x++ {
			r, _, _, a := out.RGBA(x, y)
			if r != 77 || a != 255 {
				t.Fatalf("pixel (%d,%d) = (%d,a=%d), want (77,255)", x, y, r, a)
			}
		}
	}
}

func TestWarpOutOfBoundsIsZeroed(t *testing.T) {
	src := solidFrame(4, 4, 200)
	tr := transform.Transform{Dx: 100, Dy: 100, S: 1}
	out := Warp(src, 4, 4, tr)
	_, _, _, a := out.RGBA(0, 0)
	if a != 0 {
		t.Errorf("expected an unreachable destination pixel to stay zeroed, got alpha %d", a)
	}
}
