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

import (
	"math"
	"testing"

	"github.com/mlnoga/stackcore/internal/raster"
)

func squareRaster(w, h, cx, cy, half int32) raster.Raster {
	r := raster.New(w, h)
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			r.SetRGBA(x, y, 255, 255, 255, 255)
		}
	}
	return r
}

func TestDetectSingleSquareCentroid(t *testing.T) {
	r := squareRaster(64, 64, 32, 20, 2) // 5x5 square centered at (32,20)

	stars := Detect(r, DefaultThreshold, DefaultMinSize, DefaultMaxSize)
	if len(stars) != 1 {
		t.Fatalf("expected exactly 1 star, got %d", len(stars))
	}
	s := stars[0]
	if math.Abs(float64(s.X-32)) > 0.01 || math.Abs(float64(s.Y-20)) > 0.01 {
		t.Errorf("centroid = (%g,%g), want (32,20) within 0.01px", s.X, s.Y)
	}
	if s.Size != 25 {
		t.Errorf("size = %d, want 25", s.Size)
	}
}

func TestDetectEmptyBackground(t *testing.T) {
	r := raster.New(32, 32)
	stars := Detect(r, DefaultThreshold, DefaultMinSize, DefaultMaxSize)
	if len(stars) != 0 {
		t.Errorf("expected no stars on a blank raster, got %d", len(stars))
	}
}

func TestDetectSizeFiltering(t *testing.T) {
	r := raster.New(64, 64)
	r.SetRGBA(5, 5, 255, 255, 255, 255) // size-1 blob, filtered by default minSize=2

	stars := Detect(r, DefaultThreshold, DefaultMinSize, DefaultMaxSize)
	if len(stars) != 0 {
		t.Errorf("expected the size-1 blob to be filtered out, got %d stars", len(stars))
	}

	stars = Detect(r, DefaultThreshold, 1, DefaultMaxSize)
	if len(stars) != 1 {
		t.Errorf("expected the size-1 blob to pass with minSize=1, got %d", len(stars))
	}
}

func TestDetectSortedByBrightness(t *testing.T) {
	r := raster.New(64, 64)
	dim := squareRaster(64, 64, 10, 10, 1)
	bright := squareRaster(64, 64, 50, 50, 2)
	for y := int32(0); y < 64; y++ {
		for x := int32(0); x < 64; x++ {
			red, green, blue, alpha := dim.RGBA(x, y)
			if alpha > 0 {
				r.SetRGBA(x, y, red, green, blue, alpha)
			}
			red, green, blue, alpha = bright.RGBA(x, y)
			if alpha > 0 {
				r.SetRGBA(x, y, red, green, blue, alpha)
			}
		}
	}
	stars := Detect(r, DefaultThreshold, DefaultMinSize, DefaultMaxSize)
	if len(stars) != 2 {
		t.Fatalf("expected 2 stars, got %d", len(stars))
	}
	if stars[0].Brightness < stars[1].Brightness {
		t.Errorf("stars not sorted by decreasing brightness: %v", stars)
	}
}

func TestDetectAdaptiveReachesFloor(t *testing.T) {
	r := raster.New(64, 64)
	r.SetRGBA(1, 1, 200, 200, 200, 255)
	r.SetRGBA(1, 2, 200, 200, 200, 255)
	r.SetRGBA(2, 1, 200, 200, 200, 255)

	stars := DetectAdaptive(r, 5, 180, DefaultMinSize, DefaultMaxSize)
	// The blob (pixel value 200) is already found at 180, but 5 stars can't
	// be reached from a single 3-pixel blob, so the threshold descends to the
	// floor of 150 and the final list still holds just that one star.
	if len(stars) != 1 {
		t.Fatalf("expected 1 star once threshold reached the floor, got %d", len(stars))
	}
}

func TestDetectBrightestPixelDegenerate(t *testing.T) {
	r := raster.New(16, 16)
	r.SetRGBA(3, 4, 255, 255, 255, 255)
	r.SetRGBA(8, 9, 255, 255, 255, 255)

	stars := DetectBrightestPixel(r)
	if len(stars) != 2 {
		t.Fatalf("expected 2 one-pixel stars, got %d", len(stars))
	}
	for _, s := range stars {
		if s.Size != 1 {
			t.Errorf("brightest-pixel star should have size 1, got %d", s.Size)
		}
	}
}
