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
	"errors"
	"math"
	"testing"

	"github.com/mlnoga/stackcore/internal/raster"
)

func drawSquare(r raster.Raster, cx, cy, half int32) {
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			if r.InBounds(x, y) {
				r.SetRGBA(x, y, 255, 255, 255, 255)
			}
		}
	}
}

func twoStarFrame(w, h, dx, dy int32) raster.Raster {
	r := raster.New(w, h)
	drawSquare(r, 20+dx, 20+dy, 2)
	drawSquare(r, 40+dx, 30+dy, 2)
	return r
}

func threeStarFrame(w, h, dx, dy int32) raster.Raster {
	r := raster.New(w, h)
	drawSquare(r, 15+dx, 15+dy, 2)
	drawSquare(r, 45+dx, 20+dy, 2)
	drawSquare(r, 25+dx, 45+dy, 2)
	return r
}

func TestRegisterStandardSingleFrame(t *testing.T) {
	frames := []raster.Raster{twoStarFrame(64, 64, 0, 0)}
	res, err := Register(frames, Standard, Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reference != 0 {
		t.Errorf("Reference = %d, want 0", res.Reference)
	}
	if res.Transforms[0] == nil || res.Transforms[0].S != 1 {
		t.Errorf("reference transform should be identity, got %+v", res.Transforms[0])
	}
}

func TestRegisterStandardRecoversTranslation(t *testing.T) {
	frames := []raster.Raster{
		twoStarFrame(80, 80, 0, 0),
		twoStarFrame(80, 80, 5, -3),
	}
	res, err := Register(frames, Standard, Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := res.Transforms[1]
	if tr == nil {
		t.Fatal("expected a transform for frame 1")
	}
	// frame 1's stars sit at ref+(5,-3), so mapping frame1 -> ref needs (-5,3).
	if math.Abs(float64(tr.Dx+5)) > 0.5 || math.Abs(float64(tr.Dy-3)) > 0.5 {
		t.Errorf("translation = (%v,%v), want approx (-5,3)", tr.Dx, tr.Dy)
	}
}

func TestRegisterStandardInsufficientReferenceStars(t *testing.T) {
	frames := []raster.Raster{raster.New(32, 32), raster.New(32, 32)}
	_, err := Register(frames, Standard, Config{}, nil)
	if err == nil {
		t.Fatal("expected an alignment error on a blank reference frame")
	}
	var alignErr *ErrAlignmentFailed
	if !errors.As(err, &alignErr) {
		t.Fatalf("expected *ErrAlignmentFailed, got %T: %v", err, err)
	}
}

func TestRegisterStandardExcludesSparseFrame(t *testing.T) {
	sparse := raster.New(64, 64)
	drawSquare(sparse, 32, 32, 2) // only 1 star
	frames := []raster.Raster{twoStarFrame(64, 64, 0, 0), sparse}
	res, err := Register(frames, Standard, Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Transforms[1] != nil {
		t.Errorf("expected frame 1 to be excluded, got transform %+v", res.Transforms[1])
	}
}

func TestRegisterConsensusRecoversTranslation(t *testing.T) {
	frames := []raster.Raster{
		threeStarFrame(100, 100, 0, 0),
		threeStarFrame(100, 100, 4, 2),
	}
	res, err := Register(frames, Consensus, Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := res.Transforms[1]
	if tr == nil {
		t.Fatal("expected a transform for frame 1")
	}
	// frame 1's stars sit at ref+(4,2), so mapping frame1 -> ref needs (-4,-2).
	if math.Abs(float64(tr.Dx+4)) > 0.5 || math.Abs(float64(tr.Dy+2)) > 0.5 {
		t.Errorf("translation = (%v,%v), want approx (-4,-2)", tr.Dx, tr.Dy)
	}
}

func TestRegisterConsensusInsufficientStars(t *testing.T) {
	frames := []raster.Raster{raster.New(32, 32), raster.New(32, 32)}
	_, err := Register(frames, Consensus, Config{}, nil)
	if err == nil {
		t.Fatal("expected an alignment error when the reference has no triangles")
	}
}

func TestRegisterPlanetaryTooFewFrames(t *testing.T) {
	frames := []raster.Raster{raster.New(32, 32)}
	_, err := Register(frames, Planetary, Config{PlanetaryFFTSize: 16}, nil)
	if err == nil {
		t.Fatal("expected an alignment error with fewer than 2 frames")
	}
}

func TestRegisterPlanetaryIdenticalFramesZeroShift(t *testing.T) {
	f := raster.New(32, 32)
	drawSquare(f, 16, 16, 6)
	frames := []raster.Raster{f.Clone(), f.Clone()}
	res, err := Register(frames, Planetary, Config{PlanetaryFFTSize: 16}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := 1 - res.Reference
	tr := res.Transforms[other]
	if tr == nil {
		t.Fatal("expected a transform for the non-reference frame")
	}
	if math.Abs(float64(tr.Dx)) > 1 || math.Abs(float64(tr.Dy)) > 1 {
		t.Errorf("identical frames should register with near-zero shift, got (%v,%v)", tr.Dx, tr.Dy)
	}
}

func TestRegisterMinimalRecoversPattern(t *testing.T) {
	frames := []raster.Raster{
		threeStarFrame(100, 100, 0, 0),
		threeStarFrame(100, 100, 3, -2),
	}
	res, err := Register(frames, Minimal, Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Transforms[1] == nil {
		t.Fatal("expected a transform for frame 1")
	}
}

func TestRegisterEmptyFrameList(t *testing.T) {
	_, err := Register(nil, Standard, Config{}, nil)
	if err == nil {
		t.Fatal("expected an error on an empty frame list")
	}
}
