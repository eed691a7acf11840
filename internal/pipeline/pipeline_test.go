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

package pipeline

import (
	"context"
	"testing"

	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/registration"
)

func squareFrame(w, h, cx, cy, half int32) raster.Raster {
	r := raster.New(w, h)
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			r.SetRGBA(x, y, 255, 255, 255, 255)
		}
	}
	return r
}

func twoStarFrame(w, h int32, dx, dy int32) raster.Raster {
	r := squareFrame(w, h, 20+dx, 20+dy, 1)
	for y := 29 + dy; y <= 31+dy; y++ {
		for x := 79 + dx; x <= 81+dx; x++ {
			r.SetRGBA(x, y, 200, 200, 200, 255)
		}
	}
	return r
}

func TestStackEmptyInput(t *testing.T) {
	_, err := Stack(nil, Config{}, nil, nil)
	if err == nil {
		t.Fatal("expected error for empty input")
	}
	se, ok := err.(StackError)
	if !ok || se.Kind() != InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestStackCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames := []raster.Raster{twoStarFrame(100, 100, 0, 0), twoStarFrame(100, 100, 1, 1)}
	_, err := Stack(frames, Config{Strategy: registration.Standard}, nil, ctx)
	se, ok := err.(StackError)
	if !ok || se.Kind() != Cancelled {
		t.Fatalf("expected Cancelled, got %v", err)
	}
}

func TestStackSingleFrameRejected(t *testing.T) {
	frame := twoStarFrame(100, 100, 0, 0)
	_, err := Stack([]raster.Raster{frame}, Config{Strategy: registration.Standard, ReduceMode: Average}, nil, nil)
	se, ok := err.(StackError)
	if !ok || se.Kind() != InvalidInput {
		t.Fatalf("expected InvalidInput for a single-frame stack, got %v", err)
	}
}

func TestStackAverageTwoIdenticalFrames(t *testing.T) {
	frames := []raster.Raster{twoStarFrame(120, 120, 0, 0), twoStarFrame(120, 120, 0, 0)}
	out, err := Stack(frames, Config{Strategy: registration.Standard, ReduceMode: Average}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	red, _, _, alpha := out.RGBA(20, 20)
	if alpha != 255 {
		t.Fatalf("expected contributing pixel, got alpha %d", alpha)
	}
	if red < 250 {
		t.Fatalf("expected near-white pixel at star location, got %d", red)
	}
}

func TestStackAlignmentFailure(t *testing.T) {
	blank := raster.New(50, 50)
	_, err := Stack([]raster.Raster{blank, blank}, Config{Strategy: registration.Standard}, nil, nil)
	se, ok := err.(StackError)
	if !ok || se.Kind() != AlignmentFailed {
		t.Fatalf("expected AlignmentFailed, got %v", err)
	}
}
