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

// Package pipeline is the orchestrator: it runs registration over a frame
// list, warps every frame onto the chosen reference's canvas, and reduces
// the resulting stack into a single output raster. Grounded on the
// teacher's top-level Stack(...) entry point in stack.go, generalized to
// take an Observer instead of reaching into package-level log/progress
// globals, and a context.Context for cancellation instead of none at all.
package pipeline

import (
	"context"
	"errors"

	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/reduce"
	"github.com/mlnoga/stackcore/internal/registration"
)

// Observer receives log lines and fractional progress in [0,1] for the
// whole pipeline run, not just one stage. The orchestrator fans this same
// interface out to the registration package per frame.
type Observer interface {
	Logf(format string, args ...interface{})
	Progress(fraction float32)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) Logf(format string, args ...interface{}) {}
func (NopObserver) Progress(fraction float32)                {}

// weightedObserver rescales a stage's own [0,1] progress into [lo,hi] of the
// overall run, so the CLI/HTTP progress bar advances smoothly across
// registration and reduction instead of resetting to 0% at each stage.
type weightedObserver struct {
	obs    Observer
	lo, hi float32
}

func (w weightedObserver) Logf(format string, args ...interface{}) { w.obs.Logf(format, args...) }
func (w weightedObserver) Progress(fraction float32) {
	w.obs.Progress(w.lo + (w.hi-w.lo)*fraction)
}

// Stack registers frames against each other, warps them onto the reference
// frame's canvas and reduces the result. Its signature and error taxonomy
// are the core's sole external contract: CLI and HTTP surfaces are thin
// wrappers around this one call.
func Stack(frames []raster.Raster, cfg Config, obs Observer, ctx context.Context) (raster.Raster, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(frames) < 2 {
		return raster.Raster{}, newStackError(InvalidInput, "fewer than 2 input frames")
	}

	if err := ctx.Err(); err != nil {
		return raster.Raster{}, newStackError(Cancelled, "cancelled before registration: %v", err)
	}

	result, err := registration.Register(frames, cfg.Strategy, cfg.Register, weightedObserver{obs, 0, 0.5})
	if err != nil {
		var aligned *registration.ErrAlignmentFailed
		if errors.As(err, &aligned) {
			return raster.Raster{}, newStackError(AlignmentFailed, "%v", err)
		}
		return raster.Raster{}, newStackError(InvalidInput, "%v", err)
	}

	refFrame := frames[result.Reference]
	dstW, dstH := refFrame.W, refFrame.H

	warped := make([]raster.Raster, len(frames))
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return raster.Raster{}, newStackError(Cancelled, "cancelled during warp: %v", err)
		}
		if result.Transforms[i] == nil {
			continue // excluded by registration
		}
		if i == result.Reference {
			warped[i] = f
			continue
		}
		warped[i] = reduce.Warp(f, dstW, dstH, *result.Transforms[i])
		weightedObserver{obs, 0.5, 0.9}.Progress(float32(i+1) / float32(len(frames)))
	}

	if err := ctx.Err(); err != nil {
		return raster.Raster{}, newStackError(Cancelled, "cancelled before reduction: %v", err)
	}

	out, err := reduce.Reduce(warped, cfg.ReduceMode, cfg.SigmaK)
	if err != nil {
		if errors.Is(err, reduce.ErrNoValidInput) {
			return raster.Raster{}, newStackError(NoValidInput, "%v", err)
		}
		return raster.Raster{}, newStackError(InvalidInput, "%v", err)
	}
	obs.Progress(1)
	return out, nil
}
