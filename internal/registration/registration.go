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

// Package registration derives a per-frame similarity transform onto a
// chosen reference frame, using one of four strategies. Strategies only
// ever depend on star, transform and raster; nothing in those packages
// depends back on registration.
package registration

import (
	"errors"

	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/transform"
)

// Strategy selects one of the four registration algorithms.
type Strategy int

const (
	Standard Strategy = iota
	Consensus
	Planetary
	Minimal
)

// Observer receives log lines and fractional progress in [0,1] from a
// strategy. The orchestrator constructs and passes the observer; strategies
// never reach a package-level global.
type Observer interface {
	Logf(format string, args ...interface{})
	Progress(fraction float32)
}

// NopObserver discards everything. Useful in tests and as a safe default.
type NopObserver struct{}

func (NopObserver) Logf(format string, args ...interface{}) {}
func (NopObserver) Progress(fraction float32)                {}

// Config carries every tunable a strategy might consult.
type Config struct {
	DetectThreshold    uint8   // initial per-channel threshold for the star detector
	DetectMinStars     int     // minimum stars target for the adaptive detector; no strategy runs that detector, so no strategy reads this field
	DetectMinSize      int32   // connected-component size floor, 0 selects the default
	DetectMaxSize      int32   // connected-component size ceiling, 0 selects the default
	ConsensusTolerance float32 // signature-ratio tolerance in the consensus matcher, 0 selects 0.05
	ConsensusStarCap   int     // max stars kept per frame for triangle enumeration, 0 selects 100
	PlanetaryQuality   int     // percent of sharpest frames retained, 0 selects 80
	PlanetaryFFTSize   int     // FFT window size, a power of 2, 0 selects 256
}

func (c Config) tolerance() float32 {
	if c.ConsensusTolerance > 0 {
		return c.ConsensusTolerance
	}
	return 0.05
}

func (c Config) starCap() int {
	if c.ConsensusStarCap > 0 {
		return c.ConsensusStarCap
	}
	return 100
}

func (c Config) quality() int {
	if c.PlanetaryQuality > 0 {
		return c.PlanetaryQuality
	}
	return 80
}

func (c Config) fftSize() int {
	if c.PlanetaryFFTSize > 0 {
		return c.PlanetaryFFTSize
	}
	return 256
}

func (c Config) minSize() int32 {
	if c.DetectMinSize > 0 {
		return c.DetectMinSize
	}
	return 2
}

func (c Config) maxSize() int32 {
	if c.DetectMaxSize > 0 {
		return c.DetectMaxSize
	}
	return 500
}

func (c Config) threshold() uint8 {
	if c.DetectThreshold > 0 {
		return c.DetectThreshold
	}
	return 180
}

// ErrAlignmentFailed reports that a strategy could not find a usable
// reference or registration pattern.
type ErrAlignmentFailed struct {
	Strategy Strategy
	Reason   string
}

func (e *ErrAlignmentFailed) Error() string {
	return "registration: alignment failed (" + e.Reason + ")"
}

// Result is the outcome of registering a frame list: Reference is the index
// of the frame chosen as the registration target (its own transform is
// always the identity), and Transforms[i] is nil when frame i was excluded.
type Result struct {
	Reference  int
	Transforms []*transform.Transform
}

// Register runs the given strategy over the supplied frames.
func Register(frames []raster.Raster, strat Strategy, cfg Config, obs Observer) (Result, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if len(frames) == 0 {
		return Result{}, errors.New("registration: empty frame list")
	}
	switch strat {
	case Standard:
		return registerStandard(frames, cfg, obs)
	case Consensus:
		return registerConsensus(frames, cfg, obs)
	case Planetary:
		return registerPlanetary(frames, cfg, obs)
	case Minimal:
		return registerMinimal(frames, cfg, obs)
	default:
		return Result{}, errors.New("registration: unknown strategy")
	}
}
