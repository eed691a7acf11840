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
	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/star"
	"github.com/mlnoga/stackcore/internal/transform"
)

// registerStandard implements the default two-star strategy: the two
// brightest stars of frame 0 anchor the reference, the two brightest of
// frame i are matched against them directly. Cheapest strategy, no
// robustness against ambiguous pairings.
func registerStandard(frames []raster.Raster, cfg Config, obs Observer) (Result, error) {
	refStars := star.Detect(frames[0], cfg.threshold(), cfg.minSize(), cfg.maxSize())
	if len(refStars) < 2 {
		return Result{}, &ErrAlignmentFailed{Strategy: Standard, Reason: "reference"}
	}
	refA, refB := toPoint(refStars[0]), toPoint(refStars[1])

	transforms := make([]*transform.Transform, len(frames))
	identity := transform.Identity()
	transforms[0] = &identity

	for i := 1; i < len(frames); i++ {
		obs.Progress(float32(i) / float32(len(frames)))
		stars := star.Detect(frames[i], cfg.threshold(), cfg.minSize(), cfg.maxSize())
		if len(stars) < 2 {
			obs.Logf("standard: frame %d has fewer than 2 stars, excluding", i)
			continue
		}
		a, b := toPoint(stars[0]), toPoint(stars[1])
		tr, err := transform.Solve(refA, refB, a, b)
		if err != nil {
			obs.Logf("standard: frame %d solver failed: %v", i, err)
			continue
		}
		transforms[i] = &tr
	}
	obs.Progress(1)
	return Result{Reference: 0, Transforms: transforms}, nil
}

func toPoint(s star.Star) transform.Point {
	return transform.Point{X: s.X, Y: s.Y}
}
