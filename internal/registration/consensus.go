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
	"math"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/star"
	"github.com/mlnoga/stackcore/internal/transform"
)

// maxTriangles is the approximate size of the triangle set built from a
// single frame's star list. Beyond it, each triangle is kept with
// probability maxTriangles/total via fastrand, so the kept count varies
// around maxTriangles rather than being a hard bound; sampling is used
// rather than truncating to a fixed prefix, to avoid a systematic bias
// toward stars clustered in one corner of the frame -- the same idiom the
// teacher uses fastrand for when estimating bad-pixel statistics from a
// random 1% sample rather than the first N pixels.
const maxTriangles = 2000

// A scale-invariant, rotation-invariant signature for a triangle of three
// stars: its three side lengths, sorted ascending. V0/V1/V2 are the star
// indices labeled by the side opposite them, so (V0,V1,V2) is a consistent
// vertex order across two triangles with matching signatures (barring a
// mirror reflection, which the tolerance-based matcher does not attempt to
// resolve -- this is a cheap heuristic, not a robust pose estimator).
type triangle struct {
	s0, s1, s2     float32 // sorted ascending side lengths
	v0, v1, v2     int     // star indices, labeled by the side opposite them
}

func (t triangle) signature() (float32, float32) {
	if t.s0 == 0 {
		return 0, 0
	}
	return t.s1 / t.s0, t.s2 / t.s0
}

// buildTriangles enumerates all triangles i<j<k from the given stars,
// randomly subsampling to about maxTriangles via fastrand when the full
// combination set would exceed it.
func buildTriangles(stars []star.Star) []triangle {
	n := len(stars)
	if n < 3 {
		return nil
	}

	total := n * (n - 1) * (n - 2) / 6
	sampleRate := float64(1)
	if total > maxTriangles {
		sampleRate = float64(maxTriangles) / float64(total)
	}
	rng := fastrand.RNG{}

	var tris []triangle
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dAB := dist(stars[i], stars[j])
			for k := j + 1; k < n; k++ {
				if sampleRate < 1 && float64(rng.Uint32n(1<<24))/float64(1<<24) > sampleRate {
					continue
				}
				dAC := dist(stars[i], stars[k])
				dBC := dist(stars[j], stars[k])
				tris = append(tris, labelTriangle(i, j, k, dAB, dAC, dBC))
			}
		}
	}
	return tris
}

// labelTriangle assigns v0/v1/v2 by the side opposite them: v0 is opposite
// the shortest side, v2 opposite the longest.
func labelTriangle(a, b, c int, dAB, dAC, dBC float32) triangle {
	// side dBC is opposite vertex a, dAC opposite b, dAB opposite c.
	type side struct {
		length float32
		vertex int
	}
	sides := [3]side{{dBC, a}, {dAC, b}, {dAB, c}}
	// insertion sort over 3 elements, ascending by length
	for i := 1; i < 3; i++ {
		for j := i; j > 0 && sides[j-1].length > sides[j].length; j-- {
			sides[j-1], sides[j] = sides[j], sides[j-1]
		}
	}
	return triangle{
		s0: sides[0].length, s1: sides[1].length, s2: sides[2].length,
		v0: sides[0].vertex, v1: sides[1].vertex, v2: sides[2].vertex,
	}
}

func dist(a, b star.Star) float32 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

func signaturesMatch(a, b triangle, tolerance float32) bool {
	ar1, ar2 := a.signature()
	br1, br2 := b.signature()
	return absf(ar1-br1) <= tolerance && absf(ar2-br2) <= tolerance
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// detectAll runs the given detector over every frame, capping each frame's
// star list at cap stars (brightest first).
func detectAll(frames []raster.Raster, cfg Config, detector func(raster.Raster, Config) []star.Star, cap int) [][]star.Star {
	all := make([][]star.Star, len(frames))
	for i, f := range frames {
		stars := detector(f, cfg)
		if cap > 0 {
			stars = star.TopN(stars, cap)
		}
		all[i] = stars
	}
	return all
}

func detectStandard(f raster.Raster, cfg Config) []star.Star {
	return star.Detect(f, cfg.threshold(), cfg.minSize(), cfg.maxSize())
}

// registerConsensus implements the geometric-consensus strategy: the
// reference-frame triangle present in the most other frames' own triangle
// sets (matched by scale-invariant side-length signature within tolerance)
// is the consensus pattern; frames without a match are excluded.
func registerConsensus(frames []raster.Raster, cfg Config, obs Observer) (Result, error) {
	return matchConsensus(frames, cfg, obs, detectStandard, Consensus)
}

// matchConsensus is shared by the geometric-consensus and minimal-assumption
// strategies; they differ only in which detector supplies the point sets.
func matchConsensus(frames []raster.Raster, cfg Config, obs Observer, detector func(raster.Raster, Config) []star.Star, strat Strategy) (Result, error) {
	allStars := detectAll(frames, cfg, detector, cfg.starCap())
	refStars := allStars[0]
	refTriangles := buildTriangles(refStars)
	if len(refTriangles) == 0 {
		return Result{}, &ErrAlignmentFailed{Strategy: strat, Reason: "insufficient reference stars"}
	}

	frameTriangles := make([][]triangle, len(frames))
	for i := 1; i < len(frames); i++ {
		frameTriangles[i] = buildTriangles(allStars[i])
	}

	tolerance := cfg.tolerance()

	bestCount := 0
	bestRefTriIndex := -1
	bestMatches := map[int]triangle{} // frame index -> matching triangle
	for ti, refTri := range refTriangles {
		matches := map[int]triangle{}
		for fi := 1; fi < len(frames); fi++ {
			for _, cand := range frameTriangles[fi] {
				if signaturesMatch(refTri, cand, tolerance) {
					matches[fi] = cand
					break // first enumerated match wins
				}
			}
		}
		if len(matches) > bestCount {
			bestCount = len(matches)
			bestRefTriIndex = ti
			bestMatches = matches
		}
	}

	if bestRefTriIndex < 0 || bestCount < 1 {
		return Result{}, &ErrAlignmentFailed{Strategy: strat, Reason: "no consensus pattern found"}
	}

	refTri := refTriangles[bestRefTriIndex]
	refP0 := toPoint(refStars[refTri.v0])
	refP1 := toPoint(refStars[refTri.v1])

	transforms := make([]*transform.Transform, len(frames))
	identity := transform.Identity()
	transforms[0] = &identity

	for fi := 1; fi < len(frames); fi++ {
		obs.Progress(float32(fi) / float32(len(frames)))
		tri, ok := bestMatches[fi]
		if !ok {
			obs.Logf("consensus: frame %d did not match the consensus pattern, excluding", fi)
			continue
		}
		p0 := toPoint(allStars[fi][tri.v0])
		p1 := toPoint(allStars[fi][tri.v1])
		tr, err := transform.Solve(refP0, refP1, p0, p1)
		if err != nil {
			obs.Logf("consensus: frame %d solver failed: %v", fi, err)
			continue
		}
		transforms[fi] = &tr
	}
	obs.Progress(1)
	return Result{Reference: 0, Transforms: transforms}, nil
}
