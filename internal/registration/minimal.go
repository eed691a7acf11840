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
)

func detectBrightestPixel(f raster.Raster, cfg Config) []star.Star {
	return star.DetectBrightestPixel(f)
}

// registerMinimal is the last-resort, minimal-assumption strategy: it uses
// the brightest-pixel variant of the detector to get 1-pixel "stars", then
// applies the same geometric-consensus procedure as registerConsensus.
// Brittle by design -- it acknowledges that proper star detection failed.
func registerMinimal(frames []raster.Raster, cfg Config, obs Observer) (Result, error) {
	return matchConsensus(frames, cfg, obs, detectBrightestPixel, Minimal)
}
