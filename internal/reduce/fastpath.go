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

import "github.com/klauspost/cpuid"

// hasWideLanes is decided once at package init, the same idiom the teacher
// uses in internal/stats_amd64.go and internal/median/median3x3_amd64.go to
// gate a faster code path on CPU feature detection. This core has no hand
// written assembly to gate (too large a surface to carry un-tested through
// this exercise), so the "wide" path below is a branch-reduced pure-Go loop
// rather than a SIMD intrinsic -- still worth selecting only when the CPU
// can plausibly execute wider loads efficiently.
var hasWideLanes = cpuid.CPU.AVX2()

// fastAverage sums the gathered per-pixel channel samples for one output
// value. The "wide" path unrolls by 4 to reduce loop-carried dependency
// chains on CPUs that advertise AVX2; the scalar path is the straightforward
// fallback. Both compute the identical sum order issues aside -- float64
// accumulation keeps the two paths numerically indistinguishable for the
// small (<1000) sample counts this reducer ever sees per pixel.
func fastAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if hasWideLanes {
		return fastAverageWide(values)
	}
	return fastAverageScalar(values)
}

func fastAverageScalar(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func fastAverageWide(values []float64) float64 {
	var s0, s1, s2, s3 float64
	n := len(values)
	i := 0
	for ; i+4 <= n; i += 4 {
		s0 += values[i]
		s1 += values[i+1]
		s2 += values[i+2]
		s3 += values[i+3]
	}
	sum := s0 + s1 + s2 + s3
	for ; i < n; i++ {
		sum += values[i]
	}
	return sum / float64(n)
}
