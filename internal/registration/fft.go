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

import "gonum.org/v1/gonum/dsp/fourier"

// fft2D computes the 2-D DFT of an n x n row-major complex grid in place,
// via separable 1-D complex FFTs applied to rows then columns. gonum's
// dsp/fourier is part of the same gonum module the teacher already depends
// on for its optimize.NelderMead aligner refinement.
func fft2D(grid []complex128, n int) {
	t := fourier.NewCmplxFFT(n)
	row := make([]complex128, n)
	for y := 0; y < n; y++ {
		copy(row, grid[y*n:(y+1)*n])
		t.Coefficients(grid[y*n:(y+1)*n], row)
	}
	col := make([]complex128, n)
	colOut := make([]complex128, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = grid[y*n+x]
		}
		t.Coefficients(colOut, col)
		for y := 0; y < n; y++ {
			grid[y*n+x] = colOut[y]
		}
	}
}

// ifft2D computes the inverse 2-D DFT in place via separable inverse 1-D
// FFTs, normalized the way gonum's own Sequence() is (by 1/n per pass).
func ifft2D(grid []complex128, n int) {
	t := fourier.NewCmplxFFT(n)
	row := make([]complex128, n)
	for y := 0; y < n; y++ {
		copy(row, grid[y*n:(y+1)*n])
		t.Sequence(grid[y*n:(y+1)*n], row)
	}
	col := make([]complex128, n)
	colOut := make([]complex128, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = grid[y*n+x]
		}
		t.Sequence(colOut, col)
		for y := 0; y < n; y++ {
			grid[y*n+x] = colOut[y]
		}
	}
}
