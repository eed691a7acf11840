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

// Package transform derives and applies similarity transforms (uniform
// scale + rotation + translation) between matched point sets.
package transform

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned whenever a solve encounters coincident points,
// a non-positive scale, or a non-finite result.
var ErrDegenerate = errors.New("transform: degenerate solve")

// A 2-D point in image coordinates.
type Point struct {
	X, Y float32
}

// A similarity transform mapping a target point q to reference space p by
// p = s*R(theta)*q + t, with t=(Dx,Dy). Invariant: S>0.
type Transform struct {
	Dx, Dy float32
	Theta  float32
	S      float32
}

// Identity is the canonical no-op transform for a reference frame.
func Identity() Transform {
	return Transform{Dx: 0, Dy: 0, Theta: 0, S: 1}
}

// Apply maps q from target space into reference space.
func (t Transform) Apply(q Point) Point {
	cos, sin := math.Cos(float64(t.Theta)), math.Sin(float64(t.Theta))
	x := float64(t.S) * (cos*float64(q.X) - sin*float64(q.Y))
	y := float64(t.S) * (sin*float64(q.X) + cos*float64(q.Y))
	return Point{float32(x) + t.Dx, float32(y) + t.Dy}
}

// Inverse maps a reference-space point p back to target space q, i.e. the
// inverse of Apply. Used by the warp to pull source pixels for each
// destination pixel.
func (t Transform) Inverse(p Point) Point {
	x := float64(p.X) - float64(t.Dx)
	y := float64(p.Y) - float64(t.Dy)
	cos, sin := math.Cos(float64(-t.Theta)), math.Sin(float64(-t.Theta))
	xs := (x*cos - y*sin) / float64(t.S)
	ys := (x*sin + y*cos) / float64(t.S)
	return Point{float32(xs), float32(ys)}
}

func validate(t Transform) error {
	if t.S <= 0 || math.IsNaN(float64(t.S)) || math.IsInf(float64(t.S), 0) {
		return ErrDegenerate
	}
	if math.IsNaN(float64(t.Theta)) || math.IsInf(float64(t.Theta), 0) {
		return ErrDegenerate
	}
	if math.IsNaN(float64(t.Dx)) || math.IsNaN(float64(t.Dy)) {
		return ErrDegenerate
	}
	return nil
}

// Solve derives the similarity transform taking (q1,q2) onto (p1,p2):
//
//	s     = |p2-p1| / |q2-q1|
//	theta = atan2(dp.y,dp.x) - atan2(dq.y,dq.x)
//	t     = p1 - s*R(theta)*q1
//
// Fails with ErrDegenerate if either pair has zero separation or the
// resulting scale is zero, NaN, or non-finite.
func Solve(p1, p2, q1, q2 Point) (Transform, error) {
	dpx, dpy := float64(p2.X-p1.X), float64(p2.Y-p1.Y)
	dqx, dqy := float64(q2.X-q1.X), float64(q2.Y-q1.Y)

	lenP := math.Hypot(dpx, dpy)
	lenQ := math.Hypot(dqx, dqy)
	if lenP == 0 || lenQ == 0 {
		return Transform{}, ErrDegenerate
	}

	s := lenP / lenQ
	theta := math.Atan2(dpy, dpx) - math.Atan2(dqy, dqx)

	cos, sin := math.Cos(theta), math.Sin(theta)
	rq1x := s * (cos*float64(q1.X) - sin*float64(q1.Y))
	rq1y := s * (sin*float64(q1.X) + cos*float64(q1.Y))

	t := Transform{
		Dx:    p1.X - float32(rq1x),
		Dy:    p1.Y - float32(rq1y),
		Theta: float32(theta),
		S:     float32(s),
	}
	if err := validate(t); err != nil {
		return Transform{}, err
	}
	return t, nil
}

// SolveLeastSquares fits the 4-parameter similarity {a,b,tx,ty}, with
// (a,b)=(s*cos(theta), s*sin(theta)), minimizing sum ||p-(s*R(theta)*q+t)||^2
// over n>=2 matched pairs. Assembled and solved as a 4x4 normal-equations
// system via gonum/mat, rather than hand-inlining the closed-form algebra.
// Rejects with ErrDegenerate when the denominator D = n*sum(|q|^2) -
// |sum(q)|^2 is <= epsilon.
func SolveLeastSquares(ps, qs []Point) (Transform, error) {
	n := len(ps)
	if n < 2 || len(qs) != n {
		return Transform{}, ErrDegenerate
	}

	var sumQx, sumQy, sumPx, sumPy float64
	var sumQ2 float64
	var sumQxPx, sumQyPy, sumQxPy, sumQyPx float64
	for i := 0; i < n; i++ {
		qx, qy := float64(qs[i].X), float64(qs[i].Y)
		px, py := float64(ps[i].X), float64(ps[i].Y)
		sumQx += qx
		sumQy += qy
		sumPx += px
		sumPy += py
		sumQ2 += qx*qx + qy*qy
		sumQxPx += qx * px
		sumQyPy += qy * py
		sumQxPy += qx * py
		sumQyPx += qy * px
	}

	nf := float64(n)
	d := nf*sumQ2 - (sumQx*sumQx + sumQy*sumQy)
	const epsilon = 1e-9
	if d <= epsilon {
		return Transform{}, ErrDegenerate
	}

	// Normal equations for (a,b,tx,ty) in matrix form A*x = rhs.
	A := mat.NewDense(4, 4, []float64{
		sumQ2, 0, sumQx, sumQy,
		0, sumQ2, -sumQy, sumQx,
		sumQx, -sumQy, nf, 0,
		sumQy, sumQx, 0, nf,
	})
	rhs := mat.NewVecDense(4, []float64{
		sumQxPx + sumQyPy,
		sumQxPy - sumQyPx,
		sumPx,
		sumPy,
	})

	var x mat.VecDense
	if err := x.SolveVec(A, rhs); err != nil {
		return Transform{}, ErrDegenerate
	}

	a, b, tx, ty := x.AtVec(0), x.AtVec(1), x.AtVec(2), x.AtVec(3)
	s := math.Hypot(a, b)
	if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return Transform{}, ErrDegenerate
	}
	theta := math.Atan2(b, a)

	t := Transform{Dx: float32(tx), Dy: float32(ty), Theta: float32(theta), S: float32(s)}
	if err := validate(t); err != nil {
		return Transform{}, err
	}
	return t, nil
}
