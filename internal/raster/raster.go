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

// Package raster owns the decoded 8-bit RGBA buffer the rest of the pipeline
// operates on. Decoding from any on-disk format is an external concern; this
// package only ever sees bytes that are already RGBA.
package raster

import "fmt"

// An owned RGBA raster in row-major order. Channel 3 of each pixel doubles as
// a per-pixel validity mask downstream: 0 means "no contribution", >=128
// means "opaque".
type Raster struct {
	Data []byte
	W    int32
	H    int32
}

// New allocates a zeroed raster of the given dimensions.
func New(w, h int32) Raster {
	return Raster{Data: make([]byte, 4*int(w)*int(h)), W: w, H: h}
}

// FromRGBA wraps an existing byte slice as a raster, validating its length.
func FromRGBA(data []byte, w, h int32) (Raster, error) {
	want := 4 * int(w) * int(h)
	if len(data) != want {
		return Raster{}, fmt.Errorf("raster: expected %d bytes for %dx%d RGBA, got %d", want, w, h, len(data))
	}
	return Raster{Data: data, W: w, H: h}, nil
}

// base returns the byte offset of pixel (x,y).
func (r Raster) base(x, y int32) int32 {
	return (y*r.W + x) * 4
}

// RGBA returns the four channels of pixel (x,y).
func (r Raster) RGBA(x, y int32) (red, green, blue, alpha uint8) {
	i := r.base(x, y)
	return r.Data[i], r.Data[i+1], r.Data[i+2], r.Data[i+3]
}

// Alpha returns just the validity-mask channel of pixel (x,y).
func (r Raster) Alpha(x, y int32) uint8 {
	return r.Data[r.base(x, y)+3]
}

// SetRGBA writes all four channels of pixel (x,y).
func (r Raster) SetRGBA(x, y int32, red, green, blue, alpha uint8) {
	i := r.base(x, y)
	r.Data[i], r.Data[i+1], r.Data[i+2], r.Data[i+3] = red, green, blue, alpha
}

// InBounds reports whether (x,y) lies within the raster.
func (r Raster) InBounds(x, y int32) bool {
	return x >= 0 && x < r.W && y >= 0 && y < r.H
}

// Clone returns a deep copy of the raster.
func (r Raster) Clone() Raster {
	d := make([]byte, len(r.Data))
	copy(d, r.Data)
	return Raster{Data: d, W: r.W, H: r.H}
}
