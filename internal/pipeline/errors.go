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

import "fmt"

// StackErrorKind classifies a pipeline failure so callers (CLI, HTTP) can
// branch on failure class without string-matching error text.
type StackErrorKind int

const (
	InvalidInput StackErrorKind = iota
	AlignmentFailed
	Degenerate
	Cancelled
	NoValidInput
)

func (k StackErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case AlignmentFailed:
		return "alignment failed"
	case Degenerate:
		return "degenerate transform"
	case Cancelled:
		return "cancelled"
	case NoValidInput:
		return "no valid input"
	default:
		return "unknown"
	}
}

// StackError is the error interface every error returned by Stack satisfies.
type StackError interface {
	error
	Kind() StackErrorKind
}

type stackError struct {
	kind StackErrorKind
	msg  string
}

func (e *stackError) Error() string     { return e.msg }
func (e *stackError) Kind() StackErrorKind { return e.kind }

func newStackError(kind StackErrorKind, format string, args ...interface{}) *stackError {
	return &stackError{kind: kind, msg: fmt.Sprintf(format, args...)}
}
