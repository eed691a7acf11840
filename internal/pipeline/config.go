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

import (
	"github.com/mlnoga/stackcore/internal/reduce"
	"github.com/mlnoga/stackcore/internal/registration"
)

// Config carries every tunable the orchestrator needs, mirroring the
// registration and reduce packages' own Config/Mode types plus the output
// canvas's reducer selection. The CLI populates this from flags; the HTTP
// service populates it by unmarshaling a request body.
type Config struct {
	Strategy registration.Strategy
	Register registration.Config

	ReduceMode Mode
	SigmaK     float32
}

// Mode mirrors reduce.Mode so callers outside internal/reduce (CLI flags,
// HTTP JSON) don't need to import that package directly.
type Mode = reduce.Mode

const (
	Average   = reduce.Average
	Median    = reduce.Median
	Sigma     = reduce.Sigma
	Laplacian = reduce.Laplacian
)
