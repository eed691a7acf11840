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

// Package obslog provides the default Observer implementation used outside
// of tests: an instance-owned buffered writer rather than the package-level
// singleton the flat CLI tool used to rely on, so a long-running HTTP
// service can run many stacking invocations concurrently without their logs
// interleaving or racing on a shared global.
package obslog

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Logger writes progress and log lines to an owned writer, optionally also
// tee-ing to a file. It implements the Logf/Progress pair every stacking
// package's Observer interface expects.
type Logger struct {
	mu       sync.Mutex
	w        io.Writer
	file     *bufio.Writer
	fileSync func() error
	progress func(float32)
}

// New returns a Logger writing to w. w is typically os.Stdout for the CLI,
// or a per-request buffer for the HTTP service.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

// TeeToFile additionally buffers log output to file, flushed on Sync.
func TeeToFile(l *Logger, file *bufio.Writer, sync func() error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file = file
	l.fileSync = sync
}

// OnProgress installs a callback invoked on every Progress report, e.g. to
// drive a CLI progress bar or an HTTP server-sent-events stream.
func (l *Logger) OnProgress(f func(float32)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = f
}

// Logf writes a formatted log line, not forcing a trailing newline so
// callers can compose partial lines the way the original CLI tool does for
// progress-adjacent status text.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}

// Progress reports fractional completion in [0,1]; out-of-range values are
// clamped rather than rejected, since callers compose progress out of
// several weighted stages and rounding can nudge the sum slightly outside
// the range.
func (l *Logger) Progress(p float32) {
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	l.mu.Lock()
	cb := l.progress
	l.mu.Unlock()
	if cb != nil {
		cb(p)
	}
}

// Sync flushes and syncs the tee file, if any.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	if err := l.file.Flush(); err != nil {
		return err
	}
	if l.fileSync != nil {
		return l.fileSync()
	}
	return nil
}
