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

package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pbnjay/memory"

	"github.com/mlnoga/stackcore/internal/calib"
	"github.com/mlnoga/stackcore/internal/obslog"
	"github.com/mlnoga/stackcore/internal/pipeline"
	"github.com/mlnoga/stackcore/internal/raster"
	"github.com/mlnoga/stackcore/internal/reduce"
	"github.com/mlnoga/stackcore/internal/registration"
	"github.com/mlnoga/stackcore/internal/rest"
)

var totalMiBs = memory.TotalMemory() / 1024 / 1024

var port   = flag.Int64("port", 8080, "port for serving HTTP API")
var chroot = flag.String("chroot", "", "directory to chroot and chdir to when serving HTTP. must be run as root")
var setuid = flag.Int64("setuid", -1, "user id number to setuid to when serving HTTP. must be run as root")

var darks = flag.String("darks", "", "comma-separated dark frame `files` to subtract before registration")
var flats = flag.String("flats", "", "comma-separated flat frame `files` to divide by before registration")
var bias  = flag.String("bias", "", "comma-separated bias frame `files` to subtract before registration")

var out = flag.String("out", "out.png", "save output to `file`")
var logFile = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var strategy = flag.String("strategy", "standard", "registration strategy: standard, consensus, planetary, minimal")
var reducer   = flag.String("reducer", "sigma", "reducer: average, median, sigma, laplacian")
var sigmaK    = flag.Float64("sigmaK", 2.0, "sigma multiplier for the sigma reducer")

var detectThreshold = flag.Int64("detectThreshold", 0, "per-channel star detection threshold, 0=auto default")
var detectMinStars  = flag.Int64("detectMinStars", 0, "minimum stars target for adaptive detection, 0=auto default; not read by any strategy")
var detectMinSize   = flag.Int64("detectMinSize", 0, "connected-component size floor, 0=auto default")
var detectMaxSize   = flag.Int64("detectMaxSize", 0, "connected-component size ceiling, 0=auto default")

var consensusTolerance = flag.Float64("consensusTolerance", 0, "signature-ratio tolerance for consensus matching, 0=auto default")
var consensusStarCap   = flag.Int64("consensusStarCap", 0, "max stars kept per frame for triangle enumeration, 0=auto default")

var planetaryQuality = flag.Int64("planetaryQuality", 0, "percent of sharpest frames retained, 0=auto default")
var planetaryFFTSize = flag.Int64("planetaryFFTSize", 0, "FFT window size, a power of 2, 0=auto default")

func main() {
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `stackcore Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (stack|serve) (img0.png ... imgn.png)

Commands:
  stack  Stack the given light frames and write -out
  serve  Serve the HTTP API

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()

	fmt.Printf("Total system memory: %d MiB\n", totalMiBs)

	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "serve":
		rest.MakeSandbox(*chroot, int(*setuid))
		rest.Serve(*port)
		return

	case "stack":
		if err := runStack(args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}

	fmt.Printf("Done after %s\n", time.Since(start).Round(time.Millisecond*10))
}

func runStack(paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no input frames given")
	}

	var logDest *os.File
	logPath := *logFile
	if logPath == "%auto" {
		ext := filepath.Ext(*out)
		logPath = (*out)[:len(*out)-len(ext)] + ".log"
	}
	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			return err
		}
		defer f.Close()
		logDest = f
	}

	logger := obslog.New(os.Stdout)
	logger.OnProgress(func(p float32) {
		fmt.Fprintf(os.Stdout, "\rProgress: %3.0f%%", p*100)
		if p >= 1 {
			fmt.Fprintln(os.Stdout)
		}
	})
	if logDest != nil {
		bufWriter := bufio.NewWriter(logDest)
		obslog.TeeToFile(logger, bufWriter, logDest.Sync)
		defer func() {
			logger.Sync()
		}()
	}

	frames, err := loadFrames(paths)
	if err != nil {
		return err
	}
	logger.Logf("Loaded %d frames\n", len(frames))

	darkFrames, err := loadFrames(splitPaths(*darks))
	if err != nil {
		return fmt.Errorf("loading dark frames: %w", err)
	}
	flatFrames, err := loadFrames(splitPaths(*flats))
	if err != nil {
		return fmt.Errorf("loading flat frames: %w", err)
	}
	biasFrames, err := loadFrames(splitPaths(*bias))
	if err != nil {
		return fmt.Errorf("loading bias frames: %w", err)
	}
	if len(darkFrames) > 0 || len(flatFrames) > 0 || len(biasFrames) > 0 {
		logger.Logf("Calibrating %d frames against %d dark, %d flat, %d bias\n",
			len(frames), len(darkFrames), len(flatFrames), len(biasFrames))
		for i, f := range frames {
			frames[i] = calib.Calibrate(f, darkFrames, flatFrames, biasFrames)
		}
	}

	cfg := pipeline.Config{
		Strategy: parseStrategy(*strategy),
		Register: registration.Config{
			DetectThreshold:    uint8(*detectThreshold),
			DetectMinStars:     int(*detectMinStars),
			DetectMinSize:      int32(*detectMinSize),
			DetectMaxSize:      int32(*detectMaxSize),
			ConsensusTolerance: float32(*consensusTolerance),
			ConsensusStarCap:   int(*consensusStarCap),
			PlanetaryQuality:   int(*planetaryQuality),
			PlanetaryFFTSize:   int(*planetaryFFTSize),
		},
		ReduceMode: parseReducer(*reducer),
		SigmaK:     float32(*sigmaK),
	}

	result, err := pipeline.Stack(frames, cfg, logger, nil)
	if err != nil {
		return err
	}

	outFile, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer outFile.Close()

	if filepath.Ext(*out) == ".jpg" || filepath.Ext(*out) == ".jpeg" {
		return jpeg.Encode(outFile, toImage(result), &jpeg.Options{Quality: 92})
	}
	return png.Encode(outFile, toImage(result))
}

// splitPaths splits a comma-separated flag value into paths, skipping empty
// entries so an unset flag yields nil rather than []string{""}.
func splitPaths(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadFrames(paths []string) ([]raster.Raster, error) {
	frames := make([]raster.Raster, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", p, err)
		}
		frames = append(frames, fromImage(img))
	}
	return frames, nil
}

func parseStrategy(s string) registration.Strategy {
	switch s {
	case "consensus":
		return registration.Consensus
	case "planetary":
		return registration.Planetary
	case "minimal":
		return registration.Minimal
	default:
		return registration.Standard
	}
}

func parseReducer(s string) reduce.Mode {
	switch s {
	case "average":
		return reduce.Average
	case "median":
		return reduce.Median
	case "laplacian":
		return reduce.Laplacian
	default:
		return reduce.Sigma
	}
}

func fromImage(img image.Image) raster.Raster {
	bounds := img.Bounds()
	w, h := int32(bounds.Dx()), int32(bounds.Dy())
	r := raster.New(w, h)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			red, green, blue, alpha := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r.SetRGBA(int32(x), int32(y), uint8(red>>8), uint8(green>>8), uint8(blue>>8), uint8(alpha>>8))
		}
	}
	return r
}

func toImage(r raster.Raster) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, int(r.W), int(r.H)))
	for y := int32(0); y < r.H; y++ {
		for x := int32(0); x < r.W; x++ {
			red, green, blue, alpha := r.RGBA(x, y)
			off := img.PixOffset(int(x), int(y))
			img.Pix[off] = red
			img.Pix[off+1] = green
			img.Pix[off+2] = blue
			img.Pix[off+3] = alpha
		}
	}
	return img
}
