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

// Package rest exposes the stacking core over HTTP. It performs no
// registration or reduction logic of its own -- every request is a thin
// adapter over pipeline.Stack.
package rest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/stackcore/internal/obslog"
	"github.com/mlnoga/stackcore/internal/pipeline"
	"github.com/mlnoga/stackcore/internal/raster"
)

// stackRequest is the JSON body accepted by POST /api/v1/stack: frames are
// base64-encoded PNGs, in the order they should be registered.
type stackRequest struct {
	Frames []string         `json:"frames" binding:"required,min=1"`
	Config pipeline.Config  `json:"config"`
}

type stackResponse struct {
	PNG string   `json:"png"`
	Log []string `json:"log"`
}

// Serve starts the gin HTTP server on the given port, the way the teacher's
// Serve did on its hard-coded 8080.
func Serve(port int64) {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/stack", postStack)
		}
	}
	r.Run(fmt.Sprintf(":%d", port))
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func postStack(c *gin.Context) {
	var req stackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	frames := make([]raster.Raster, len(req.Frames))
	for i, encoded := range req.Frames {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "frame " + strconv.Itoa(i) + ": " + err.Error()})
			return
		}
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "frame " + strconv.Itoa(i) + ": " + err.Error()})
			return
		}
		frames[i] = fromImage(img)
	}

	var buf bytes.Buffer
	logger := obslog.New(&buf)

	out, err := pipeline.Stack(frames, req.Config, logger, c.Request.Context())
	logLines := splitLines(buf.String())
	if err != nil {
		status := http.StatusUnprocessableEntity
		if se, ok := err.(pipeline.StackError); ok && se.Kind() == pipeline.Cancelled {
			status = http.StatusRequestTimeout
		}
		c.JSON(status, gin.H{"error": err.Error(), "log": logLines})
		return
	}

	var png8 bytes.Buffer
	if err := png.Encode(&png8, toImage(out)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stackResponse{
		PNG: base64.StdEncoding.EncodeToString(png8.Bytes()),
		Log: logLines,
	})
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

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
