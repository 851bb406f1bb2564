// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rasterizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/instrumentation"
	"github.com/gogpu/flow/layer"
)

// Trace is the file written for a traced frame.
type Trace struct {
	Time       time.Time `json:"time"`
	Frame      int64     `json:"frame"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	RasterTime Duration  `json:"raster_time"`
	BuildTime  Duration  `json:"build_time"`
	// Threshold is the raster time that triggered the trace, zero when
	// every frame is traced.
	Threshold   Duration                 `json:"threshold"`
	DisplayList *displaylist.DisplayList `json:"display_list"`
}

// Duration is a time.Duration written as a string such as "16.6ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// shouldTrace reports whether a frame that took last must be traced, and
// the threshold it exceeded.
func (r *Rasterizer) shouldTrace(last time.Duration) (bool, time.Duration) {
	if r.settings.PictureTracingEnabled {
		return true, 0
	}
	n := r.settings.RasterizerTracingThreshold
	if n <= 0 {
		return false, 0
	}
	limit := instrumentation.FrameBudgetMultiple(n)
	return last > limit, limit
}

// maybeTrace records tree again, without the raster cache, and writes it
// to the trace directory when the last frame was slow enough. Failures are
// logged; tracing never affects the presented frame.
func (r *Rasterizer) maybeTrace(tree *layer.Tree) {
	last := r.compositor.RasterTime().LastLap()
	trace, limit := r.shouldTrace(last)
	if !trace {
		return
	}

	size := tree.FrameSize()
	t := Trace{
		Time:        time.Now(),
		Frame:       r.frames.Count(),
		Width:       size.X,
		Height:      size.Y,
		RasterTime:  Duration(last),
		BuildTime:   Duration(tree.ConstructionTime()),
		Threshold:   Duration(limit),
		DisplayList: tree.Flatten(),
	}
	path, err := writeTrace(r.settings.TraceDir, &t)
	if err != nil {
		flow.Logger().Warn("rasterizer: trace failed", "err", err)
		return
	}
	r.traces.Increment()
	r.lastTrace.Store(&path)
	flow.Logger().Info("rasterizer: frame traced",
		"path", path, "raster_time", last, "threshold", limit)
}

func writeTrace(dir string, t *Trace) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create trace dir: %w", err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("trace_%d.json", t.Time.UnixNano()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write trace: %w", err)
	}
	return path, nil
}
