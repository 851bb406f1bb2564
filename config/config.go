// Package config loads rasterizer settings from JSON files and watches them
// for changes.
//
// A settings file only needs the fields it changes; everything else keeps
// the value from Default:
//
//	{
//	    "frame_physical_depth": 24,
//	    "rasterizer_tracing_threshold": 2,
//	    "trace_dir": "/tmp/traces",
//	    "background_color": "#202020"
//	}
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/flow/rastercache"
)

// Default values.
const (
	DefaultDevicePixelRatio = 1.0
	DefaultPipelineDepth    = 2
	DefaultSurfaceBackend   = "image"
	// UnboundedDepth leaves elevation unclamped.
	UnboundedDepth = -1.0
)

// Settings configures a rasterizer and the trees it draws.
type Settings struct {
	// FramePhysicalDepth caps the total elevation of layers. Negative values
	// leave it unbounded.
	FramePhysicalDepth float64 `json:"frame_physical_depth"`
	DevicePixelRatio   float64 `json:"device_pixel_ratio"`

	// RasterizerTracingThreshold traces frames slower than this many frame
	// budgets. Zero disables threshold tracing.
	RasterizerTracingThreshold int `json:"rasterizer_tracing_threshold"`
	// PictureTracingEnabled traces every frame.
	PictureTracingEnabled bool   `json:"picture_tracing_enabled"`
	TraceDir              string `json:"trace_dir"`

	RasterCacheAccessThreshold int `json:"raster_cache_access_threshold"`
	PictureCacheLimitPerFrame  int `json:"picture_cache_limit_per_frame"`
	RasterCacheMaxMB           int `json:"raster_cache_max_mb"`

	// PipelineDepth is how many trees may wait for the rasterizer.
	PipelineDepth int `json:"pipeline_depth"`
	// PaintWorkers sizes the surface paint pool. Zero uses GOMAXPROCS.
	PaintWorkers int `json:"paint_workers"`

	BackgroundColor Color  `json:"background_color"`
	SurfaceBackend  string `json:"surface_backend"`
}

// Default returns the default settings.
func Default() Settings {
	return Settings{
		FramePhysicalDepth:         UnboundedDepth,
		DevicePixelRatio:           DefaultDevicePixelRatio,
		RasterCacheAccessThreshold: rastercache.DefaultAccessThreshold,
		PictureCacheLimitPerFrame:  rastercache.DefaultPictureAndDisplayListCacheLimitPerFrame,
		RasterCacheMaxMB:           rastercache.DefaultMaxSizeMB,
		PipelineDepth:              DefaultPipelineDepth,
		BackgroundColor:            Color{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		SurfaceBackend:             DefaultSurfaceBackend,
	}
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s = %v: %s", e.Field, e.Value, e.Reason)
}

// Validate reports every invalid field, joined into one error.
func (s Settings) Validate() error {
	var errs []error
	bad := func(field string, value any, reason string) {
		errs = append(errs, &ValidationError{Field: field, Value: value, Reason: reason})
	}

	if s.DevicePixelRatio <= 0 {
		bad("device_pixel_ratio", s.DevicePixelRatio, "must be positive")
	}
	if s.RasterizerTracingThreshold < 0 {
		bad("rasterizer_tracing_threshold", s.RasterizerTracingThreshold, "must not be negative")
	}
	if s.RasterCacheAccessThreshold < 1 {
		bad("raster_cache_access_threshold", s.RasterCacheAccessThreshold, "must be at least 1")
	}
	if s.PictureCacheLimitPerFrame < 0 {
		bad("picture_cache_limit_per_frame", s.PictureCacheLimitPerFrame, "must not be negative")
	}
	if s.RasterCacheMaxMB < 0 {
		bad("raster_cache_max_mb", s.RasterCacheMaxMB, "must not be negative")
	}
	if s.PipelineDepth < 1 {
		bad("pipeline_depth", s.PipelineDepth, "must be at least 1")
	}
	if s.PaintWorkers < 0 {
		bad("paint_workers", s.PaintWorkers, "must not be negative")
	}
	if strings.TrimSpace(s.SurfaceBackend) == "" {
		bad("surface_backend", s.SurfaceBackend, "must not be empty")
	}
	if (s.RasterizerTracingThreshold > 0 || s.PictureTracingEnabled) && s.TraceDir == "" {
		bad("trace_dir", s.TraceDir, "required when tracing is enabled")
	}
	return errors.Join(errs...)
}

// Parse reads settings from JSON. Missing fields keep their defaults and
// unknown fields are rejected.
func Parse(data []byte) (Settings, error) {
	s := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads and parses the settings file at path.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path as indented JSON.
func (s Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
