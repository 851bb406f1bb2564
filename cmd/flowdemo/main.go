// Command flowdemo renders an animated layer tree through the flow
// rasterizer and saves the last frame as a PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/config"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/layer"
	"github.com/gogpu/flow/rasterizer"
	"github.com/gogpu/flow/surface"
)

func main() {
	var (
		width    = flag.Int("width", 800, "frame width")
		height   = flag.Int("height", 600, "frame height")
		frames   = flag.Int("frames", 60, "number of frames to render")
		output   = flag.String("output", "flowdemo.png", "output file for the last frame")
		cfgPath  = flag.String("config", "", "settings file (JSON)")
		watch    = flag.Bool("watch", false, "reload the settings file when it changes")
		traceDir = flag.String("trace-dir", "", "write a trace of every frame to this directory")
		scene    = flag.Bool("scene", false, "compose elevated layers as a scene")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		flow.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	settings := config.Default()
	if *cfgPath != "" {
		var err error
		if settings, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
	}
	if *traceDir != "" {
		settings.TraceDir = *traceDir
		settings.PictureTracingEnabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d := &demo{settings: settings}
	if *watch && *cfgPath != "" {
		if err := config.Watch(ctx, *cfgPath, d.setSettings); err != nil {
			log.Fatalf("Failed to watch settings: %v", err)
		}
	}

	target := surface.NewImageSurface(*width, *height)
	opts := []rasterizer.Option{rasterizer.WithSettings(settings), rasterizer.WithSurface(target)}
	if *scene {
		opts = append(opts, rasterizer.WithSceneComposition(surface.NewProducer()))
	}
	r, err := rasterizer.New(opts...)
	if err != nil {
		log.Fatalf("Failed to create rasterizer: %v", err)
	}
	defer r.Close()

	pipeline := rasterizer.NewPipeline[*layer.Tree](settings.PipelineDepth)
	runner := r.TaskRunner()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer runner.Close()
		size := image.Pt(*width, *height)
		for i := range *frames {
			start := time.Now()
			root := build(size, float64(i)/float64(max(*frames, 1)))
			tree := layer.NewTree(root, size, d.treeOptions(time.Since(start))...)
			if err := pipeline.Produce(gctx, tree); err != nil {
				return err
			}
			runner.PostTask(func() {
				if err := r.Draw(pipeline); err != nil && !errors.Is(err, rasterizer.ErrReentrantDraw) {
					log.Printf("draw: %v", err)
				}
			})
		}
		return nil
	})
	g.Go(func() error { return runner.Run(gctx) })
	if err := g.Wait(); err != nil {
		log.Printf("Stopped: %v", err)
	}

	if err := savePNG(*output, target.Snapshot()); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	st := r.Compositor().RasterCache().Stats()
	log.Printf("Rendered %d frames to %s (%dx%d), cache hit rate %.2f, %d traces\n",
		r.Frames(), *output, *width, *height, st.HitRate, r.Traces())
}

// demo builds the frames. Settings may be swapped by the watcher while
// frames are being built.
type demo struct {
	mu       sync.Mutex
	settings config.Settings
}

func (d *demo) setSettings(s config.Settings) {
	d.mu.Lock()
	d.settings = s
	d.mu.Unlock()
	log.Printf("Settings reloaded: depth %.0f, tracing threshold %d",
		s.FramePhysicalDepth, s.RasterizerTracingThreshold)
}

func (d *demo) treeOptions(built time.Duration) []layer.TreeOption {
	d.mu.Lock()
	s := d.settings
	d.mu.Unlock()
	opts := []layer.TreeOption{
		layer.WithDevicePixelRatio(s.DevicePixelRatio),
		layer.WithRasterizerTracingThreshold(s.RasterizerTracingThreshold),
		layer.WithConstructionTime(built),
	}
	if s.FramePhysicalDepth >= 0 {
		opts = append(opts, layer.WithFramePhysicalDepth(s.FramePhysicalDepth))
	}
	return opts
}

// build returns the root layer for animation progress t in [0, 1).
func build(size image.Point, t float64) layer.Layer {
	w, h := float64(size.X), float64(size.Y)
	root := layer.NewContainerLayer()

	root.Add(layer.NewDisplayListLayer(flow.Point{}, background(w, h), true, false))

	// Spinning squares, cached once they stop changing.
	spin := layer.NewTransformLayer(
		flow.Translate(w*0.25, h*0.3).Multiply(flow.Rotate(t*2*math.Pi)),
		layer.NewDisplayListLayer(flow.Pt(-60, -60), squares(), true, false),
	)
	root.Add(spin)

	// A card rising and falling.
	elevation := 2 + 10*(0.5+0.5*math.Sin(t*2*math.Pi))
	card := flow.RRectFromRectXY(flow.MakeXYWH(w*0.55, h*0.15, w*0.3, h*0.3), 16, 16)
	root.Add(layer.NewPhysicalShapeLayer(flow.PathFromRRect(card),
		color.NRGBA{R: 0xff, G: 0xc1, B: 0x07, A: 0xff}, color.NRGBA{A: 0xff},
		elevation, layer.ClipAntiAlias,
		layer.NewDisplayListLayer(flow.Pt(card.Rect.Left, card.Rect.Top), label(card.Rect.Width()), false, false),
	))

	// A blurred panel.
	blur := layer.NewFilterLayer(flow.Blur(4, 4),
		layer.NewDisplayListLayer(flow.Pt(w*0.1, h*0.6), stripes(w*0.35, h*0.25), true, false),
	)
	root.Add(blur)

	// A surface the system composites on its own.
	sheet := flow.RRectFromRectXY(flow.MakeXYWH(w*0.55, h*0.6, w*0.3, h*0.25), 8, 8)
	root.Add(layer.NewSystemCompositedLayer(sheet, color.NRGBA{R: 0x3f, G: 0x51, B: 0xb5, A: 0xff}, 6,
		layer.NewClipRRectLayer(sheet, layer.ClipHardEdge,
			layer.NewDisplayListLayer(flow.Pt(sheet.Rect.Left, sheet.Rect.Top), label(sheet.Rect.Width()), false, false),
		),
	))

	return root
}

func background(w, h float64) *displaylist.DisplayList {
	rec := displaylist.NewRecorder(flow.MakeWH(w, h))
	const steps = 32
	for i := range steps {
		f := float64(i) / steps
		c := color.NRGBA{R: uint8(25 + f*100), G: uint8(50 + f*75), B: uint8(100 + f*50), A: 0xff}
		rec.DrawRect(flow.MakeXYWH(0, h*f, w, h/steps+1), flow.Fill(c))
	}
	return rec.Finish()
}

func squares() *displaylist.DisplayList {
	rec := displaylist.NewRecorder(flow.Rect{})
	colors := []color.NRGBA{
		{R: 0xf4, G: 0x43, B: 0x36, A: 0xcc},
		{R: 0x4c, G: 0xaf, B: 0x50, A: 0xcc},
		{R: 0x21, G: 0x96, B: 0xf3, A: 0xcc},
		{R: 0xff, G: 0xeb, B: 0x3b, A: 0xcc},
	}
	for i, c := range colors {
		x, y := float64(i%2)*60, float64(i/2)*60
		rec.DrawRRect(flow.RRectFromRectXY(flow.MakeXYWH(x+4, y+4, 52, 52), 8, 8), flow.Fill(c))
	}
	rec.DrawOval(flow.MakeXYWH(30, 30, 60, 60), flow.Fill(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x80}))
	return rec.Finish()
}

func label(w float64) *displaylist.DisplayList {
	rec := displaylist.NewRecorder(flow.Rect{})
	for i := range 3 {
		y := 20 + float64(i)*24
		rec.DrawRRect(flow.RRectFromRectXY(flow.MakeXYWH(16, y, w*0.6-float64(i)*20, 12), 6, 6),
			flow.Fill(color.NRGBA{A: 0x60}))
	}
	return rec.Finish()
}

func stripes(w, h float64) *displaylist.DisplayList {
	rec := displaylist.NewRecorder(flow.Rect{})
	for i := range 8 {
		c := color.NRGBA{R: 0xe9, G: 0x1e, B: 0x63, A: 0xff}
		if i%2 == 1 {
			c = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
		}
		rec.DrawRect(flow.MakeXYWH(float64(i)*w/8, 0, w/8, h), flow.Fill(c))
	}
	return rec.Finish()
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
