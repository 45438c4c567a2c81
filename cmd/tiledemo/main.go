// Command tiledemo rasterizes every tile of one zoom level to PNG files.
//
// Tiles are written as <out>/<z>/<x>/<y>.png. Without -config a built-in
// demo map over the unit square is drawn.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/tilerast"
	"github.com/gogpu/tilerast/backend/software"
	"github.com/gogpu/tilerast/internal/config"
	"github.com/gogpu/tilerast/internal/server"
	"github.com/gogpu/tilerast/internal/tilecache"
	"github.com/gogpu/tilerast/render"
	"github.com/gogpu/tilerast/vector"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file (default: built-in demo map)")
		out        = flag.String("out", "tiles", "output directory")
		zoom       = flag.Int("zoom", 1, "zoom level to render")
		size       = flag.Int("size", 256, "tile size in pixels")
		latency    = flag.Int("latency", 2, "simulated readback latency in frames")
		overview   = flag.Bool("overview", true, "also render the zoom 0 tile into a texture")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	tilerast.SetLogger(logger)

	if err := run(logger, *configPath, *out, *zoom, *size, *latency, *overview); err != nil {
		logger.Error("tiledemo failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, out string, zoom, size, latency int, overview bool) error {
	if zoom < 0 || zoom > 8 {
		return fmt.Errorf("zoom %d not in [0, 8]", zoom)
	}

	var (
		scene render.Node
		world = render.NewExtent(0, 0, 1, 1)
		opts  []tilerast.Option
	)
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		if scene, err = cfg.BuildScene(); err != nil {
			return err
		}
		world = cfg.WorldExtent()
		opts = cfg.Options()
	} else {
		var err error
		if scene, err = demoScene(); err != nil {
			return err
		}
		bg := color.RGBAModel.Convert(gg.Hex("#f2efe9").Color()).(color.RGBA)
		opts = []tilerast.Option{tilerast.WithClearColor(bg)}
	}

	device := software.NewDevice(software.WithLogger(logger), software.WithStagingLatency(latency))
	r, err := tilerast.New(device, opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	start := time.Now()
	n := 1 << zoom
	type pending struct {
		key tilecache.Key
		f   *tilerast.Future
	}
	var jobs []pending
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			k := tilecache.Key{Z: zoom, X: x, Y: y}
			f, err := r.Submit(scene, size, server.TileExtent(world, k))
			if err != nil {
				return fmt.Errorf("submit %s: %w", k, err)
			}
			jobs = append(jobs, pending{key: k, f: f})
		}
	}

	var tex *software.Texture
	if overview {
		tex = software.NewTextureLabeled("overview", size, size)
		if err := r.SubmitTexture(scene, tex, world); err != nil {
			return fmt.Errorf("submit overview: %w", err)
		}
	}

	ctx := context.Background()
	for _, j := range jobs {
		for !j.f.Ready() {
			if err := r.Frame(ctx); err != nil {
				return err
			}
		}
		img, err := j.f.Result()
		if err != nil {
			return fmt.Errorf("tile %s: %w", j.key, err)
		}
		path := filepath.Join(out, fmt.Sprint(j.key.Z), fmt.Sprint(j.key.X), fmt.Sprintf("%d.png", j.key.Y))
		if err := savePNG(path, img); err != nil {
			return err
		}
	}

	if tex != nil {
		// Texture jobs have no future; run frames until the queue drains.
		for r.Stats().Pending > 0 || r.Stats().Attached {
			if err := r.Frame(ctx); err != nil {
				return err
			}
		}
		if err := savePNG(filepath.Join(out, "overview.png"), tex.Image()); err != nil {
			return err
		}
	}

	st := r.Stats()
	logger.Info("tiles written",
		"dir", out,
		"tiles", len(jobs),
		"frames", st.Frames,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func savePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// demoScene is a small map over the unit square: a lake with an island,
// a ring road, a river and a few towns.
func demoScene() (vector.Group, error) {
	water := vector.NewLayer("water", vector.Style{Fill: gg.Hex("#a5c8e8").Color(), Stroke: gg.Hex("#6d9fcc").Color()})
	water.Add(vector.Feature{
		ID:    "lake",
		Label: "Long Lake",
		Geometry: vector.Polygon{
			{{X: 0.10, Y: 0.55}, {X: 0.45, Y: 0.55}, {X: 0.45, Y: 0.90}, {X: 0.10, Y: 0.90}},
			{{X: 0.22, Y: 0.66}, {X: 0.32, Y: 0.66}, {X: 0.32, Y: 0.78}, {X: 0.22, Y: 0.78}},
		},
	})
	water.Add(vector.Feature{
		ID:       "river",
		Geometry: vector.LineString{{X: 0.45, Y: 0.70}, {X: 0.60, Y: 0.55}, {X: 0.70, Y: 0.30}, {X: 1.00, Y: 0.20}},
		Style:    vector.Style{Stroke: gg.Hex("#6d9fcc").Color(), Width: 6},
	})

	roads := vector.NewLayer("roads", vector.Style{Stroke: gg.Hex("#c98b3c").Color(), Width: 3})
	ring := make(vector.LineString, 0, 33)
	for i := 0; i <= 32; i++ {
		a := float64(i) * 2 * math.Pi / 32
		ring = append(ring, vector.Point{X: 0.65 + 0.22*math.Cos(a), Y: 0.65 + 0.22*math.Sin(a)})
	}
	roads.Add(vector.Feature{ID: "ring", Geometry: ring})
	roads.Add(vector.Feature{
		ID:       "track",
		Geometry: vector.LineString{{X: 0.05, Y: 0.10}, {X: 0.95, Y: 0.45}},
		Style:    vector.Style{Dash: []float64{8, 4}},
	})

	towns := vector.NewLayer("towns", vector.Style{Fill: gg.Hex("#d13b3b").Color(), Stroke: gg.Hex("#ffffff").Color(), Radius: 5})
	for _, t := range []struct {
		name string
		at   vector.Point
	}{
		{"north gate", vector.Point{X: 0.65, Y: 0.87}},
		{"mill", vector.Point{X: 0.70, Y: 0.30}},
		{"harbour", vector.Point{X: 0.45, Y: 0.62}},
	} {
		towns.Add(vector.Feature{ID: t.name, Label: t.name, Geometry: vector.MultiPoint{t.at}})
	}

	face, err := vector.DefaultFace(13)
	if err != nil {
		return nil, err
	}
	lakeLabels := vector.NewLabelLayer(water, face, gg.Hex("#2b5d8a").Color())
	townLabels := vector.NewLabelLayer(towns, face, gg.Hex("#222222").Color())
	townLabels.Case = vector.CaseTitle
	townLabels.Halo = gg.Hex("#ffffff").Color()

	return vector.Group{water, roads, towns, lakeLabels, townLabels}, nil
}
