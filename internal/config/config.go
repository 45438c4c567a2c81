// Package config loads the tile server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/tilerast"
	"github.com/gogpu/tilerast/render"
	"github.com/gogpu/tilerast/vector"
)

// Backend names.
const (
	BackendSoftware = "software"
	BackendWGPU     = "wgpu"
)

// WebMercatorBound is the half-width of the EPSG:3857 world square in meters.
const WebMercatorBound = 20037508.342789244

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the top-level tile server configuration.
type Config struct {
	Listen         string        `yaml:"listen"`
	Backend        string        `yaml:"backend"` // software | wgpu
	TileSize       int           `yaml:"tile_size"`
	MaxZoom        int           `yaml:"max_zoom"`
	FrameInterval  time.Duration `yaml:"frame_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"` // debug | info | warn | error

	// World is the extent covered by zoom level 0, [xmin, ymin, xmax, ymax].
	World [4]float64 `yaml:"world"`

	Queue      QueueConfig   `yaml:"queue"`
	Staging    StagingConfig `yaml:"staging"`
	Cache      CacheConfig   `yaml:"cache"`
	Background string        `yaml:"background"`
	Labels     LabelConfig   `yaml:"labels"`
	Layers     []LayerConfig `yaml:"layers"`
}

// QueueConfig bounds the pending job queue.
type QueueConfig struct {
	Limit    int    `yaml:"limit"`
	Overflow string `yaml:"overflow"` // reject | shed-oldest
}

// StagingConfig controls asynchronous readback.
type StagingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Latency is the simulated transfer delay of the software backend, in
	// frames.
	Latency int `yaml:"latency"`
}

// CacheConfig sizes the encoded tile cache. Zero entries disables it.
type CacheConfig struct {
	Entries int           `yaml:"entries"`
	TTL     time.Duration `yaml:"ttl"`
}

// LabelConfig styles the label pass drawn over all layers.
type LabelConfig struct {
	Size  float64 `yaml:"size"`
	Color string  `yaml:"color"`
	Halo  string  `yaml:"halo"`
	Case  string  `yaml:"case"` // none | upper | title
}

// LayerConfig is one vector layer with inline features.
type LayerConfig struct {
	Name     string          `yaml:"name"`
	Fill     string          `yaml:"fill"`
	Stroke   string          `yaml:"stroke"`
	Width    float64         `yaml:"width"`
	Radius   float64         `yaml:"radius"`
	Dash     []float64       `yaml:"dash"`
	Features []FeatureConfig `yaml:"features"`
}

// FeatureConfig is a feature in world coordinates. Points and lines use
// Coordinates; polygons use Rings, outer ring first.
type FeatureConfig struct {
	ID          string         `yaml:"id"`
	Type        string         `yaml:"type"` // point | line | polygon
	Label       string         `yaml:"label"`
	Coordinates [][2]float64   `yaml:"coordinates"`
	Rings       [][][2]float64 `yaml:"rings"`
	Fill        string         `yaml:"fill"`
	Stroke      string         `yaml:"stroke"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:         ":8080",
		Backend:        BackendSoftware,
		TileSize:       256,
		MaxZoom:        18,
		FrameInterval:  time.Second / 60,
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
		World:          [4]float64{-WebMercatorBound, -WebMercatorBound, WebMercatorBound, WebMercatorBound},
		Queue: QueueConfig{
			Limit:    tilerast.DefaultQueueLimit,
			Overflow: tilerast.OverflowReject.String(),
		},
		Staging: StagingConfig{Enabled: true, Latency: 2},
		Cache:   CacheConfig{Entries: 4096, TTL: time.Hour},
		Labels:  LabelConfig{Size: 12, Color: "#222222", Case: vector.CaseNone.String()},
	}
}

// LoadFile reads a YAML configuration file over the defaults and
// validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
		}
	}

	check(c.Listen != "", "listen is required")
	check(c.Backend == BackendSoftware || c.Backend == BackendWGPU, "backend %q", c.Backend)
	check(c.TileSize > 0 && c.TileSize <= 4096, "tile_size %d", c.TileSize)
	check(c.MaxZoom >= 0 && c.MaxZoom <= 30, "max_zoom %d", c.MaxZoom)
	check(c.FrameInterval > 0, "frame_interval must be > 0")
	check(c.RequestTimeout > 0, "request_timeout must be > 0")
	_, err := c.SlogLevel()
	check(err == nil, "log_level %q", c.LogLevel)
	check(c.WorldExtent().Valid(), "world %v", c.World)
	check(c.Queue.Limit >= 0, "queue.limit %d", c.Queue.Limit)
	_, err = c.OverflowPolicy()
	check(err == nil, "queue.overflow %q", c.Queue.Overflow)
	check(c.Staging.Latency >= 0, "staging.latency %d", c.Staging.Latency)
	check(c.Cache.Entries >= 0, "cache.entries %d", c.Cache.Entries)
	check(c.Labels.Size > 0, "labels.size %g", c.Labels.Size)
	_, err = c.LabelCase()
	check(err == nil, "labels.case %q", c.Labels.Case)
	for name, hex := range map[string]string{
		"background":   c.Background,
		"labels.color": c.Labels.Color,
		"labels.halo":  c.Labels.Halo,
	} {
		check(validHex(hex), "%s %q", name, hex)
	}

	seen := make(map[string]bool)
	for i, l := range c.Layers {
		check(l.Name != "", "layers[%d]: name is required", i)
		check(!seen[l.Name], "layers[%d]: duplicate name %q", i, l.Name)
		seen[l.Name] = true
		check(validHex(l.Fill) && validHex(l.Stroke), "layers[%d]: bad color", i)
		for j, f := range l.Features {
			if err := f.validate(); err != nil {
				errs = append(errs, fmt.Errorf("%w: layers[%d].features[%d]: %w", ErrInvalid, i, j, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (f FeatureConfig) validate() error {
	if !validHex(f.Fill) || !validHex(f.Stroke) {
		return errors.New("bad color")
	}
	switch f.Type {
	case "point":
		if len(f.Coordinates) == 0 {
			return errors.New("point needs coordinates")
		}
	case "line":
		if len(f.Coordinates) < 2 {
			return errors.New("line needs at least 2 coordinates")
		}
	case "polygon":
		if len(f.Rings) == 0 {
			return errors.New("polygon needs rings")
		}
		for k, r := range f.Rings {
			if len(r) < 3 {
				return fmt.Errorf("ring %d has %d points, need 3", k, len(r))
			}
		}
	default:
		return fmt.Errorf("unknown type %q", f.Type)
	}
	return nil
}

// WorldExtent returns World as an extent.
func (c *Config) WorldExtent() render.Extent {
	return render.NewExtent(c.World[0], c.World[1], c.World[2], c.World[3])
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, err
	}
	return l, nil
}

// OverflowPolicy parses Queue.Overflow.
func (c *Config) OverflowPolicy() (tilerast.OverflowPolicy, error) {
	for _, p := range []tilerast.OverflowPolicy{tilerast.OverflowReject, tilerast.OverflowShedOldest} {
		if c.Queue.Overflow == p.String() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown overflow policy %q", c.Queue.Overflow)
}

// LabelCase parses Labels.Case. Empty means none.
func (c *Config) LabelCase() (vector.Case, error) {
	for _, lc := range []vector.Case{vector.CaseNone, vector.CaseUpper, vector.CaseTitle} {
		if c.Labels.Case == lc.String() {
			return lc, nil
		}
	}
	if c.Labels.Case == "" {
		return vector.CaseNone, nil
	}
	return 0, fmt.Errorf("unknown label case %q", c.Labels.Case)
}

// Options returns the rasterizer options the configuration selects.
func (c *Config) Options() []tilerast.Option {
	policy, _ := c.OverflowPolicy()
	opts := []tilerast.Option{
		tilerast.WithQueueLimit(c.Queue.Limit),
		tilerast.WithOverflowPolicy(policy),
		tilerast.WithStaging(c.Staging.Enabled),
	}
	if bg, ok := Color(c.Background); ok {
		opts = append(opts, tilerast.WithClearColor(color.RGBAModel.Convert(bg).(color.RGBA)))
	}
	return opts
}

// BuildLayers converts the configured layers into vector layers.
func (c *Config) BuildLayers() []*vector.Layer {
	out := make([]*vector.Layer, 0, len(c.Layers))
	for _, lc := range c.Layers {
		st := vector.Style{Width: lc.Width, Radius: lc.Radius, Dash: lc.Dash}
		st.Fill, _ = Color(lc.Fill)
		st.Stroke, _ = Color(lc.Stroke)
		l := vector.NewLayer(lc.Name, st)
		for _, fc := range lc.Features {
			f := vector.Feature{ID: fc.ID, Label: fc.Label, Geometry: fc.geometry()}
			f.Style.Fill, _ = Color(fc.Fill)
			f.Style.Stroke, _ = Color(fc.Stroke)
			l.Add(f)
		}
		out = append(out, l)
	}
	return out
}

func (f FeatureConfig) geometry() vector.Geometry {
	switch f.Type {
	case "point":
		return vector.MultiPoint(points(f.Coordinates))
	case "line":
		return vector.LineString(points(f.Coordinates))
	default:
		poly := make(vector.Polygon, len(f.Rings))
		for i, r := range f.Rings {
			poly[i] = vector.Ring(points(r))
		}
		return poly
	}
}

func points(coords [][2]float64) []vector.Point {
	pts := make([]vector.Point, len(coords))
	for i, c := range coords {
		pts[i] = vector.Point{X: c[0], Y: c[1]}
	}
	return pts
}

// Color parses a "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa" color. An
// empty string reports false.
func Color(hex string) (color.Color, bool) {
	if hex == "" || !validHex(hex) {
		return nil, false
	}
	return gg.Hex(hex).Color(), true
}

// validHex accepts an empty string or a hex color with optional '#'.
func validHex(s string) bool {
	if s == "" {
		return true
	}
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// BuildScene returns the configured layers followed by one label pass
// per layer that has labelled features.
func (c *Config) BuildScene() (vector.Group, error) {
	layers := c.BuildLayers()
	scene := make(vector.Group, 0, 2*len(layers))
	for _, l := range layers {
		scene = append(scene, l)
	}

	lc, err := c.LabelCase()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	var face text.Face
	fg, _ := Color(c.Labels.Color)
	halo, _ := Color(c.Labels.Halo)
	for _, l := range layers {
		ll := vector.NewLabelLayer(l, nil, fg)
		if len(ll.Labels) == 0 {
			continue
		}
		if face == nil {
			if face, err = vector.DefaultFace(c.Labels.Size); err != nil {
				return nil, fmt.Errorf("load label font: %w", err)
			}
		}
		ll.Face = face
		ll.Case = lc
		ll.Halo = halo
		scene = append(scene, ll)
	}
	return scene, nil
}
