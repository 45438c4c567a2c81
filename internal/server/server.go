// Package server serves rasterized map tiles over HTTP.
//
// Each tile request submits a readback job to a tilerast.Rasterizer and
// waits on its future; the render loop runs elsewhere.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogpu/tilerast"
	"github.com/gogpu/tilerast/internal/tilecache"
	"github.com/gogpu/tilerast/render"
)

// DefaultTimeout bounds a tile render when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Renderer is the part of tilerast.Rasterizer the server uses.
type Renderer interface {
	Submit(node render.Node, size int, extent render.Extent) (*tilerast.Future, error)
	Stats() tilerast.Stats
}

// Options configures a Server.
type Options struct {
	TileSize int
	MaxZoom  int
	World    render.Extent

	// Timeout bounds one render, from submission to encoded PNG.
	Timeout time.Duration

	// Cache holds encoded tiles. Nil disables caching.
	Cache *tilecache.Cache

	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is an http.Handler for tiles, stats, health and metrics.
type Server struct {
	r      Renderer
	scene  render.Node
	opts   Options
	logger *slog.Logger
	router chi.Router
}

// New creates a server rendering scene through r.
func New(r Renderer, scene render.Node, opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{r: r, scene: scene, opts: opts, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.logRequests)

	router.Get("/tiles/{z}/{x}/{y}.png", s.handleTile)
	router.Get("/stats", s.handleStats)
	router.Get("/healthz", s.handleHealth)
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	} else {
		router.Handle("/metrics", promhttp.Handler())
	}
	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(w, req)
}

func (s *Server) handleTile(w http.ResponseWriter, req *http.Request) {
	k, err := parseKey(chi.URLParam(req, "z"), chi.URLParam(req, "x"), chi.URLParam(req, "y"), s.opts.MaxZoom)
	switch {
	case errors.Is(err, errBadCoord):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var data []byte
	if s.opts.Cache != nil {
		data, err = s.opts.Cache.GetOrLoad(req.Context(), k, s.render)
	} else {
		data, err = s.render(req.Context(), k)
	}
	if err != nil {
		s.renderError(w, req, k, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// render submits one tile and encodes the result. The render is detached
// from ctx cancellation so coalesced requests still get the tile, but it
// is bounded by the configured timeout.
func (s *Server) render(ctx context.Context, k tilecache.Key) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
	defer cancel()

	extent := TileExtent(s.opts.World, k)
	f, err := s.r.Submit(s.scene, s.opts.TileSize, extent)
	if err != nil {
		return nil, err
	}
	img, err := f.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	s.logger.Debug("server: tile rendered", "tile", k.String(), "job", f.ID(), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (s *Server) renderError(w http.ResponseWriter, req *http.Request, k tilecache.Key, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tilerast.ErrQueueFull), errors.Is(err, tilerast.ErrShed):
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	case errors.Is(err, tilerast.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nothing to write to.
		return
	}
	if status == http.StatusInternalServerError {
		s.logger.Warn("server: tile failed", "tile", k.String(), "err", err,
			"request_id", middleware.GetReqID(req.Context()))
	}
	http.Error(w, err.Error(), status)
}

// statsResponse is the /stats body.
type statsResponse struct {
	Pipeline tilerast.Stats   `json:"pipeline"`
	Cache    *tilecache.Stats `json:"cache,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{Pipeline: s.r.Stats()}
	if s.opts.Cache != nil {
		cs := s.opts.Cache.Stats()
		resp.Cache = &cs
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("server: encode stats", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.r.Stats().Closed {
		http.Error(w, "closed", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ok\n"))
}

// logRequests logs each request at debug level with its status and
// duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		s.logger.Debug("server: request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(req.Context()))
	})
}
