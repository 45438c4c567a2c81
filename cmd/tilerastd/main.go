// Command tilerastd serves rasterized map tiles over HTTP.
//
// Usage:
//
//	tilerastd -config tiles.yaml
//	tilerastd -listen :9000 -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gogpu/tilerast"
	"github.com/gogpu/tilerast/backend"
	_ "github.com/gogpu/tilerast/backend/software"
	_ "github.com/gogpu/tilerast/backend/wgpu"
	"github.com/gogpu/tilerast/frame"
	"github.com/gogpu/tilerast/internal/config"
	"github.com/gogpu/tilerast/internal/server"
	"github.com/gogpu/tilerast/internal/tilecache"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		listen     = flag.String("listen", "", "listen address (overrides config)")
		logLevel   = flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	)
	flag.Parse()

	if err := run(*configPath, *listen, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "tilerastd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, listen, logLevel string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	tilerast.SetLogger(logger)

	device, err := backend.Open(cfg.Backend, backend.Config{
		Logger:         logger,
		Staging:        cfg.Staging.Enabled,
		StagingLatency: cfg.Staging.Latency,
	})
	if err != nil {
		return err
	}
	if c, ok := device.(io.Closer); ok {
		defer c.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r, err := tilerast.New(device, append(cfg.Options(), tilerast.WithMetrics(tilerast.NewMetrics(reg)))...)
	if err != nil {
		return err
	}
	defer r.Close()

	scene, err := cfg.BuildScene()
	if err != nil {
		return err
	}
	var cache *tilecache.Cache
	if cfg.Cache.Entries > 0 {
		cache = tilecache.New(cfg.Cache.Entries, cfg.Cache.TTL)
	}

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: server.New(r, scene, server.Options{
			TileSize: cfg.TileSize,
			MaxZoom:  cfg.MaxZoom,
			World:    cfg.WorldExtent(),
			Timeout:  cfg.RequestTimeout,
			Cache:    cache,
			Gatherer: reg,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := frame.NewLoop(device, frame.WithLogger(logger))
	loop.Register(r.Stage())
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx, cfg.FrameInterval) }()

	srvDone := make(chan error, 1)
	go func() {
		logger.Info("tilerastd: listening", "addr", cfg.Listen, "backend", cfg.Backend, "layers", len(cfg.Layers))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvDone <- err
			return
		}
		srvDone <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("tilerastd: shutting down")
	case err := <-loopDone:
		if err != nil {
			runErr = fmt.Errorf("render loop: %w", err)
		}
		loopDone <- nil
	case runErr = <-srvDone:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tilerastd: http shutdown", "err", err)
	}
	// Resolve waiting requests before the loop stops.
	_ = r.Close()
	stop()
	<-loopDone
	return runErr
}
