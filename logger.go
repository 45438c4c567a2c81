package tilerast

import (
	"log/slog"
	"sync/atomic"
)

func newNopLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// pipelineLogger is read by the render goroutine and submitters while a
// host may swap it.
var pipelineLogger atomic.Pointer[slog.Logger]

func init() {
	pipelineLogger.Store(newNopLogger())
}

// SetLogger installs the logger used by every Rasterizer. The package is
// silent until SetLogger is called; nil silences it again.
//
// SetLogger does not reach frame.Loop or the backend devices. They are
// silent by default and take a logger through their own WithLogger
// options, e.g. frame.WithLogger(tilerast.Logger()).
//
// Levels:
//   - [slog.LevelDebug]: admissions, draws, resolutions
//   - [slog.LevelInfo]: rasterizer created and closed
//   - [slog.LevelWarn]: attach, draw and readback failures, shed jobs
//
// Example:
//
//	tilerast.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	pipelineLogger.Store(l)
}

// Logger returns the installed logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return pipelineLogger.Load()
}
