package backend

import (
	"errors"
	"log/slog"

	"github.com/gogpu/tilerast/render"
)

// Backend names.
const (
	NameSoftware = "software"
	NameWGPU     = "wgpu"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot run on this host.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Config is the backend-independent device configuration. Each factory
// uses the fields that apply to it.
type Config struct {
	Logger *slog.Logger

	// MaxTextureSize caps target size. Zero keeps the backend default.
	MaxTextureSize int

	// Staging enables asynchronous readback where supported.
	Staging bool

	// StagingLatency is the number of polls before a software transfer is
	// ready.
	StagingLatency int

	// Provider is the host GPU provider handed to GPU backends. It must
	// also expose HalDevice() and HalQueue().
	Provider render.DeviceHandle
}

// Factory opens a device from cfg.
type Factory func(cfg Config) (render.Device, error)
