// Package backend selects the render.Device a Rasterizer draws on.
//
// Device packages register a factory from init():
//
//	import _ "github.com/gogpu/tilerast/backend/software"
//
// # Backend Selection
//
// Use Open to request a backend by name, or Default to take the best one
// that opens on this host:
//
//	d, err := backend.Open(backend.NameSoftware, backend.Config{Staging: true})
//
//	name, d, err := backend.Default(backend.Config{Provider: host})
//
// Priority order is wgpu, then software. The wgpu factory fails without a
// HAL provider in Config.Provider, so Default falls back to software on
// headless hosts.
package backend
