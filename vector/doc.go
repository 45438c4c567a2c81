// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vector provides render.Node implementations for map features.
//
// A Layer draws polygons, line strings and points given in world
// coordinates; a LabelLayer draws text anchored at world positions. Both
// map through the tile projection of the draw sink and draw on its canvas,
// so they work on any device that exposes DrawSink.Canvas.
//
//	layer := vector.NewLayer("roads", vector.Style{Stroke: color.Black, Width: 2})
//	layer.Add(vector.Feature{Geometry: vector.LineString{{0, 0}, {1, 1}}})
//	future, err := r.Submit(layer, 256, extent)
//
// Features whose bounds miss the tile extent are skipped.
package vector
