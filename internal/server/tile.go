package server

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gogpu/tilerast/internal/tilecache"
	"github.com/gogpu/tilerast/render"
)

// Tile address errors.
var (
	errBadCoord   = errors.New("tile coordinate is not an integer")
	errOutOfRange = errors.New("tile coordinate out of range")
)

// parseKey parses z/x/y path segments and checks them against maxZoom.
func parseKey(zs, xs, ys string, maxZoom int) (tilecache.Key, error) {
	var k tilecache.Key
	var err error
	if k.Z, err = strconv.Atoi(zs); err != nil {
		return k, fmt.Errorf("%w: z=%q", errBadCoord, zs)
	}
	if k.X, err = strconv.Atoi(xs); err != nil {
		return k, fmt.Errorf("%w: x=%q", errBadCoord, xs)
	}
	if k.Y, err = strconv.Atoi(ys); err != nil {
		return k, fmt.Errorf("%w: y=%q", errBadCoord, ys)
	}
	if k.Z < 0 || k.Z > maxZoom {
		return k, fmt.Errorf("%w: z=%d not in [0, %d]", errOutOfRange, k.Z, maxZoom)
	}
	n := 1 << k.Z
	if k.X < 0 || k.X >= n || k.Y < 0 || k.Y >= n {
		return k, fmt.Errorf("%w: %s at zoom %d has %d tiles per axis", errOutOfRange, k, k.Z, n)
	}
	return k, nil
}

// TileExtent returns the world rectangle of tile k in the XYZ scheme:
// zoom 0 is world, and row 0 is at the top (YMax).
func TileExtent(world render.Extent, k tilecache.Key) render.Extent {
	n := float64(int(1) << k.Z)
	w := world.Width() / n
	h := world.Height() / n
	xmin := world.XMin + float64(k.X)*w
	ymax := world.YMax - float64(k.Y)*h
	return render.NewExtent(xmin, ymax-h, xmin+w, ymax)
}
