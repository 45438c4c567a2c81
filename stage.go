package tilerast

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/tilerast/frame"
	"github.com/gogpu/tilerast/render"
)

// Stage returns the rasterizer's frame-phase handlers for registration
// with a frame.Loop.
func (r *Rasterizer) Stage() frame.Stage {
	return frame.Stage{Name: "tilerast", NeedsDraw: r.NeedsDraw}.
		On(frame.PhaseUpdate, r.Update).
		On(frame.PhasePreDraw, r.PreDraw).
		On(frame.PhaseDraw, r.Draw).
		On(frame.PhasePostDraw, r.PostDraw)
}

// frameGuard enforces single ownership of the frame-phase methods: no
// two calls overlap and every DrawContext comes from the first render
// loop seen. A zero Owner is not checked.
type frameGuard struct {
	busy  atomic.Bool
	owner atomic.Uint64
}

func (g *frameGuard) enter(dc *render.DrawContext) (func(), error) {
	if dc == nil {
		return nil, fmt.Errorf("%w: nil draw context", ErrForeignOwner)
	}
	if dc.Owner != 0 {
		id := uint64(dc.Owner)
		if !g.owner.CompareAndSwap(0, id) && g.owner.Load() != id {
			return nil, fmt.Errorf("%w: owner %d, bound to %d", ErrForeignOwner, id, g.owner.Load())
		}
	}
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrConcurrentFrame
	}
	return g.exit, nil
}

func (g *frameGuard) exit() {
	g.busy.Store(false)
}
