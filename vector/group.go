// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vector

import "github.com/gogpu/tilerast/render"

// Group draws its nodes in order as one node, so a whole map (layers,
// then labels) can be submitted as a single job.
type Group []render.Node

// Draw implements render.Node. The canvas transform and path are reset
// before each member.
func (g Group) Draw(s render.DrawSink) error {
	for _, n := range g {
		if n == nil {
			continue
		}
		if dc := s.Canvas(); dc != nil {
			dc.Identity()
			dc.ClearPath()
		}
		if err := n.Draw(s); err != nil {
			return err
		}
	}
	return nil
}
