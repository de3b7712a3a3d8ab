// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"fmt"

	"github.com/gogpu/vhs/render"
)

// FullFrame is the blit scale/bias that maps the whole source onto the
// whole target.
var FullFrame = [4]float32{1, 1, 0, 0}

// Blit draws one program pass over all of target with src bound as
// _BlitTexture. bind, if non-nil, adds the pass's own parameters.
//
// Every call gets its own parameter block from the pool and returns it
// before Blit returns, on every path, so nothing bound here is visible to
// the next draw.
func Blit(b render.Backend, label string, target, src render.Texture, program render.ProgramID, pass int, bind func(*render.ParamBlock)) error {
	params := render.AcquireParams()
	defer render.ReleaseParams(params)

	params.SetTexture(render.ParamBlitTexture, src)
	params.SetVector(render.ParamBlitScaleBias, FullFrame)
	if bind != nil {
		bind(params)
	}
	err := b.Draw(render.DrawCall{
		Label:       label,
		Target:      target,
		Program:     program,
		Pass:        pass,
		VertexCount: render.FullScreenVertices,
		Params:      params,
	})
	if err != nil {
		return fmt.Errorf("blit %s: %w", label, err)
	}
	return nil
}
