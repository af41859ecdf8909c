package main

import (
	"fmt"

	"github.com/hubastard/thicket/engine/colors"
	"github.com/hubastard/thicket/engine/core"
	"github.com/hubastard/thicket/engine/gfx/batch"
	"github.com/hubastard/thicket/engine/profiler"
	"github.com/hubastard/thicket/engine/scratch"
	"github.com/hubastard/thicket/engine/text"
)

// LayerDebug draws a stats overlay on the pixel-space UI surface.
type LayerDebug struct {
	ui    *batch.Batcher
	world *batch.Batcher
	font  *text.Font

	frameDuration float32
	tick          int
}

func (l *LayerDebug) OnAttach(e *core.Engine) {}
func (l *LayerDebug) OnDetach(e *core.Engine) {}

func (l *LayerDebug) OnUpdate(e *core.Engine, dt float64) {
	l.tick++
	l.frameDuration = float32(dt * 1000)
}

func (l *LayerDebug) OnRender(e *core.Engine, alpha float64) {
	end := profiler.Start("LayerDebug.OnRender")
	defer end()

	// Stats read here are the previous frame's completed cycle.
	stats := l.world.Stats()

	l.ui.FillRect(batch.Rect{X: 8, Y: 8, W: 280, H: 132}, colors.Black.WithAlpha(0.5), 0)

	overlay := scratch.Sprintf(
		"frame %d  %.2f ms\ndraw calls %d\nquads %d\nvertices %d\nheap %.2f MB  goroutines %d",
		l.tick, l.frameDuration,
		stats.DrawCalls,
		stats.QuadCount,
		stats.TotalVertexCount(),
		float64(profiler.MemoryUsage())/(1<<20), profiler.NumGoroutine(),
	)
	l.ui.EmitGlyphRun(l.font, overlay, 16, 16, colors.Yellow, 1)
}

func (l *LayerDebug) OnEvent(e *core.Engine, ev core.Event) bool {
	if v, ok := ev.(core.EventKey); ok {
		if v.Down && v.Key == core.KeyP && (v.Mods&core.ModCtrl) != 0 {
			if path, err := profiler.Dump(); err == nil {
				fmt.Println("speedscope dump:", path)
			} else {
				fmt.Println("profiler dump error:", err)
			}
			return true
		}
	}
	return false
}
