package main

import (
	"image"

	"github.com/hubastard/thicket/engine/assets"
	"github.com/hubastard/thicket/engine/colors"
	"github.com/hubastard/thicket/engine/core"
	"github.com/hubastard/thicket/engine/gfx/batch"
	"github.com/hubastard/thicket/engine/gfx/target"
	"github.com/hubastard/thicket/engine/scene"
)

// Layer2D drives the world surface: atlas-eligible sprites, a tiling
// background on the direct path, flat fills, and a minimap render target.
type Layer2D struct {
	cam     *scene.OrthoCamera2D
	ctrl    *scene.OrthoController2D
	world   *batch.Batcher
	minimap *target.Surface

	player core.Texture
	tiles  core.Texture
	t      float32
}

func (l *Layer2D) OnAttach(e *core.Engine) {
	w, h := e.Window.FramebufferSize()
	l.cam = scene.NewOrtho2D(w, h)
	l.ctrl = scene.NewOrthoController2D(l.cam)

	var err error
	// Retained pixels: the packer may fold sprite rects into shared pages.
	if l.player, err = assets.LoadTexture(e.Renderer, "player.png", true); err != nil {
		panic(err)
	}
	// Tiling background stays off the atlas (repeat wrapping).
	w2, h2, pixels, err := assets.LoadPNG("tiles.png")
	if err != nil {
		panic(err)
	}
	l.tiles, err = e.Renderer.CreateTexture(core.TextureDesc{
		Width: w2, Height: h2,
		Format:    core.TextureRGBA8,
		Pixels:    pixels,
		MinFilter: "nearest", MagFilter: "nearest",
		WrapU: "repeat", WrapV: "repeat",
	})
	if err != nil {
		panic(err)
	}

	// The minimap sits in the top-right corner of the world view.
	l.minimap.SetWorldPos(float32(w)/2-260, -float32(h)/2+20)
}

func (l *Layer2D) OnDetach(e *core.Engine) {}

func (l *Layer2D) OnUpdate(e *core.Engine, dt float64) {
	l.ctrl.Update(e, float32(dt))
	l.t += float32(dt)

	if e.Input.IsKeyDown(core.KeyEscape) {
		e.Window.RequestClose()
	}
}

func (l *Layer2D) OnRender(e *core.Engine, alpha float64) {
	// Tiling background, direct path by caller policy: a repeat-wrapped
	// texture cannot live inside a shared atlas page.
	bg := batch.Rect{X: -640, Y: -360, W: 1280, H: 720}
	bgSrc := image.Rect(0, 0, l.tiles.Width()*8, l.tiles.Height()*8)
	l.world.EmitQuadDirect(l.tiles, bgSrc, bg, colors.Gray, 0, 0, 1, 1, 0, batch.FlipNone, -10)

	// Ground strip, flat fill.
	l.world.FillRect(batch.Rect{X: -640, Y: 200, W: 1280, H: 40}, colors.DarkGray, -5)

	// Player sprite, atlas-eligible, spinning in place.
	src := image.Rect(0, 0, l.player.Width(), l.player.Height())
	dst := batch.Rect{X: 0, Y: 0, W: float32(src.Dx()), H: float32(src.Dy())}
	l.world.EmitQuad(l.player, src, dst, colors.White,
		float32(src.Dx())/2, float32(src.Dy())/2, 4, 4, l.t, batch.FlipNone, 0)

	// A mirrored companion one layer above.
	dst.X = 160
	l.world.EmitQuad(l.player, src, dst, colors.Cyan,
		float32(src.Dx())/2, float32(src.Dy())/2, 4, 4, -l.t, batch.FlipX, 1)

	// Minimap: world-space emissions, remapped into the surface.
	mx, my := l.minimap.WorldPos()
	mw, mh := l.minimap.Size()
	l.minimap.FillRect(batch.Rect{X: mx, Y: my, W: float32(mw), H: float32(mh)}, colors.Black.WithAlpha(0.4), 0)
	l.minimap.EmitQuad(l.player, src, batch.Rect{X: mx + float32(mw)/2, Y: my + float32(mh)/2, W: 8, H: 8},
		colors.Yellow, 4, 4, 1, 1, 0, batch.FlipNone, 1)
}

func (l *Layer2D) OnEvent(e *core.Engine, ev core.Event) bool {
	switch v := ev.(type) {
	case core.EventResize:
		l.cam.SetViewportPixels(v.W, v.H)
	case core.EventScroll:
		return l.ctrl.HandleEvent(e, ev)
	}
	return false
}
