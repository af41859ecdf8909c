package main

import (
	"log"

	"github.com/hubastard/thicket/engine/colors"
	"github.com/hubastard/thicket/engine/core"
	"github.com/hubastard/thicket/engine/gfx/atlas"
	"github.com/hubastard/thicket/engine/gfx/batch"
	glbackend "github.com/hubastard/thicket/engine/gfx/gl"
	"github.com/hubastard/thicket/engine/gfx/target"
	"github.com/hubastard/thicket/engine/platform"
	"github.com/hubastard/thicket/engine/profiler"
	"github.com/hubastard/thicket/engine/scene"
	"github.com/hubastard/thicket/engine/scratch"
	"github.com/hubastard/thicket/engine/text"
)

type App struct {
	packer  *atlas.Packer
	world   *batch.Batcher // camera-space surface
	ui      *batch.Batcher // pixel-space overlay surface
	minimap *target.Surface
	font    *text.Font

	layer *Layer2D
	debug *LayerDebug
}

func (a *App) OnStart(e *core.Engine) {
	profiler.Init(1 << 10)
	scratch.Init(4096)

	a.packer = atlas.New(e.Renderer, atlas.DefaultPageSize, atlas.DefaultMaxPages)

	var err error
	if a.world, err = batch.New(e.Renderer, a.packer, 0); err != nil {
		panic(err)
	}
	if a.ui, err = batch.New(e.Renderer, a.packer, 256); err != nil {
		panic(err)
	}

	if a.font, err = text.LoadTTF(e.Renderer, "RobotoMono.ttf", 18); err != nil {
		panic(err)
	}

	if a.minimap, err = target.New(e.Renderer, a.packer, 240, 160); err != nil {
		panic(err)
	}
	a.minimap.SetClearColor(colors.Black.WithAlpha(0.6))

	a.layer = &Layer2D{world: a.world, minimap: a.minimap}
	e.PushLayer(a.layer)

	a.debug = &LayerDebug{ui: a.ui, world: a.world, font: a.font}
	e.PushLayer(a.debug)
}

func (a *App) OnUpdate(e *core.Engine, dt float64) {}

// OnRender runs after every layer emitted: one flush cycle per surface.
func (a *App) OnRender(e *core.Engine, alpha float64) {
	end := profiler.Start("App.Flush")
	defer end()

	// Off-screen surfaces resolve first, then composite into their host.
	if err := a.minimap.Resolve(); err != nil {
		panic(err)
	}
	a.minimap.Composite(a.world, 1000)

	e.Renderer.SetViewProjection(a.layer.cam.VP())
	if err := a.world.RunFlushCycle(); err != nil {
		panic(err)
	}

	w, h := e.Window.FramebufferSize()
	e.Renderer.SetViewProjection(scene.PixelOrtho(w, h))
	if err := a.ui.RunFlushCycle(); err != nil {
		panic(err)
	}

	scratch.Reset()
}

func (a *App) OnEvent(e *core.Engine, ev core.Event) {}
func (a *App) OnShutdown(e *core.Engine)             { a.font.Close() }

func main() {
	cfg := core.Config{
		Title:      "Thicket Sandbox",
		Width:      1280,
		Height:     720,
		VSync:      true,
		ClearColor: colors.DarkGray,
	}
	app := &App{}

	newWindow := func(cfg core.Config) (core.Window, error) {
		return platform.NewGLFWWindow(cfg, nil)
	}
	newRenderer := func(win core.Window, cfg core.Config) (core.Renderer, error) {
		return glbackend.NewRendererGL(win, cfg)
	}

	if err := core.Run(app, cfg, newWindow, newRenderer); err != nil {
		log.Fatal(err)
	}
}
