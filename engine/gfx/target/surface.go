// Package target provides off-screen render surfaces. A Surface owns its
// own command queue, scheduler and staging buffer, renders into an
// off-screen color buffer, and composites into its host as a single quad.
package target

import (
	"errors"
	"image"

	"github.com/hubastard/thicket/engine/colors"
	"github.com/hubastard/thicket/engine/core"
	"github.com/hubastard/thicket/engine/gfx/batch"
	"github.com/hubastard/thicket/engine/scene"
)

var (
	// ErrNestedTarget: a surface with a surface ancestor (or one activated
	// while another resolves) is a configuration error, never a fallback.
	ErrNestedTarget = errors.New("target: nested render target surface")
	// ErrInvalidSize: surfaces must be created with a positive logical size.
	ErrInvalidSize = errors.New("target: non-positive surface size")
)

// active is the surface currently resolving. Single frame thread, so a
// plain package variable suffices.
var active *Surface

// Surface is an off-screen canvas. It owns exactly one Batcher (command
// queue + scheduler + staging buffer) and one color buffer; neither is ever
// shared with another surface.
type Surface struct {
	r      core.Renderer
	b      *batch.Batcher
	color  core.RenderTexture
	w, h   int
	worldX float32
	worldY float32
	parent *Surface
	clear  colors.Color

	resolved bool
}

// New creates a surface of the given logical size. Non-positive sizes are
// a configuration error.
func New(r core.Renderer, a batch.AtlasSource, w, h int) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, ErrInvalidSize
	}
	b, err := batch.New(r, a, 0)
	if err != nil {
		return nil, err
	}
	color, err := r.CreateRenderTexture(w, h)
	if err != nil {
		return nil, err
	}
	return &Surface{r: r, b: b, color: color, w: w, h: h, clear: colors.Black.WithAlpha(0)}, nil
}

// SetParent declares the nearest render-target ancestor, nil when the
// surface is hosted by the screen. Surfaces do not nest; a non-nil parent
// fails at activation.
func (s *Surface) SetParent(p *Surface) { s.parent = p }

// SetWorldPos places the surface in its host's world space.
func (s *Surface) SetWorldPos(x, y float32) { s.worldX, s.worldY = x, y }

func (s *Surface) WorldPos() (float32, float32) { return s.worldX, s.worldY }
func (s *Surface) Size() (int, int)             { return s.w, s.h }
func (s *Surface) SetClearColor(c colors.Color) { s.clear = c }

// Stats exposes the owned batcher's per-frame counters.
func (s *Surface) Stats() batch.Statistics { return s.b.Stats() }

// Local translates a world-space position into this surface's local space.
// The off-screen buffer's origin is independent of the world origin.
func (s *Surface) Local(x, y float32) (float32, float32) {
	return x - s.worldX, y - s.worldY
}

// EmitQuad enqueues into this surface, remapping the world-space
// destination to surface-local coordinates first.
func (s *Surface) EmitQuad(tex core.Texture, src image.Rectangle, dst batch.Rect, tint colors.Color, originX, originY, scaleX, scaleY, rotation float32, flip batch.FlipFlags, depth float32) {
	dst.X, dst.Y = s.Local(dst.X, dst.Y)
	s.b.EmitQuad(tex, src, dst, tint, originX, originY, scaleX, scaleY, rotation, flip, depth)
}

// EmitQuadDirect is the atlas-bypassing counterpart of EmitQuad.
func (s *Surface) EmitQuadDirect(tex core.Texture, src image.Rectangle, dst batch.Rect, tint colors.Color, originX, originY, scaleX, scaleY, rotation float32, flip batch.FlipFlags, depth float32) {
	dst.X, dst.Y = s.Local(dst.X, dst.Y)
	s.b.EmitQuadDirect(tex, src, dst, tint, originX, originY, scaleX, scaleY, rotation, flip, depth)
}

// EmitGlyphRun enqueues a text run at a world-space position.
func (s *Surface) EmitGlyphRun(f batch.GlyphSource, text string, x, y float32, tint colors.Color, depth float32) {
	lx, ly := s.Local(x, y)
	s.b.EmitGlyphRun(f, text, lx, ly, tint, depth)
}

// FillRect enqueues a flat-color rect at a world-space position.
func (s *Surface) FillRect(dst batch.Rect, tint colors.Color, depth float32) {
	dst.X, dst.Y = s.Local(dst.X, dst.Y)
	s.b.FillRect(dst, tint, depth)
}

// Resolve renders this frame's emissions into the off-screen buffer: bind,
// clear, run the surface's own flush cycle, unbind, mark resolved.
// Activating a nested surface fails fast.
func (s *Surface) Resolve() error {
	if s.parent != nil || active != nil {
		return ErrNestedTarget
	}
	active = s
	defer func() { active = nil }()

	if err := s.r.SetRenderTexture(s.color); err != nil {
		return err
	}
	s.r.Clear(s.clear[0], s.clear[1], s.clear[2], s.clear[3])
	s.r.SetViewProjection(scene.PixelOrtho(s.w, s.h))

	err := s.b.RunFlushCycle()
	if uerr := s.r.SetRenderTexture(nil); err == nil {
		err = uerr
	}
	if err != nil {
		return err
	}
	s.resolved = true
	return nil
}

// Composite draws the resolved color buffer as one textured quad into the
// hosting batcher at the surface's world position. Always direct: the
// buffer is page-sized and short-lived, never atlas material.
func (s *Surface) Composite(host *batch.Batcher, depth float32) {
	if !s.resolved {
		return
	}
	src := image.Rect(0, 0, s.w, s.h)
	dst := batch.Rect{X: s.worldX, Y: s.worldY, W: float32(s.w), H: float32(s.h)}
	// FBO color attachments are stored bottom-up.
	host.EmitQuadDirect(s.color.Texture(), src, dst, colors.White, 0, 0, 1, 1, 0, batch.FlipY, depth)
}

// Resize reallocates the off-screen buffer to a new logical size. A
// non-positive size is silently ignored, keeping the previous allocation.
// The staging buffer is unaffected and persists across resizes.
func (s *Surface) Resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	color, err := s.r.CreateRenderTexture(w, h)
	if err != nil {
		return err
	}
	s.r.DeleteRenderTexture(s.color)
	s.color = color
	s.w, s.h = w, h
	s.resolved = false
	return nil
}

// Release frees the off-screen buffer. The surface must not be used after.
func (s *Surface) Release() {
	s.r.DeleteRenderTexture(s.color)
	s.color = nil
}
