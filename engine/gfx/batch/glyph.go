package batch

import (
	"image"

	"github.com/hubastard/thicket/engine/colors"
	"github.com/hubastard/thicket/engine/core"
)

// Glyph locates one character inside a font texture. Src is a pixel rect so
// glyphs ride the same integer-source-rect emission path as sprites.
type Glyph struct {
	Src      image.Rectangle
	Advance  float32 // pen advance, pixels
	BearingX float32 // left bearing
	BearingY float32 // baseline to glyph top
}

// GlyphSource supplies glyph geometry and metrics for a run of text.
type GlyphSource interface {
	Texture() core.Texture
	Glyph(r rune) (Glyph, bool)
	Ascent() float32
	LineHeight() float32
	Kern(prev, next rune) float32
}

// EmitGlyphRun emits one quad per character of s with top-left origin
// (x, y), advancing a pen by each glyph's advance width. '\n' resets the
// pen and steps the baseline one line height down; '\r' is skipped. Every
// glyph goes through EmitQuad and lands in the same command queue as
// sprites.
func (b *Batcher) EmitGlyphRun(f GlyphSource, s string, x, y float32, tint colors.Color, depth float32) {
	penX := x
	baseY := y + f.Ascent()
	prev := rune(-1)

	for _, r := range s {
		switch r {
		case '\r':
			continue
		case '\n':
			penX = x
			baseY += f.LineHeight()
			prev = -1
			continue
		}

		g, ok := f.Glyph(r)
		if !ok {
			// Unknown rune: advance by a space width when available.
			if sp, ok2 := f.Glyph(' '); ok2 {
				penX += sp.Advance
			}
			prev = r
			continue
		}

		if prev >= 0 {
			penX += f.Kern(prev, r)
		}

		if w, h := g.Src.Dx(), g.Src.Dy(); w > 0 && h > 0 {
			dst := Rect{
				X: penX + g.BearingX,
				Y: baseY - g.BearingY,
				W: float32(w),
				H: float32(h),
			}
			b.EmitQuad(f.Texture(), g.Src, dst, tint, 0, 0, 1, 1, 0, FlipNone, depth)
		}

		penX += g.Advance
		prev = r
	}
}
