package text

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/hubastard/thicket/engine/core"
	"github.com/hubastard/thicket/engine/gfx/batch"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Font is a rasterized glyph atlas for one face at one pixel size. It
// implements batch.GlyphSource: glyph records carry pixel rects inside Tex,
// so text runs ride the same emission path as sprites.
type Font struct {
	SizePx         float32
	AscentPx       float32
	DescentPx      float32 // negative (below baseline)
	LineGapPx      float32
	Glyphs         map[rune]batch.Glyph
	Tex            core.Texture
	AtlasW, AtlasH int
	Face           font.Face
	closeFace      func()
}

// batch.GlyphSource implementation.
func (f *Font) Texture() core.Texture { return f.Tex }
func (f *Font) Glyph(r rune) (batch.Glyph, bool) {
	g, ok := f.Glyphs[r]
	return g, ok
}
func (f *Font) Ascent() float32     { return f.AscentPx }
func (f *Font) LineHeight() float32 { return f.AscentPx - f.DescentPx + f.LineGapPx }
func (f *Font) Kern(prev, next rune) float32 {
	if f.Face == nil {
		return 0
	}
	return float32(f.Face.Kern(prev, next)) / 64.0
}

func (f *Font) Close() {
	if f != nil && f.closeFace != nil {
		f.closeFace()
		f.closeFace = nil
	}
}

// LoadTTF builds a monochrome (white) glyph atlas (alpha coverage) and
// uploads it as an RGBA texture. The texture retains its CPU pixels so
// glyphs stay atlas-eligible downstream.
func LoadTTF(r core.Renderer, ttfRelPath string, sizePx float32) (*Font, error) {
	path := filepath.Join("assets", "fonts", ttfRelPath)
	ttfData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}

	ft, err := opentype.Parse(ttfData)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size: float64(sizePx), DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}

	// Metrics in pixels
	m := face.Metrics()
	ascent := float32(m.Ascent.Round())
	descent := float32(-m.Descent.Round())
	lineGap := float32(m.Height.Round()) - ascent + descent

	// Target rune set (latin-1). Expand later as needed.
	var runes []rune
	for rr := rune(32); rr <= rune(255); rr++ {
		runes = append(runes, rr)
	}

	// Measure all glyph bounds/advances to pack a simple shelf atlas
	type meas struct {
		r      rune
		w, h   int
		adv    float32
		bx, by float32
	}
	measure := make([]meas, 0, len(runes))
	for _, rr := range runes {
		br, adv, ok := face.GlyphBounds(rr)
		if !ok {
			continue
		}
		measure = append(measure, meas{
			r:   rr,
			w:   (br.Max.X - br.Min.X).Round(),
			h:   (br.Max.Y - br.Min.Y).Round(),
			adv: float32(adv.Round()),
			bx:  float32(br.Min.X.Round()),
			by:  float32(-br.Min.Y.Round()), // distance from baseline to top
		})
	}

	// Shelf packer (rows). Start with a 512^2 atlas and grow until
	// everything fits.
	const pad = 2
	atlasSize := 512
	var pos map[rune]image.Point
	for {
		x, y, rowH := pad, pad, 0
		fits := true
		pos = make(map[rune]image.Point, len(measure))

		for _, g := range measure {
			if g.w == 0 || g.h == 0 {
				continue
			}
			if g.w+pad*2 > atlasSize || g.h+pad*2 > atlasSize {
				fits = false
				break
			}
			if x+g.w+pad > atlasSize {
				x = pad
				y += rowH + pad
				rowH = 0
			}
			if y+g.h+pad > atlasSize {
				fits = false
				break
			}
			pos[g.r] = image.Pt(x, y)
			x += g.w + pad
			if g.h > rowH {
				rowH = g.h
			}
		}

		if fits {
			break
		}
		atlasSize *= 2
		if atlasSize > 4096 {
			return nil, fmt.Errorf("font atlas too large (>%d)", 4096)
		}
	}

	// Build atlas RGBA: white glyphs with alpha coverage
	dst := image.NewRGBA(image.Rect(0, 0, atlasSize, atlasSize))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.RGBA{0, 0, 0, 0}}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
	}

	glyphs := make(map[rune]batch.Glyph, len(measure))
	for _, g := range measure {
		if g.w == 0 || g.h == 0 {
			glyphs[g.r] = batch.Glyph{
				Advance:  g.adv,
				BearingX: g.bx,
				BearingY: g.by,
			}
			continue
		}
		p := pos[g.r]

		// Drawer expects a dot at the baseline; shift left by bearingX.
		drawer.Dot = fixed.P(p.X-int(g.bx), p.Y+int(g.by))
		drawer.DrawString(string(g.r))

		glyphs[g.r] = batch.Glyph{
			Src:      image.Rect(p.X, p.Y, p.X+g.w, p.Y+g.h),
			Advance:  g.adv,
			BearingX: g.bx,
			BearingY: g.by,
		}
	}

	// Upload atlas; retained pixels keep the glyphs atlas-eligible.
	tex, err := r.CreateTexture(core.TextureDesc{
		Width: atlasSize, Height: atlasSize,
		Format:    core.TextureRGBA8,
		Pixels:    dst.Pix,
		MinFilter: "nearest",
		MagFilter: "nearest",
		WrapU:     "clamp",
		WrapV:     "clamp",
		Retain:    true,
	})
	if err != nil {
		return nil, err
	}

	return &Font{
		SizePx:    sizePx,
		AscentPx:  ascent,
		DescentPx: descent,
		LineGapPx: lineGap,
		Glyphs:    glyphs,
		Tex:       tex,
		AtlasW:    atlasSize,
		AtlasH:    atlasSize,
		Face:      face,
		closeFace: func() { _ = face.Close() },
	}, nil
}
