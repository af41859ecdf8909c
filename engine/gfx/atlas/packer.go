// Package atlas packs small texture sub-rects into shared GPU pages so the
// batcher can coalesce draws that would otherwise switch textures.
package atlas

import (
	"image"

	"github.com/hubastard/thicket/engine/core"
)

const (
	DefaultPageSize = 1024
	DefaultMaxPages = 8

	// Gap between packed slices, keeps linear filtering from bleeding
	// neighbors.
	padding = 1
)

type sliceKey struct {
	tex        core.Texture
	x, y, w, h int
}

type slice struct {
	page int
	rect image.Rectangle
}

// page is one shared texture filled with a simple shelf layout: slices go
// left to right on the current shelf, a new shelf opens below when a slice
// does not fit.
type page struct {
	tex    core.Texture
	x, y   int // next free position on the current shelf
	shelfH int // height of the current shelf
}

// Packer owns the shared atlas pages. Pages are global, allocate-only
// resources; consumers never write to them directly. TryGetSlice results
// are cached per (texture, rect), so calling it every frame for every
// candidate quad is expected.
type Packer struct {
	r        core.Renderer
	pageSize int
	maxPages int
	pages    []*page
	slices   map[sliceKey]slice
}

func New(r core.Renderer, pageSize, maxPages int) *Packer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Packer{
		r:        r,
		pageSize: pageSize,
		maxPages: maxPages,
		slices:   make(map[sliceKey]slice),
	}
}

func (p *Packer) PageSize() int  { return p.pageSize }
func (p *Packer) PageCount() int { return len(p.pages) }
func (p *Packer) MaxPages() int  { return p.maxPages }

// PageTexture returns the shared texture of a page previously handed out
// through TryGetSlice.
func (p *Packer) PageTexture(i int) core.Texture { return p.pages[i].tex }

// TryGetSlice returns the page and remapped rect for src inside tex,
// packing the pixels on first request. ok is false when the rect exceeds
// the page size, the texture retains no CPU pixels, or every page is full.
// Declining is cheap and silent; the caller falls back to a direct draw.
func (p *Packer) TryGetSlice(tex core.Texture, src image.Rectangle) (int, image.Rectangle, bool) {
	w, h := src.Dx(), src.Dy()
	if w <= 0 || h <= 0 || w > p.pageSize || h > p.pageSize {
		return 0, image.Rectangle{}, false
	}

	key := sliceKey{tex: tex, x: src.Min.X, y: src.Min.Y, w: w, h: h}
	if s, ok := p.slices[key]; ok {
		return s.page, s.rect, true
	}

	ps, ok := tex.(core.PixelSource)
	if !ok || ps.Pixels() == nil {
		return 0, image.Rectangle{}, false
	}

	pageIdx, pos, ok := p.place(w, h)
	if !ok {
		return 0, image.Rectangle{}, false
	}

	sub := subRectPixels(ps.Pixels(), tex.Width(), src)
	if err := p.r.UpdateTexture(p.pages[pageIdx].tex, pos.X, pos.Y, w, h, sub); err != nil {
		return 0, image.Rectangle{}, false
	}

	s := slice{page: pageIdx, rect: image.Rect(pos.X, pos.Y, pos.X+w, pos.Y+h)}
	p.slices[key] = s
	return s.page, s.rect, true
}

// place finds room for a w x h slice, opening shelves and pages as needed.
func (p *Packer) place(w, h int) (int, image.Point, bool) {
	for i, pg := range p.pages {
		if pos, ok := pg.place(w, h, p.pageSize); ok {
			return i, pos, true
		}
	}
	if len(p.pages) >= p.maxPages {
		return 0, image.Point{}, false
	}
	tex, err := p.r.CreateTexture(core.TextureDesc{
		Width: p.pageSize, Height: p.pageSize,
		Format:    core.TextureRGBA8,
		MinFilter: "nearest", MagFilter: "nearest",
		WrapU: "clamp", WrapV: "clamp",
	})
	if err != nil {
		return 0, image.Point{}, false
	}
	pg := &page{tex: tex}
	p.pages = append(p.pages, pg)
	pos, ok := pg.place(w, h, p.pageSize)
	return len(p.pages) - 1, pos, ok
}

func (pg *page) place(w, h, pageSize int) (image.Point, bool) {
	if pg.x+w > pageSize {
		// Open the next shelf.
		pg.x = 0
		pg.y += pg.shelfH + padding
		pg.shelfH = 0
	}
	if pg.y+h > pageSize {
		return image.Point{}, false
	}
	pos := image.Pt(pg.x, pg.y)
	pg.x += w + padding
	if h > pg.shelfH {
		pg.shelfH = h
	}
	return pos, true
}

// subRectPixels copies src's rows out of a tightly packed RGBA8 texture of
// the given width.
func subRectPixels(pix []byte, texW int, src image.Rectangle) []byte {
	w, h := src.Dx(), src.Dy()
	out := make([]byte, w*h*4)
	for row := 0; row < h; row++ {
		from := ((src.Min.Y+row)*texW + src.Min.X) * 4
		copy(out[row*w*4:(row+1)*w*4], pix[from:from+w*4])
	}
	return out
}
