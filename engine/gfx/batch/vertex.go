package batch

import (
	"image"
	"math"

	"github.com/hubastard/thicket/engine/colors"
	"github.com/hubastard/thicket/engine/core"
)

// Vertices per quad (two triangles, triangle list, no index buffer).
const quadVerts = 6

// Rect is an axis-aligned destination rectangle. X,Y locate the quad's
// origin point; W,H are the unscaled size.
type Rect struct {
	X, Y, W, H float32
}

// FlipFlags mirrors a quad's texcoords.
type FlipFlags uint8

const (
	FlipNone FlipFlags = 0
	FlipX    FlipFlags = 1 << 0
	FlipY    FlipFlags = 1 << 1
)

// BuildQuad produces the 6 vertices of a textured quad. src is an integer
// pixel rect inside a texture of texW x texH pixels. The origin point is in
// unscaled quad-local pixels: the quad is placed so that (dst.X, dst.Y) is
// where the origin lands; scale and rotation are applied about it.
// Pure function, safe to call at arbitrary rate.
func BuildQuad(dst Rect, src image.Rectangle, texW, texH int, tint colors.Color, originX, originY, scaleX, scaleY, rotation float32, flip FlipFlags) [quadVerts]core.Vertex {
	u0 := float32(src.Min.X) / float32(texW)
	v0 := float32(src.Min.Y) / float32(texH)
	u1 := float32(src.Max.X) / float32(texW)
	v1 := float32(src.Max.Y) / float32(texH)
	if flip&FlipX != 0 {
		u0, u1 = u1, u0
	}
	if flip&FlipY != 0 {
		v0, v1 = v1, v0
	}

	// Quad-local corners relative to the origin point, scaled.
	left := -originX * scaleX
	top := -originY * scaleY
	right := (dst.W - originX) * scaleX
	bottom := (dst.H - originY) * scaleY

	sin, cos := float32(0), float32(1)
	if rotation != 0 {
		s64, c64 := math.Sincos(float64(rotation))
		sin, cos = float32(s64), float32(c64)
	}

	place := func(x, y, u, v float32) core.Vertex {
		return core.Vertex{
			X: x*cos - y*sin + dst.X,
			Y: x*sin + y*cos + dst.Y,
			U: u, V: v,
			R: tint[0], G: tint[1], B: tint[2], A: tint[3],
		}
	}

	tl := place(left, top, u0, v0)
	tr := place(right, top, u1, v0)
	bl := place(left, bottom, u0, v1)
	br := place(right, bottom, u1, v1)

	// Triangles TL-TR-BL, TR-BR-BL (y-down winding).
	return [quadVerts]core.Vertex{tl, tr, bl, tr, br, bl}
}
