package core

// Vertex is one submitted vertex record: position, texcoord, color.
// The staging buffers and the GPU vertex layout share this exact shape
// (8 float32, 32 bytes).
type Vertex struct {
	X, Y       float32
	U, V       float32
	R, G, B, A float32
}

// VertexStride is the byte size of one Vertex on the GPU.
const VertexStride = 8 * 4

// Texture is an opaque GPU texture handle. Implementations must be
// comparable (the batcher buckets draw commands by texture identity).
type Texture interface {
	Width() int
	Height() int
}

// PixelSource is implemented by textures that retain their CPU-side RGBA8
// pixels after upload (tightly packed, row-major, top-left origin). The
// atlas packer reads sub-rects through it; textures that return nil are
// declined by the packer and drawn directly.
type PixelSource interface {
	Pixels() []byte
}

// VertexBuffer is an opaque GPU-side vertex storage handle.
type VertexBuffer interface {
	Capacity() int // in vertices
}

// RenderTexture is an off-screen color buffer that can be bound as the
// draw destination and sampled afterwards as a regular texture.
type RenderTexture interface {
	Texture() Texture
	Width() int
	Height() int
}

type TextureFormat int

const (
	TextureRGBA8 TextureFormat = iota
)

type TextureDesc struct {
	Width, Height int
	Format        TextureFormat
	Pixels        []byte // tightly packed rows, may be nil
	MinFilter     string // "nearest" | "linear"
	MagFilter     string
	WrapU         string // "clamp" | "repeat"
	WrapV         string
	Retain        bool // keep a CPU copy for PixelSource (atlas-eligible textures)
}

// Renderer is the GPU submission surface. One DrawVertices call is one GPU
// draw call bound to exactly one texture.
type Renderer interface {
	Init() error
	Shutdown()
	Resize(w, h int)
	Clear(r, g, b, a float32)
	SetViewProjection(vp [16]float32)

	CreateTexture(desc TextureDesc) (Texture, error)
	// UpdateTexture overwrites the sub-rect (x,y,w,h) with tightly packed
	// RGBA8 pixels of that sub-rect's size.
	UpdateTexture(t Texture, x, y, w, h int, pixels []byte) error
	DeleteTexture(t Texture)

	CreateVertexBuffer(capacity int) (VertexBuffer, error)
	// GrowVertexBuffer reallocates b to the given capacity. Previous
	// contents are not preserved.
	GrowVertexBuffer(b VertexBuffer, capacity int) error
	DeleteVertexBuffer(b VertexBuffer)
	// DrawVertices uploads verts (the whole CPU array) into b and issues
	// one draw call rendering the first count vertices with t bound.
	DrawVertices(b VertexBuffer, verts []Vertex, count int, t Texture) error

	CreateRenderTexture(w, h int) (RenderTexture, error)
	DeleteRenderTexture(rt RenderTexture)
	// SetRenderTexture binds rt as the draw destination; nil restores the
	// default framebuffer.
	SetRenderTexture(rt RenderTexture) error
}
