package batch

import (
	"image"
	"sort"

	"github.com/hubastard/thicket/engine/colors"
	"github.com/hubastard/thicket/engine/core"
)

// Default staging capacity in quads when the caller passes <= 0.
const defaultQuads = 2048

// AtlasSource is the narrow contract with the atlas packer. It must be
// cheap to query every frame for every candidate quad; caching is the
// packer's responsibility.
type AtlasSource interface {
	// TryGetSlice remaps src (a pixel rect inside tex) into a shared atlas
	// page. ok is false when the packer declines (rect too big, no pixel
	// access, pages full) - an expected, frequent outcome.
	TryGetSlice(tex core.Texture, src image.Rectangle) (page int, remapped image.Rectangle, ok bool)
	PageTexture(page int) core.Texture
	PageSize() int
	PageCount() int
	MaxPages() int
}

// Statistics captures the counts of one flush cycle.
type Statistics struct {
	DrawCalls int
	QuadCount int
}

// TotalVertexCount reports vertices submitted this frame.
func (s Statistics) TotalVertexCount() int { return s.QuadCount * quadVerts }

// Batcher converts a frame's stream of quad emissions into a minimal
// sequence of GPU draw calls while preserving the (depth, submission order)
// layering contract. Single-threaded, non-reentrant: all emissions and the
// flush cycle for one Batcher happen on the frame thread.
type Batcher struct {
	r       core.Renderer
	atlas   AtlasSource // may be nil: every emission takes the direct path
	queue   commandQueue
	staging *stagingBuffer
	white   core.Texture // 1x1 white for flat-color fills
	sorted  []command    // scratch, reused across frames

	stats     Statistics
	rendering bool
	deferred  []func()
}

// New creates a Batcher with its own staging buffer of initialQuads
// capacity. atlas may be nil.
func New(r core.Renderer, atlas AtlasSource, initialQuads int) (*Batcher, error) {
	if initialQuads <= 0 {
		initialQuads = defaultQuads
	}
	staging, err := newStagingBuffer(r, initialQuads*quadVerts)
	if err != nil {
		return nil, err
	}
	white, err := r.CreateTexture(core.TextureDesc{
		Width: 1, Height: 1,
		Format:    core.TextureRGBA8,
		Pixels:    []byte{255, 255, 255, 255},
		MinFilter: "nearest", MagFilter: "nearest",
		WrapU: "clamp", WrapV: "clamp",
	})
	if err != nil {
		return nil, err
	}
	return &Batcher{
		r:       r,
		atlas:   atlas,
		queue:   newCommandQueue(),
		staging: staging,
		white:   white,
	}, nil
}

// Stats returns the counters of the most recent flush cycle.
func (b *Batcher) Stats() Statistics { return b.stats }

// Rendering reports whether a flush cycle is in progress.
func (b *Batcher) Rendering() bool { return b.rendering }

// Defer runs fn immediately when no flush cycle is in progress, otherwise
// queues it to run right after the current cycle completes. Cooperative,
// single-threaded deferral: the condition always resolves within the frame.
func (b *Batcher) Defer(fn func()) {
	if !b.rendering {
		fn()
		return
	}
	b.deferred = append(b.deferred, fn)
}

// EmitQuad tries the atlas first: when src fits the packer's page size and
// the packer grants a slice, the quad is built against the page texture
// with the remapped rect. Otherwise it falls through to the direct path.
func (b *Batcher) EmitQuad(tex core.Texture, src image.Rectangle, dst Rect, tint colors.Color, originX, originY, scaleX, scaleY, rotation float32, flip FlipFlags, depth float32) {
	if b.atlas != nil && src.Dx() <= b.atlas.PageSize() && src.Dy() <= b.atlas.PageSize() {
		if page, remapped, ok := b.atlas.TryGetSlice(tex, src); ok {
			pageTex := b.atlas.PageTexture(page)
			verts := BuildQuad(dst, remapped, pageTex.Width(), pageTex.Height(), tint, originX, originY, scaleX, scaleY, rotation, flip)
			b.enqueue(pageTex, verts, depth)
			return
		}
	}
	b.EmitQuadDirect(tex, src, dst, tint, originX, originY, scaleX, scaleY, rotation, flip, depth)
}

// EmitQuadDirect always builds against the original texture, bypassing the
// atlas. Caller policy: tiling/repeating textures and other atlas-unfriendly
// sources come through here.
func (b *Batcher) EmitQuadDirect(tex core.Texture, src image.Rectangle, dst Rect, tint colors.Color, originX, originY, scaleX, scaleY, rotation float32, flip FlipFlags, depth float32) {
	verts := BuildQuad(dst, src, tex.Width(), tex.Height(), tint, originX, originY, scaleX, scaleY, rotation, flip)
	b.enqueue(tex, verts, depth)
}

// FillRect emits a flat-color quad using the internal 1x1 white texture.
func (b *Batcher) FillRect(dst Rect, tint colors.Color, depth float32) {
	b.EmitQuadDirect(b.white, image.Rect(0, 0, 1, 1), dst, tint, 0, 0, 1, 1, 0, FlipNone, depth)
}

func (b *Batcher) enqueue(tex core.Texture, verts [quadVerts]core.Vertex, depth float32) {
	b.queue.enqueue(tex, verts, depth)
}

// RunFlushCycle drains the frame's command queue into GPU draw calls.
// Invoke exactly once per surface per frame, after all emissions. Whatever
// happens, the queue and sequence counter reset: a failed frame is
// abandoned, never retried.
func (b *Batcher) RunFlushCycle() error {
	b.stats = Statistics{}
	b.rendering = true
	err := b.submit()
	b.rendering = false
	b.queue.reset()
	for _, fn := range b.deferred {
		fn()
	}
	b.deferred = b.deferred[:0]
	return err
}

// submit is the sort-and-walk: one global (depth asc, seq asc) ordering,
// then a single pass that coalesces consecutive same-texture commands into
// one draw call each.
func (b *Batcher) submit() error {
	cmds := b.queue.flatten(b.sorted[:0])
	b.sorted = cmds
	if len(cmds) == 0 {
		return nil
	}

	// Equal-depth commands keep submission order via the sequence key, so
	// same-depth draws can never reorder between frames.
	sort.Slice(cmds, func(i, j int) bool {
		if cmds[i].depth != cmds[j].depth {
			return cmds[i].depth < cmds[j].depth
		}
		return cmds[i].seq < cmds[j].seq
	})

	// Size the buffer for the whole frame up front, while it is empty:
	// the new capacity is the smallest power-of-two multiple of the
	// original that fits every pending vertex.
	if err := b.staging.ensureCapacity(len(cmds) * quadVerts); err != nil {
		return err
	}

	var current core.Texture
	for i := range cmds {
		cmd := &cmds[i]
		if cmd.tex != current {
			if err := b.flushStaged(current); err != nil {
				return err
			}
			current = cmd.tex
		}
		if b.staging.cursor+quadVerts > b.staging.capacity() {
			// Guard for a mid-run overflow: flush the staged batch, then
			// grow before the overflowing write.
			if err := b.flushStaged(current); err != nil {
				return err
			}
			if err := b.staging.ensureCapacity(b.staging.cursor + quadVerts); err != nil {
				return err
			}
		}
		b.staging.stage(&cmd.verts)
		b.stats.QuadCount++
	}
	return b.flushStaged(current)
}

func (b *Batcher) flushStaged(tex core.Texture) error {
	flushed, err := b.staging.flush(tex)
	if err != nil {
		return err
	}
	if flushed {
		b.stats.DrawCalls++
	}
	return nil
}
