package batch

import (
	"errors"
	"image"
	"testing"

	"github.com/hubastard/thicket/engine/colors"
	"github.com/hubastard/thicket/engine/core"
)

// --- fakes ---

type fakeTexture struct {
	w, h int
	pix  []byte
}

func (t *fakeTexture) Width() int     { return t.w }
func (t *fakeTexture) Height() int    { return t.h }
func (t *fakeTexture) Pixels() []byte { return t.pix }

type fakeBuffer struct{ cap int }

func (b *fakeBuffer) Capacity() int { return b.cap }

type fakeRenderTexture struct{ tex *fakeTexture }

func (rt *fakeRenderTexture) Texture() core.Texture { return rt.tex }
func (rt *fakeRenderTexture) Width() int            { return rt.tex.w }
func (rt *fakeRenderTexture) Height() int           { return rt.tex.h }

type drawRecord struct {
	tex   core.Texture
	count int
	verts []core.Vertex // snapshot of the full uploaded array
}

type fakeRenderer struct {
	draws   []drawRecord
	grows   []int
	drawErr error
	onDraw  func()
}

func (r *fakeRenderer) Init() error                     { return nil }
func (r *fakeRenderer) Shutdown()                       {}
func (r *fakeRenderer) Resize(w, h int)                 {}
func (r *fakeRenderer) Clear(_, _, _, _ float32)        {}
func (r *fakeRenderer) SetViewProjection(_ [16]float32) {}

func (r *fakeRenderer) CreateTexture(desc core.TextureDesc) (core.Texture, error) {
	t := &fakeTexture{w: desc.Width, h: desc.Height}
	if desc.Retain {
		t.pix = desc.Pixels
	}
	return t, nil
}
func (r *fakeRenderer) UpdateTexture(_ core.Texture, _, _, _, _ int, _ []byte) error { return nil }
func (r *fakeRenderer) DeleteTexture(_ core.Texture) {}

func (r *fakeRenderer) CreateVertexBuffer(capacity int) (core.VertexBuffer, error) {
	return &fakeBuffer{cap: capacity}, nil
}
func (r *fakeRenderer) GrowVertexBuffer(b core.VertexBuffer, capacity int) error {
	b.(*fakeBuffer).cap = capacity
	r.grows = append(r.grows, capacity)
	return nil
}
func (r *fakeRenderer) DeleteVertexBuffer(_ core.VertexBuffer) {}

func (r *fakeRenderer) DrawVertices(b core.VertexBuffer, verts []core.Vertex, count int, t core.Texture) error {
	if r.onDraw != nil {
		r.onDraw()
	}
	if r.drawErr != nil {
		return r.drawErr
	}
	snapshot := make([]core.Vertex, len(verts))
	copy(snapshot, verts)
	r.draws = append(r.draws, drawRecord{tex: t, count: count, verts: snapshot})
	return nil
}

func (r *fakeRenderer) CreateRenderTexture(w, h int) (core.RenderTexture, error) {
	return &fakeRenderTexture{tex: &fakeTexture{w: w, h: h}}, nil
}
func (r *fakeRenderer) DeleteRenderTexture(_ core.RenderTexture)    {}
func (r *fakeRenderer) SetRenderTexture(_ core.RenderTexture) error { return nil }

type atlasQuery struct {
	tex core.Texture
	src image.Rectangle
}

// fakeAtlas grants every fitting rect a slot at (8,8) on page 0.
type fakeAtlas struct {
	pageSize int
	pageTex  *fakeTexture
	grant    bool
	queries  []atlasQuery
}

func (a *fakeAtlas) TryGetSlice(tex core.Texture, src image.Rectangle) (int, image.Rectangle, bool) {
	a.queries = append(a.queries, atlasQuery{tex: tex, src: src})
	if !a.grant {
		return 0, image.Rectangle{}, false
	}
	return 0, image.Rect(8, 8, 8+src.Dx(), 8+src.Dy()), true
}
func (a *fakeAtlas) PageTexture(_ int) core.Texture { return a.pageTex }
func (a *fakeAtlas) PageSize() int                  { return a.pageSize }
func (a *fakeAtlas) PageCount() int                 { return 1 }
func (a *fakeAtlas) MaxPages() int                  { return 1 }

// --- helpers ---

func newTestBatcher(t *testing.T, r *fakeRenderer, a AtlasSource, quads int) *Batcher {
	t.Helper()
	b, err := New(r, a, quads)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func emitAt(b *Batcher, tex core.Texture, depth float32, tintR float32) {
	src := image.Rect(0, 0, 16, 16)
	dst := Rect{X: 0, Y: 0, W: 16, H: 16}
	b.EmitQuadDirect(tex, src, dst, colors.Color{tintR, 0, 0, 1}, 0, 0, 1, 1, 0, FlipNone, depth)
}

// --- tests ---

func TestFlushCycleEmptyIsNoop(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)

	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	if len(r.draws) != 0 {
		t.Fatalf("expected no draw calls, got %d", len(r.draws))
	}
}

func TestEqualDepthPreservesSubmissionOrder(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)
	tex := &fakeTexture{w: 16, h: 16}

	// Same texture, same depth: one draw call whose vertices must follow
	// submission order. Tint R encodes the submission index.
	for i := 0; i < 5; i++ {
		emitAt(b, tex, 7, float32(i))
	}
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	if len(r.draws) != 1 {
		t.Fatalf("expected 1 draw call, got %d", len(r.draws))
	}
	d := r.draws[0]
	if d.count != 30 {
		t.Fatalf("expected 30 vertices, got %d", d.count)
	}
	for i := 0; i < 5; i++ {
		if got := d.verts[i*6].R; got != float32(i) {
			t.Fatalf("quad %d out of order: tint %v", i, got)
		}
	}
}

func TestDepthOrdersAcrossTextures(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)
	texA := &fakeTexture{w: 16, h: 16}
	texB := &fakeTexture{w: 16, h: 16}

	emitAt(b, texA, 5, 0) // drawn last
	emitAt(b, texB, -2, 1)
	emitAt(b, texB, 1, 2)

	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	// Sorted order is B(-2), B(1), A(5): the two B commands are consecutive
	// and same-texture, so they coalesce into one draw call regardless of
	// their differing depths.
	if len(r.draws) != 2 {
		t.Fatalf("expected 2 draw calls, got %d", len(r.draws))
	}
	if r.draws[0].tex != texB || r.draws[0].count != 12 {
		t.Fatalf("first draw = (%v, %d vertices), want texB with 12", r.draws[0].tex, r.draws[0].count)
	}
	// Within the coalesced call the depth order still holds.
	if r.draws[0].verts[0].R != 1 || r.draws[0].verts[6].R != 2 {
		t.Fatalf("coalesced draw out of depth order: tints %v, %v", r.draws[0].verts[0].R, r.draws[0].verts[6].R)
	}
	if r.draws[1].tex != texA || r.draws[1].count != 6 {
		t.Fatalf("second draw = (%v, %d vertices), want texA with 6", r.draws[1].tex, r.draws[1].count)
	}
}

func TestThreeSpriteScenario(t *testing.T) {
	// Textures {A,B,A}, depths {0,0,1}: sorted order A(d0,s0), B(d0,s1),
	// A(d1,s2). Only consecutive same-texture commands coalesce, so the
	// two A sprites stay in separate batches.
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)
	texA := &fakeTexture{w: 16, h: 16}
	texB := &fakeTexture{w: 16, h: 16}

	emitAt(b, texA, 0, 0)
	emitAt(b, texB, 0, 1)
	emitAt(b, texA, 1, 2)

	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	want := []core.Texture{texA, texB, texA}
	if len(r.draws) != len(want) {
		t.Fatalf("expected %d draw calls, got %d", len(want), len(r.draws))
	}
	for i, d := range r.draws {
		if d.tex != want[i] {
			t.Fatalf("draw %d bound wrong texture", i)
		}
		if d.count != 6 {
			t.Fatalf("draw %d: expected 6 vertices, got %d", i, d.count)
		}
	}
	if got := b.Stats().DrawCalls; got != 3 {
		t.Fatalf("stats draw calls = %d, want 3", got)
	}
}

func TestTexturePartition(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)
	texs := []*fakeTexture{{w: 16, h: 16}, {w: 16, h: 16}, {w: 16, h: 16}}

	// Tint R encodes the texture index; every draw call must only carry
	// vertices of its bound texture.
	for i := 0; i < 24; i++ {
		ti := (i * 7) % 3
		emitAt(b, texs[ti], float32(i%4), float32(ti))
	}
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}

	total := 0
	for _, d := range r.draws {
		total += d.count
		var wantTint float32
		for ti, tex := range texs {
			if d.tex == tex {
				wantTint = float32(ti)
			}
		}
		for v := 0; v < d.count; v++ {
			if d.verts[v].R != wantTint {
				t.Fatalf("draw of texture tint %v contains vertex tint %v", wantTint, d.verts[v].R)
			}
		}
	}
	if total != 24*6 {
		t.Fatalf("submitted %d vertices, want %d", total, 24*6)
	}
}

func TestNoCrossFrameLeakage(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)
	tex := &fakeTexture{w: 16, h: 16}

	emitAt(b, tex, 0, 0)
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	if b.queue.count != 0 || b.queue.seq != 0 {
		t.Fatalf("queue not reset: count=%d seq=%d", b.queue.count, b.queue.seq)
	}

	r.draws = nil
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("second RunFlushCycle: %v", err)
	}
	if len(r.draws) != 0 {
		t.Fatalf("empty frame issued %d draw calls", len(r.draws))
	}
}

func TestGrowthToPowerOfTwoMultiple(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 2) // 12 vertices
	tex := &fakeTexture{w: 16, h: 16}

	for i := 0; i < 5; i++ { // 30 vertices needed
		emitAt(b, tex, 0, float32(i))
	}
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}

	// 12 -> 24 -> 48: smallest power-of-two multiple of the original
	// capacity that fits 30 vertices.
	if got := b.staging.capacity(); got != 48 {
		t.Fatalf("capacity = %d, want 48", got)
	}
	if len(r.grows) == 0 || r.grows[len(r.grows)-1] != 48 {
		t.Fatalf("GPU buffer growth calls = %v, want final 48", r.grows)
	}
	if len(r.draws) != 1 || r.draws[0].count != 30 {
		t.Fatalf("expected one draw of 30 vertices, got %+v", r.draws)
	}
}

func TestStaleTailZeroedAfterSmallerWrite(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 8) // 48 vertices, no growth involved
	tex := &fakeTexture{w: 16, h: 16}

	for i := 0; i < 5; i++ {
		emitAt(b, tex, 0, 1)
	}
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("frame 1: %v", err)
	}

	r.draws = nil
	emitAt(b, tex, 0, 1)
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("frame 2: %v", err)
	}
	if len(r.draws) != 1 {
		t.Fatalf("expected 1 draw call, got %d", len(r.draws))
	}
	d := r.draws[0]
	if d.count != 6 {
		t.Fatalf("count = %d, want 6", d.count)
	}
	zero := core.Vertex{}
	for i := 6; i < 30; i++ {
		if d.verts[i] != zero {
			t.Fatalf("stale vertex survived at %d: %+v", i, d.verts[i])
		}
	}
}

func TestAtlasSkippedForOversizedRect(t *testing.T) {
	r := &fakeRenderer{}
	a := &fakeAtlas{pageSize: 16, grant: true, pageTex: &fakeTexture{w: 16, h: 16}}
	b := newTestBatcher(t, r, a, 0)
	tex := &fakeTexture{w: 64, h: 64}

	src := image.Rect(0, 0, 32, 32) // exceeds page size
	b.EmitQuad(tex, src, Rect{W: 32, H: 32}, colors.White, 0, 0, 1, 1, 0, FlipNone, 0)

	if len(a.queries) != 0 {
		t.Fatalf("packer queried for an oversized rect: %+v", a.queries)
	}
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	if len(r.draws) != 1 || r.draws[0].tex != tex {
		t.Fatalf("oversized rect did not take the direct path")
	}
}

func TestAtlasSliceRedirectsToPageTexture(t *testing.T) {
	pageTex := &fakeTexture{w: 64, h: 64}
	r := &fakeRenderer{}
	a := &fakeAtlas{pageSize: 64, grant: true, pageTex: pageTex}
	b := newTestBatcher(t, r, a, 0)
	tex := &fakeTexture{w: 32, h: 32}

	src := image.Rect(0, 0, 16, 16)
	b.EmitQuad(tex, src, Rect{W: 16, H: 16}, colors.White, 0, 0, 1, 1, 0, FlipNone, 0)

	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	if len(r.draws) != 1 || r.draws[0].tex != pageTex {
		t.Fatalf("atlas slice not enqueued under the page texture")
	}
	// Remapped rect (8,8)-(24,24) inside the 64x64 page.
	if got, want := r.draws[0].verts[0].U, float32(8)/64; got != want {
		t.Fatalf("remapped U = %v, want %v", got, want)
	}
}

func TestAtlasDeclineFallsBackDirect(t *testing.T) {
	r := &fakeRenderer{}
	a := &fakeAtlas{pageSize: 64, grant: false, pageTex: &fakeTexture{w: 64, h: 64}}
	b := newTestBatcher(t, r, a, 0)
	tex := &fakeTexture{w: 32, h: 32}

	b.EmitQuad(tex, image.Rect(0, 0, 16, 16), Rect{W: 16, H: 16}, colors.White, 0, 0, 1, 1, 0, FlipNone, 0)

	if len(a.queries) != 1 {
		t.Fatalf("expected one packer query, got %d", len(a.queries))
	}
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	if len(r.draws) != 1 || r.draws[0].tex != tex {
		t.Fatalf("declined slice did not fall back to the original texture")
	}
}

func TestFillRectUsesWhiteTexture(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)

	b.FillRect(Rect{X: 1, Y: 2, W: 3, H: 4}, colors.Red, 0)
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	if len(r.draws) != 1 {
		t.Fatalf("expected 1 draw call, got %d", len(r.draws))
	}
	if w, h := r.draws[0].tex.Width(), r.draws[0].tex.Height(); w != 1 || h != 1 {
		t.Fatalf("fill bound a %dx%d texture, want 1x1 white", w, h)
	}
}

func TestDeferRunsAfterFlushCycle(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)
	tex := &fakeTexture{w: 16, h: 16}

	immediate := false
	b.Defer(func() { immediate = true })
	if !immediate {
		t.Fatalf("Defer outside a flush cycle must run immediately")
	}

	var duringDraw, afterCycle bool
	r.onDraw = func() {
		if !b.Rendering() {
			t.Fatalf("Rendering() false during a draw")
		}
		b.Defer(func() { afterCycle = true })
		duringDraw = afterCycle
	}
	emitAt(b, tex, 0, 0)
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("RunFlushCycle: %v", err)
	}
	if duringDraw {
		t.Fatalf("deferred fn ran while the flush cycle was in progress")
	}
	if !afterCycle {
		t.Fatalf("deferred fn did not run after the flush cycle")
	}
	if b.Rendering() {
		t.Fatalf("Rendering() stuck after the cycle")
	}
}

func TestDrawErrorPropagatesAndFrameResets(t *testing.T) {
	r := &fakeRenderer{}
	b := newTestBatcher(t, r, nil, 0)
	tex := &fakeTexture{w: 16, h: 16}

	boom := errors.New("device lost")
	r.drawErr = boom
	emitAt(b, tex, 0, 0)
	if err := b.RunFlushCycle(); !errors.Is(err, boom) {
		t.Fatalf("RunFlushCycle error = %v, want %v", err, boom)
	}

	// The failed frame is abandoned, never retried.
	r.drawErr = nil
	r.draws = nil
	if err := b.RunFlushCycle(); err != nil {
		t.Fatalf("next RunFlushCycle: %v", err)
	}
	if len(r.draws) != 0 {
		t.Fatalf("abandoned frame was retried: %d draws", len(r.draws))
	}
}
