package batch

import "github.com/hubastard/thicket/engine/core"

// stagingBuffer owns a growable CPU vertex array plus a GPU buffer of the
// same capacity. Invariant: cursor <= len(verts) == gpu.Capacity() at all
// times. Each surface owns exactly one; never shared.
type stagingBuffer struct {
	r      core.Renderer
	verts  []core.Vertex // len == capacity
	cursor int
	gpu    core.VertexBuffer
	// High-water mark of the previous upload; slots in [cursor:highWater)
	// hold stale vertices that must be zeroed before the next upload.
	highWater int
}

func newStagingBuffer(r core.Renderer, capacity int) (*stagingBuffer, error) {
	if capacity < quadVerts {
		capacity = quadVerts
	}
	gpu, err := r.CreateVertexBuffer(capacity)
	if err != nil {
		return nil, err
	}
	return &stagingBuffer{
		r:     r,
		verts: make([]core.Vertex, capacity),
		gpu:   gpu,
	}, nil
}

func (s *stagingBuffer) capacity() int { return len(s.verts) }

// ensureCapacity doubles the buffer until it holds at least needed
// vertices, reallocating both the CPU array and the GPU buffer. Contents
// are not preserved: growth only happens at a flush boundary, where the
// buffer is logically empty for the next batch.
func (s *stagingBuffer) ensureCapacity(needed int) error {
	capacity := len(s.verts)
	if needed <= capacity {
		return nil
	}
	for capacity < needed {
		capacity *= 2
	}
	if err := s.r.GrowVertexBuffer(s.gpu, capacity); err != nil {
		return err
	}
	s.verts = make([]core.Vertex, capacity)
	s.highWater = 0
	return nil
}

// stage copies one command's vertices at the cursor. The caller guarantees
// capacity.
func (s *stagingBuffer) stage(verts *[quadVerts]core.Vertex) {
	copy(s.verts[s.cursor:], verts[:])
	s.cursor += quadVerts
}

// flush uploads the CPU array and issues one draw call bound to tex for the
// staged vertices. Flushing zero vertices or a nil texture is a no-op, not
// an error. Stale slots past the cursor left by a larger previous upload
// are zeroed first so they can never render.
func (s *stagingBuffer) flush(tex core.Texture) (bool, error) {
	if s.cursor == 0 || tex == nil {
		return false, nil
	}
	for i := s.cursor; i < s.highWater; i++ {
		s.verts[i] = core.Vertex{}
	}
	count := s.cursor
	s.highWater = count
	s.cursor = 0
	if err := s.r.DrawVertices(s.gpu, s.verts, count, tex); err != nil {
		return false, err
	}
	return true, nil
}
