package batch

import "github.com/hubastard/thicket/engine/core"

// command is the atomic unit of work: one textured quad with its layering
// keys. Commands live for exactly one frame; the flush cycle drains and
// discards them.
type command struct {
	tex   core.Texture
	verts [quadVerts]core.Vertex
	depth float32
	seq   uint64
}

// commandQueue buckets pending commands by texture identity, insertion
// ordered per bucket. seq is the global tie-break counter; it resets with
// the queue at the frame boundary.
type commandQueue struct {
	buckets map[core.Texture][]command
	seq     uint64
	count   int
}

func newCommandQueue() commandQueue {
	return commandQueue{buckets: make(map[core.Texture][]command)}
}

// enqueue is a pure append: next sequence number, bucket created lazily.
func (q *commandQueue) enqueue(tex core.Texture, verts [quadVerts]core.Vertex, depth float32) {
	q.buckets[tex] = append(q.buckets[tex], command{
		tex:   tex,
		verts: verts,
		depth: depth,
		seq:   q.seq,
	})
	q.seq++
	q.count++
}

// flatten appends every pending command to dst and returns it. Bucket
// iteration order is irrelevant: the scheduler's (depth, seq) sort imposes
// the one global ordering.
func (q *commandQueue) flatten(dst []command) []command {
	for _, bucket := range q.buckets {
		dst = append(dst, bucket...)
	}
	return dst
}

// reset clears all buckets and the sequence counter. Bucket slices are
// kept for reuse; the map retains its keys' storage across frames.
func (q *commandQueue) reset() {
	for tex, bucket := range q.buckets {
		q.buckets[tex] = bucket[:0]
	}
	q.seq = 0
	q.count = 0
}
