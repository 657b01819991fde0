package ib

import "sync"

// Buffer collects the updates one strategy produces for one variable
// during a single evaluation. Buffers are never shared between
// concurrently evaluated variables.
type Buffer struct {
	updates []Update
}

func (b *Buffer) Append(u Update) { b.updates = append(b.updates, u) }

func (b *Buffer) Len() int { return len(b.updates) }

func (b *Buffer) Updates() []Update { return b.updates }

func (b *Buffer) reset() { b.updates = b.updates[:0] }

// bufferPool recycles forcing buffers across evaluations so steady
// state allocates nothing per step.
type bufferPool struct {
	pool sync.Pool
}

func newBufferPool() *bufferPool {
	return &bufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &Buffer{updates: make([]Update, 0, 256)}
			},
		},
	}
}

func (p *bufferPool) Get() *Buffer {
	return p.pool.Get().(*Buffer)
}

func (p *bufferPool) Put(b *Buffer) {
	b.reset()
	p.pool.Put(b)
}
