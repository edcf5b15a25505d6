package handler

import (
	"sync"

	"github.com/lsds/kungfu-ccl/srcs/go/plan"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"
)

// BufferPool holds one bounded queue per named address.
type BufferPool struct {
	sync.Mutex
	qSize   int
	buffers map[plan.Addr]chan *connection.Message
}

func newBufferPool(qSize int) *BufferPool {
	return &BufferPool{
		qSize:   qSize,
		buffers: make(map[plan.Addr]chan *connection.Message),
	}
}

func (p *BufferPool) require(a plan.Addr) chan *connection.Message {
	p.Lock()
	defer p.Unlock()
	m, ok := p.buffers[a]
	if !ok {
		m = make(chan *connection.Message, p.qSize)
		p.buffers[a] = m
	}
	return m
}

// release drops the queue of a once its message has been consumed.
func (p *BufferPool) release(a plan.Addr) {
	p.Lock()
	defer p.Unlock()
	if q, ok := p.buffers[a]; ok && len(q) == 0 {
		delete(p.buffers, a)
	}
}

func (p *BufferPool) size() int {
	p.Lock()
	defer p.Unlock()
	return len(p.buffers)
}
