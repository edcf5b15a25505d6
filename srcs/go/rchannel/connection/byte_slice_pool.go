package connection

import "sync"

// ByteSlicePool reuses received message bodies, keyed by capacity.
type ByteSlicePool struct {
	sync.Mutex
	buffers map[uint32]*sync.Pool
}

// Bodies smaller than this are not worth pooling.
const minBufSize uint32 = 512

var (
	defaultPool = newByteSlicePool()
	GetBuf      = defaultPool.GetBuf
	PutBuf      = defaultPool.PutBuf
)

func newByteSlicePool() *ByteSlicePool {
	return &ByteSlicePool{
		buffers: make(map[uint32]*sync.Pool),
	}
}

func (p *ByteSlicePool) pool(size uint32, create bool) *sync.Pool {
	p.Lock()
	defer p.Unlock()
	c, ok := p.buffers[size]
	if !ok && create {
		c = new(sync.Pool)
		p.buffers[size] = c
	}
	return c
}

func (p *ByteSlicePool) PutBuf(buf []byte) {
	size := uint32(cap(buf))
	if size < minBufSize {
		return
	}
	if c := p.pool(size, false); c != nil {
		c.Put(buf[:size])
	}
}

func (p *ByteSlicePool) GetBuf(size uint32) []byte {
	if size < minBufSize {
		return make([]byte, size)
	}
	if v := p.pool(size, true).Get(); v != nil {
		return v.([]byte)
	}
	return make([]byte, size)
}
