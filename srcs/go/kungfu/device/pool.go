package device

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

var ErrNoDevice = errors.New("no such device")

// Pool owns the simulated devices of one process.
type Pool struct {
	count int
	depth int

	mu       sync.Mutex
	contexts map[int]*Context
	current  int
}

func NewPool(count, depth int) *Pool {
	return &Pool{
		count:    count,
		depth:    depth,
		contexts: make(map[int]*Context),
		current:  -1,
	}
}

// DefaultPool sizes the pool from the environment configuration.
func DefaultPool() *Pool {
	return NewPool(config.DeviceCount, config.StreamDepth)
}

func (p *Pool) Count() int {
	return p.count
}

// Select makes id the current device, creating its context on first use.
func (p *Pool) Select(id int) (*Context, error) {
	if id < 0 || id >= p.count {
		return nil, errors.Wrapf(ErrNoDevice, "device %d of %d", id, p.count)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, ok := p.contexts[id]
	if !ok {
		ctx = newContext(id, p.depth)
		p.contexts[id] = ctx
		log.Debugf("device %d initialized", id)
	}
	p.current = id
	return ctx, nil
}

// Get returns the context of an already selected device.
func (p *Pool) Get(id int) (*Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, ok := p.contexts[id]
	if !ok {
		return nil, errors.Wrapf(ErrNoDevice, "device %d not initialized", id)
	}
	return ctx, nil
}

// Current returns the id of the last selected device, -1 if none.
func (p *Pool) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// NewStream creates a stream bound to device id.
func (p *Pool) NewStream(id int, name string) *Stream {
	return NewStream(fmt.Sprintf("dev%d/%s", id, name), p.depth)
}

// Close drains and stops every compute stream.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for id, ctx := range p.contexts {
		errs = append(errs, ctx.Compute.Close())
		delete(p.contexts, id)
	}
	return utils.MergeErrors(errs, "close devices")
}
