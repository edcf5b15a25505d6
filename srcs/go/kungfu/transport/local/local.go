// Package local connects ranks that live in the same process, e.g. one
// process driving several devices.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/session"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
)

var (
	ErrNRanksMismatch = errors.New("nranks mismatch")
	ErrDuplicatedRank = errors.New("duplicated rank")
)

type group struct {
	nranks  int
	box     *mailbox
	members map[int]chan struct{}
	ready   chan struct{}
	left    int
}

// Transport is an in-process rendezvous point shared by the ranks of a group.
type Transport struct {
	strategy kb.Strategy

	mu     sync.Mutex
	groups map[string]*group
}

func New(strategy kb.Strategy) *Transport {
	return &Transport{
		strategy: strategy,
		groups:   make(map[string]*group),
	}
}

func (t *Transport) join(spec transport.GroupSpec) (*group, chan struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := spec.Key()
	g, ok := t.groups[key]
	if !ok {
		g = &group{
			nranks:  spec.NRanks,
			box:     newMailbox(),
			members: make(map[int]chan struct{}),
			ready:   make(chan struct{}),
		}
		t.groups[key] = g
	}
	if g.nranks != spec.NRanks {
		return nil, nil, errors.Wrapf(ErrNRanksMismatch, "%s: %d vs %d", key, spec.NRanks, g.nranks)
	}
	if _, ok := g.members[spec.Rank]; ok {
		return nil, nil, errors.Wrapf(ErrDuplicatedRank, "%s: rank %d", key, spec.Rank)
	}
	done := make(chan struct{})
	g.members[spec.Rank] = done
	if len(g.members) == g.nranks {
		close(g.ready)
	}
	return g, done, nil
}

func (t *Transport) abandon(spec transport.GroupSpec, g *group) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-g.ready:
		return
	default:
	}
	delete(g.members, spec.Rank)
	if len(g.members) == 0 {
		delete(t.groups, spec.Key())
	}
}

func (t *Transport) leave(spec transport.GroupSpec, g *group, done chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	close(done)
	g.left++
	if g.left == g.nranks && t.groups[spec.Key()] == g {
		delete(t.groups, spec.Key())
	}
}

// Connect implements transport.Transport.
func (t *Transport) Connect(ctx context.Context, spec transport.GroupSpec) (transport.Conn, error) {
	g, done, err := t.join(spec)
	if err != nil {
		return nil, err
	}
	select {
	case <-g.ready:
	case <-ctx.Done():
		t.abandon(spec, g)
		return nil, errors.Wrapf(ctx.Err(), "rendezvous %s", spec)
	}
	log.Debugf("local rendezvous %s done", spec)
	m := &messenger{rank: spec.Rank, box: g.box, done: done}
	sess := session.New(spec.Rank, spec.NRanks, t.strategy, m)
	id := fmt.Sprintf("local:%s#%d", spec.Key(), spec.Rank)
	return transport.NewSessionConn(id, sess, func() error {
		t.leave(spec, g, done)
		return nil
	}), nil
}

func (t *Transport) Close() error {
	return nil
}
