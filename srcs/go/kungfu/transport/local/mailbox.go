package local

import (
	"sync"

	"github.com/pkg/errors"
)

type mailKey struct {
	src, dst int
	name     string
}

// mailbox holds the in-flight messages of one group.
type mailbox struct {
	sync.Mutex
	qs map[mailKey]chan []byte
}

func newMailbox() *mailbox {
	return &mailbox{qs: make(map[mailKey]chan []byte)}
}

func (b *mailbox) require(k mailKey) chan []byte {
	b.Lock()
	defer b.Unlock()
	q, ok := b.qs[k]
	if !ok {
		q = make(chan []byte, 1)
		b.qs[k] = q
	}
	return q
}

func (b *mailbox) release(k mailKey) {
	b.Lock()
	defer b.Unlock()
	if q, ok := b.qs[k]; ok && len(q) == 0 {
		delete(b.qs, k)
	}
}

var (
	ErrConnClosed       = errors.New("local connection closed")
	errUnexpectedLength = errors.New("unexpected message length")
)

// messenger implements session.Messenger for one rank.
type messenger struct {
	rank int
	box  *mailbox
	done chan struct{}
}

func (m *messenger) Send(rank int, name string, data []byte, flags uint32) error {
	select {
	case m.box.require(mailKey{m.rank, rank, name}) <- append([]byte(nil), data...):
		return nil
	case <-m.done:
		return errors.Wrapf(ErrConnClosed, "send %s to rank %d", name, rank)
	}
}

func (m *messenger) Recv(rank int, name string) ([]byte, error) {
	k := mailKey{rank, m.rank, name}
	select {
	case data := <-m.box.require(k):
		m.box.release(k)
		return data, nil
	case <-m.done:
		return nil, errors.Wrapf(ErrConnClosed, "recv %s from rank %d", name, rank)
	}
}

func (m *messenger) RecvInto(rank int, name string, buf []byte) error {
	data, err := m.Recv(rank, name)
	if err != nil {
		return err
	}
	if len(data) != len(buf) {
		return errors.Wrapf(errUnexpectedLength, "%s from rank %d: got %d, want %d", name, rank, len(data), len(buf))
	}
	copy(buf, data)
	return nil
}
