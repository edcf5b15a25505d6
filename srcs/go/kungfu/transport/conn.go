package transport

import (
	"sync"

	"github.com/pkg/errors"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/session"
)

// SessionConn runs descriptors with a session. Transports supply the
// session's messenger and what to tear down on Close.
type SessionConn struct {
	id      string
	sess    *session.Session
	closeFn func() error

	once     sync.Once
	closeErr error
}

func NewSessionConn(id string, sess *session.Session, closeFn func() error) *SessionConn {
	return &SessionConn{
		id:      id,
		sess:    sess,
		closeFn: closeFn,
	}
}

func (c *SessionConn) ID() string { return c.id }

func (c *SessionConn) Rank() int { return c.sess.Rank() }

func (c *SessionConn) Size() int { return c.sess.Size() }

var errUnknownKind = errors.New("unknown collective kind")

func (c *SessionConn) Run(d Descriptor) error {
	w := kb.Workspace{
		SendBuf: d.Send,
		RecvBuf: d.Recv,
		OP:      d.OP,
		Name:    d.Tag,
	}
	switch d.Kind {
	case Broadcast:
		return c.sess.Broadcast(w, d.Root)
	case Reduce:
		return c.sess.Reduce(w, d.Root)
	case ReduceScatter:
		return c.sess.ReduceScatter(w)
	default:
		return errors.Wrapf(errUnknownKind, "%d", d.Kind)
	}
}

// Barrier blocks until every rank of the group reached it.
func (c *SessionConn) Barrier() error {
	return c.sess.Barrier()
}

// Close is idempotent.
func (c *SessionConn) Close() error {
	c.once.Do(func() {
		if c.closeFn != nil {
			c.closeErr = c.closeFn()
		}
	})
	return c.closeErr
}
