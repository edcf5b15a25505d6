package handler

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lsds/kungfu-ccl/srcs/go/monitor"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"
)

// CollectiveEndpoint demultiplexes incoming collective messages by
// (source, name). A receiver either takes a freshly allocated message
// (Recv) or registers its own buffer to be filled in place (RecvInto).
type CollectiveEndpoint struct {
	waitQ   *BufferPool
	recvQ   *BufferPool
	monitor monitor.Monitor

	done      chan struct{}
	closeOnce sync.Once
}

func NewCollectiveEndpoint() *CollectiveEndpoint {
	return &CollectiveEndpoint{
		waitQ:   newBufferPool(1),
		recvQ:   newBufferPool(1),
		monitor: monitor.GetMonitor(),
		done:    make(chan struct{}),
	}
}

var (
	ErrEndpointClosed          = errors.New("collective endpoint closed")
	errRegisteredBufferNotUsed = errors.New("registered buffer not used")
)

// Handle implements connection.Handler
func (e *CollectiveEndpoint) Handle(conn connection.Connection) (int, error) {
	return connection.Stream(conn, e.accept, e.handle)
}

func (e *CollectiveEndpoint) Recv(a plan.Addr) (*connection.Message, error) {
	select {
	case m := <-e.recvQ.require(a):
		e.recvQ.release(a)
		return m, nil
	case <-e.done:
		return nil, errors.Wrap(ErrEndpointClosed, a.String())
	}
}

func (e *CollectiveEndpoint) RecvInto(a plan.Addr, m connection.Message) error {
	select {
	case e.waitQ.require(a) <- &m:
	case <-e.done:
		return errors.Wrap(ErrEndpointClosed, a.String())
	}
	select {
	case pm := <-e.recvQ.require(a):
		e.recvQ.release(a)
		if !m.Same(pm) {
			return errRegisteredBufferNotUsed
		}
		return nil
	case <-e.done:
		return errors.Wrap(ErrEndpointClosed, a.String())
	}
}

// Close wakes every pending receiver with ErrEndpointClosed.
func (e *CollectiveEndpoint) Close() {
	e.closeOnce.Do(func() { close(e.done) })
}

func (e *CollectiveEndpoint) accept(conn connection.Connection) (string, *connection.Message, error) {
	var mh connection.MessageHeader
	if err := mh.ReadFrom(conn.Conn()); err != nil {
		return "", nil, err
	}
	name := string(mh.Name)
	if mh.HasFlag(connection.WaitRecvBuf) {
		a := conn.Src().WithName(name)
		var m *connection.Message
		select {
		case m = <-e.waitQ.require(a):
			e.waitQ.release(a)
		case <-e.done:
			return "", nil, ErrEndpointClosed
		}
		if err := m.ReadInto(conn.Conn()); err != nil {
			return "", nil, err
		}
		return name, m, nil
	}
	var m connection.Message
	if err := m.ReadFrom(conn.Conn()); err != nil {
		return "", nil, err
	}
	return name, &m, nil
}

func (e *CollectiveEndpoint) handle(name string, msg *connection.Message, conn connection.Connection) {
	e.monitor.Ingress(int64(msg.Length), plan.NetAddr(conn.Src()))
	select {
	case e.recvQ.require(conn.Src().WithName(name)) <- msg:
	case <-e.done:
	}
}
