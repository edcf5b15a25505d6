package comm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
)

// Key is the registry key of a handle.
type Key struct {
	RingID   int
	DeviceID int
}

func (k Key) String() string {
	return fmt.Sprintf("ring:%d/dev:%d", k.RingID, k.DeviceID)
}

// Handle is one rank's communicator on one device. It is owned by the
// Registry and read-only between Create and release.
type Handle struct {
	RingID   int
	Rank     int
	NRanks   int
	DeviceID int
	GroupID  string

	device *device.Context
	stream *device.Stream
	conn   transport.Conn

	seq    uint64
	once   sync.Once
	relErr error
}

func (h *Handle) Key() Key {
	return Key{RingID: h.RingID, DeviceID: h.DeviceID}
}

// Stream is the dedicated communication stream.
func (h *Handle) Stream() *device.Stream { return h.stream }

// Device is the context of the device the handle is bound to.
func (h *Handle) Device() *device.Context { return h.device }

func (h *Handle) Conn() transport.Conn { return h.conn }

func (h *Handle) ConnID() string { return h.conn.ID() }

// NextTag names the next collective on this handle. Every rank issues
// collectives in the same order, so tags agree across the group.
func (h *Handle) NextTag(kind string) string {
	n := atomic.AddUint64(&h.seq, 1)
	return fmt.Sprintf("%s:ring%d:%d", kind, h.RingID, n)
}

func (h *Handle) String() string {
	return fmt.Sprintf("comm{group=%s rank=%d/%d %s conn=%s}", h.GroupID, h.Rank, h.NRanks, h.Key(), h.conn.ID())
}

// release drains the comm stream and waits for the collectives queued on
// the compute stream of the device, then closes the connection. It runs once.
func (h *Handle) release() error {
	h.once.Do(func() {
		if err := h.stream.Close(); err != nil {
			log.Debugf("%s: stream had failed: %v", h, err)
		}
		if err := h.device.Compute.Synchronize(context.Background()); err != nil {
			log.Debugf("%s: compute stream: %v", h, err)
		}
		if err := h.conn.Close(); err != nil {
			h.relErr = TransportError(err, "close %s", h.Key())
		}
		log.Debugf("%s released", h)
	})
	return h.relErr
}
