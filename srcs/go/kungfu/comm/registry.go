package comm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

// Registry owns the communicator handles of a process, keyed by
// (ring id, device id). The mutex guards the map only; it is never held
// across a rendezvous or a stream drain.
type Registry struct {
	devices   *device.Pool
	transport transport.Transport

	mu      sync.Mutex
	handles map[Key]*Handle
}

func NewRegistry(devices *device.Pool, tr transport.Transport) *Registry {
	return &Registry{
		devices:   devices,
		transport: tr,
		handles:   make(map[Key]*Handle),
	}
}

func validate(nranks, rank, deviceID int) error {
	if nranks <= 1 {
		return ConfigurationErrorf("expected nranks > 1, got %d", nranks)
	}
	if rank < 0 {
		return ConfigurationErrorf("expected rank >= 0, got %d", rank)
	}
	if rank >= nranks {
		return ConfigurationErrorf("expected rank < nranks, got %d >= %d", rank, nranks)
	}
	if deviceID < 0 {
		return ConfigurationErrorf("expected device id >= 0, got %d", deviceID)
	}
	return nil
}

// Create joins the group and registers the handle for (ringID, deviceID).
// It blocks until all nranks members have called Create. A second Create
// for the same key replaces the registered handle without releasing it.
func (r *Registry) Create(ctx context.Context, groupID string, nranks, rank, deviceID, ringID int) (*Handle, error) {
	if err := validate(nranks, rank, deviceID); err != nil {
		return nil, err
	}
	dev, err := r.devices.Select(deviceID)
	if err != nil {
		return nil, ConfigurationErrorf("select device %d: %v", deviceID, err)
	}
	spec := transport.GroupSpec{
		GroupID:  groupID,
		NRanks:   nranks,
		Rank:     rank,
		RingID:   ringID,
		DeviceID: deviceID,
	}
	conn, err := r.transport.Connect(ctx, spec)
	if err != nil {
		return nil, TransportError(err, "rendezvous %s", spec)
	}
	h := &Handle{
		RingID:   ringID,
		Rank:     rank,
		NRanks:   nranks,
		DeviceID: deviceID,
		GroupID:  groupID,
		device:   dev,
		stream:   r.devices.NewStream(deviceID, fmt.Sprintf("comm:ring%d", ringID)),
		conn:     conn,
	}
	r.mu.Lock()
	r.handles[h.Key()] = h
	r.mu.Unlock()
	if ringID == 0 {
		dev.SetDefaultComm(groupID)
	}
	log.Infof("communicator created: group=%s nranks=%d rank=%d ring=%d device=%d conn=%s",
		groupID, nranks, rank, ringID, deviceID, conn.ID())
	return h, nil
}

// Get returns the handle registered for (ringID, deviceID).
func (r *Registry) Get(ringID, deviceID int) (*Handle, error) {
	k := Key{RingID: ringID, DeviceID: deviceID}
	r.mu.Lock()
	h, ok := r.handles[k]
	r.mu.Unlock()
	if !ok {
		return nil, NotInitializedErrorf("communicator of %s has not been initialized", k)
	}
	return h, nil
}

// Release removes and releases the handle of one key.
func (r *Registry) Release(ringID, deviceID int) error {
	k := Key{RingID: ringID, DeviceID: deviceID}
	r.mu.Lock()
	h, ok := r.handles[k]
	delete(r.handles, k)
	r.mu.Unlock()
	if !ok {
		return NotInitializedErrorf("communicator of %s has not been initialized", k)
	}
	return h.release()
}

// ReleaseAll drains and releases every handle and empties the registry.
// Calling it again is a no-op.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[Key]*Handle)
	r.mu.Unlock()

	errs := make([]error, 0, len(handles))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, h := range handles {
		wg.Add(1)
		go func(h *Handle) {
			defer wg.Done()
			err := h.release()
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(h)
	}
	wg.Wait()
	return utils.MergeErrors(errs, "release communicators")
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Keys returns the registered keys in (ring, device) order.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	var ks []Key
	for k := range r.handles {
		ks = append(ks, k)
	}
	r.mu.Unlock()
	sort.Slice(ks, func(i, j int) bool {
		if ks[i].RingID != ks[j].RingID {
			return ks[i].RingID < ks[j].RingID
		}
		return ks[i].DeviceID < ks[j].DeviceID
	})
	return ks
}
