package comm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Connect(ctx context.Context, spec transport.GroupSpec) (transport.Conn, error) {
	args := m.Called(ctx, spec)
	conn, _ := args.Get(0).(transport.Conn)
	return conn, args.Error(1)
}

func (m *mockTransport) Close() error {
	return m.Called().Error(0)
}

type mockConn struct {
	mock.Mock
}

func (m *mockConn) ID() string   { return m.Called().String(0) }
func (m *mockConn) Rank() int    { return m.Called().Int(0) }
func (m *mockConn) Size() int    { return m.Called().Int(0) }
func (m *mockConn) Close() error { return m.Called().Error(0) }
func (m *mockConn) Run(d transport.Descriptor) error {
	return m.Called(d).Error(0)
}

func newMockConn(id string) *mockConn {
	c := &mockConn{}
	c.On("ID").Return(id)
	c.On("Close").Return(nil)
	return c
}

func newTestRegistry(t *testing.T) (*Registry, *mockTransport, *device.Pool) {
	pool := device.NewPool(4, 8)
	t.Cleanup(func() { pool.Close() })
	tr := &mockTransport{}
	return NewRegistry(pool, tr), tr, pool
}

func spec(group string, nranks, rank, dev, ring int) transport.GroupSpec {
	return transport.GroupSpec{GroupID: group, NRanks: nranks, Rank: rank, RingID: ring, DeviceID: dev}
}

func Test_CreateGet(t *testing.T) {
	r, tr, pool := newTestRegistry(t)
	conn := newMockConn("mock:0")
	tr.On("Connect", mock.Anything, spec("g", 2, 1, 3, 0)).Return(conn, nil).Once()

	h, err := r.Create(context.TODO(), "g", 2, 1, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Rank)
	assert.Equal(t, 2, h.NRanks)
	assert.Equal(t, 3, h.DeviceID)
	assert.Equal(t, "mock:0", h.ConnID())
	assert.NotNil(t, h.Stream())

	got, err := r.Get(0, 3)
	require.NoError(t, err)
	assert.Same(t, h, got)
	again, err := r.Get(0, 3)
	require.NoError(t, err)
	assert.Same(t, got, again)

	dev, err := pool.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "g", dev.DefaultComm())
	assert.Equal(t, 3, pool.Current())
	tr.AssertExpectations(t)

	require.NoError(t, r.ReleaseAll())
}

func Test_CreateNonZeroRingKeepsDefaultComm(t *testing.T) {
	r, tr, pool := newTestRegistry(t)
	tr.On("Connect", mock.Anything, mock.Anything).Return(newMockConn("mock"), nil)

	_, err := r.Create(context.TODO(), "g", 2, 0, 1, 7)
	require.NoError(t, err)
	dev, err := pool.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "", dev.DefaultComm())
	require.NoError(t, r.ReleaseAll())
}

func Test_CreateRejectsInvalidConfiguration(t *testing.T) {
	cases := []struct {
		name                   string
		nranks, rank, deviceID int
	}{
		{"nranks=1", 1, 0, 0},
		{"nranks=0", 0, 0, 0},
		{"negative rank", 2, -1, 0},
		{"rank=nranks", 2, 2, 0},
		{"rank>nranks", 3, 5, 0},
		{"negative device", 2, 0, -1},
		{"missing device", 2, 0, 9},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, tr, _ := newTestRegistry(t)
			_, err := r.Create(context.TODO(), "g", c.nranks, c.rank, c.deviceID, 0)
			require.Error(t, err)
			assert.True(t, IsConfiguration(err), "%v", err)
			assert.False(t, IsFatal(err))
			tr.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything)
			assert.Equal(t, 0, r.Len())
		})
	}
}

func Test_CreateTransportFailure(t *testing.T) {
	r, tr, _ := newTestRegistry(t)
	tr.On("Connect", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := r.Create(context.TODO(), "g", 2, 0, 0, 0)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, r.Len())
}

func Test_GetUnregistered(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Get(0, 0)
	require.Error(t, err)
	assert.True(t, IsNotInitialized(err))

	err = r.Release(1, 2)
	assert.True(t, IsNotInitialized(err))
}

func Test_ReleaseAllTwice(t *testing.T) {
	r, tr, _ := newTestRegistry(t)
	c0, c1 := newMockConn("c0"), newMockConn("c1")
	tr.On("Connect", mock.Anything, spec("g", 2, 0, 0, 0)).Return(c0, nil)
	tr.On("Connect", mock.Anything, spec("g", 2, 1, 1, 0)).Return(c1, nil)

	_, err := r.Create(context.TODO(), "g", 2, 0, 0, 0)
	require.NoError(t, err)
	_, err = r.Create(context.TODO(), "g", 2, 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	require.NoError(t, r.ReleaseAll())
	assert.Equal(t, 0, r.Len())
	require.NoError(t, r.ReleaseAll())
	assert.Equal(t, 0, r.Len())

	c0.AssertNumberOfCalls(t, "Close", 1)
	c1.AssertNumberOfCalls(t, "Close", 1)
}

func Test_ReleaseAllDrainsStreams(t *testing.T) {
	r, tr, _ := newTestRegistry(t)
	tr.On("Connect", mock.Anything, mock.Anything).Return(newMockConn("c"), nil)
	h, err := r.Create(context.TODO(), "g", 2, 0, 0, 0)
	require.NoError(t, err)

	var ran int32
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Stream().Enqueue(func() error {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&ran, 1)
			return nil
		}))
	}
	require.NoError(t, r.ReleaseAll())
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran))

	err = h.Stream().Enqueue(func() error { return nil })
	assert.ErrorIs(t, err, device.ErrStreamClosed)
}

func Test_ReleaseReportsCloseFailure(t *testing.T) {
	r, tr, _ := newTestRegistry(t)
	c := &mockConn{}
	c.On("ID").Return("c")
	c.On("Close").Return(errors.New("broken pipe"))
	tr.On("Connect", mock.Anything, mock.Anything).Return(c, nil)

	_, err := r.Create(context.TODO(), "g", 2, 0, 0, 0)
	require.NoError(t, err)
	err = r.Release(0, 0)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, 0, r.Len())
}

func Test_DuplicateCreateOverwrites(t *testing.T) {
	r, tr, _ := newTestRegistry(t)
	first, second := newMockConn("first"), newMockConn("second")
	tr.On("Connect", mock.Anything, mock.Anything).Return(first, nil).Once()
	tr.On("Connect", mock.Anything, mock.Anything).Return(second, nil).Once()

	h1, err := r.Create(context.TODO(), "g", 2, 0, 0, 0)
	require.NoError(t, err)
	h2, err := r.Create(context.TODO(), "g", 2, 0, 0, 0)
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(0, 0)
	require.NoError(t, err)
	assert.Same(t, h2, got)

	require.NoError(t, r.ReleaseAll())
	first.AssertNotCalled(t, "Close")
	second.AssertNumberOfCalls(t, "Close", 1)
	h1.Stream().Close()
}

func Test_Keys(t *testing.T) {
	r, tr, _ := newTestRegistry(t)
	tr.On("Connect", mock.Anything, mock.Anything).Return(newMockConn("c"), nil)
	for _, k := range []Key{{2, 1}, {0, 3}, {0, 1}} {
		_, err := r.Create(context.TODO(), "g", 2, 0, k.DeviceID, k.RingID)
		require.NoError(t, err)
	}
	assert.Equal(t, []Key{{0, 1}, {0, 3}, {2, 1}}, r.Keys())
	require.NoError(t, r.ReleaseAll())
	assert.Empty(t, r.Keys())
}

func Test_NextTag(t *testing.T) {
	r, tr, _ := newTestRegistry(t)
	tr.On("Connect", mock.Anything, mock.Anything).Return(newMockConn("c"), nil)
	h, err := r.Create(context.TODO(), "g", 2, 0, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "c_broadcast:ring4:1", h.NextTag("c_broadcast"))
	assert.Equal(t, "send_v2:ring4:2", h.NextTag("send_v2"))
	require.NoError(t, r.ReleaseAll())
}

func Test_ErrorKinds(t *testing.T) {
	err := ShapeErrorf("bad dim %d", 3)
	assert.True(t, IsShape(err))
	assert.False(t, IsConfiguration(err))
	assert.Equal(t, "shape error: bad dim 3", err.Error())

	cause := errors.New("eof")
	err = TransportError(cause, "recv")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, err, TransportError(err, "again"))
	assert.NoError(t, TransportError(nil, "none"))
}
