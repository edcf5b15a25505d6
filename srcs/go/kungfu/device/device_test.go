package device

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Stream_fifo(t *testing.T) {
	s := NewStream("test", 4)
	defer s.Close()
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, s.Enqueue(func() error {
			got = append(got, i)
			return nil
		}))
	}
	require.NoError(t, s.Synchronize(context.Background()))
	require.Len(t, got, 100)
	for i, x := range got {
		assert.Equal(t, i, x)
	}
}

func Test_Stream_sticky_error(t *testing.T) {
	s := NewStream("test", 4)
	defer s.Close()
	errBroken := errors.New("broken pipe")
	var after int32
	require.NoError(t, s.Enqueue(func() error { return errBroken }))
	s.Enqueue(func() error {
		atomic.AddInt32(&after, 1)
		return nil
	})
	assert.ErrorIs(t, s.Synchronize(context.Background()), errBroken)
	assert.ErrorIs(t, s.Enqueue(func() error { return nil }), errBroken)
	assert.ErrorIs(t, s.Err(), errBroken)
	assert.Equal(t, int32(0), atomic.LoadInt32(&after))
}

func Test_Stream_Synchronize_ctx(t *testing.T) {
	s := NewStream("test", 1)
	release := make(chan struct{})
	require.NoError(t, s.Enqueue(func() error {
		<-release
		return nil
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Synchronize(ctx), context.DeadlineExceeded)
	close(release)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Enqueue(func() error { return nil }), ErrStreamClosed)
	assert.NoError(t, s.Close())
}

func Test_Stream_WaitFor(t *testing.T) {
	a := NewStream("a", 4)
	b := NewStream("b", 4)
	defer a.Close()
	defer b.Close()
	release := make(chan struct{})
	var aDone int32
	require.NoError(t, a.Enqueue(func() error {
		<-release
		atomic.StoreInt32(&aDone, 1)
		return nil
	}))
	require.NoError(t, b.WaitFor(a))
	var seen int32
	require.NoError(t, b.Enqueue(func() error {
		seen = atomic.LoadInt32(&aDone)
		return nil
	}))
	close(release)
	require.NoError(t, b.Synchronize(context.Background()))
	assert.Equal(t, int32(1), seen)
}

func Test_Stream_Close_drains(t *testing.T) {
	s := NewStream("test", 8)
	var n int32
	for i := 0; i < 8; i++ {
		require.NoError(t, s.Enqueue(func() error {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&n, 1)
			return nil
		}))
	}
	require.NoError(t, s.Close())
	assert.Equal(t, int32(8), atomic.LoadInt32(&n))
}

func Test_Pool(t *testing.T) {
	p := NewPool(2, 4)
	defer p.Close()
	assert.Equal(t, -1, p.Current())

	ctx, err := p.Select(1)
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.ID)
	assert.Equal(t, 1, p.Current())

	same, err := p.Get(1)
	require.NoError(t, err)
	assert.Same(t, ctx, same)

	_, err = p.Select(2)
	assert.ErrorIs(t, err, ErrNoDevice)
	_, err = p.Select(-1)
	assert.ErrorIs(t, err, ErrNoDevice)
	_, err = p.Get(0)
	assert.ErrorIs(t, err, ErrNoDevice)

	ctx.SetDefaultComm("g")
	assert.Equal(t, "g", ctx.DefaultComm())
	st := p.NewStream(1, "comm:0")
	defer st.Close()
	assert.Equal(t, "dev1/comm:0", st.String())
}
