package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
)

type mailKey struct {
	src, dst int
	name     string
}

type mailbox struct {
	sync.Mutex
	qs map[mailKey]chan []byte
}

func (b *mailbox) q(k mailKey) chan []byte {
	b.Lock()
	defer b.Unlock()
	q, ok := b.qs[k]
	if !ok {
		q = make(chan []byte, 16)
		b.qs[k] = q
	}
	return q
}

type memMessenger struct {
	rank int
	box  *mailbox
}

func (m *memMessenger) Send(rank int, name string, data []byte, flags uint32) error {
	m.box.q(mailKey{m.rank, rank, name}) <- append([]byte(nil), data...)
	return nil
}

func (m *memMessenger) Recv(rank int, name string) ([]byte, error) {
	return <-m.box.q(mailKey{rank, m.rank, name}), nil
}

func (m *memMessenger) RecvInto(rank int, name string, buf []byte) error {
	data := <-m.box.q(mailKey{rank, m.rank, name})
	if len(data) != len(buf) {
		return errors.Errorf("got %d bytes, want %d", len(data), len(buf))
	}
	copy(buf, data)
	return nil
}

func newGroup(size int, s kb.Strategy) []*Session {
	box := &mailbox{qs: make(map[mailKey]chan []byte)}
	sessions := make([]*Session, size)
	for i := range sessions {
		sessions[i] = New(i, size, s, &memMessenger{rank: i, box: box})
	}
	return sessions
}

func runAll(t *testing.T, sessions []*Session, f func(sess *Session) error) {
	errs := make([]error, len(sessions))
	var wg sync.WaitGroup
	for i, sess := range sessions {
		wg.Add(1)
		go func(i int, sess *Session) {
			defer wg.Done()
			errs[i] = f(sess)
		}(i, sess)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "rank %d", i)
	}
}

func Test_Broadcast(t *testing.T) {
	for _, s := range []kb.Strategy{kb.Star, kb.BinaryTree} {
		for _, size := range []int{2, 3, 5} {
			for root := 0; root < size; root++ {
				t.Run(fmt.Sprintf("%s/%d/%d", s, size, root), func(t *testing.T) {
					sessions := newGroup(size, s)
					outs := make([]*kb.Vector, size)
					runAll(t, sessions, func(sess *Session) error {
						r := sess.Rank()
						outs[r] = kb.NewVector(1, kb.F32)
						w := kb.Workspace{
							SendBuf: kb.FromF32([]float32{float32(10 * (r + 1))}),
							RecvBuf: outs[r],
							Name:    "bcast",
						}
						return sess.Broadcast(w, root)
					})
					for _, out := range outs {
						assert.Equal(t, []float32{float32(10 * (root + 1))}, out.AsF32())
					}
				})
			}
		}
	}
}

func Test_Reduce(t *testing.T) {
	for _, s := range []kb.Strategy{kb.Star, kb.BinaryTree} {
		sessions := newGroup(4, s)
		outs := make([]*kb.Vector, 4)
		runAll(t, sessions, func(sess *Session) error {
			r := sess.Rank()
			outs[r] = kb.FromI32([]int32{-1, -1, -1})
			w := kb.Workspace{
				SendBuf: kb.FromI32([]int32{int32(r), 1, 2}),
				RecvBuf: outs[r],
				OP:      kb.SUM,
				Name:    "reduce",
			}
			return sess.Reduce(w, 2)
		})
		assert.Equal(t, []int32{6, 4, 8}, outs[2].AsI32(), "%s", s)
		for _, r := range []int{0, 1, 3} {
			assert.Equal(t, []int32{-1, -1, -1}, outs[r].AsI32(), "%s rank %d", s, r)
		}
	}
}

func Test_AllReduce_Barrier(t *testing.T) {
	sessions := newGroup(3, kb.Star)
	outs := make([]*kb.Vector, 3)
	runAll(t, sessions, func(sess *Session) error {
		if err := sess.Barrier(); err != nil {
			return err
		}
		r := sess.Rank()
		outs[r] = kb.NewVector(2, kb.I64)
		w := kb.Workspace{
			SendBuf: kb.FromI64([]int64{int64(r), 1}),
			RecvBuf: outs[r],
			OP:      kb.SUM,
			Name:    "allreduce",
		}
		if err := sess.AllReduce(w); err != nil {
			return err
		}
		return sess.Barrier()
	})
	for _, out := range outs {
		assert.Equal(t, []int64{3, 3}, out.AsI64())
	}
}

func Test_ReduceScatter(t *testing.T) {
	sessions := newGroup(2, kb.Star)
	outs := make([]*kb.Vector, 2)
	runAll(t, sessions, func(sess *Session) error {
		r := sess.Rank()
		outs[r] = kb.NewVector(2, kb.F32)
		in := []float32{1, 2, 3, 4}
		if r == 1 {
			in = []float32{10, 20, 30, 40}
		}
		w := kb.Workspace{SendBuf: kb.FromF32(in), RecvBuf: outs[r], OP: kb.SUM, Name: "rs"}
		return sess.ReduceScatter(w)
	})
	assert.Equal(t, []float32{11, 22}, outs[0].AsF32())
	assert.Equal(t, []float32{33, 44}, outs[1].AsF32())

	bad := kb.Workspace{SendBuf: kb.NewVector(3, kb.F32), RecvBuf: kb.NewVector(1, kb.F32)}
	assert.ErrorIs(t, sessions[0].ReduceScatter(bad), errInconsistentShard)
}

func Test_Broadcast_chunked(t *testing.T) {
	const n = 300 * 1000 // > chunkSize bytes of f32
	sessions := newGroup(2, kb.BinaryTree)
	outs := make([]*kb.Vector, 2)
	runAll(t, sessions, func(sess *Session) error {
		r := sess.Rank()
		in := kb.NewVector(n, kb.F32)
		if r == 0 {
			for i, x := 0, in.AsF32(); i < n; i++ {
				x[i] = float32(i)
			}
		}
		outs[r] = kb.NewVector(n, kb.F32)
		return sess.Broadcast(kb.Workspace{SendBuf: in, RecvBuf: outs[r], Name: "big"}, 0)
	})
	got := outs[1].AsF32()
	assert.Equal(t, float32(0), got[0])
	assert.Equal(t, float32(n-1), got[n-1])
}

func Test_invalid_root(t *testing.T) {
	sess := newGroup(2, kb.Star)[0]
	w := kb.Workspace{SendBuf: kb.NewVector(1, kb.F32), RecvBuf: kb.NewVector(1, kb.F32)}
	assert.ErrorIs(t, sess.Broadcast(w, 2), errInvalidRoot)
	assert.ErrorIs(t, sess.Reduce(w, -1), errInvalidRoot)
}
