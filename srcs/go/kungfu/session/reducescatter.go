package session

import (
	"github.com/pkg/errors"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/execution"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"
)

var errInconsistentShard = errors.New("inconsistent shard size")

// ReduceScatter reduces SendBuf across ranks and leaves the rank-th equal
// part of the result in RecvBuf. SendBuf.Count must be Size() * RecvBuf.Count.
// Contributions are combined in rank order so every rank sees the same rounding.
func (sess *Session) ReduceScatter(w kb.Workspace) error {
	n := w.RecvBuf.Count
	if w.SendBuf.Count != n*sess.size {
		return errors.Wrapf(errInconsistentShard, "%d elements over %d ranks into %d", w.SendBuf.Count, sess.size, n)
	}
	if n == 0 {
		return nil
	}
	shard := func(r int) *kb.Vector { return w.SendBuf.Slice(r*n, (r+1)*n) }
	peers := execution.Range(sess.size, sess.rank)
	parts := make([]*kb.Vector, sess.size)
	parts[sess.rank] = shard(sess.rank)

	var send execution.RankFunc = func(rank int) error {
		return sess.messenger.Send(rank, w.Name, shard(rank).Data, connection.WaitRecvBuf)
	}
	var recv execution.RankFunc = func(rank int) error {
		b := kb.NewVector(n, w.RecvBuf.Type)
		if err := sess.messenger.RecvInto(rank, w.Name, b.Data); err != nil {
			return err
		}
		parts[rank] = b
		return nil
	}
	errs := make(chan error, 2)
	go func() { errs <- send.Par(peers) }()
	go func() { errs <- recv.Par(peers) }()
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			return err
		}
	}

	acc := parts[0].Clone()
	for _, p := range parts[1:] {
		if err := kb.Transform(acc, p, w.OP); err != nil {
			return err
		}
	}
	w.RecvBuf.CopyFrom(acc)
	return nil
}
