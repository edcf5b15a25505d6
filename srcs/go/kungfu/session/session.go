package session

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/execution"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
	"github.com/lsds/kungfu-ccl/srcs/go/plan/graph"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

const defaultRoot = 0

// Session runs collective algorithms for one rank of a fixed group.
type Session struct {
	rank       int
	size       int
	messenger  Messenger
	strategies *strategyCache

	mu       sync.Mutex
	barriers int
}

func New(rank, size int, strategy kb.Strategy, m Messenger) *Session {
	return &Session{
		rank:       rank,
		size:       size,
		messenger:  m,
		strategies: newStrategyCache(strategy, size),
	}
}

func (sess *Session) Size() int {
	return sess.size
}

func (sess *Session) Rank() int {
	return sess.rank
}

var errInvalidRoot = errors.New("invalid root")

func (sess *Session) checkRoot(root int) error {
	if root < 0 || root >= sess.size {
		return errors.Wrapf(errInvalidRoot, "%d not in [0, %d)", root, sess.size)
	}
	return nil
}

// Broadcast copies the SendBuf of root into the RecvBuf of every rank.
func (sess *Session) Broadcast(w kb.Workspace, root int) error {
	if err := sess.checkRoot(root); err != nil {
		return err
	}
	s := sess.strategies.get(root)
	return sess.runChunks(w, func(w kb.Workspace) error {
		return sess.runGraphs(w, s.bcastGraph)
	})
}

// Reduce combines the SendBuf of all ranks into the RecvBuf of root.
// The RecvBuf of other ranks is left untouched.
func (sess *Session) Reduce(w kb.Workspace, root int) error {
	if err := sess.checkRoot(root); err != nil {
		return err
	}
	if sess.rank != root {
		w.RecvBuf = kb.NewVector(w.SendBuf.Count, w.SendBuf.Type)
	}
	s := sess.strategies.get(root)
	return sess.runChunks(w, func(w kb.Workspace) error {
		return sess.runGraphs(w, s.reduceGraph)
	})
}

// AllReduce combines the SendBuf of all ranks into the RecvBuf of every rank.
func (sess *Session) AllReduce(w kb.Workspace) error {
	s := sess.strategies.get(defaultRoot)
	return sess.runChunks(w, func(w kb.Workspace) error {
		return sess.runGraphs(w, s.reduceGraph, s.bcastGraph)
	})
}

// Barrier returns once every rank of the group has entered it.
func (sess *Session) Barrier() error {
	sess.mu.Lock()
	sess.barriers++
	n := sess.barriers
	sess.mu.Unlock()
	w := kb.Workspace{
		SendBuf: kb.NewVector(1, kb.U8),
		RecvBuf: kb.NewVector(1, kb.U8),
		OP:      kb.SUM,
		Name:    fmt.Sprintf("kungfu::barrier:%d", n),
	}
	return sess.AllReduce(w)
}

func isIsolated(rank int, graphs ...*graph.Graph) bool {
	for _, g := range graphs {
		if !g.IsIsolated(rank) {
			return false
		}
	}
	return true
}

var errUnexpectedLength = errors.New("unexpected message length")

func (sess *Session) runGraphs(w kb.Workspace, graphs ...*graph.Graph) error {
	if w.IsEmpty() {
		return nil
	}
	if isIsolated(sess.rank, graphs...) {
		w.Forward()
		return nil
	}

	var recvCount int
	effectiveBuffer := func() *kb.Vector {
		if recvCount > 0 || w.IsInplace() {
			return w.RecvBuf
		}
		return w.SendBuf
	}
	var sendOnto execution.RankFunc = func(rank int) error {
		return sess.messenger.Send(rank, w.Name, effectiveBuffer().Data, connection.NoFlag)
	}
	var sendInto execution.RankFunc = func(rank int) error {
		return sess.messenger.Send(rank, w.Name, effectiveBuffer().Data, connection.WaitRecvBuf)
	}

	var lock sync.Mutex
	var recvOnto execution.RankFunc = func(rank int) error {
		data, err := sess.messenger.Recv(rank, w.Name)
		if err != nil {
			return err
		}
		defer connection.PutBuf(data)
		if len(data) != len(w.SendBuf.Data) {
			return errors.Wrapf(errUnexpectedLength, "%s from rank %d: got %d, want %d", w.Name, rank, len(data), len(w.SendBuf.Data))
		}
		b := &kb.Vector{Data: data, Count: w.SendBuf.Count, Type: w.SendBuf.Type}
		lock.Lock()
		defer lock.Unlock()
		if err := kb.Transform2(w.RecvBuf, effectiveBuffer(), b, w.OP); err != nil {
			return err
		}
		recvCount++
		return nil
	}
	var recvInto execution.RankFunc = func(rank int) error {
		if err := sess.messenger.RecvInto(rank, w.Name, w.RecvBuf.Data); err != nil {
			return err
		}
		recvCount++
		return nil
	}

	for _, g := range graphs {
		prevs := g.Prevs(sess.rank)
		nexts := g.Nexts(sess.rank)
		if g.IsSelfLoop(sess.rank) {
			if err := recvOnto.Par(prevs); err != nil {
				return err
			}
			if err := sendOnto.Par(nexts); err != nil {
				return err
			}
		} else {
			if len(prevs) > 1 {
				log.Errorf("more than once recvInto detected at node %d", sess.rank)
			}
			if len(prevs) == 0 && recvCount == 0 {
				w.Forward()
			} else if err := recvInto.Seq(prevs); err != nil {
				return err
			}
			if err := sendInto.Par(nexts); err != nil {
				return err
			}
		}
	}
	return nil
}

const (
	Mi        = 1 << 20
	chunkSize = 1 * Mi
)

func ceilDiv(a, b int) int {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}

// runChunks splits large workspaces and runs f on each part in parallel.
func (sess *Session) runChunks(w kb.Workspace, f func(kb.Workspace) error) error {
	k := ceilDiv(w.SendBuf.Count*w.SendBuf.Type.Size(), chunkSize)
	if k <= 1 {
		return f(w)
	}
	ws := w.Split(plan.EvenPartition, k)
	errs := make([]error, len(ws))
	var wg sync.WaitGroup
	for i, w := range ws {
		wg.Add(1)
		go func(i int, w kb.Workspace) {
			errs[i] = f(w)
			wg.Done()
		}(i, w)
	}
	wg.Wait()
	return utils.MergeErrors(errs, "runChunks")
}
