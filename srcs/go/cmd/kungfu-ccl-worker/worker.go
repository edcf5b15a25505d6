package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/ccl"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/ops"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

type worker struct {
	rt  *ccl.Runtime
	cfg *env.Config
	n   int
}

func (w *worker) request(root int, x, out *kb.Tensor) *ops.Request {
	return &ops.Request{
		Attrs:    ops.Attrs{RingID: w.cfg.RingID, Root: root},
		DeviceID: w.cfg.DeviceID,
		X:        x,
		Out:      out,
	}
}

func (w *worker) run(name string, req *ops.Request) error {
	if err := w.rt.Run(name, req); err != nil {
		return err
	}
	return w.rt.Synchronize(context.Background(), w.cfg.RingID, w.cfg.DeviceID)
}

func fill(t *kb.Tensor, v float32) *kb.Tensor {
	xs := t.AsF32()
	for i := range xs {
		xs[i] = v
	}
	return t
}

func expectAll(name string, t *kb.Tensor, v float32) error {
	for i, x := range t.AsF32() {
		if x != v {
			return fmt.Errorf("%s: element %d is %v, expect %v", name, i, x, v)
		}
	}
	return nil
}

func (w *worker) checkAll() error {
	checks := []func() error{w.checkBroadcast, w.checkReduceSum, w.checkReduceScatter}
	if w.cfg.NRanks == 2 {
		checks = append(checks, w.checkSend)
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) checkBroadcast() error {
	root := w.cfg.NRanks - 1
	x := fill(kb.NewTensor(kb.F32, w.n), float32(w.cfg.Rank+1))
	out := kb.NewTensor(kb.F32, w.n)
	if err := w.run(ops.BroadcastName, w.request(root, x, out)); err != nil {
		return err
	}
	return expectAll(ops.BroadcastName, out, float32(root+1))
}

func (w *worker) checkReduceSum() error {
	x := fill(kb.NewTensor(kb.F32, w.n), 1)
	out := fill(kb.NewTensor(kb.F32, w.n), -1)
	if err := w.run(ops.ReduceSumName, w.request(0, x, out)); err != nil {
		return err
	}
	if w.cfg.Rank == 0 {
		return expectAll(ops.ReduceSumName, out, float32(w.cfg.NRanks))
	}
	return expectAll(ops.ReduceSumName, out, -1)
}

func (w *worker) checkReduceScatter() error {
	rows := w.cfg.NRanks * 2
	x := fill(kb.NewTensor(kb.F32, rows, w.n/rows+1), float32(w.cfg.Rank))
	req := w.request(0, x, nil)
	if err := w.run(ops.ReduceScatterName, req); err != nil {
		return err
	}
	sum := w.cfg.NRanks * (w.cfg.NRanks - 1) / 2
	return expectAll(ops.ReduceScatterName, req.Out, float32(sum))
}

// checkSend has rank 0 send and rank 1 receive with a broadcast rooted at 0.
func (w *worker) checkSend() error {
	x := fill(kb.NewTensor(kb.F32, w.n), 42)
	if w.cfg.Rank == 0 {
		return w.run(ops.SendName, w.request(0, x, nil))
	}
	out := kb.NewTensor(kb.F32, w.n)
	if err := w.run(ops.BroadcastName, w.request(0, x, out)); err != nil {
		return err
	}
	return expectAll(ops.SendName, out, 42)
}

func (w *worker) bench(iters int) error {
	x := kb.NewTensor(kb.F32, w.n)
	out := kb.NewTensor(kb.F32, w.n)
	d, err := utils.Measure(func() error {
		for i := 0; i < iters; i++ {
			if err := w.rt.Run(ops.BroadcastName, w.request(0, x, out)); err != nil {
				return err
			}
		}
		return w.rt.Synchronize(context.Background(), w.cfg.RingID, w.cfg.DeviceID)
	})
	if err != nil {
		return err
	}
	n := int64(iters) * int64(len(x.Data))
	log.Infof("rank %d: %d broadcasts of %s took %s, %s", w.cfg.Rank, iters, humanize.IBytes(uint64(len(x.Data))), d, utils.ShowRate(utils.Rate(n, d)))
	return nil
}
