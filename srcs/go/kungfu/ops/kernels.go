package ops

import (
	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/comm"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/monitor"
)

// Env is what kernels share across invocations.
type Env struct {
	Registry *comm.Registry
	// Allocator is used by ReduceScatter when the output is missing or
	// has the wrong size. Nil means such a request fails.
	Allocator Allocator
	Monitor   monitor.Monitor
}

func (env *Env) monitor() monitor.Monitor {
	if env.Monitor == nil {
		return monitor.GetMonitor()
	}
	return env.Monitor
}

// prepare resolves the handle and checks what every kernel needs.
func prepare(env *Env, kind Kind, req *Request) (*comm.Handle, error) {
	h, err := env.Registry.Get(req.RingID, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if req.X == nil {
		return nil, comm.ShapeErrorf("%s: missing input", kind)
	}
	if !supports(kind, req.X.Type) {
		return nil, comm.ConfigurationErrorf("%s: unsupported dtype %s", kind, req.X.Type)
	}
	if req.X.Numel() != req.X.Count {
		return nil, comm.ShapeErrorf("%s: input %s has %d elements", kind, req.X, req.X.Count)
	}
	return h, nil
}

func checkRoot(kind Kind, h *comm.Handle, root int) error {
	if root < 0 || root >= h.NRanks {
		return comm.ConfigurationErrorf("%s: root %d not in [0, %d)", kind, root, h.NRanks)
	}
	return nil
}

func checkOutput(kind Kind, x, out *kb.Tensor, count int) error {
	if out == nil {
		return comm.ShapeErrorf("%s: missing output", kind)
	}
	if out.Type != x.Type {
		return comm.ShapeErrorf("%s: output dtype %s, input dtype %s", kind, out.Type, x.Type)
	}
	if out.Count != count {
		return comm.ShapeErrorf("%s: output has %d elements, expect %d", kind, out.Count, count)
	}
	return nil
}

func stream(h *comm.Handle, req *Request) *device.Stream {
	if req.UseCalcStream {
		return h.Device().Compute
	}
	return h.Stream()
}

// enqueue puts d on the selected stream of h. The tag is drawn when the
// collective is issued, so ranks that issue in the same order agree on it.
func enqueue(env *Env, kind Kind, h *comm.Handle, req *Request, d transport.Descriptor) error {
	d.Tag = h.NextTag(d.Kind.String())
	s := stream(h, req)
	log.Tracef("%s: %s rank=%d/%d conn=%s stream=%s", kind, d, h.Rank, h.NRanks, h.ConnID(), s)
	conn := h.Conn()
	err := s.Enqueue(func() error {
		if err := conn.Run(d); err != nil {
			return comm.TransportError(err, "%s on %s", d, conn.ID())
		}
		return nil
	})
	if err != nil {
		return err
	}
	env.monitor().Collective(kind.String(), int64(len(d.Send.Data)))
	return nil
}

// BroadcastKernel copies the input of rank Root into the output of every rank.
func BroadcastKernel(env *Env, req *Request) error {
	h, err := prepare(env, Broadcast, req)
	if err != nil {
		return err
	}
	if err := checkRoot(Broadcast, h, req.Root); err != nil {
		return err
	}
	if err := checkOutput(Broadcast, req.X, req.Out, req.X.Count); err != nil {
		return err
	}
	return enqueue(env, Broadcast, h, req, transport.Descriptor{
		Kind:  transport.Broadcast,
		Send:  req.X.Vector,
		Recv:  req.Out.Vector,
		Count: req.X.Count,
		DType: req.X.Type,
		Root:  req.Root,
	})
}

// ReduceSumKernel sums the inputs of all ranks into the output of rank
// Root. The output of the other ranks is left as it is and may be nil.
func ReduceSumKernel(env *Env, req *Request) error {
	h, err := prepare(env, ReduceSum, req)
	if err != nil {
		return err
	}
	if err := checkRoot(ReduceSum, h, req.Root); err != nil {
		return err
	}
	d := transport.Descriptor{
		Kind:  transport.Reduce,
		Send:  req.X.Vector,
		Count: req.X.Count,
		DType: req.X.Type,
		OP:    kb.SUM,
		Root:  req.Root,
	}
	if h.Rank == req.Root {
		if err := checkOutput(ReduceSum, req.X, req.Out, req.X.Count); err != nil {
			return err
		}
		d.Recv = req.Out.Vector
	}
	return enqueue(env, ReduceSum, h, req, d)
}

// ReduceScatterKernel sums the inputs of all ranks and leaves shard i of
// the sum, split along the leading dimension, in the output of rank i.
func ReduceScatterKernel(env *Env, req *Request) error {
	h, err := prepare(env, ReduceScatter, req)
	if err != nil {
		return err
	}
	dims, err := ShardShape(req.X.Dims, h.NRanks)
	if err != nil {
		return err
	}
	count := req.X.Count / h.NRanks
	if req.Out == nil && env.Allocator != nil {
		out, err := env.Allocator.Allocate(req.DeviceID, req.X.Type, dims)
		if err != nil {
			return err
		}
		req.Out = out
	}
	if err := checkOutput(ReduceScatter, req.X, req.Out, count); err != nil {
		return err
	}
	return enqueue(env, ReduceScatter, h, req, transport.Descriptor{
		Kind:  transport.ReduceScatter,
		Send:  req.X.Vector,
		Recv:  req.Out.Vector,
		Count: count,
		DType: req.X.Type,
		OP:    kb.SUM,
	})
}

// SendKernel sends the input to the other rank of a two-rank group. The
// peer receives it by running BroadcastKernel with Root set to the sender.
func SendKernel(env *Env, req *Request) error {
	h, err := prepare(env, Send, req)
	if err != nil {
		return err
	}
	if h.NRanks != 2 {
		return comm.ConfigurationErrorf("%s: only 2 ranks are supported, got %d", Send, h.NRanks)
	}
	return enqueue(env, Send, h, req, transport.Descriptor{
		Kind:  transport.Broadcast,
		Send:  req.X.Vector,
		Recv:  req.X.Vector,
		Count: req.X.Count,
		DType: req.X.Type,
		Root:  h.Rank,
	})
}
