package ops

import (
	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/comm"
)

// Allocator provides output buffers on a device.
type Allocator interface {
	Allocate(deviceID int, dtype kb.DataType, dims []int) (*kb.Tensor, error)
}

type AllocatorFunc func(deviceID int, dtype kb.DataType, dims []int) (*kb.Tensor, error)

func (f AllocatorFunc) Allocate(deviceID int, dtype kb.DataType, dims []int) (*kb.Tensor, error) {
	return f(deviceID, dtype, dims)
}

// HostAllocator allocates zeroed host memory, which is device memory for
// simulated devices.
var HostAllocator = AllocatorFunc(func(_ int, dtype kb.DataType, dims []int) (*kb.Tensor, error) {
	return kb.NewTensor(dtype, dims...), nil
})

// ShardShape is the shape of one rank's share of a tensor of the given
// dims: the leading dimension divided by nranks.
func ShardShape(dims []int, nranks int) ([]int, error) {
	if len(dims) == 0 {
		return nil, comm.ShapeErrorf("reduce-scatter of a scalar")
	}
	if nranks <= 0 || dims[0]%nranks != 0 {
		return nil, comm.ShapeErrorf("leading dimension %d is not divisible by nranks %d", dims[0], nranks)
	}
	out := append([]int(nil), dims...)
	out[0] /= nranks
	return out, nil
}
