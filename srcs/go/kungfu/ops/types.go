package ops

import (
	"fmt"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
)

// Kind is a collective kernel.
type Kind int

const (
	Broadcast Kind = iota
	ReduceSum
	ReduceScatter
	Send
)

// Registered kernel names.
const (
	BroadcastName     = "c_broadcast"
	ReduceSumName     = "c_reduce_sum"
	ReduceScatterName = "c_reducescatter"
	SendName          = "send_v2"
)

var kindNames = map[Kind]string{
	Broadcast:     BroadcastName,
	ReduceSum:     ReduceSumName,
	ReduceScatter: ReduceScatterName,
	Send:          SendName,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var commonTypes = []kb.DataType{kb.I32, kb.I8, kb.F32, kb.F16}

// kernelTypes lists the element types each kernel is built for.
var kernelTypes = map[Kind][]kb.DataType{
	Broadcast:     commonTypes,
	ReduceSum:     {kb.I32, kb.I8, kb.F32, kb.F16, kb.F64, kb.I64},
	ReduceScatter: commonTypes,
	Send:          commonTypes,
}

func supports(k Kind, t kb.DataType) bool {
	for _, s := range kernelTypes[k] {
		if s == t {
			return true
		}
	}
	return false
}

// Attrs are the operator attributes of a collective.
type Attrs struct {
	RingID int
	Root   int
	// UseCalcStream runs the collective on the device's compute stream
	// instead of the communicator's own stream.
	UseCalcStream bool
}

// Request is one kernel invocation on one device.
type Request struct {
	Attrs
	DeviceID int
	X        *kb.Tensor
	// Out receives the result. ReduceScatter may allocate it; ReduceSum
	// leaves it nil-able on non-root ranks.
	Out *kb.Tensor
}

func (r *Request) String() string {
	return fmt.Sprintf("ring=%d dev=%d root=%d x=%s", r.RingID, r.DeviceID, r.Root, tensorString(r.X))
}

func tensorString(t *kb.Tensor) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
