package transport

import (
	"context"
	"fmt"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
)

// GroupSpec is one rank's view of the group it joins.
type GroupSpec struct {
	GroupID  string
	NRanks   int
	Rank     int
	RingID   int
	DeviceID int
}

// Key identifies the group instance: one ring of one group.
func (s GroupSpec) Key() string {
	return fmt.Sprintf("%s/ring:%d", s.GroupID, s.RingID)
}

func (s GroupSpec) String() string {
	return fmt.Sprintf("%s rank=%d/%d dev=%d", s.Key(), s.Rank, s.NRanks, s.DeviceID)
}

type Kind int

const (
	Broadcast Kind = iota
	Reduce
	ReduceScatter
)

var kindNames = map[Kind]string{
	Broadcast:     "broadcast",
	Reduce:        "reduce",
	ReduceScatter: "reduce_scatter",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Descriptor is one collective primitive for Conn.Run.
// For ReduceScatter Count is the number of elements of Recv.
type Descriptor struct {
	Kind  Kind
	Send  *kb.Vector
	Recv  *kb.Vector
	Count int
	DType kb.DataType
	OP    kb.OP
	Root  int
	Tag   string
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s, count=%d, %s, root=%d)", d.Kind, d.Tag, d.Count, d.DType, d.Root)
}

// Transport forms groups.
type Transport interface {
	// Connect blocks until all NRanks members of the group have joined.
	Connect(ctx context.Context, spec GroupSpec) (Conn, error)
	Close() error
}

// Conn is a rank's live membership in one group.
type Conn interface {
	ID() string
	Rank() int
	Size() int
	// Run executes d to completion; it is called from a device stream.
	Run(d Descriptor) error
	Close() error
}
