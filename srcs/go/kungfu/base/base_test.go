package base

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/lsds/kungfu-ccl/srcs/go/plan"
)

func Test_dtype(t *testing.T) {
	assert.Equal(t, 4, F32.Size())
	assert.Equal(t, 2, F16.Size())
	assert.Equal(t, 1, I8.Size())
	assert.Equal(t, 8, I64.Size())
	assert.False(t, DataType(99).Valid())
	assert.Equal(t, "invalid", DataType(99).String())

	dt, err := ParseDataType("f16")
	require.NoError(t, err)
	assert.Equal(t, F16, dt)
	_, err = ParseDataType("bf16")
	assert.Error(t, err)
}

func Test_transform_sum(t *testing.T) {
	y := FromF32([]float32{1, 1, 1})
	x := FromF32([]float32{2, 2, 2})
	require.NoError(t, Transform(y, x, SUM))
	assert.Equal(t, []float32{3, 3, 3}, y.AsF32())

	a := FromI32([]int32{1, 5, -3})
	b := FromI32([]int32{4, 2, -7})
	c := NewVector(3, I32)
	require.NoError(t, Transform2(c, a, b, MAX))
	assert.Equal(t, []int32{4, 5, -3}, c.AsI32())
	require.NoError(t, Transform2(c, a, b, MIN))
	assert.Equal(t, []int32{1, 2, -7}, c.AsI32())
	require.NoError(t, Transform2(c, a, b, PROD))
	assert.Equal(t, []int32{4, 10, 21}, c.AsI32())
}

func Test_transform_f16(t *testing.T) {
	y := FromF16([]float16.Float16{float16.Fromfloat32(0.5), float16.Fromfloat32(1.5)})
	x := FromF16([]float16.Float16{float16.Fromfloat32(0.25), float16.Fromfloat32(2)})
	require.NoError(t, Transform(y, x, SUM))
	got := y.AsF16()
	assert.Equal(t, float32(0.75), got[0].Float32())
	assert.Equal(t, float32(3.5), got[1].Float32())
}

func Test_transform_mismatch(t *testing.T) {
	assert.Error(t, Transform(NewVector(2, F32), NewVector(3, F32), SUM))
	assert.Error(t, Transform(NewVector(2, F32), NewVector(2, I32), SUM))
	assert.NoError(t, Transform(NewVector(0, F32), NewVector(0, F32), SUM))
}

func Test_vector_wrong_view_panics(t *testing.T) {
	v := NewVector(4, I32)
	err := exceptions.TryCatch[error](func() { v.AsF32() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i32")
}

func Test_vector_slice(t *testing.T) {
	v := FromI64([]int64{0, 1, 2, 3, 4})
	s := v.Slice(1, 4)
	assert.Equal(t, []int64{1, 2, 3}, s.AsI64())
	s.AsI64()[0] = 10
	assert.Equal(t, int64(10), v.AsI64()[1])

	c := v.Clone()
	assert.False(t, c.Same(v))
	assert.Equal(t, v.AsI64(), c.AsI64())
}

func Test_workspace_split(t *testing.T) {
	send := FromF32([]float32{1, 2, 3, 4, 5})
	recv := NewVector(5, F32)
	w := Workspace{SendBuf: send, RecvBuf: recv, OP: SUM, Name: "x"}
	ws := w.Split(plan.EvenPartition, 2)
	require.Len(t, ws, 2)
	assert.Equal(t, 3, ws[0].SendBuf.Count)
	assert.Equal(t, 2, ws[1].SendBuf.Count)
	assert.Equal(t, "part::x[3:5]", ws[1].Name)

	assert.False(t, w.IsInplace())
	w.Forward()
	assert.Equal(t, send.AsF32(), recv.AsF32())

	in := Workspace{SendBuf: send, RecvBuf: send}
	assert.True(t, in.IsInplace())
}

func Test_tensor(t *testing.T) {
	x := NewTensor(F32, 4, 3)
	assert.Equal(t, 12, x.Count)
	assert.Equal(t, 12, x.Numel())
	assert.Equal(t, "f32[4,3]", x.String())
	assert.Equal(t, 1, Numel(nil))
}

func Test_strategy(t *testing.T) {
	var s Strategy
	require.NoError(t, s.Set("BINARY_TREE"))
	assert.Equal(t, BinaryTree, s)
	assert.Error(t, s.Set("RING"))
	assert.Equal(t, []string{"BINARY_TREE", "STAR"}, StrategyNames())
}
