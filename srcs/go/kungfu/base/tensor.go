package base

import (
	"fmt"
	"strings"
)

// Tensor is a Vector with a shape. Numel(Dims) == Count.
type Tensor struct {
	*Vector
	Dims []int
}

func Numel(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func NewTensor(dtype DataType, dims ...int) *Tensor {
	return &Tensor{
		Vector: NewVector(Numel(dims), dtype),
		Dims:   append([]int(nil), dims...),
	}
}

// AsTensor attaches dims to an existing vector without copying.
func AsTensor(v *Vector, dims ...int) *Tensor {
	return &Tensor{Vector: v, Dims: append([]int(nil), dims...)}
}

func (t *Tensor) Numel() int {
	return Numel(t.Dims)
}

func (t *Tensor) ShapeString() string {
	parts := make([]string, len(t.Dims))
	for i, d := range t.Dims {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (t *Tensor) String() string {
	return fmt.Sprintf("%s%s", t.Type, t.ShapeString())
}
