package base

import (
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/x448/float16"
)

// Vector is a flat device buffer: raw bytes, element count and element type.
type Vector struct {
	Data  []byte
	Count int
	Type  DataType
}

func NewVector(count int, dtype DataType) *Vector {
	return &Vector{
		Data:  make([]byte, count*dtype.Size()),
		Count: count,
		Type:  dtype,
	}
}

// Slice returns a new Vector that points to a subset of the original Vector.
// 0 <= begin <= end <= count
func (b *Vector) Slice(begin, end int) *Vector {
	return &Vector{
		Data:  b.Data[begin*b.Type.Size() : end*b.Type.Size()],
		Count: end - begin,
		Type:  b.Type,
	}
}

// Same reports whether b and c share their first byte.
func (b *Vector) Same(c *Vector) bool {
	if len(b.Data) == 0 || len(c.Data) == 0 {
		return false
	}
	return &b.Data[0] == &c.Data[0]
}

func (b *Vector) Clone() *Vector {
	c := NewVector(b.Count, b.Type)
	copy(c.Data, b.Data)
	return c
}

func (b *Vector) CopyFrom(c *Vector) {
	if b.Count != c.Count {
		exceptions.Panicf("Vector.CopyFrom: inconsistent count: %d vs %d", b.Count, c.Count)
	}
	if b.Type != c.Type {
		exceptions.Panicf("Vector.CopyFrom: inconsistent type: %s vs %s", b.Type, c.Type)
	}
	copy(b.Data, c.Data)
}

func view[T any](b *Vector) []T {
	if b.Count == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.Data[0])), b.Count)
}

func (b *Vector) as(t DataType) {
	if b.Type != t {
		exceptions.Panicf("Vector of %s viewed as %s", b.Type, t)
	}
}

func (b *Vector) AsU8() []uint8 {
	b.as(U8)
	return view[uint8](b)
}

func (b *Vector) AsI8() []int8 {
	b.as(I8)
	return view[int8](b)
}

func (b *Vector) AsI32() []int32 {
	b.as(I32)
	return view[int32](b)
}

func (b *Vector) AsI64() []int64 {
	b.as(I64)
	return view[int64](b)
}

func (b *Vector) AsF16() []float16.Float16 {
	b.as(F16)
	return view[float16.Float16](b)
}

func (b *Vector) AsF32() []float32 {
	b.as(F32)
	return view[float32](b)
}

func (b *Vector) AsF64() []float64 {
	b.as(F64)
	return view[float64](b)
}

func fromSlice[T any](xs []T, dtype DataType) *Vector {
	v := NewVector(len(xs), dtype)
	copy(view[T](v), xs)
	return v
}

func FromI8(xs []int8) *Vector             { return fromSlice(xs, I8) }
func FromI32(xs []int32) *Vector           { return fromSlice(xs, I32) }
func FromI64(xs []int64) *Vector           { return fromSlice(xs, I64) }
func FromF16(xs []float16.Float16) *Vector { return fromSlice(xs, F16) }
func FromF32(xs []float32) *Vector         { return fromSlice(xs, F32) }
func FromF64(xs []float64) *Vector         { return fromSlice(xs, F64) }
