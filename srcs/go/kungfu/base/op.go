package base

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

type OP int32

const (
	SUM OP = iota
	MIN
	MAX
	PROD
)

var opNames = map[OP]string{
	SUM:  "sum",
	MIN:  "min",
	MAX:  "max",
	PROD: "prod",
}

func (op OP) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "invalid"
}

type number interface {
	constraints.Integer | constraints.Float
}

func binaryOp[T number](op OP) func(a, b T) T {
	switch op {
	case MIN:
		return func(a, b T) T {
			if b < a {
				return b
			}
			return a
		}
	case MAX:
		return func(a, b T) T {
			if b > a {
				return b
			}
			return a
		}
	case PROD:
		return func(a, b T) T { return a * b }
	default:
		return func(a, b T) T { return a + b }
	}
}

func transform2[T number](z, x, y []T, op OP) {
	f := binaryOp[T](op)
	for i := range z {
		z[i] = f(x[i], y[i])
	}
}

// Half precision values are combined in float32 and rounded back.
func transform2F16(z, x, y []float16.Float16, op OP) {
	f := binaryOp[float32](op)
	for i := range z {
		z[i] = float16.Fromfloat32(f(x[i].Float32(), y[i].Float32()))
	}
}

type transformFunc func(z, x, y *Vector, op OP)

var transforms = map[DataType]transformFunc{
	U8:  func(z, x, y *Vector, op OP) { transform2(z.AsU8(), x.AsU8(), y.AsU8(), op) },
	U16: func(z, x, y *Vector, op OP) { transform2(view[uint16](z), view[uint16](x), view[uint16](y), op) },
	U32: func(z, x, y *Vector, op OP) { transform2(view[uint32](z), view[uint32](x), view[uint32](y), op) },
	U64: func(z, x, y *Vector, op OP) { transform2(view[uint64](z), view[uint64](x), view[uint64](y), op) },
	I8:  func(z, x, y *Vector, op OP) { transform2(z.AsI8(), x.AsI8(), y.AsI8(), op) },
	I16: func(z, x, y *Vector, op OP) { transform2(view[int16](z), view[int16](x), view[int16](y), op) },
	I32: func(z, x, y *Vector, op OP) { transform2(z.AsI32(), x.AsI32(), y.AsI32(), op) },
	I64: func(z, x, y *Vector, op OP) { transform2(z.AsI64(), x.AsI64(), y.AsI64(), op) },
	F16: func(z, x, y *Vector, op OP) { transform2F16(z.AsF16(), x.AsF16(), y.AsF16(), op) },
	F32: func(z, x, y *Vector, op OP) { transform2(z.AsF32(), x.AsF32(), y.AsF32(), op) },
	F64: func(z, x, y *Vector, op OP) { transform2(z.AsF64(), x.AsF64(), y.AsF64(), op) },
}

// Transform performs y[i] = y[i] op x[i] for vectors y and x
func Transform(y, x *Vector, op OP) error {
	return Transform2(y, y, x, op)
}

// Transform2 performs z[i] = x[i] op y[i] for vectors z and x, y.
func Transform2(z, x, y *Vector, op OP) error {
	if x.Count != z.Count || y.Count != z.Count {
		return errors.Errorf("transform: inconsistent count: %d, %d -> %d", x.Count, y.Count, z.Count)
	}
	if x.Type != z.Type || y.Type != z.Type {
		return errors.Errorf("transform: inconsistent type: %s, %s -> %s", x.Type, y.Type, z.Type)
	}
	f, ok := transforms[z.Type]
	if !ok {
		return errors.Errorf("transform: unsupported type %s", z.Type)
	}
	if _, ok := opNames[op]; !ok {
		return errors.Errorf("transform: unsupported op %d", op)
	}
	if z.Count == 0 {
		return nil
	}
	f(z, x, y, op)
	return nil
}
