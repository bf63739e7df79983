package types

import (
	stderrors "errors"
	"fmt"

	"github.com/ajitpratap0/tabflow/pkg/errors"
)

// ErrUnsupportedProduce is wrapped by sources asked for a type they cannot emit.
var ErrUnsupportedProduce = stderrors.New("type not supported by source")

// Producer emits the next cell of a source in its negotiated order. Each call
// advances the cursor by one cell, whichever method is used, so callers must
// request columns in exactly the order the source promised. A source that
// cannot emit some type still implements its method and fails on every call.
type Producer interface {
	ProduceU64() (uint64, error)
	ProduceOptU64() (Option[uint64], error)
	ProduceI64() (int64, error)
	ProduceOptI64() (Option[int64], error)
	ProduceF64() (float64, error)
	ProduceOptF64() (Option[float64], error)
	ProduceBool() (bool, error)
	ProduceOptBool() (Option[bool], error)
	ProduceStr() (string, error)
	ProduceOptStr() (Option[string], error)
}

// Consumer is the raw write side: it stores a value at (row, col) without
// consulting the schema. Callers must have proven the value's type is
// accepted by the column, typically with one checked write per column.
type Consumer interface {
	WriteU64(row, col int, v uint64)
	WriteOptU64(row, col int, v Option[uint64])
	WriteI64(row, col int, v int64)
	WriteOptI64(row, col int, v Option[int64])
	WriteF64(row, col int, v float64)
	WriteOptF64(row, col int, v Option[float64])
	WriteBool(row, col int, v bool)
	WriteOptBool(row, col int, v Option[bool])
	WriteStr(row, col int, v string)
	WriteOptStr(row, col int, v Option[string])
}

// Native is the set of Go types a cell value can have.
type Native interface {
	uint64 | Option[uint64] |
		int64 | Option[int64] |
		float64 | Option[float64] |
		bool | Option[bool] |
		string | Option[string]
}

// Of returns the DataType tag of the native type T.
func Of[T Native]() DataType {
	var zero T
	switch any(zero).(type) {
	case uint64:
		return U64
	case Option[uint64]:
		return OptU64
	case int64:
		return I64
	case Option[int64]:
		return OptI64
	case float64:
		return F64
	case Option[float64]:
		return OptF64
	case bool:
		return Bool
	case Option[bool]:
		return OptBool
	case string:
		return Str
	default:
		return OptStr
	}
}

// Produce calls the Producer method matching T.
func Produce[T Native](p Producer) (T, error) {
	var (
		v   any
		err error
	)
	switch Of[T]() {
	case U64:
		v, err = p.ProduceU64()
	case OptU64:
		v, err = p.ProduceOptU64()
	case I64:
		v, err = p.ProduceI64()
	case OptI64:
		v, err = p.ProduceOptI64()
	case F64:
		v, err = p.ProduceF64()
	case OptF64:
		v, err = p.ProduceOptF64()
	case Bool:
		v, err = p.ProduceBool()
	case OptBool:
		v, err = p.ProduceOptBool()
	case Str:
		v, err = p.ProduceStr()
	case OptStr:
		v, err = p.ProduceOptStr()
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Write calls the Consumer method matching T.
func Write[T Native](c Consumer, row, col int, v T) {
	switch x := any(v).(type) {
	case uint64:
		c.WriteU64(row, col, x)
	case Option[uint64]:
		c.WriteOptU64(row, col, x)
	case int64:
		c.WriteI64(row, col, x)
	case Option[int64]:
		c.WriteOptI64(row, col, x)
	case float64:
		c.WriteF64(row, col, x)
	case Option[float64]:
		c.WriteOptF64(row, col, x)
	case bool:
		c.WriteBool(row, col, x)
	case Option[bool]:
		c.WriteOptBool(row, col, x)
	case string:
		c.WriteStr(row, col, x)
	case Option[string]:
		c.WriteOptStr(row, col, x)
	}
}

// CheckFailed builds the error for a value of type found offered to a slot
// declared as expected.
func CheckFailed(expected, found DataType) *errors.Error {
	return errors.New(errors.ErrorTypeTypeCheck,
		fmt.Sprintf("data type check failed: expected %s, found %s", expected, found)).
		WithDetail("expected", expected).
		WithDetail("found", found)
}

// Unsupported builds the error a source returns for a type it cannot produce.
func Unsupported(source string, t DataType) error {
	return fmt.Errorf("%s cannot produce %s: %w", source, t, ErrUnsupportedProduce)
}
