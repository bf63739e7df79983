// Package types defines the closed set of logical cell types shared by every
// source and writer, the capability interfaces used to move values of those
// types, and the data orders a dispatch run can be driven in.
//
// The set is closed on purpose: Producer, Consumer, the Native constraint and
// the dispatch tables in package dispatcher all enumerate it. Adding a type
// means touching every one of them.
package types

import (
	"fmt"
	"strings"
)

// DataType is the logical type of a destination column, including nullability.
type DataType uint8

const (
	U64 DataType = iota
	OptU64
	I64
	OptI64
	F64
	OptF64
	Bool
	OptBool
	Str
	OptStr

	// NumDataTypes sizes the per-type dispatch tables.
	NumDataTypes = int(OptStr) + 1
)

// Kind is the native Go representation backing a DataType.
type Kind uint8

const (
	KindUint64 Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindString
	// KindInvalid is the kind of a value outside the registry.
	KindInvalid
)

type typeInfo struct {
	name     string
	kind     Kind
	nullable bool
	width    int
}

var registry = [NumDataTypes]typeInfo{
	U64:     {"U64", KindUint64, false, 8},
	OptU64:  {"OptU64", KindUint64, true, 8},
	I64:     {"I64", KindInt64, false, 8},
	OptI64:  {"OptI64", KindInt64, true, 8},
	F64:     {"F64", KindFloat64, false, 8},
	OptF64:  {"OptF64", KindFloat64, true, 8},
	Bool:    {"Bool", KindBool, false, 1},
	OptBool: {"OptBool", KindBool, true, 1},
	Str:     {"Str", KindString, false, 0},
	OptStr:  {"OptStr", KindString, true, 0},
}

// All returns every registered DataType in declaration order.
func All() []DataType {
	all := make([]DataType, NumDataTypes)
	for i := range all {
		all[i] = DataType(i)
	}
	return all
}

// Valid reports whether t is a member of the registry.
func (t DataType) Valid() bool {
	return int(t) < NumDataTypes
}

func (t DataType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
	return registry[t].name
}

// Kind returns the native representation of t.
func (t DataType) Kind() Kind {
	if !t.Valid() {
		return KindInvalid
	}
	return registry[t].kind
}

// Nullable reports whether cells of type t may be absent.
func (t DataType) Nullable() bool {
	return t.Valid() && registry[t].nullable
}

// NativeWidth is the fixed byte width of t's native representation,
// or 0 for variable-width strings.
func (t DataType) NativeWidth() int {
	if !t.Valid() {
		return 0
	}
	return registry[t].width
}

// NonNull returns the non-nullable form of t.
func (t DataType) NonNull() DataType {
	if t.Nullable() {
		return t - 1
	}
	return t
}

// ParseDataType resolves a type name such as "OptU64". Matching is case-insensitive.
func ParseDataType(name string) (DataType, error) {
	for i, info := range registry {
		if strings.EqualFold(info.name, name) {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", name)
}

// ParseSchema resolves a list of type names.
func ParseSchema(names []string) ([]DataType, error) {
	schema := make([]DataType, len(names))
	for i, name := range names {
		t, err := ParseDataType(name)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		schema[i] = t
	}
	return schema, nil
}

// Verify reports whether a slot declared as declared may receive a raw write
// of a value whose runtime type is found. The native representations must
// match, and a nullable value never fits a non-nullable slot. A present
// non-nullable value may be stored in a nullable slot.
func Verify(declared, found DataType) bool {
	if !declared.Valid() || !found.Valid() {
		return false
	}
	if declared.Kind() != found.Kind() || declared.NativeWidth() != found.NativeWidth() {
		return false
	}
	return declared.Nullable() || !found.Nullable()
}
