package source

import "github.com/ajitpratap0/tabflow/pkg/types"

// Unsupported fails every Producer method. Sources embed it and override the
// methods for the types they can emit.
type Unsupported struct {
	Name string
}

func (u Unsupported) fail(t types.DataType) error {
	name := u.Name
	if name == "" {
		name = "source"
	}
	return types.Unsupported(name, t)
}

func (u Unsupported) ProduceU64() (uint64, error) { return 0, u.fail(types.U64) }

func (u Unsupported) ProduceOptU64() (types.Option[uint64], error) {
	return types.Option[uint64]{}, u.fail(types.OptU64)
}

func (u Unsupported) ProduceI64() (int64, error) { return 0, u.fail(types.I64) }

func (u Unsupported) ProduceOptI64() (types.Option[int64], error) {
	return types.Option[int64]{}, u.fail(types.OptI64)
}

func (u Unsupported) ProduceF64() (float64, error) { return 0, u.fail(types.F64) }

func (u Unsupported) ProduceOptF64() (types.Option[float64], error) {
	return types.Option[float64]{}, u.fail(types.OptF64)
}

func (u Unsupported) ProduceBool() (bool, error) { return false, u.fail(types.Bool) }

func (u Unsupported) ProduceOptBool() (types.Option[bool], error) {
	return types.Option[bool]{}, u.fail(types.OptBool)
}

func (u Unsupported) ProduceStr() (string, error) { return "", u.fail(types.Str) }

func (u Unsupported) ProduceOptStr() (types.Option[string], error) {
	return types.Option[string]{}, u.fail(types.OptStr)
}
