package rowset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/tabflow/pkg/types"
)

// ToU64 converts a fetched value to uint64. Strings are parsed; signed and
// floating point values must be non-negative integers.
func ToU64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case int64, int, int32, int16, int8:
		i, _ := ToI64(x)
		if i < 0 {
			return 0, fmt.Errorf("negative value %d does not fit U64", i)
		}
		return uint64(i), nil
	case float64:
		if x < 0 || x != math.Trunc(x) || x >= math.MaxUint64 {
			return 0, fmt.Errorf("value %v does not fit U64", x)
		}
		return uint64(x), nil
	case string:
		return strconv.ParseUint(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseUint(strings.TrimSpace(string(x)), 10, 64)
	case json.Number:
		return strconv.ParseUint(x.String(), 10, 64)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	return 0, unsupported(v, types.U64)
}

// ToI64 converts a fetched value to int64.
func ToI64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d does not fit I64", x)
		}
		return int64(x), nil
	case uint, uint32, uint16, uint8:
		u, _ := ToU64(x)
		return int64(u), nil
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, fmt.Errorf("value %v does not fit I64", x)
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	case json.Number:
		return x.Int64()
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	return 0, unsupported(v, types.I64)
}

// ToF64 converts a fetched value to float64.
func ToF64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64, int, int32, int16, int8:
		i, _ := ToI64(x)
		return float64(i), nil
	case uint64, uint, uint32, uint16, uint8:
		u, _ := ToU64(x)
		return float64(u), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	case json.Number:
		return x.Float64()
	}
	return 0, unsupported(v, types.F64)
}

// ToBool converts a fetched value to bool. Integers are true when non-zero.
func ToBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64, int, int32, int16, int8:
		i, _ := ToI64(x)
		return i != 0, nil
	case uint64, uint, uint32, uint16, uint8:
		u, _ := ToU64(x)
		return u != 0, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(x)))
	}
	return false, unsupported(v, types.Bool)
}

// ToStr converts a fetched value to its string form.
func ToStr(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	case bool, int64, int, int32, int16, int8, uint64, uint, uint32, uint16, uint8:
		return fmt.Sprint(x), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	}
	return "", unsupported(v, types.Str)
}

func unsupported(v any, t types.DataType) error {
	return fmt.Errorf("cannot convert %T to %s", v, t)
}
