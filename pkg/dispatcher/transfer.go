package dispatcher

import (
	"fmt"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/types"
	"github.com/ajitpratap0/tabflow/pkg/writer"
)

// cellFunc moves one cell from a producer into a partition view. When
// checked is false the write is raw and the column type must already have
// been verified.
type cellFunc func(p types.Producer, pw writer.PartitionWriter, row, col int, checked bool) error

func transfer[T types.Native](produce func(types.Producer) (T, error), write func(types.Consumer, int, int, T)) cellFunc {
	return func(p types.Producer, pw writer.PartitionWriter, row, col int, checked bool) error {
		v, err := produce(p)
		if err != nil {
			t := types.Of[T]()
			return errors.Wrap(err, errors.ErrorTypeProducer,
				fmt.Sprintf("failed to produce %s at row %d, column %d", t, row, col)).
				WithDetail("row", row).
				WithDetail("col", col).
				WithDetail("type", t)
		}
		if checked {
			if err := writer.CheckCell[T](pw, row, col); err != nil {
				return err
			}
		}
		write(pw, row, col, v)
		return nil
	}
}

// transfers is indexed by the type a source produces for a column.
var transfers = [types.NumDataTypes]cellFunc{
	types.U64:     transfer(types.Producer.ProduceU64, types.Consumer.WriteU64),
	types.OptU64:  transfer(types.Producer.ProduceOptU64, types.Consumer.WriteOptU64),
	types.I64:     transfer(types.Producer.ProduceI64, types.Consumer.WriteI64),
	types.OptI64:  transfer(types.Producer.ProduceOptI64, types.Consumer.WriteOptI64),
	types.F64:     transfer(types.Producer.ProduceF64, types.Consumer.WriteF64),
	types.OptF64:  transfer(types.Producer.ProduceOptF64, types.Consumer.WriteOptF64),
	types.Bool:    transfer(types.Producer.ProduceBool, types.Consumer.WriteBool),
	types.OptBool: transfer(types.Producer.ProduceOptBool, types.Consumer.WriteOptBool),
	types.Str:     transfer(types.Producer.ProduceStr, types.Consumer.WriteStr),
	types.OptStr:  transfer(types.Producer.ProduceOptStr, types.Consumer.WriteOptStr),
}
