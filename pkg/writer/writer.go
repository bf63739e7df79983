// Package writer defines destinations that own one preallocated buffer and
// hand out disjoint row-range views of it, so partitions can be written
// concurrently without locks.
package writer

import (
	"fmt"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

// Writer owns the destination buffer of a run.
type Writer interface {
	// DataOrders lists the orders the writer can be filled in.
	DataOrders() []types.DataOrder
	// Allocate sizes the buffer to nrows x len(schema), zero initialised.
	// It is the only allocation of a run.
	Allocate(nrows int, schema []types.DataType) error
	// PartitionWriters splits the buffer into one view per count, in order,
	// each covering a disjoint contiguous row range. The counts must add up
	// to the allocated row count.
	PartitionWriters(counts []int) ([]PartitionWriter, error)
	Schema() []types.DataType
	NRows() int
	NCols() int
}

// PartitionWriter is a mutable view over a row range of a Writer's buffer.
// Row indexes are local to the view. The embedded Consumer methods are the
// raw writes; use WriteChecked unless the column's type was already verified.
type PartitionWriter interface {
	types.Consumer
	Schema() []types.DataType
	NRows() int
	NCols() int
}

// WriteChecked verifies that v's type is accepted by column col before
// writing it raw.
func WriteChecked[T types.Native](pw PartitionWriter, row, col int, v T) error {
	if err := CheckCell[T](pw, row, col); err != nil {
		return err
	}
	types.Write(pw, row, col, v)
	return nil
}

// CheckCell validates the coordinate and the column type for a value of type T
// without writing.
func CheckCell[T types.Native](pw PartitionWriter, row, col int) error {
	if row < 0 || row >= pw.NRows() || col < 0 || col >= pw.NCols() {
		return errors.New(errors.ErrorTypeValidation,
			fmt.Sprintf("cell (%d, %d) out of bounds for %d x %d partition", row, col, pw.NRows(), pw.NCols())).
			WithDetail("row", row).
			WithDetail("col", col)
	}
	found := types.Of[T]()
	if expected := pw.Schema()[col]; !types.Verify(expected, found) {
		return types.CheckFailed(expected, found).
			WithDetail("row", row).
			WithDetail("col", col)
	}
	return nil
}

// RowRange is the half-open row interval [Start, End) of one partition.
type RowRange struct {
	Start int
	End   int
}

// Len is the number of rows in r.
func (r RowRange) Len() int {
	return r.End - r.Start
}

// SplitRows turns per-partition counts into consecutive row ranges covering
// [0, total).
func SplitRows(counts []int, total int) ([]RowRange, error) {
	ranges := make([]RowRange, len(counts))
	start := 0
	for i, c := range counts {
		if c < 0 {
			return nil, errors.New(errors.ErrorTypePartition, fmt.Sprintf("partition %d has negative row count %d", i, c)).
				WithDetail("partition", i).
				WithDetail("actual", c)
		}
		ranges[i] = RowRange{Start: start, End: start + c}
		start += c
	}
	if start != total {
		return nil, errors.New(errors.ErrorTypePartition,
			fmt.Sprintf("partition row counts sum to %d, writer holds %d rows", start, total)).
			WithDetail("expected", total).
			WithDetail("actual", start)
	}
	return ranges, nil
}

// ValidateSchema rejects schemas with unknown types.
func ValidateSchema(schema []types.DataType) error {
	for i, t := range schema {
		if !t.Valid() {
			return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("column %d has unknown type %s", i, t)).
				WithDetail("col", i)
		}
	}
	return nil
}
