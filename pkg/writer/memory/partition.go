package memory

import (
	"math"

	"github.com/ajitpratap0/tabflow/pkg/types"
)

// PartitionWriter is a row-range view of a Writer. Writes are raw: the
// caller has checked the column type.
type PartitionWriter struct {
	schema []types.DataType
	nrows  int
	ncols  int

	cells []uint64
	valid []bool
	strs  []string
}

func (p *PartitionWriter) Schema() []types.DataType { return p.schema }
func (p *PartitionWriter) NRows() int               { return p.nrows }
func (p *PartitionWriter) NCols() int               { return p.ncols }

func (p *PartitionWriter) put(row, col int, bits uint64, present bool) {
	i := row*p.ncols + col
	p.cells[i] = bits
	if p.valid != nil {
		p.valid[i] = present
	}
}

func (p *PartitionWriter) putStr(row, col int, s string, present bool) {
	i := row*p.ncols + col
	p.strs[i] = s
	if p.valid != nil {
		p.valid[i] = present
	}
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (p *PartitionWriter) WriteU64(row, col int, v uint64) { p.put(row, col, v, true) }

func (p *PartitionWriter) WriteOptU64(row, col int, v types.Option[uint64]) {
	p.put(row, col, v.Value, v.Valid)
}

func (p *PartitionWriter) WriteI64(row, col int, v int64) { p.put(row, col, uint64(v), true) }

func (p *PartitionWriter) WriteOptI64(row, col int, v types.Option[int64]) {
	p.put(row, col, uint64(v.Value), v.Valid)
}

func (p *PartitionWriter) WriteF64(row, col int, v float64) {
	p.put(row, col, math.Float64bits(v), true)
}

func (p *PartitionWriter) WriteOptF64(row, col int, v types.Option[float64]) {
	p.put(row, col, math.Float64bits(v.Value), v.Valid)
}

func (p *PartitionWriter) WriteBool(row, col int, v bool) { p.put(row, col, boolBits(v), true) }

func (p *PartitionWriter) WriteOptBool(row, col int, v types.Option[bool]) {
	p.put(row, col, boolBits(v.Value), v.Valid)
}

func (p *PartitionWriter) WriteStr(row, col int, v string) { p.putStr(row, col, v, true) }

func (p *PartitionWriter) WriteOptStr(row, col int, v types.Option[string]) {
	p.putStr(row, col, v.Value, v.Valid)
}
