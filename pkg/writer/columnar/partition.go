package columnar

import "github.com/ajitpratap0/tabflow/pkg/types"

// PartitionWriter is a row-range view over every column of a Writer.
type PartitionWriter struct {
	schema []types.DataType
	nrows  int
	cols   []column
}

func (p *PartitionWriter) Schema() []types.DataType { return p.schema }
func (p *PartitionWriter) NRows() int               { return p.nrows }
func (p *PartitionWriter) NCols() int               { return len(p.cols) }

func (p *PartitionWriter) present(row, col int, ok bool) {
	if v := p.cols[col].valid; v != nil {
		v[row] = ok
	}
}

func (p *PartitionWriter) WriteU64(row, col int, v uint64) {
	p.cols[col].u64[row] = v
	p.present(row, col, true)
}

func (p *PartitionWriter) WriteOptU64(row, col int, v types.Option[uint64]) {
	p.cols[col].u64[row] = v.Value
	p.present(row, col, v.Valid)
}

func (p *PartitionWriter) WriteI64(row, col int, v int64) {
	p.cols[col].i64[row] = v
	p.present(row, col, true)
}

func (p *PartitionWriter) WriteOptI64(row, col int, v types.Option[int64]) {
	p.cols[col].i64[row] = v.Value
	p.present(row, col, v.Valid)
}

func (p *PartitionWriter) WriteF64(row, col int, v float64) {
	p.cols[col].f64[row] = v
	p.present(row, col, true)
}

func (p *PartitionWriter) WriteOptF64(row, col int, v types.Option[float64]) {
	p.cols[col].f64[row] = v.Value
	p.present(row, col, v.Valid)
}

func (p *PartitionWriter) WriteBool(row, col int, v bool) {
	p.cols[col].b[row] = v
	p.present(row, col, true)
}

func (p *PartitionWriter) WriteOptBool(row, col int, v types.Option[bool]) {
	p.cols[col].b[row] = v.Value
	p.present(row, col, v.Valid)
}

func (p *PartitionWriter) WriteStr(row, col int, v string) {
	p.cols[col].s[row] = v
	p.present(row, col, true)
}

func (p *PartitionWriter) WriteOptStr(row, col int, v types.Option[string]) {
	p.cols[col].s[row] = v.Value
	p.present(row, col, v.Valid)
}
