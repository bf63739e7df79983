package source

import (
	"fmt"

	"github.com/ajitpratap0/tabflow/pkg/types"
)

// Cursor maps the sequence of produce calls onto (row, col) coordinates in a
// given data order.
type Cursor struct {
	order types.DataOrder
	nrows int
	ncols int
	next  int
}

// NewCursor creates a cursor over an nrows x ncols partition.
func NewCursor(order types.DataOrder, nrows, ncols int) Cursor {
	return Cursor{order: order, nrows: nrows, ncols: ncols}
}

// Next returns the coordinate of the next cell and advances.
func (c *Cursor) Next() (row, col int, err error) {
	if c.next >= c.nrows*c.ncols {
		return 0, 0, fmt.Errorf("cursor exhausted after %d cells (%d rows x %d cols)", c.next, c.nrows, c.ncols)
	}
	n := c.next
	c.next++
	if c.order == types.ColumnMajor {
		return n % c.nrows, n / c.nrows, nil
	}
	return n / c.ncols, n % c.ncols, nil
}

// Produced is the number of cells consumed so far.
func (c *Cursor) Produced() int {
	return c.next
}
