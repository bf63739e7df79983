// Package tabflow moves a partitioned dataset from a source into a single
// preallocated destination buffer, one goroutine per partition, without
// locks on the write path.
//
// # Architecture
//
// A dispatch run has five steps:
//
// 1. Order negotiation: the source builder and the writer each declare the
// data orders they support (row major, column major). Column major wins when
// both sides support it.
//
// 2. Source preparation: the builder yields one source per partition, and
// every source is handed its partition identifier (a query, a file path, a
// row count) and reports its exact row count.
//
// 3. Allocation: the writer allocates sum(rows) x len(schema) cells once.
//
// 4. Partitioning: the writer splits its buffer into disjoint row-range
// views, one per partition, in partition order.
//
// 5. Transfer: every partition is drained into its view concurrently. The
// first row of each partition is type checked against the destination
// schema; the rest is written raw. RunChecked checks every cell.
//
// # Quick Start
//
// Export two in-memory partitions into an Arrow record:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/tabflow/pkg/dispatcher"
//	    "github.com/ajitpratap0/tabflow/pkg/source/memory"
//	    "github.com/ajitpratap0/tabflow/pkg/types"
//	    "github.com/ajitpratap0/tabflow/pkg/writer/columnar"
//	)
//
//	schema := []types.DataType{types.U64, types.OptStr}
//	b := memory.NewTableBuilder(schema, [][][]any{
//	    {{uint64(1), "a"}, {uint64(2), nil}},
//	    {{uint64(3), "c"}},
//	})
//	d := dispatcher.New(b, columnar.New(), []string{"p0", "p1"}, schema)
//	w, err := d.Run(context.Background())
//	rec := w.Record()
//
// # Key Packages
//
//	pkg/types       - Logical cell types, Producer/Consumer capabilities, data orders
//	pkg/source      - Source and SourceBuilder contracts
//	pkg/writer      - Writer and PartitionWriter contracts
//	pkg/dispatcher  - Negotiation, allocation and parallel transfer
//	pkg/registry    - Source and writer factories by name
//	pkg/config      - YAML run configuration
//	pkg/compression - Compressed output and input streams
//	pkg/sink        - Local, S3 and GCS output
//	pkg/errors      - Structured error handling
//	pkg/logger      - Structured logging
//	pkg/metrics     - Prometheus metrics
//
// # Sources and Writers
//
// Available sources:
//   - memory: inline rows and in-memory U64/OptU64 streams
//   - synthetic: deterministic generated values
//   - csv: one file per partition, optionally compressed
//   - postgres: one query per partition over a pgx pool
//   - mysql: one query per partition over database/sql
//
// Available writers:
//   - arrow: one typed slice per column, exported as an Arrow IPC file
//   - memory: a row-major buffer of 64-bit cells
//
// # Command Line
//
//	tabflow run --config export.yaml
//	tabflow list
//	tabflow types
//
// Environment variables are substituted into run configurations with
// ${VAR_NAME} syntax.
package tabflow
