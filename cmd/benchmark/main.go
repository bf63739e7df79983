// Command benchmark measures dispatch throughput over synthetic partitions
// for every writer and data order.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabflow/pkg/dispatcher"
	"github.com/ajitpratap0/tabflow/pkg/metrics"
	"github.com/ajitpratap0/tabflow/pkg/source/synthetic"
	"github.com/ajitpratap0/tabflow/pkg/types"
	"github.com/ajitpratap0/tabflow/pkg/writer"
	"github.com/ajitpratap0/tabflow/pkg/writer/columnar"
	"github.com/ajitpratap0/tabflow/pkg/writer/memory"
)

var (
	partitions = flag.Int("partitions", 2, "Number of partitions")
	rows       = flag.Int("rows", 100000, "Rows per partition")
	cols       = flag.Int("cols", 100, "Columns")
	typeName   = flag.String("type", "OptU64", "Cell type of every column")
	iterations = flag.Int("count", 3, "Number of iterations per case")
	writers    = flag.String("writers", "memory,columnar", "Writers to benchmark")
	checked    = flag.Bool("checked", false, "Type check every cell")
	cpuFile    = flag.String("cpuprofile", "", "Write CPU profile to file")
	memFile    = flag.String("memprofile", "", "Write memory profile to file")
)

type result struct {
	writer string
	order  types.DataOrder
	best   time.Duration
	rate   float64
}

func main() {
	flag.Parse()

	t, err := types.ParseDataType(*typeName)
	if err != nil {
		log.Fatalf("Invalid type: %v", err)
	}
	schema := make([]types.DataType, *cols)
	for i := range schema {
		schema[i] = t
	}
	queries := make([]string, *partitions)
	for i := range queries {
		queries[i] = strconv.Itoa(*rows)
	}

	if *cpuFile != "" {
		f, err := os.Create(*cpuFile)
		if err != nil {
			log.Fatalf("Failed to create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Failed to start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	fmt.Printf("=== tabflow dispatch benchmark ===\n")
	fmt.Printf("Shape: %d partitions x %d rows x %d cols of %s (checked=%t)\n\n", *partitions, *rows, *cols, t, *checked)

	var results []result
	for _, name := range strings.Split(*writers, ",") {
		newWriter, ok := writerFactories[strings.TrimSpace(name)]
		if !ok {
			log.Fatalf("Unknown writer: %s", name)
		}
		for _, order := range []types.DataOrder{types.RowMajor, types.ColumnMajor} {
			r, err := runCase(strings.TrimSpace(name), newWriter, order, queries, schema)
			if err != nil {
				log.Fatalf("%s/%s failed: %v", name, order, err)
			}
			results = append(results, r)
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WRITER\tORDER\tBEST\tCELLS/S")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%.0f\n", r.writer, r.order, r.best.Round(time.Millisecond), r.rate)
	}
	_ = tw.Flush()

	if *memFile != "" {
		f, err := os.Create(*memFile)
		if err != nil {
			log.Fatalf("Failed to create memory profile: %v", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("Failed to write memory profile: %v", err)
		}
	}
}

var writerFactories = map[string]func() writer.Writer{
	"memory":   func() writer.Writer { return memory.New() },
	"columnar": func() writer.Writer { return columnar.New() },
}

func runCase(name string, newWriter func() writer.Writer, order types.DataOrder, queries []string, schema []types.DataType) (result, error) {
	r := result{writer: name, order: order}
	tracker := metrics.NewThroughputTracker("synthetic", name)
	cells := int64(len(queries) * *rows * len(schema))

	for i := 0; i < *iterations; i++ {
		b := synthetic.NewBuilder(uint64(i), len(schema), synthetic.WithOrders(order))
		d := dispatcher.New(b, newWriter(), queries, schema, dispatcher.WithLogger(zap.NewNop()))
		run := d.Run
		if *checked {
			run = d.RunChecked
		}

		_ = tracker.GetAndReset()
		start := time.Now()
		if _, err := run(context.Background()); err != nil {
			return r, err
		}
		elapsed := time.Since(start)
		tracker.Increment(cells)
		rate := tracker.GetAndReset()

		if r.best == 0 || elapsed < r.best {
			r.best = elapsed
			r.rate = rate
		}
	}
	return r, nil
}
