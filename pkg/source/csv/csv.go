// Package csv reads one CSV file per partition. Plain files are memory
// mapped; files ending in a known compression extension are decompressed on
// the fly.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabflow/pkg/compression"
	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/logger"
	"github.com/ajitpratap0/tabflow/pkg/mmap"
	"github.com/ajitpratap0/tabflow/pkg/source/rowset"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

// Options control parsing.
type Options struct {
	Delimiter rune
	Comment   rune
	HasHeader bool
	// NullValue is the literal read as an absent value. Empty fields are
	// always absent.
	NullValue string
	// LazyQuotes relaxes quote handling the way encoding/csv does.
	LazyQuotes bool
}

// DefaultOptions returns comma-separated input with a header row.
func DefaultOptions() Options {
	return Options{Delimiter: ',', HasHeader: true}
}

// NewBuilder returns a row-major builder whose partitions are file paths.
func NewBuilder(schema []types.DataType, opts Options) *rowset.Builder {
	r := &reader{opts: opts, logger: logger.Component("csv")}
	return rowset.NewBuilder("csv", schema, r.fetch, types.RowMajor)
}

type reader struct {
	opts   Options
	logger *zap.Logger
}

func (r *reader) fetch(ctx context.Context, path string) ([][]any, error) {
	in, algo, err := open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open CSV file").
			WithDetail("path", path)
	}
	defer in.Close()

	rows, err := r.read(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read CSV file").
			WithDetail("path", path)
	}
	r.logger.Debug("csv partition loaded",
		zap.String("path", path),
		zap.String("compression", string(algo)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// open maps plain files and streams compressed ones through a decompressor.
func open(path string) (io.ReadCloser, compression.Algorithm, error) {
	algo := compression.FromPath(path)
	if algo == compression.None {
		m, err := mmap.Open(path)
		if err != nil {
			return nil, algo, err
		}
		return readCloser{Reader: m.Reader(), close: m.Close}, algo, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, algo, err
	}
	dec, err := compression.NewReader(f, algo)
	if err != nil {
		f.Close()
		return nil, algo, err
	}
	return readCloser{Reader: dec, close: func() error {
		dec.Close()
		return f.Close()
	}}, algo, nil
}

func (r *reader) read(ctx context.Context, in io.Reader) ([][]any, error) {
	cr := csv.NewReader(in)
	cr.ReuseRecord = true
	cr.LazyQuotes = r.opts.LazyQuotes
	cr.FieldsPerRecord = 0
	if r.opts.Delimiter != 0 {
		cr.Comma = r.opts.Delimiter
	}
	if r.opts.Comment != 0 {
		cr.Comment = r.opts.Comment
	}

	if r.opts.HasHeader {
		if _, err := cr.Read(); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
	}

	var rows [][]any
	for {
		if len(rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row := make([]any, len(record))
		for i, field := range record {
			if field == "" || field == r.opts.NullValue {
				continue
			}
			row[i] = field
		}
		rows = append(rows, row)
	}
}

// parseRune reads a single-character option.
func parseRune(key, s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("option %s must be a single character, got %q", key, s))
	}
	return r, nil
}
