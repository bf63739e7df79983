// Package compression wraps output and input streams with a compression
// codec chosen by name or by file extension.
//
// # Algorithm Selection
//
//   - Snappy/S2: Best for speed, moderate compression
//   - LZ4: Extremely fast, decent compression
//   - Zstd: Best compression ratio, good speed
//   - Gzip/Deflate: Wide compatibility
//
// # Basic Usage
//
//	w, err := compression.NewWriter(file, compression.Zstd, compression.Default)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
package compression

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy framed compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

var extensions = map[Algorithm]string{
	None:    "",
	Gzip:    ".gz",
	Snappy:  ".sz",
	LZ4:     ".lz4",
	Zstd:    ".zst",
	S2:      ".s2",
	Deflate: ".deflate",
}

// Level controls the trade-off between compression speed and ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// LevelFromInt maps a configured level to a Level; zero means Default.
func LevelFromInt(n int) Level {
	switch {
	case n <= 0:
		return Default
	case n < int(Default):
		return Fastest
	case n < int(Better):
		return Default
	case n < int(Best):
		return Better
	default:
		return Best
	}
}

// ParseAlgorithm resolves an algorithm name. The empty string is None.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if a == "" {
		return None, nil
	}
	if a == "zstandard" {
		return Zstd, nil
	}
	if _, ok := extensions[a]; !ok {
		return "", fmt.Errorf("unsupported compression algorithm: %s", name)
	}
	return a, nil
}

// Extension is the conventional file suffix for a, empty for None.
func Extension(a Algorithm) string {
	return extensions[a]
}

// FromPath infers the algorithm from a file name's extension.
func FromPath(p string) Algorithm {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return None
	}
	for a, e := range extensions {
		if e == ext {
			return a
		}
	}
	return None
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer compressing into dst. Closing it flushes the
// codec but does not close dst.
func NewWriter(dst io.Writer, a Algorithm, level Level) (io.WriteCloser, error) {
	switch a {
	case None, "":
		return nopWriteCloser{dst}, nil
	case Gzip:
		return gzip.NewWriterLevel(dst, mapGzipLevel(level))
	case Deflate:
		return flate.NewWriter(dst, mapDeflateLevel(level))
	case Snappy:
		return snappy.NewBufferedWriter(dst), nil
	case S2:
		return s2.NewWriter(dst, mapS2Options(level)...), nil
	case LZ4:
		w := lz4.NewWriter(dst)
		if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, err
		}
		return w, nil
	case Zstd:
		return zstd.NewWriter(dst, zstd.WithEncoderLevel(mapZstdLevel(level)))
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// NewReader returns a reader decompressing src.
func NewReader(src io.Reader, a Algorithm) (io.ReadCloser, error) {
	switch a {
	case None, "":
		return io.NopCloser(src), nil
	case Gzip:
		return gzip.NewReader(src)
	case Deflate:
		return flate.NewReader(src), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(src)), nil
	case S2:
		return io.NopCloser(s2.NewReader(src)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	case Zstd:
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func mapS2Options(level Level) []s2.WriterOption {
	switch level {
	case Better:
		return []s2.WriterOption{s2.WriterBetterCompression()}
	case Best:
		return []s2.WriterOption{s2.WriterBestCompression()}
	default:
		return nil
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
