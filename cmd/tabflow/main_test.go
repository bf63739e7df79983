package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabflow/pkg/compression"
	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/testutil"
)

func inlineConfig(output, algo string) *config.RunConfig {
	return &config.RunConfig{
		Name: "inline",
		Source: config.SourceConfig{
			Type:       "memory",
			Partitions: []string{"1,a;2,", "3,c"},
		},
		Destination: config.DestinationConfig{
			Type:    "arrow",
			Columns: []string{"id", "name"},
			Schema:  []string{"U64", "OptStr"},
		},
		Output:        config.OutputConfig{Path: output, Compression: algo},
		Observability: config.ObservabilityConfig{LogLevel: "error"},
	}
}

func TestRunExportWritesCompressedIPC(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.arrow.zst")
	summary, err := runExport(context.Background(), inlineConfig(out, "zstd"))
	require.NoError(t, err)

	assert.Equal(t, "success", summary.Status)
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, 2, summary.Columns)
	assert.Equal(t, 2, summary.Partitions)
	assert.NotEmpty(t, summary.RunID)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, info.Size(), summary.OutputBytes)

	r, err := compression.NewReader(f, compression.FromPath(out))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)

	fr, err := ipc.NewFileReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer fr.Close()
	rec, err := fr.Record(0)
	require.NoError(t, err)

	assert.Equal(t, "id", rec.Schema().Field(0).Name)
	assert.Equal(t, []uint64{1, 2, 3}, rec.Column(0).(*array.Uint64).Uint64Values())
	names := rec.Column(1).(*array.String)
	assert.Equal(t, "a", names.Value(0))
	assert.True(t, names.IsNull(1))
	assert.Equal(t, "c", names.Value(2))
}

func TestRunExportRejectsUnexportableWriter(t *testing.T) {
	cfg := inlineConfig(filepath.Join(t.TempDir(), "out.bin"), "")
	cfg.Destination.Type = "memory"
	summary, err := runExport(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Equal(t, "failure", summary.Status)
}

func TestRunExportReportsProducerFailure(t *testing.T) {
	cfg := inlineConfig("", "")
	cfg.Destination.Type = "memory"
	cfg.Performance.CheckEveryCell = true
	cfg.Source.Partitions = []string{"1,a", "x,b"}

	summary, err := runExport(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeProducer))
	assert.Equal(t, "failure", summary.Status)
	assert.NotEmpty(t, summary.Error)
}

func TestRunExportInvalidConfig(t *testing.T) {
	cfg := inlineConfig("", "")
	cfg.Destination.Schema = []string{"U128"}
	summary, err := runExport(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, summary)
}

func TestRunCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "synthetic.arrow")
	path := testutil.WriteFile(t, "run.yaml", `
name: synthetic-export
source:
  type: synthetic
  partitions: ["10", "5"]
  options: {seed: "3"}
destination:
  type: arrow
  schema: [U64, OptF64, OptStr]
output:
  path: `+out+`
observability:
  log_level: error
`)

	root := newRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"run", "--config", path, "--max-workers", "1"})
	require.NoError(t, root.Execute())

	var summary Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, "synthetic-export", summary.Name)
	assert.Equal(t, 15, summary.Rows)
	assert.FileExists(t, out)
}

func TestInfoCommands(t *testing.T) {
	for _, tt := range []struct {
		args []string
		want []string
	}{
		{[]string{"version"}, []string{"tabflow v" + version}},
		{[]string{"list"}, []string{"csv", "postgres", "mysql", "synthetic", "arrow"}},
		{[]string{"types"}, []string{"OptU64", "[U64 OptU64]"}},
	} {
		root := newRootCommand()
		var stdout bytes.Buffer
		root.SetOut(&stdout)
		root.SetArgs(tt.args)
		require.NoError(t, root.Execute())
		for _, w := range tt.want {
			assert.Contains(t, stdout.String(), w)
		}
	}
}

// partialExporter writes some bytes and then fails, like an IPC writer that
// dies mid-stream.
type partialExporter struct{}

func (partialExporter) WriteIPC(w io.Writer) error {
	if _, err := io.WriteString(w, "ARROW1-partial-bytes"); err != nil {
		return err
	}
	return errors.New(errors.ErrorTypeData, "record batch failed")
}

func TestWriteOutputRemovesPartialFile(t *testing.T) {
	for _, algo := range []string{"", "gzip"} {
		t.Run("compression="+algo, func(t *testing.T) {
			dir := t.TempDir()
			out := filepath.Join(dir, "out.arrow")

			_, err := writeOutput(context.Background(), config.OutputConfig{Path: out, Compression: algo}, partialExporter{})
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeData))

			_, statErr := os.Stat(out)
			assert.True(t, os.IsNotExist(statErr), "failed export left %s behind", out)
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}
