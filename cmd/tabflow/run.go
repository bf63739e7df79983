package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabflow/pkg/compression"
	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/dispatcher"
	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/logger"
	"github.com/ajitpratap0/tabflow/pkg/metrics"
	"github.com/ajitpratap0/tabflow/pkg/observability"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/sink"
	"github.com/ajitpratap0/tabflow/pkg/types"
	"github.com/ajitpratap0/tabflow/pkg/writer"
)

// Summary is printed as JSON after every run.
type Summary struct {
	Name           string  `json:"name"`
	RunID          string  `json:"run_id"`
	Source         string  `json:"source"`
	Writer         string  `json:"writer"`
	Partitions     int     `json:"partitions"`
	Rows           int     `json:"rows"`
	Columns        int     `json:"columns"`
	Checked        bool    `json:"checked"`
	DurationMillis int64   `json:"duration_ms"`
	CellsPerSecond float64 `json:"cells_per_second"`
	Output         string  `json:"output,omitempty"`
	OutputBytes    int64   `json:"output_bytes,omitempty"`
	Status         string  `json:"status"`
	Error          string  `json:"error,omitempty"`
}

// Print writes s as indented JSON.
func (s *Summary) Print(out io.Writer) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// ipcExporter is implemented by writers that can serialize their buffer.
type ipcExporter interface {
	WriteIPC(out io.Writer) error
}

// runExport runs one configured export. The summary is returned whenever the
// configuration was valid, including on failure.
func runExport(ctx context.Context, cfg *config.RunConfig) (*Summary, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schema, err := cfg.Schema()
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid logging configuration")
	}
	defer func() { _ = logger.Sync() }()

	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	ctx = context.WithValue(ctx, logger.SourceKey, cfg.Source.Type)
	log := logger.WithContext(ctx).With(
		zap.String("component", "tabflow-cli"),
		zap.String("writer", cfg.Destination.Type))

	summary := &Summary{
		Name:       cfg.Name,
		RunID:      runID,
		Source:     cfg.Source.Type,
		Writer:     cfg.Destination.Type,
		Partitions: len(cfg.Source.Partitions),
		Columns:    len(schema),
		Checked:    cfg.Performance.CheckEveryCell,
		Output:     cfg.Output.Path,
		Status:     metrics.StatusFailure,
	}

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: version,
			SamplingRate:   1,
		})
		if err != nil {
			return summary, err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := serveMetrics(addr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	err = export(ctx, cfg, schema, runID, summary, log)
	if err != nil {
		summary.Error = err.Error()
		return summary, err
	}
	summary.Status = metrics.StatusSuccess
	return summary, nil
}

func export(ctx context.Context, cfg *config.RunConfig, schema []types.DataType, runID string, summary *Summary, log *zap.Logger) error {
	w, err := registry.CreateWriter(cfg.Destination)
	if err != nil {
		return err
	}
	exporter, canExport := w.(ipcExporter)
	if cfg.Output.Path != "" && !canExport {
		return errors.New(errors.ErrorTypeConfig,
			fmt.Sprintf("writer %s cannot be exported; remove output.path or use the arrow writer", cfg.Destination.Type))
	}

	b, err := registry.CreateSource(ctx, cfg.Source, schema)
	if err != nil {
		return err
	}
	if c, ok := b.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				log.Warn("failed to close source", zap.Error(err))
			}
		}()
	}

	d := dispatcher.New[writer.Writer](b, w, cfg.Source.Partitions, schema,
		dispatcher.WithLogger(logger.Component("dispatcher")),
		dispatcher.WithMaxWorkers(cfg.Performance.MaxWorkers),
		dispatcher.WithRunID(runID))

	log.Info("starting export",
		zap.Int("partitions", len(cfg.Source.Partitions)),
		zap.Int("columns", len(schema)),
		zap.Int("max_workers", cfg.Performance.MaxWorkers))

	tracker := metrics.NewThroughputTracker(cfg.Source.Type, cfg.Destination.Type)
	start := time.Now()
	run := d.Run
	if cfg.Performance.CheckEveryCell {
		run = d.RunChecked
	}
	filled, err := run(ctx)
	elapsed := time.Since(start)
	summary.DurationMillis = elapsed.Milliseconds()
	if err != nil {
		return err
	}

	summary.Rows = filled.NRows()
	tracker.Increment(int64(filled.NRows() * filled.NCols()))
	summary.CellsPerSecond = tracker.GetAndReset()

	if cfg.Output.Path == "" {
		return nil
	}
	n, err := writeOutput(ctx, cfg.Output, exporter)
	summary.OutputBytes = n
	if err != nil {
		return err
	}
	log.Info("export written",
		zap.String("output", cfg.Output.Path),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// countingWriter counts bytes passed to the sink.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeOutput streams the IPC file through the configured compression into
// the sink and reports the number of bytes stored.
func writeOutput(ctx context.Context, out config.OutputConfig, exporter ipcExporter) (int64, error) {
	algo, err := compression.ParseAlgorithm(out.Compression)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeConfig, "invalid output.compression")
	}

	dst, err := sink.Open(ctx, out.Path, sink.Options{ContentType: sink.ArrowContentType})
	if err != nil {
		return 0, err
	}
	counter := &countingWriter{w: dst}
	cw, err := compression.NewWriter(counter, algo, compression.LevelFromInt(out.CompressionLevel))
	if err != nil {
		_ = dst.Abort(err)
		return 0, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create compressor")
	}

	// A failed export must not leave a truncated object behind.
	if err := exporter.WriteIPC(cw); err != nil {
		_ = cw.Close()
		_ = dst.Abort(err)
		return counter.n, err
	}
	if err := cw.Close(); err != nil {
		_ = dst.Abort(err)
		return counter.n, errors.Wrap(err, errors.ErrorTypeFile, "failed to flush compressed output")
	}
	if err := dst.Close(); err != nil {
		return counter.n, err
	}
	return counter.n, nil
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}
