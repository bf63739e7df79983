package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/types"

	// Register every source and writer
	_ "github.com/ajitpratap0/tabflow/pkg/source/csv"
	_ "github.com/ajitpratap0/tabflow/pkg/source/memory"
	_ "github.com/ajitpratap0/tabflow/pkg/source/mysql"
	_ "github.com/ajitpratap0/tabflow/pkg/source/postgres"
	_ "github.com/ajitpratap0/tabflow/pkg/source/synthetic"
	_ "github.com/ajitpratap0/tabflow/pkg/writer/columnar"
	_ "github.com/ajitpratap0/tabflow/pkg/writer/memory"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabflow",
		Short: "tabflow - parallel partitioned export into preallocated columnar buffers",
		Long: `tabflow reads a dataset split into partitions from a source, one goroutine per
partition, and writes every cell straight into its row range of a single
preallocated destination. The populated Arrow destination can be exported as an
Arrow IPC file to a local path, S3 or GCS.`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tabflow v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered sources and writers",
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tNAME\tDESCRIPTION")
			for _, info := range registry.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Kind, info.Name, info.Description)
			}
			_ = tw.Flush()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "types",
		Short: "List the logical cell types",
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tNULLABLE\tWIDTH\tACCEPTS")
			for _, t := range types.All() {
				var accepts []string
				for _, found := range types.All() {
					if types.Verify(t, found) {
						accepts = append(accepts, found.String())
					}
				}
				fmt.Fprintf(tw, "%s\t%t\t%d\t%v\n", t, t.Nullable(), t.NativeWidth(), accepts)
			}
			_ = tw.Flush()
		},
	})

	root.AddCommand(newRunCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var (
		configFile string
		logLevel   string
		maxWorkers int
		checked    bool
		timeout    time.Duration
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run an export",
		Long: `Run an export described by a YAML run configuration. ${VAR} references in the
file are replaced from the environment; ${VAR:-default} supplies a fallback.

Example:
  tabflow run --config orders.yaml --max-workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.RunConfig
			if err := config.Load(configFile, &cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Observability.LogLevel = logLevel
			}
			if cmd.Flags().Changed("max-workers") {
				cfg.Performance.MaxWorkers = maxWorkers
			}
			if checked {
				cfg.Performance.CheckEveryCell = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			summary, err := runExport(ctx, &cfg)
			if summary != nil {
				if perr := summary.Print(cmd.OutOrStdout()); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}

	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the run configuration YAML file (required)")
	_ = runCmd.MarkFlagRequired("config")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum partitions processed at once; 0 runs all partitions concurrently")
	runCmd.Flags().BoolVar(&checked, "check-every-cell", false, "Type check every cell instead of the first row of each partition")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the run after this duration")
	return runCmd
}
