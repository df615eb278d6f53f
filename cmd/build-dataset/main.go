// Command build-dataset turns a directory of match files into the training
// CSV and the SQLite corpus the server reads player form from.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/chase/internal/adapters/repository"
	"github.com/okian/chase/internal/config"
	"github.com/okian/chase/internal/corpus"
	"github.com/okian/chase/pkg/logger"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type flags struct {
	dataDir   string
	out       string
	store     string
	workers   int
	queueSize int
	noStore   bool
	jsonOut   bool
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:     "build-dataset",
		Short:   "Build the training dataset and player form store",
		Long:    `Reads every match file in the data directory, writes the labelled chase rows to a CSV and stores all rows plus the rolling player form table in SQLite.`,
		Version: Version + " (" + GitCommit + ")",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, f)
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				return err
			}
			rep, err := run(cmd.Context(), cfg, !f.noStore)
			if err != nil {
				return err
			}
			return printReport(cmd, rep, f.jsonOut)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&f.dataDir, "data-dir", "d", "", "directory of match files (overrides data_dir)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "training CSV path (overrides out_csv)")
	cmd.Flags().StringVar(&f.store, "store", "", "SQLite corpus path (overrides store_path)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "ingestion workers (overrides worker_count)")
	cmd.Flags().IntVar(&f.queueSize, "queue-size", 0, "ingestion queue capacity (overrides queue_size)")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "skip writing the SQLite corpus")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the report as JSON")
	return cmd
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f flags) {
	fs := cmd.Flags()
	if fs.Changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
	if fs.Changed("out") {
		cfg.OutCSV = f.out
	}
	if fs.Changed("store") {
		cfg.StorePath = f.store
	}
	if fs.Changed("workers") && f.workers > 0 {
		cfg.WorkerCount = f.workers
	}
	if fs.Changed("queue-size") && f.queueSize > 0 {
		cfg.QueueSize = f.queueSize
	}
}

func run(ctx context.Context, cfg *config.Config, persist bool) (corpus.Report, error) {
	opts := []corpus.Option{
		corpus.WithWorkers(cfg.WorkerCount),
		corpus.WithQueueSize(cfg.QueueSize),
		corpus.WithDedupeSize(cfg.DedupeSize),
		corpus.WithOutput(cfg.OutCSV),
	}
	if persist && cfg.StorePath != "" {
		store, err := repository.Open(ctx, cfg.StorePath)
		if err != nil {
			return corpus.Report{}, err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, corpus.WithStore(store))
	}
	return corpus.NewBuilder(cfg.DataDir, opts...).Run(ctx)
}

func printReport(cmd *cobra.Command, rep corpus.Report, asJSON bool) error {
	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	_, err := fmt.Fprintf(w,
		"files: %d\nmatches: %d\nfailed: %d\nduplicates: %d\nrows: %d\ntraining rows: %d\nform players: %d\noutput: %s\n",
		rep.Files, rep.Matches, rep.Failed, rep.Duplicates, rep.Rows, rep.TrainingRows, rep.FormPlayers, rep.Output)
	return err
}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Get().Error(ctx, "build-dataset failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
