package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"snapmerge/internal/batch"
	"snapmerge/internal/classify"
	"snapmerge/internal/compositor"
	"snapmerge/internal/config"
	"snapmerge/internal/journal"
	"snapmerge/internal/logging"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var overwrite bool
	var dryRun bool
	var workers int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run <input-dir> <output-dir>",
		Short: "Restore every export under input-dir into output-dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			input, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
			}
			output, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			level := cfg.Logging.Level
			if verbose {
				level = "debug"
			}
			logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			classifier := classify.New(classify.ToolProber{Binary: cfg.Tools.FFprobe})
			comp := compositor.New(cfg, classifier, logger)
			runner := batch.New(cfg, classifier, comp, logger)

			if !dryRun {
				store, err := journal.Open(cfg.JournalPath())
				if err != nil {
					logger.Warn("run history unavailable", logging.Error(err))
				} else {
					defer store.Close()
					runner.WithJournal(store)
				}
			}

			summary, err := runner.Run(cmd.Context(), batch.Options{
				Input:     input,
				Output:    output,
				Overwrite: overwrite || cfg.Output.Overwrite,
				DryRun:    dryRun,
				Workers:   workers,
			})
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), summary, dryRun)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d entries failed", summary.Failed, len(summary.Results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Reprocess entries whose output already exists")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and report without writing anything")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent entries to process (0 uses the configured value)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func printSummary(out io.Writer, summary batch.Summary, dryRun bool) {
	colorize := shouldColorize(out)

	if len(summary.Results) > 0 {
		rows := make([][]string, 0, len(summary.Results))
		for _, result := range summary.Results {
			detail := result.Output
			if result.Err != nil {
				detail = result.Err.Error()
			}
			rows = append(rows, []string{
				result.Name,
				string(result.Kind),
				string(result.Action),
				detail,
				formatElapsed(result.Elapsed),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Entry", "Kind", "Action", "Output / Error", "Elapsed"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		))
	}

	label := "Restored"
	if dryRun {
		label = "Dry run"
	}
	line := fmt.Sprintf("%s: %d merged, %d copied, %d skipped, %d failed (%s)",
		label, summary.Merged, summary.Copied, summary.Skipped, summary.Failed,
		formatElapsed(summary.Finished.Sub(summary.Started)))
	if summary.Failed > 0 {
		fmt.Fprintln(out, colorLine(line, ansiRed, colorize))
	} else {
		fmt.Fprintln(out, colorLine(line, ansiGreen, colorize))
	}
}

func formatElapsed(elapsed time.Duration) string {
	if elapsed <= 0 {
		return "-"
	}
	return elapsed.Round(time.Millisecond).String()
}
