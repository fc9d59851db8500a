package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"snapmerge/internal/journal"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded restore runs, or the entries of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return printRunEntries(cmd, store, args[0])
			}
			return printRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 lists all)")
	return cmd
}

func printRuns(cmd *cobra.Command, store *journal.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			run.ID,
			run.SourceDir,
			strconv.Itoa(run.Merged),
			strconv.Itoa(run.Copied),
			strconv.Itoa(run.Skipped),
			strconv.Itoa(run.Failed),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Started", "Run ID", "Source", "Merged", "Copied", "Skipped", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	return nil
}

func printRunEntries(cmd *cobra.Command, store *journal.Store, runID string) error {
	entries, err := store.RunEntries(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("list run entries: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "No entries recorded for run %s\n", runID)
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.OutputPath
		if entry.Error != "" {
			detail = entry.Error
		}
		rows = append(rows, []string{
			entry.Name,
			entry.Kind,
			string(entry.Action),
			detail,
			formatElapsed(entry.Elapsed),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Entry", "Kind", "Action", "Output / Error", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}
