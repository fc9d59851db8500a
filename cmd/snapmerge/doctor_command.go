package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapmerge/internal/deps"
)

func newDoctorCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the configured external tools are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			missing := 0
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = status.Detail
					if !status.Optional {
						missing++
					}
				}
				rows = append(rows, []string{status.Name, status.Command, state, status.Description})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Tool", "Command", "Status", "Purpose"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintln(out, "Image-only batches work without ffmpeg/ffprobe; video entries need both.")
			if missing > 0 {
				return fmt.Errorf("%d required tools missing", missing)
			}
			return nil
		},
	}
}
