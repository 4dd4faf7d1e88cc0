package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, svc, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer database.Close()

			runs, err := svc.GetRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "no runs")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSCRIPT\tSTATUS\tDURATION\tCREATED\tDETAIL")
			for _, run := range runs {
				detail := run.VideoPath
				if run.Error != "" {
					detail = run.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.1fs\t%s\t%s\n",
					run.ID[:8], run.ScriptName, run.Status, run.Duration,
					run.CreatedAt.Local().Format(time.DateTime), detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
