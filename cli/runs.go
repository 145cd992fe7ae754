package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"winequality/config"
	"winequality/db"
)

func runsCmd(configPath *string) *cobra.Command {
	var dbPath string
	var limit int

	c := &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			overrideString(&cfg.Database.Path, dbPath)

			store, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.QueryTrainingRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no training runs recorded")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEXPERIMENT\tMODEL\tTYPE\tMSE\tR2\tTRAIN\tTEST\tTRAINED AT")
			for _, run := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.4f\t%.4f\t%d\t%d\t%s\n",
					run.ID, run.Experiment, run.ModelName, run.ModelType, run.MSE, run.R2,
					run.TrainRows, run.TestRows, run.TrainedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}

	c.Flags().StringVar(&dbPath, "db", "", "Experiment history database (overrides database.path)")
	c.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return c
}
