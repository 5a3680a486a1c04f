package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fxbrief/internal/models"
	"fxbrief/internal/store"
	"fxbrief/pkg/utils"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse previously generated reports",
		Long:  "List, show and compare reports recorded in the history database.",
	}

	cmd.AddCommand(newHistoryListCmd(app))
	cmd.AddCommand(newHistoryShowCmd(app))
	cmd.AddCommand(newHistoryScoresCmd(app))

	return cmd
}

func (a *App) openStore() (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(a.Config.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return st, nil
}

func newHistoryListCmd(app *App) *cobra.Command {
	var limit int
	var since string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			filter := store.RunFilter{Limit: limit}
			if since != "" {
				t, err := time.ParseInLocation(models.DateLayout, since, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --since %q: expected %s", since, models.DateLayout)
				}
				filter.Since = t
			}

			st, err := app.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if runs == nil {
					runs = []models.RunRecord{}
				}
				return output.JSON(runs)
			}

			if len(runs) == 0 {
				output.Dim("No reports recorded yet")
				return nil
			}

			headers := []string{"ID", "DATE", "GENERATED"}
			for _, inst := range models.TrackedInstruments {
				headers = append(headers, string(inst))
			}
			table := NewTable(output, headers...)
			for _, r := range runs {
				row := []string{r.ID, r.Date, FormatDateTime(r.GeneratedAt)}
				scores := make(map[models.Instrument]models.AssetAnalysis, len(r.Analyses))
				for _, a := range r.Analyses {
					scores[a.Symbol] = a
				}
				for _, inst := range models.TrackedInstruments {
					a, ok := scores[inst]
					if !ok {
						row = append(row, "-")
						continue
					}
					row = append(row, output.Score(a.Score, a.Sentiment)+" "+output.Sentiment(a.Sentiment))
				}
				table.AddRow(row...)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of runs to show (0 for all)")
	cmd.Flags().StringVar(&since, "since", "", "only runs generated on or after this date (YYYY-MM-DD)")
	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|date>",
		Short: "Print a recorded report",
		Long: `Print a recorded report. The argument is a run ID, or a YYYY-MM-DD date
for the latest run of that day.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := app.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(run)
			}
			output.Print(run.Text)
			return nil
		},
	}
}

func newHistoryScoresCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "scores <symbol>",
		Short: "Show the score trend of one instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			symbol := strings.ToUpper(args[0])
			if !models.IsTracked(symbol) {
				return fmt.Errorf("unknown symbol %q (tracked: %s)", args[0], trackedList())
			}

			st, err := app.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			points, err := st.ScoreHistory(cmd.Context(), models.Instrument(symbol), limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if points == nil {
					points = []store.ScorePoint{}
				}
				return output.JSON(points)
			}

			if len(points) == 0 {
				output.Dim("No scores recorded for %s", symbol)
				return nil
			}

			output.Bold("%s score history", symbol)
			table := NewTable(output, "DATE", "PRICE", "SCORE", "SENTIMENT")
			for _, p := range points {
				table.AddRow(p.Date, utils.FormatPrice(p.Price), output.Score(p.Score, p.Sentiment), output.Sentiment(p.Sentiment))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "maximum number of entries (0 for all)")
	return cmd
}

func trackedList() string {
	names := make([]string, len(models.TrackedInstruments))
	for i, inst := range models.TrackedInstruments {
		names[i] = string(inst)
	}
	return strings.Join(names, ", ")
}
