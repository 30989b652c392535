package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/artistcompare/internal/app"
	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

func newHistoryCmd(s *state) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "history",
		Short: "Lists recent comparisons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("-n must be positive, got %d", limit)
			}
			if !s.cfg.HistoryEnabled() {
				return errors.New("comparison history is disabled (storage.driver=none)")
			}
			repo, closeStore, err := app.OpenStore(s.cfg.Storage)
			if err != nil {
				return err
			}
			defer closeStore()

			summaries, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), summaries)
		},
	}
	c.Flags().IntVarP(&limit, "number", "n", 10, "number of runs to show")
	return c
}

func printHistory(out io.Writer, summaries []domain.ComparisonSummary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No comparisons stored yet.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header([]string{"When", "Left", "Tracks", "Right", "Tracks", "Missing", "Run"})
	for _, s := range summaries {
		if err := table.Append([]string{
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.LeftName,
			strconv.Itoa(s.LeftTracks),
			s.RightName,
			strconv.Itoa(s.RightTracks),
			strconv.Itoa(s.MissingFeatures),
			s.RunID,
		}); err != nil {
			return fmt.Errorf("render history: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render history: %w", err)
	}
	return nil
}
