package cmd

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/artistcompare/internal/app"
	"github.com/ewilliams-labs/artistcompare/internal/charts"
	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

func newCompareCmd(s *state) *cobra.Command {
	var chartsDir string
	c := &cobra.Command{
		Use:   "compare <artist1> <artist2>",
		Short: "Compares the top tracks of two artists",
		Long: `Resolves both names on Spotify, fetches up to ten top tracks per artist with
their audio features, and prints both profiles with the averaged features.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.cfg.Validate(); err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), s.cfg, s.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			comparison, err := a.Comparer.Compare(cmd.Context(), args[0], args[1])
			if err != nil {
				if errors.Is(err, domain.ErrInvalidInput) {
					return errors.New("please enter the names of both artists")
				}
				return err
			}

			out := cmd.OutOrStdout()
			if err := printComparison(out, comparison); err != nil {
				return err
			}
			if chartsDir == "" {
				return nil
			}
			paths, err := writeCharts(chartsDir, comparison)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(out, "wrote %s\n", p)
			}
			return nil
		},
	}
	c.Flags().StringVar(&chartsDir, "charts-dir", "", "directory to write scatter, boxplot and violin SVGs into")
	return c
}

func printComparison(out io.Writer, c domain.Comparison) error {
	for _, a := range []domain.ArtistProfile{c.Left, c.Right} {
		fmt.Fprintf(out, "Name:       %s\n", a.Name)
		fmt.Fprintf(out, "Followers:  %s\n", a.FollowersDisplay())
		fmt.Fprintf(out, "Popularity: %d\n", a.Popularity)
		fmt.Fprintf(out, "Genres:     %s\n", a.GenreList())
		if a.HasImage() {
			fmt.Fprintf(out, "Image:      %s\n", a.ImageURL)
		}
		fmt.Fprintln(out)
	}

	if c.MissingFeatures > 0 {
		fmt.Fprintf(out, "Audio features were unavailable for %d track(s); their values count as 0.\n\n", c.MissingFeatures)
	}

	fmt.Fprintln(out, "Average audio features per artist:")
	return renderAverages(out, c.Aggregates)
}

func renderAverages(out io.Writer, rows []domain.AggregateRow) error {
	table := tablewriter.NewWriter(out)
	header := append([]string{"Artist", "Tracks"}, domain.NumericFeatures...)
	table.Header(header)
	for _, row := range rows {
		cells := []string{row.Artist, strconv.Itoa(row.Tracks)}
		for _, feature := range domain.NumericFeatures {
			cells = append(cells, formatMean(row, feature))
		}
		if err := table.Append(cells); err != nil {
			return fmt.Errorf("render averages: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render averages: %w", err)
	}
	return nil
}

func formatMean(row domain.AggregateRow, feature string) string {
	v := row.Mean(feature)
	if row.NoData() || math.IsNaN(v) {
		return "no data"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// writeCharts renders every chart kind into dir as <kind>.svg.
func writeCharts(dir string, c domain.Comparison) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create charts dir: %w", err)
	}
	var paths []string
	for _, kind := range charts.Kinds {
		path := filepath.Join(dir, string(kind)+".svg")
		if err := writeChart(path, kind, c); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeChart(path string, kind charts.Kind, c domain.Comparison) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := charts.Render(kind, c, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
