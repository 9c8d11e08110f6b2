package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/export"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

type searchFlags struct {
	title   string
	city    string
	country string
	days    int
	out     string
}

func newSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and write the results as CSV",
		Example: `  jobsearch search --title "Business Analyst" --city Toronto --country Canada --days 10
  jobsearch search --title "Nurse" --country USA --out auto`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.title, "title", "", "job title to search for (required)")
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.country, "country", "", "country")
	cmd.Flags().IntVar(&f.days, "days", 0, "maximum posting age in days (default from config)")
	cmd.Flags().StringVar(&f.out, "out", "-", `output file, "-" for stdout, "auto" for jobs_<title>_<date>.csv`)
	return cmd
}

func runSearch(cmd *cobra.Command, f searchFlags) (err error) {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	rep, err := a.Search(cmd.Context(), jobs.Request{
		JobTitle:   f.title,
		City:       f.city,
		Country:    f.country,
		MaxAgeDays: f.days,
	})
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	path := f.out
	if path == "auto" {
		path = export.Filename(rep.Query.Title, a.Clock().Now())
	}
	if path != "-" && path != "" {
		file, createErr := os.Create(path) // #nosec G304 -- operator-chosen output path.
		if createErr != nil {
			return fmt.Errorf("create output: %w", createErr)
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		w = file
	}
	if err := export.WriteCSV(w, rep.Records); err != nil {
		return err
	}
	a.Logger().Info("search complete",
		zap.String("search_id", rep.SearchID),
		zap.Int("records", len(rep.Records)),
		zap.Bool("fallback", rep.FallbackUsed),
		zap.String("out", path),
	)
	return nil
}
