// Package cmd defines the jobsearch command line: serve runs the HTTP API and
// search runs one search and writes CSV.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/app"
	"github.com/JakeFAU/jobsearch-aggregator/internal/config"
	"github.com/JakeFAU/jobsearch-aggregator/internal/engine"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

type appKeyType string

const appKey appKeyType = "app"

// App is the service surface commands use. Tests inject a fake through
// newApp.
type App interface {
	Run(ctx context.Context) error
	Search(ctx context.Context, req jobs.Request) (engine.Report, error)
	Clock() jobs.Clock
	Logger() *zap.Logger
	Close(ctx context.Context) error
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfgFile string) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "jobsearch",
		Short: "Aggregate job postings from APIs, listing pages and search links.",
		Long: `jobsearch queries job APIs, listing pages and JavaScript-rendered portals
for a title, location and recency window, normalizes the postings into one
record set, and falls back to portal search links when no live source answers.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return nil
			}
			return a.Close(context.WithoutCancel(cmd.Context()))
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env JOBSEARCH_* overrides")
	cmd.AddCommand(newServeCmd(), newSearchCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	a, ok := ctx.Value(appKey).(App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
