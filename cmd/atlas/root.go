package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"atlas/internal/dashboard/client"
	"atlas/internal/platform/config"
	"atlas/internal/platform/logger"
)

// cli holds the persistent flag values shared by every subcommand.
type cli struct {
	cfg     config.Dashboard
	apiURL  string
	timeout time.Duration
	verbose bool
}

func newRootCmd(cfg config.Dashboard) *cobra.Command {
	app := &cli{cfg: cfg}

	root := &cobra.Command{
		Use:   "atlas",
		Short: "Browse country data served by the atlas API",
		Long: `atlas queries the country API started by cmd/server.

Available subcommands:
  list   - Show one page of the name-sorted country list
  show   - Show the full record for a country code
  search - Filter by name, capital, region, or timezone
  region - List every country in a region
  browse - Interactive paged browser with search and region filters`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&app.apiURL, "api-url", cfg.APIURL, "base URL of the atlas API")
	root.PersistentFlags().DurationVar(&app.timeout, "timeout", 15*time.Second, "per-request timeout")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newListCmd(app),
		newShowCmd(app),
		newSearchCmd(app),
		newRegionCmd(app),
		newBrowseCmd(app),
	)
	return root
}

func (app *cli) logger() *slog.Logger {
	level := app.cfg.LogLevel
	if app.verbose {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return logger.NewWithWriter(os.Stderr, level)
}

func (app *cli) client() *client.Client {
	return client.New(app.apiURL,
		client.WithLogger(app.logger()),
		client.WithHTTPClient(&http.Client{Timeout: app.timeout}),
	)
}
