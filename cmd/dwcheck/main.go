// Package main provides the dwcheck CLI.
//
// dwcheck validates a Darwin Core event/occurrence/emof dataset from a
// directory of CSV files or a Postgres database, and can also run the HTTP
// validation server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dwcheck/internal/application"
	"github.com/JonMunkholm/dwcheck/internal/config"
	"github.com/JonMunkholm/dwcheck/internal/core"
	_ "github.com/JonMunkholm/dwcheck/internal/core/tables" // Register all table kinds
	"github.com/JonMunkholm/dwcheck/internal/logging"
)

// errFailed signals a report with critical findings. It maps to exit
// code 1 without printing anything further.
var errFailed = errors.New("validation failed")

// cli holds state shared by the subcommands, populated by the root
// command's PersistentPreRunE.
type cli struct {
	envFile  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
	runner *application.Runner
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errFailed):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "dwcheck",
		Short: "Darwin Core dataset validator",
		Long: `dwcheck checks a Darwin Core event/occurrence/emof dataset before
publication: required columns, completeness, coordinates, depth logic,
one-to-many linkage between the tables and scientific names against WoRMS.

Configuration is read from the environment (and an optional .env file).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.init,
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "env file to load if present")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(c.validateCmd())
	root.AddCommand(c.tablesCmd())
	root.AddCommand(c.serveCmd())
	return root
}

// init loads env and config and builds the runner.
func (c *cli) init(cmd *cobra.Command, _ []string) error {
	if c.envFile != "" {
		if err := godotenv.Overload(c.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	c.cfg = cfg

	// Reports go to stdout; keep logs out of the way.
	c.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(c.logger)

	c.runner = application.NewRunner(cfg, application.WithLogger(c.logger))
	return nil
}
