package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dwcheck/internal/application"
	"github.com/JonMunkholm/dwcheck/internal/core"
	"github.com/JonMunkholm/dwcheck/internal/logging"
)

type validateFlags struct {
	dir        string
	postgres   bool
	jsonOut    bool
	noTaxonomy bool
}

func (c *cli) validateCmd() *cobra.Command {
	var f validateFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a dataset",
		Long: `Validate loads event, occurrence and emof and prints the report.

With --dir the directory must contain event_bd.csv, occurrence_bd.csv and
emof_bd.csv. With --postgres the tables named by DWC_EVENT_TABLE,
DWC_OCCURRENCE_TABLE and DWC_EMOF_TABLE are read from DATABASE_URL.

Exit code is 1 when the report has a critical finding.

Example:
  dwcheck validate --dir ./export
  dwcheck validate --dir ./export --json --no-taxonomy
  dwcheck validate --postgres`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runValidate(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.dir, "dir", "", "directory holding the three CSV files")
	cmd.Flags().BoolVar(&f.postgres, "postgres", false, "read the tables from DATABASE_URL")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&f.noTaxonomy, "no-taxonomy", false, "skip the WoRMS name check")
	cmd.MarkFlagsMutuallyExclusive("dir", "postgres")
	cmd.MarkFlagsOneRequired("dir", "postgres")
	return cmd
}

func (c *cli) runValidate(cmd *cobra.Command, f validateFlags) error {
	ctx := cmd.Context()

	source := f.dir
	if f.postgres {
		if !c.cfg.Database.Enabled() {
			return errors.New("--postgres needs DATABASE_URL")
		}
		source = "postgres"
	}
	logger := logging.WithFields(ctx, "source", source)

	var (
		ds  core.Dataset
		err error
	)
	if f.postgres {
		ds, err = c.runner.LoadPostgres(ctx)
	} else {
		ds, err = c.runner.LoadDir(f.dir)
	}
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Debug("dataset loaded")

	report, err := c.runner.Validate(ctx, ds, application.RunOptions{
		SkipTaxonomy: f.noTaxonomy,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	out := cmd.OutOrStdout()
	if f.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	} else if err := writeText(out, report); err != nil {
		return err
	}

	if !report.Passed() {
		return errFailed
	}
	return nil
}
