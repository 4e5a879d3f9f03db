package commands

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/umsatz/internal/importer"
)

func newImportCommand() *cobra.Command {
	var configPath, policy, format string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Process every CSV in the inbox and move it to processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, policy, format)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "path to umsatz.yaml")
	cmd.Flags().StringVar(&policy, "policy", "", "format error policy: skip or abort (default from config)")
	cmd.Flags().StringVar(&format, "format", "", "output format: csv, json or sql (default from config)")

	return cmd
}

func runImport(cmd *cobra.Command, configPath, policy, formatFlag string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := loadApp(configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := outputFormat(a.cfg.Output.Format, formatFlag)
	if err != nil {
		return err
	}

	files, err := importer.Scan(a.cfg.Paths.Inbox)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No CSV files in %s\n", a.cfg.Paths.Inbox)
		return nil
	}

	p, err := a.pipeline(ctx, policy)
	if err != nil {
		return err
	}

	var errs *multierror.Error
	for _, f := range files {
		output := a.outputFor(f.Path, format)
		res, err := a.runOne(ctx, p, f.Path, output, format)
		if err != nil {
			a.logger.Error().Err(err).Str("file", f.Name).Msg("import failed")
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}

		if err := importer.MarkProcessed(a.cfg.Paths.Inbox, a.cfg.Paths.Processed, f.Name); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		printSummary(out, res, f.Name, outputLabel(format, output, a.cfg.Output.SQL.Table))
	}

	return errs.ErrorOrNil()
}
