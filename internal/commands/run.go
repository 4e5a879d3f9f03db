package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/umsatz/internal/export"
	"github.com/cleared-dev/umsatz/internal/model"
	"github.com/cleared-dev/umsatz/internal/pipeline"
)

type runOptions struct {
	configPath string
	input      string
	output     string
	policy     string
	format     string
	preview    int
}

func newRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one bank export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultConfigFile, "path to umsatz.yaml")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "input CSV path or gs:// URI (required)")
	_ = cmd.MarkFlagRequired("input")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path (default <output_dir>/<input>_processed.<ext>)")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "format error policy: skip or abort (default from config)")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: csv, json or sql (default from config)")
	cmd.Flags().IntVar(&opts.preview, "preview", 0, "print the first N processed rows")

	return cmd
}

func runRun(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()

	a, err := loadApp(opts.configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := outputFormat(a.cfg.Output.Format, opts.format)
	if err != nil {
		return err
	}

	p, err := a.pipeline(ctx, opts.policy)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = a.outputFor(opts.input, format)
	}

	res, err := a.runOne(ctx, p, opts.input, output, format)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSummary(out, res, opts.input, outputLabel(format, output, a.cfg.Output.SQL.Table))
	if opts.preview > 0 {
		return printPreview(out, res.Transactions, opts.preview)
	}
	return nil
}

func outputFormat(configured, flag string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	return export.ParseFormat(configured)
}

func outputLabel(format export.Format, output, table string) string {
	if format == export.FormatSQL {
		return "sql:" + table
	}
	return output
}

func printSummary(w io.Writer, res *pipeline.Result, input, output string) {
	fmt.Fprintf(w, "%s: %d of %d rows written to %s", input, res.Written, res.Read, output)
	if n := len(res.Skipped); n > 0 {
		fmt.Fprintf(w, " (%d skipped)", n)
	}
	fmt.Fprintln(w)

	if err := res.SkipError(); err != nil {
		fmt.Fprint(w, err)
	}
}

func printPreview(w io.Writer, txns []model.Transaction, n int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tCOUNTERPARTY\tCATEGORY")
	for i, t := range txns {
		if i >= n {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Date.Format("2006-01-02"), export.FormatAmount(t.Amount), t.Counterparty, t.Category)
	}
	return tw.Flush()
}
