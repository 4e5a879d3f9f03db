package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/umsatz/internal/mapping"
)

func newResolveCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resolve <text>...",
		Short: "Show the counterparty and category for raw transaction text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			aliases, categories, err := a.tables(cmd.Context())
			if err != nil {
				return err
			}

			r := mapping.NewResolver(aliases)
			c := mapping.NewCategorizer(categories)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TEXT\tCOUNTERPARTY\tCATEGORY")
			for _, text := range args {
				name := r.Resolve(text)
				category := c.Categorize(name)
				if a.cfg.Pipeline.DescriptionFallback {
					category = c.CategorizeWithFallback(name, text)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", text, name, category)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "path to umsatz.yaml")

	return cmd
}
