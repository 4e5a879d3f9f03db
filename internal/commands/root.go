package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/umsatz/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "umsatz",
		Short:   "Normalize and categorize bank transaction exports",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}
