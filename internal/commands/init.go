package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/umsatz/internal/config"
	"github.com/cleared-dev/umsatz/internal/gitops"
	"github.com/cleared-dev/umsatz/internal/mapping"
)

func newInitCommand() *cobra.Command {
	var force, withGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new umsatz project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, force, withGit)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing umsatz.yaml and mapping files")
	cmd.Flags().BoolVar(&withGit, "git", false, "version umsatz.yaml and the mapping tables in a git repository")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force, withGit bool) error {
	out := cmd.OutOrStdout()
	cfgPath := filepath.Join(dir, defaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	cfg := config.Default()

	// Create directory structure.
	dirs := []string{
		"config",
		cfg.Paths.Inbox,
		cfg.Paths.Processed,
		cfg.Paths.OutputDir,
		filepath.Dir(cfg.Paths.RunLog),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write sample mapping tables.
	tables := []struct {
		path  string
		table *mapping.Table
	}{
		{cfg.Mappings.Aliases, mapping.DefaultAliases()},
		{cfg.Mappings.Categories, mapping.DefaultCategories()},
	}
	for _, tt := range tables {
		if err := writeYAMLTable(filepath.Join(dir, tt.path), tt.table); err != nil {
			return err
		}
	}

	// Keep raw and processed data out of version control.
	gitignore := "data/\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if withGit {
		repo, err := gitops.Init(cmd.Context(), dir)
		if err != nil {
			return err
		}
		hash, err := repo.Commit(cmd.Context(), "init: umsatz project", defaultConfigFile, "config", ".gitignore")
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
		fmt.Fprintf(out, "Committed configuration (%s)\n", hash)
	}

	fmt.Fprintf(out, "Initialized umsatz project at %s\n", dir)
	fmt.Fprintf(out, "Drop bank exports into %s and run: umsatz import\n", filepath.Join(dir, cfg.Paths.Inbox))
	return nil
}

func writeYAMLTable(path string, t *mapping.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := mapping.WriteYAML(f, t); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
