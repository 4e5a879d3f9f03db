package commands_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/umsatz/internal/config"
	"github.com/cleared-dev/umsatz/internal/mapping"
	"github.com/cleared-dev/umsatz/internal/storage"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "umsatz-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "umsatz")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/umsatz")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runUmsatz(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := runUmsatz(t, "init", dir)
	require.NoError(t, err, out)
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := initProject(t)

	expectedDirs := []string{
		"config",
		filepath.Join("data", "raw"),
		filepath.Join("data", "raw", "processed"),
		filepath.Join("data", "processed"),
		"logs",
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
}

func TestInit_Config(t *testing.T) {
	dir := initProject(t)

	cfg, err := config.Load(filepath.Join(dir, "umsatz.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "umsatzliste", cfg.Input.Format)
	assert.Equal(t, filepath.Join(dir, "data", "raw"), cfg.Paths.Inbox)
}

func TestInit_MappingTables(t *testing.T) {
	dir := initProject(t)
	ctx := context.Background()

	aliases, err := mapping.LoadTable(ctx, storage.NewOpener(), filepath.Join(dir, "config", "aliases.yaml"))
	require.NoError(t, err)
	assert.Equal(t, mapping.DefaultAliases().Entries(), aliases.Entries())

	categories, err := mapping.LoadTable(ctx, storage.NewOpener(), filepath.Join(dir, "config", "categories.yaml"))
	require.NoError(t, err)
	assert.Equal(t, mapping.DefaultCategories().Entries(), categories.Entries())
}

func TestInit_Gitignore(t *testing.T) {
	dir := initProject(t)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "data/")
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	dir := initProject(t)

	out, err := runUmsatz(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, out, "already exists")

	out, err = runUmsatz(t, "init", dir, "--force")
	require.NoError(t, err, out)
}

func TestVersion(t *testing.T) {
	out, err := runUmsatz(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit: none")
}

func TestInit_Git(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	out, err := runUmsatz(t, "init", dir, "--git")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Committed configuration")

	files := exec.Command("git", "ls-files")
	files.Dir = dir
	listed, err := files.Output()
	require.NoError(t, err)
	assert.Contains(t, string(listed), "umsatz.yaml")
	assert.Contains(t, string(listed), "config/aliases.yaml")
}
