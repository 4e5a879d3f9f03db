// Package gitops keeps umsatz.yaml and the mapping tables under version
// control so table edits can be reviewed and reverted.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	defaultName  = "umsatz"
	defaultEmail = "umsatz@localhost"
)

// Repo is a git working tree.
type Repo struct {
	dir   string
	name  string
	email string
}

// Init creates a repository at dir unless one exists already.
func Init(ctx context.Context, dir string) (*Repo, error) {
	r := &Repo{dir: dir, name: defaultName, email: defaultEmail}
	if IsRepo(dir) {
		return r, nil
	}
	if _, err := r.git(ctx, "init", "-q"); err != nil {
		return nil, err
	}
	return r, nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Commit stages paths and commits them. Returns the short commit hash.
func (r *Repo) Commit(ctx context.Context, message string, paths ...string) (string, error) {
	args := append([]string{"add", "--"}, paths...)
	if _, err := r.git(ctx, args...); err != nil {
		return "", err
	}

	author := fmt.Sprintf("%s <%s>", r.name, r.email)
	if _, err := r.git(ctx, "commit", "-q", "-m", message, "--author", author); err != nil {
		return "", err
	}

	out, err := r.git(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-c", "user.name=" + r.name, "-c", "user.email=" + r.email}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}
