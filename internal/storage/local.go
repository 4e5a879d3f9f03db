package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func openLocal(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	return f, nil
}

// localOutput writes to a temp file next to the target and renames it into
// place on Commit.
type localOutput struct {
	path string
	tmp  *os.File
	done bool
}

func createLocal(path string) (Output, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}
	return &localOutput{path: path, tmp: tmp}, nil
}

func (o *localOutput) Write(p []byte) (int, error) {
	if o.done {
		return 0, ErrAlreadyClosed
	}
	return o.tmp.Write(p)
}

func (o *localOutput) Commit() error {
	if o.done {
		return ErrAlreadyClosed
	}
	o.done = true

	if err := o.tmp.Sync(); err != nil {
		o.discard()
		return &IOError{Op: "sync", Path: o.path, Err: err}
	}
	if err := o.tmp.Close(); err != nil {
		os.Remove(o.tmp.Name())
		return &IOError{Op: "close", Path: o.path, Err: err}
	}
	if err := os.Chmod(o.tmp.Name(), 0o644); err != nil {
		os.Remove(o.tmp.Name())
		return &IOError{Op: "chmod", Path: o.path, Err: err}
	}
	if err := os.Rename(o.tmp.Name(), o.path); err != nil {
		os.Remove(o.tmp.Name())
		return &IOError{Op: "rename", Path: o.path, Err: fmt.Errorf("moving temp file into place: %w", err)}
	}
	return nil
}

func (o *localOutput) Abort() error {
	if o.done {
		return ErrAlreadyClosed
	}
	o.done = true
	return o.discard()
}

func (o *localOutput) discard() error {
	o.tmp.Close()
	if err := os.Remove(o.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return &IOError{Op: "remove", Path: o.tmp.Name(), Err: err}
	}
	return nil
}
