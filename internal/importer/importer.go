// Package importer reads bank CSV exports into raw transactions.
package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/umsatz/internal/model"
)

// Parser converts a bank CSV file into RawTransactions.
type Parser interface {
	Parse(r io.Reader) ([]model.RawTransaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the inbox directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Options configures the built-in parsers.
type Options struct {
	Comma   rune
	Columns Columns
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		names = append(names, k)
	}
	return names
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	r.Register(&UmsatzlisteParser{Comma: opts.Comma})
	r.Register(NewHeaderParser(opts.Columns, opts.Comma))
	return r
}

// Scan returns the CSV files directly inside dir. A missing dir is empty.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves dir/fileName into processedDir.
func MarkProcessed(dir, processedDir, fileName string) error {
	src := filepath.Join(dir, fileName)

	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(processedDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Opener opens input files by URI.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// FileSource reads one file through a Parser.
type FileSource struct {
	Opener Opener
	URI    string
	Parser Parser
}

// Read opens and parses the file.
func (s *FileSource) Read(ctx context.Context) ([]model.RawTransaction, error) {
	rc, err := s.Opener.Open(ctx, s.URI)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raws, err := s.Parser.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s as %s: %w", s.URI, s.Parser.Format(), err)
	}
	return raws, nil
}

func (s *FileSource) String() string { return s.URI }

// skipBOM drops a leading UTF-8 byte order mark.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && string(b) == "\xef\xbb\xbf" {
		_, _ = br.Discard(3)
	}
	return br
}
