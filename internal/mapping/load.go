package mapping

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a mapping file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// csvHeader is the header row of CSV mapping files.
var csvHeader = []string{"pattern", "value"}

// Opener opens mapping files by URI.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(p string) (Format, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported mapping file %q: want .yaml, .yml, .json or .csv", p)
	}
}

// LoadTable reads a mapping file and returns its Table.
func LoadTable(ctx context.Context, op Opener, uri string) (*Table, error) {
	entries, err := loadEntries(ctx, op, uri)
	if err != nil {
		return nil, err
	}
	return NewTable(entries), nil
}

// LoadCounterpartyMapping reads a combined counterparty -> category file.
// Each key becomes both an alias for itself and a category rule.
func LoadCounterpartyMapping(ctx context.Context, op Opener, uri string) (aliases, categories *Table, err error) {
	entries, err := loadEntries(ctx, op, uri)
	if err != nil {
		return nil, nil, err
	}
	aliasEntries := make([]Entry, len(entries))
	for i, e := range entries {
		aliasEntries[i] = Entry{Pattern: e.Pattern, Value: e.Pattern}
	}
	return NewTable(aliasEntries), NewTable(entries), nil
}

func loadEntries(ctx context.Context, op Opener, uri string) ([]Entry, error) {
	format, err := FormatFromPath(uri)
	if err != nil {
		return nil, err
	}

	rc, err := op.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("opening mapping: %w", err)
	}
	defer rc.Close()

	entries, err := ReadEntries(rc, format)
	if err != nil {
		return nil, fmt.Errorf("reading mapping %s: %w", uri, err)
	}
	return entries, nil
}

// ReadEntries decodes entries in declaration order.
func ReadEntries(r io.Reader, format Format) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)
	switch format {
	case FormatYAML:
		entries, err = readYAML(r)
	case FormatJSON:
		entries, err = readJSON(r)
	case FormatCSV:
		entries, err = readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported mapping format %q", format)
	}
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if strings.TrimSpace(e.Pattern) == "" {
			return nil, fmt.Errorf("empty pattern for value %q", e.Value)
		}
	}
	return entries, nil
}

// readYAML walks the mapping node directly; decoding into a Go map would
// lose declaration order.
func readYAML(r io.Reader) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of pattern: value", root.Line)
	}

	var entries []Entry
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: pattern and value must be strings", k.Line)
		}
		entries = append(entries, Entry{Pattern: k.Value, Value: v.Value})
	}
	return entries, nil
}

// readJSON streams the top-level object token by token to keep key order.
func readJSON(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("parsing JSON: expected an object of pattern: value")
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing JSON key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing JSON: unexpected token %v", tok)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("parsing JSON value for %q: %w", key, err)
		}
		entries = append(entries, Entry{Pattern: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return entries, nil
}

func readCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading mapping CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for _, rec := range records[1:] {
		entries = append(entries, Entry{Pattern: rec[0], Value: rec[1]})
	}
	return entries, nil
}

// WriteTable writes t as a CSV mapping file.
func WriteTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range t.Entries() {
		if err := cw.Write([]string{e.Pattern, e.Value}); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// WriteYAML writes t as a YAML mapping in declaration order.
func WriteYAML(w io.Writer, t *Table) error {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range t.Entries() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Pattern},
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Value},
		)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}
