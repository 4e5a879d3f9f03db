// Package mapping implements the ranked substring tables used to resolve
// counterparty aliases and assign categories.
package mapping

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Entry maps a pattern to a value.
type Entry struct {
	Pattern string
	Value   string
}

// Table is an ordered, read-only set of entries matched by case-insensitive
// substring, longest pattern first. Equal-length patterns keep declaration
// order.
type Table struct {
	entries []Entry
	ranked  []rankedEntry
}

type rankedEntry struct {
	Entry
	folded string
	length int
}

// NewTable builds a Table from entries in declaration order. Entries with an
// empty pattern are ignored; for case-insensitive duplicates the first wins.
func NewTable(entries []Entry) *Table {
	t := &Table{}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		folded := strings.ToLower(strings.TrimSpace(e.Pattern))
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		t.entries = append(t.entries, e)
		t.ranked = append(t.ranked, rankedEntry{
			Entry:  e,
			folded: folded,
			length: utf8.RuneCountInString(folded),
		})
	}
	sort.SliceStable(t.ranked, func(i, j int) bool {
		return t.ranked[i].length > t.ranked[j].length
	})
	return t
}

// Entries returns the entries in declaration order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return t.entries
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Match returns the entry whose pattern is the longest case-insensitive
// substring of s.
func (t *Table) Match(s string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	folded := strings.ToLower(s)
	for _, r := range t.ranked {
		if strings.Contains(folded, r.folded) {
			return r.Entry, true
		}
	}
	return Entry{}, false
}
