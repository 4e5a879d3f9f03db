package mapping

import (
	"strings"

	"github.com/cleared-dev/umsatz/internal/model"
)

// Resolver maps raw counterparty text to canonical names.
type Resolver struct {
	aliases *Table
}

// NewResolver creates a Resolver over an alias table.
func NewResolver(aliases *Table) *Resolver {
	return &Resolver{aliases: aliases}
}

// Resolve returns the canonical name for raw. Unmatched text is returned
// trimmed with whitespace runs collapsed.
func (r *Resolver) Resolve(raw string) string {
	if e, ok := r.aliases.Match(raw); ok {
		return e.Value
	}
	return CleanName(raw)
}

// CleanName trims s and collapses internal whitespace to single spaces.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Categorizer assigns category labels to canonical names.
type Categorizer struct {
	categories *Table
}

// NewCategorizer creates a Categorizer over a category table.
func NewCategorizer(categories *Table) *Categorizer {
	return &Categorizer{categories: categories}
}

// Categorize returns the category for name, or model.Uncategorized.
func (c *Categorizer) Categorize(name string) string {
	if e, ok := c.categories.Match(name); ok {
		return e.Value
	}
	return model.Uncategorized
}

// CategorizeWithFallback retries description when name has no category.
func (c *Categorizer) CategorizeWithFallback(name, description string) string {
	if e, ok := c.categories.Match(name); ok {
		return e.Value
	}
	if e, ok := c.categories.Match(description); ok {
		return e.Value
	}
	return model.Uncategorized
}
