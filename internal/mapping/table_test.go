package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/umsatz/internal/model"
)

func TestResolveLongestKeyWins(t *testing.T) {
	r := NewResolver(NewTable([]Entry{
		{Pattern: "AMZ", Value: "AMAZONISH"},
		{Pattern: "AMZN", Value: "AMAZON"},
	}))

	assert.Equal(t, "AMAZON", r.Resolve("AMZN MKTP"))
	assert.Equal(t, "AMAZONISH", r.Resolve("AMZ-DE"))
}

func TestResolveDeclarationOrderDoesNotBeatLength(t *testing.T) {
	r := NewResolver(NewTable([]Entry{
		{Pattern: "AMZN", Value: "AMAZON"},
		{Pattern: "AMZ", Value: "AMAZONISH"},
	}))

	assert.Equal(t, "AMAZON", r.Resolve("AMZN MKTP"))
}

func TestResolveEqualLengthFirstDeclaredWins(t *testing.T) {
	r := NewResolver(NewTable([]Entry{
		{Pattern: "SPAR", Value: "Spar"},
		{Pattern: "PARK", Value: "Parking"},
	}))

	assert.Equal(t, "Spar", r.Resolve("SPARKASSE"))
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := NewResolver(NewTable([]Entry{{Pattern: "billa", Value: "Billa"}}))

	assert.Equal(t, "Billa", r.Resolve("BILLA DANKT 1234"))
}

func TestResolveExactMatchIsLongest(t *testing.T) {
	r := NewResolver(NewTable([]Entry{
		{Pattern: "WIEN", Value: "Vienna"},
		{Pattern: "WIEN ENERGIE", Value: "Wien Energie"},
	}))

	assert.Equal(t, "Wien Energie", r.Resolve("Wien Energie"))
}

func TestResolveUnmatchedIsCleaned(t *testing.T) {
	r := NewResolver(NewTable(nil))

	assert.Equal(t, "Corner Café", r.Resolve("Corner Café"))
	assert.Equal(t, "Some Shop Ltd", r.Resolve("  Some   Shop\tLtd "))
}

func TestNilTableNeverMatches(t *testing.T) {
	var tbl *Table
	_, ok := tbl.Match("anything")
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
	assert.Nil(t, tbl.Entries())
}

func TestNewTableDuplicatesFirstWins(t *testing.T) {
	tbl := NewTable([]Entry{
		{Pattern: "Billa", Value: "first"},
		{Pattern: "BILLA", Value: "second"},
		{Pattern: "  ", Value: "empty"},
	})

	assert.Equal(t, 1, tbl.Len())
	e, ok := tbl.Match("billa")
	assert.True(t, ok)
	assert.Equal(t, "first", e.Value)
}

func TestCategorize(t *testing.T) {
	c := NewCategorizer(DefaultCategories())

	tests := []struct {
		name string
		want string
	}{
		{"Billa", "Groceries"},
		{"Netflix", "Subscriptions"},
		{"Wiener Linien", "Transport"},
		{"UNKNOWN VENDOR XYZ", model.Uncategorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Categorize(tt.name))
		})
	}
}

func TestCategorizeWithFallback(t *testing.T) {
	c := NewCategorizer(NewTable([]Entry{{Pattern: "MIETE", Value: "Rent"}}))

	assert.Equal(t, "Rent", c.CategorizeWithFallback("Hausverwaltung GmbH", "MIETE OKTOBER"))
	assert.Equal(t, model.Uncategorized, c.Categorize("Hausverwaltung GmbH"))
	assert.Equal(t, model.Uncategorized, c.CategorizeWithFallback("Someone", "something"))
}

func TestDefaultsResolveThenCategorize(t *testing.T) {
	r := NewResolver(DefaultAliases())
	c := NewCategorizer(DefaultCategories())

	name := r.Resolve("AMZN MKTP DE*2K4L")
	assert.Equal(t, "Amazon", name)
	assert.Equal(t, "Shopping", c.Categorize(name))
}
