package mapping

// DefaultAliases returns the sample alias table written by init.
func DefaultAliases() *Table {
	return NewTable([]Entry{
		{Pattern: "BILLA", Value: "Billa"},
		{Pattern: "SPAR", Value: "Spar"},
		{Pattern: "HOFER", Value: "Hofer"},
		{Pattern: "AMZN", Value: "Amazon"},
		{Pattern: "AMAZON", Value: "Amazon"},
		{Pattern: "NETFLIX", Value: "Netflix"},
		{Pattern: "SPOTIFY", Value: "Spotify"},
		{Pattern: "WIENER LINIEN", Value: "Wiener Linien"},
		{Pattern: "OEBB", Value: "OEBB"},
		{Pattern: "WIEN ENERGIE", Value: "Wien Energie"},
		{Pattern: "A1 TELEKOM", Value: "A1"},
	})
}

// DefaultCategories returns the sample category table written by init.
func DefaultCategories() *Table {
	return NewTable([]Entry{
		{Pattern: "Billa", Value: "Groceries"},
		{Pattern: "Spar", Value: "Groceries"},
		{Pattern: "Hofer", Value: "Groceries"},
		{Pattern: "Amazon", Value: "Shopping"},
		{Pattern: "Netflix", Value: "Subscriptions"},
		{Pattern: "Spotify", Value: "Subscriptions"},
		{Pattern: "Wiener Linien", Value: "Transport"},
		{Pattern: "OEBB", Value: "Transport"},
		{Pattern: "Wien Energie", Value: "Utilities"},
		{Pattern: "A1", Value: "Utilities"},
	})
}
