package domain

// UnknownQuestion is the placeholder question used when market metadata
// cannot be resolved for a position's token.
const UnknownQuestion = "Unknown market"

// Market represents a Polymarket prediction market. Immutable once fetched;
// cached by ID for the process lifetime.
type Market struct {
	ID        string
	Question  string
	Slug      string
	Tags      []string
	Liquidity float64
	Volume    float64
	Active    bool
}

// PlaceholderMarket returns the stand-in market used when metadata lookup
// fails. Downstream components treat it exactly like a known market.
func PlaceholderMarket(id string) Market {
	return Market{
		ID:       id,
		Question: UnknownQuestion,
		Tags:     []string{},
		Active:   true,
	}
}
