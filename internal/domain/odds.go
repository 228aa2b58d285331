package domain

import "github.com/shopspring/decimal"

// Outcome is one priced outcome of a live odds quote.
type Outcome struct {
	Value    decimal.Decimal `json:"value"`
	PickCode string          `json:"pickCode"`
}

// OddsQuote is a live bet: the current prices for one bet line of a match,
// keyed by short outcome code (the tip code).
type OddsQuote struct {
	ID       int64              `json:"id"`
	MatchID  int64              `json:"matchId"`
	Outcomes map[string]Outcome `json:"outcomes"`
}

// OddsPatch is an incremental update for an OddsQuote. Merge is shallow: a
// present Outcomes map replaces the stored one as a whole.
type OddsPatch struct {
	ID       int64              `json:"id"`
	MatchID  *int64             `json:"matchId,omitempty"`
	Outcomes map[string]Outcome `json:"outcomes,omitempty"`
}

// ApplyTo returns q with every field present in p overwritten.
func (p OddsPatch) ApplyTo(q OddsQuote) OddsQuote {
	q.ID = p.ID
	if p.MatchID != nil {
		q.MatchID = *p.MatchID
	}
	if p.Outcomes != nil {
		q.Outcomes = p.Outcomes
	}
	return q
}

// Quote materialises the patch as a new quote.
func (p OddsPatch) Quote() OddsQuote {
	return p.ApplyTo(OddsQuote{})
}
