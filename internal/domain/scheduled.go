package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawPick is a single priced outcome of a scheduled match as delivered by
// the provider, before any catalog join.
type RawPick struct {
	PickCode     string          `json:"pickCode"`
	TipType      string          `json:"tipType"`
	Status       string          `json:"status"`
	OddsValue    decimal.Decimal `json:"oddsValue"`
	BetCode      string          `json:"betCode"`
	SpecialValue string          `json:"specialValue"`
}

// ScheduledMatch is a not-yet-live match fetched in bulk. Bets is keyed by
// bet-type code, then by special-value string.
type ScheduledMatch struct {
	ID        int64                         `json:"id"`
	HomeTeam  string                        `json:"homeTeam"`
	AwayTeam  string                        `json:"awayTeam"`
	League    string                        `json:"league"`
	Kickoff   time.Time                     `json:"kickoff"`
	SportCode string                        `json:"sportCode"`
	Bets      map[string]map[string]RawPick `json:"bets"`
}
