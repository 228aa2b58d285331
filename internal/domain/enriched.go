package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder labels used when a dictionary entry is missing.
const (
	UnknownDescription = "Unknown Description"
	UnknownCaption     = "N/A"
)

// GroupInfo identifies the pick group an enriched record belongs to. The
// zero value means the record could not be grouped.
type GroupInfo struct {
	GroupID          int64  `json:"groupId"`
	GroupName        string `json:"groupName"`
	GroupDescription string `json:"groupDescription"`
	GroupOrder       int    `json:"groupOrder"`
}

// NewGroupInfo copies the display fields of g.
func NewGroupInfo(g PickGroupEntry) GroupInfo {
	return GroupInfo{
		GroupID:          g.ID,
		GroupName:        g.Name,
		GroupDescription: g.Description,
		GroupOrder:       g.Order,
	}
}

// Known reports whether the record was attached to a group.
func (g GroupInfo) Known() bool {
	return g.GroupID != 0
}

// EnrichedOutcome is one outcome of a live quote joined against the catalog.
type EnrichedOutcome struct {
	Key         string          `json:"key"`
	PickKey     string          `json:"pickKey"`
	PickCode    string          `json:"pickCode"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
	Caption     string          `json:"caption"`
	GroupID     int64           `json:"groupId"`
}

// EnrichedOdds is the read-only enriched view of a live OddsQuote. Its group
// fields are taken from the quote's first outcome.
type EnrichedOdds struct {
	ID        int64  `json:"id"`
	MatchID   int64  `json:"matchId"`
	SportCode string `json:"sportCode"`
	GroupInfo
	Outcomes []EnrichedOutcome `json:"outcomes"`
}

// ScheduledOutcome is one raw pick folded into an enriched scheduled bet.
type ScheduledOutcome struct {
	PickCode    string          `json:"pickCode"`
	TipType     string          `json:"tipType"`
	PickKey     string          `json:"pickKey"`
	Description string          `json:"description"`
	Caption     string          `json:"caption"`
	OddsValue   decimal.Decimal `json:"oddsValue"`
	Status      string          `json:"status"`
}

// EnrichedScheduledBet collapses every raw pick of a match sharing the same
// grouping key into one multi-outcome record.
type EnrichedScheduledBet struct {
	Key          string           `json:"key"`
	ID           string           `json:"id"`
	BetCode      string           `json:"betCode"`
	BetTypeCode  string           `json:"betTypeCode"`
	BetTypeName  string           `json:"betTypeName"`
	Status       string           `json:"status"`
	SpecialValue string           `json:"specialValue"`
	Total        *decimal.Decimal `json:"total"`
	Handicap     *decimal.Decimal `json:"handicap"`
	GroupInfo
	Outcomes []ScheduledOutcome `json:"outcomes"`
}

// EnrichedScheduledMatch is a scheduled match with its bets grouped and
// labelled.
type EnrichedScheduledMatch struct {
	ID        int64                  `json:"id"`
	HomeTeam  string                 `json:"homeTeam"`
	AwayTeam  string                 `json:"awayTeam"`
	League    string                 `json:"league"`
	Kickoff   time.Time              `json:"kickoff"`
	SportCode string                 `json:"sportCode"`
	Bets      []EnrichedScheduledBet `json:"bets"`
}
