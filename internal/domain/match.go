package domain

import "time"

// LiveStatus is the provider's live-state code for a match. Unknown codes
// are kept verbatim.
type LiveStatus string

const (
	LiveStatusNotStarted LiveStatus = "NOT_STARTED"
	LiveStatusLive       LiveStatus = "LIVE"
	LiveStatusPaused     LiveStatus = "PAUSED"
	LiveStatusFinished   LiveStatus = "FINISHED"
	LiveStatusSuspended  LiveStatus = "SUSPENDED"
)

// MatchHeader is the descriptive part of a live match.
type MatchHeader struct {
	ID             int64      `json:"id"`
	HomeTeam       string     `json:"homeTeam"`
	AwayTeam       string     `json:"awayTeam"`
	League         string     `json:"league"`
	Kickoff        time.Time  `json:"kickoff"`
	Status         LiveStatus `json:"status"`
	BettingAllowed bool       `json:"bettingAllowed"`
	TopMatch       bool       `json:"topMatch"`
	SportCode      string     `json:"sportCode"`
}

// HeaderPatch is an incremental update for a MatchHeader. A nil field was
// absent on the wire and leaves the stored value untouched.
type HeaderPatch struct {
	ID             int64       `json:"id"`
	HomeTeam       *string     `json:"homeTeam,omitempty"`
	AwayTeam       *string     `json:"awayTeam,omitempty"`
	League         *string     `json:"league,omitempty"`
	Kickoff        *time.Time  `json:"kickoff,omitempty"`
	Status         *LiveStatus `json:"status,omitempty"`
	BettingAllowed *bool       `json:"bettingAllowed,omitempty"`
	TopMatch       *bool       `json:"topMatch,omitempty"`
	SportCode      *string     `json:"sportCode,omitempty"`
}

// ApplyTo returns h with every field present in p overwritten.
func (p HeaderPatch) ApplyTo(h MatchHeader) MatchHeader {
	h.ID = p.ID
	if p.HomeTeam != nil {
		h.HomeTeam = *p.HomeTeam
	}
	if p.AwayTeam != nil {
		h.AwayTeam = *p.AwayTeam
	}
	if p.League != nil {
		h.League = *p.League
	}
	if p.Kickoff != nil {
		h.Kickoff = *p.Kickoff
	}
	if p.Status != nil {
		h.Status = *p.Status
	}
	if p.BettingAllowed != nil {
		h.BettingAllowed = *p.BettingAllowed
	}
	if p.TopMatch != nil {
		h.TopMatch = *p.TopMatch
	}
	if p.SportCode != nil {
		h.SportCode = *p.SportCode
	}
	return h
}

// Header materialises the patch as a new header, used when no record with
// the same id exists yet.
func (p HeaderPatch) Header() MatchHeader {
	return p.ApplyTo(MatchHeader{})
}
