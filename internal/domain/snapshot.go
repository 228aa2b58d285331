package domain

import "time"

// Snapshot is the complete initial state produced by the one-shot bulk
// fetch of the initial feed.
type Snapshot struct {
	Sports    []SportEntry  `json:"sports"`
	Headers   []MatchHeader `json:"headers"`
	Bets      []OddsQuote   `json:"bets"`
	Watermark int64         `json:"watermark"`
}

// LiveData is a point-in-time read of the live state.
type LiveData struct {
	Headers   []MatchHeader `json:"headers"`
	Odds      []OddsQuote   `json:"odds"`
	Watermark int64         `json:"watermark"`
}

// FeedEventType distinguishes the kinds of events emitted by the
// subscription loop.
type FeedEventType string

const (
	FeedEventPatch  FeedEventType = "patch"
	FeedEventStatus FeedEventType = "status"
)

// FeedEvent is what observers of the live feed receive: either an applied
// patch or a subscription state transition.
type FeedEvent struct {
	Type      FeedEventType `json:"type"`
	SessionID string        `json:"sessionId"`
	Sport     string        `json:"sport"`
	Seq       uint64        `json:"seq"`
	Watermark int64         `json:"watermark,omitempty"`
	Headers   []HeaderPatch `json:"headers,omitempty"`
	Bets      []OddsPatch   `json:"bets,omitempty"`
	State     string        `json:"state,omitempty"`
	Error     string        `json:"error,omitempty"`
	At        time.Time     `json:"at"`
}
