package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// Payload is the typed content of one JSON frame.
type Payload struct {
	Sports  []domain.SportEntry
	Headers []domain.HeaderPatch
	Bets    []domain.OddsPatch
}

// Empty reports whether the payload carries nothing.
func (p Payload) Empty() bool {
	return len(p.Sports) == 0 && len(p.Headers) == 0 && len(p.Bets) == 0
}

type wirePayload struct {
	Sports  []wireSport  `json:"sports"`
	Headers []wireHeader `json:"headers"`
	Bets    []wireBet    `json:"bets"`
}

type wireSport struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Active *bool  `json:"active"`
}

type wireHeader struct {
	ID             *int64             `json:"id"`
	HomeTeam       *string            `json:"homeTeam"`
	AwayTeam       *string            `json:"awayTeam"`
	League         *string            `json:"league"`
	Kickoff        *wireTime          `json:"kickoff"`
	Status         *domain.LiveStatus `json:"status"`
	BettingAllowed *bool              `json:"bettingAllowed"`
	TopMatch       *bool              `json:"topMatch"`
	SportCode      *string            `json:"sportCode"`
}

type wireBet struct {
	ID       *int64                 `json:"id"`
	MatchID  *int64                 `json:"matchId"`
	Outcomes map[string]wireOutcome `json:"outcomes"`
}

type wireOutcome struct {
	Value    *decimal.Decimal `json:"value"`
	PickCode string           `json:"pickCode"`
}

// wireTime accepts RFC 3339 strings or epoch milliseconds.
type wireTime struct {
	time.Time
}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("kickoff %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("kickoff %s: %w", b, err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

var errShape = errors.New("feed: payload shape mismatch")

// DecodePayload validates a JSON frame into typed records. A frame whose
// shape does not match fails as a whole; individual records without an id
// are dropped.
func DecodePayload(raw []byte) (Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", errShape, err)
	}

	var p Payload
	for _, s := range w.Sports {
		code := strings.TrimSpace(s.Code)
		if code == "" {
			continue
		}
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		p.Sports = append(p.Sports, domain.SportEntry{Name: s.Name, Code: code, Active: active})
	}
	for _, h := range w.Headers {
		if h.ID == nil || *h.ID == 0 {
			continue
		}
		hp := domain.HeaderPatch{
			ID:             *h.ID,
			HomeTeam:       h.HomeTeam,
			AwayTeam:       h.AwayTeam,
			League:         h.League,
			Status:         h.Status,
			BettingAllowed: h.BettingAllowed,
			TopMatch:       h.TopMatch,
			SportCode:      h.SportCode,
		}
		if h.Kickoff != nil && !h.Kickoff.IsZero() {
			k := h.Kickoff.Time
			hp.Kickoff = &k
		}
		p.Headers = append(p.Headers, hp)
	}
	for _, b := range w.Bets {
		if b.ID == nil || *b.ID == 0 {
			continue
		}
		op := domain.OddsPatch{ID: *b.ID, MatchID: b.MatchID}
		if b.Outcomes != nil {
			op.Outcomes = make(map[string]domain.Outcome, len(b.Outcomes))
			for key, o := range b.Outcomes {
				if key == "" || o.Value == nil {
					continue
				}
				op.Outcomes[key] = domain.Outcome{Value: *o.Value, PickCode: o.PickCode}
			}
		}
		p.Bets = append(p.Bets, op)
	}
	return p, nil
}
