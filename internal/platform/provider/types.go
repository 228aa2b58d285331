package provider

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// flexBool unmarshals from a JSON bool or a "true"/"false"/"1" string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APISport is a row of the /sports response.
type APISport struct {
	Name   string   `json:"name"`
	Code   string   `json:"code"`
	Active flexBool `json:"active"`
}

// APIDictionary is the /dictionary response.
type APIDictionary struct {
	BetTypes []domain.BetTypeEntry `json:"betTypes"`
	Picks    []domain.PickEntry    `json:"picks"`
	Groups   []APIPickGroup        `json:"groups"`
}

// APIPickGroup is a pick group as sent by the provider.
type APIPickGroup struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Order       int      `json:"order"`
	SportCode   string   `json:"sportCode"`
	TipTypes    []string `json:"tipTypes"`
}

// APIScheduledMatch is a row of the /scheduled response.
type APIScheduledMatch struct {
	ID        int64                            `json:"id"`
	HomeTeam  string                           `json:"homeTeam"`
	AwayTeam  string                           `json:"awayTeam"`
	League    string                           `json:"league"`
	Kickoff   time.Time                        `json:"kickoff"`
	SportCode string                           `json:"sportCode"`
	Bets      map[string]map[string]APIRawPick `json:"bets"`
}

// APIRawPick is one priced pick of a scheduled match.
type APIRawPick struct {
	PickCode     string          `json:"pickCode"`
	TipType      string          `json:"tipType"`
	Status       string          `json:"status"`
	OddsValue    decimal.Decimal `json:"oddsValue"`
	BetCode      string          `json:"betCode"`
	SpecialValue string          `json:"specialValue"`
}

// ToDomain converts the sport row.
func (s APISport) ToDomain() domain.SportEntry {
	return domain.SportEntry{
		Name:   strings.TrimSpace(s.Name),
		Code:   strings.TrimSpace(s.Code),
		Active: bool(s.Active),
	}
}

// ToDomain converts the dictionary, dropping rows without a key.
func (d APIDictionary) ToDomain() domain.Dictionary {
	var out domain.Dictionary
	for _, bt := range d.BetTypes {
		if bt.Code != "" {
			out.BetTypes = append(out.BetTypes, bt)
		}
	}
	for _, p := range d.Picks {
		if p.TipCode != "" && p.SportCode != "" {
			out.Picks = append(out.Picks, p)
		}
	}
	for _, g := range d.Groups {
		if g.ID == 0 {
			continue
		}
		out.Groups = append(out.Groups, domain.PickGroupEntry{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			Order:       g.Order,
			SportCode:   g.SportCode,
			TipTypes:    g.TipTypes,
		})
	}
	return out
}

// ToDomain converts the match; sportCode fills in a missing sport.
func (m APIScheduledMatch) ToDomain(sportCode string) domain.ScheduledMatch {
	out := domain.ScheduledMatch{
		ID:        m.ID,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		League:    m.League,
		Kickoff:   m.Kickoff.UTC(),
		SportCode: m.SportCode,
		Bets:      make(map[string]map[string]domain.RawPick, len(m.Bets)),
	}
	if out.SportCode == "" {
		out.SportCode = sportCode
	}
	for betType, lines := range m.Bets {
		inner := make(map[string]domain.RawPick, len(lines))
		for sv, p := range lines {
			inner[sv] = domain.RawPick{
				PickCode:     p.PickCode,
				TipType:      p.TipType,
				Status:       p.Status,
				OddsValue:    p.OddsValue,
				BetCode:      p.BetCode,
				SpecialValue: p.SpecialValue,
			}
		}
		out.Bets[betType] = inner
	}
	return out
}
