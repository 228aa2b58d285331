// Package enrich joins raw odds against the reference catalog. Every
// function is pure over its inputs and safe for concurrent use.
package enrich

import (
	"sort"
	"strconv"

	"github.com/alanyoungcy/oddstream/internal/catalog"
	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/alanyoungcy/oddstream/internal/livestate"
)

// MatchOdds enriches every live quote of matchID. The match's sport code is
// taken from its header; an unknown match or a header without a sport code
// yields an empty result.
func MatchOdds(view *livestate.View, idx *catalog.Index, matchID int64) []domain.EnrichedOdds {
	out := []domain.EnrichedOdds{}
	if view == nil || idx == nil {
		return out
	}
	header, ok := view.Header(matchID)
	if !ok || header.SportCode == "" {
		return out
	}
	for _, q := range view.OddsForMatch(matchID) {
		out = append(out, Quote(q, header.SportCode, idx))
	}
	return out
}

// Quote enriches a single live quote. The record's group is the group of
// its first outcome.
func Quote(q domain.OddsQuote, sportCode string, idx *catalog.Index) domain.EnrichedOdds {
	rec := domain.EnrichedOdds{
		ID:        q.ID,
		MatchID:   q.MatchID,
		SportCode: sportCode,
		Outcomes:  make([]domain.EnrichedOutcome, 0, len(q.Outcomes)),
	}
	for i, key := range sortedKeys(q.Outcomes) {
		o := q.Outcomes[key]
		entry, found := idx.Pick(key, sportCode)
		eo := domain.EnrichedOutcome{
			Key:         key,
			PickKey:     domain.PickKey(key, sportCode),
			PickCode:    o.PickCode,
			Value:       o.Value,
			Description: domain.UnknownDescription,
			Caption:     domain.UnknownCaption,
		}
		var group domain.GroupInfo
		if found {
			eo.Description = entry.Description
			eo.Caption = entry.Caption
			if g, ok := idx.GroupForPick(entry); ok {
				group = domain.NewGroupInfo(g)
				eo.GroupID = g.ID
			}
		}
		if i == 0 {
			rec.GroupInfo = group
		}
		rec.Outcomes = append(rec.Outcomes, eo)
	}
	return rec
}

// ScheduledMatches enriches a list of scheduled matches, preserving order.
func ScheduledMatches(matches []domain.ScheduledMatch, idx *catalog.Index) []domain.EnrichedScheduledMatch {
	out := make([]domain.EnrichedScheduledMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, ScheduledMatch(m, idx))
	}
	return out
}

// ScheduledMatch collapses the raw picks of m into grouped multi-outcome
// bets. Picks sharing (group, total, handicap) fold into one record; the
// first pick seen seeds its descriptive fields.
func ScheduledMatch(m domain.ScheduledMatch, idx *catalog.Index) domain.EnrichedScheduledMatch {
	em := domain.EnrichedScheduledMatch{
		ID:        m.ID,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		League:    m.League,
		Kickoff:   m.Kickoff,
		SportCode: m.SportCode,
		Bets:      []domain.EnrichedScheduledBet{},
	}
	if m.SportCode == "" || idx == nil {
		return em
	}

	pos := make(map[string]int)
	for _, betType := range sortedKeys(m.Bets) {
		lines := m.Bets[betType]
		for _, sv := range sortedKeys(lines) {
			raw := lines[sv]
			if raw.SpecialValue == "" {
				raw.SpecialValue = sv
			}
			outcome, group, entry := resolvePick(raw, m.SportCode, idx)
			special := ParseSpecialValue(raw.SpecialValue)

			groupToken := ""
			if group.Known() {
				groupToken = strconv.FormatInt(group.GroupID, 10)
			}
			key := GroupingKey(groupToken, special.Total, special.Handicap)

			if i, ok := pos[key]; ok {
				em.Bets[i].Outcomes = append(em.Bets[i].Outcomes, outcome)
				continue
			}
			pos[key] = len(em.Bets)
			em.Bets = append(em.Bets, domain.EnrichedScheduledBet{
				Key:          key,
				ID:           raw.PickCode,
				BetCode:      raw.BetCode,
				BetTypeCode:  betType,
				BetTypeName:  betTypeName(idx, entry, betType),
				Status:       raw.Status,
				SpecialValue: raw.SpecialValue,
				Total:        special.Total,
				Handicap:     special.Handicap,
				GroupInfo:    group,
				Outcomes:     []domain.ScheduledOutcome{outcome},
			})
		}
	}

	sort.SliceStable(em.Bets, func(i, j int) bool {
		a, b := em.Bets[i], em.Bets[j]
		if a.Known() != b.Known() {
			return a.Known()
		}
		return a.GroupOrder < b.GroupOrder
	})
	return em
}

func resolvePick(raw domain.RawPick, sportCode string, idx *catalog.Index) (domain.ScheduledOutcome, domain.GroupInfo, domain.PickEntry) {
	tip := raw.TipType
	if tip == "" {
		tip = raw.PickCode
	}
	out := domain.ScheduledOutcome{
		PickCode:    raw.PickCode,
		TipType:     raw.TipType,
		PickKey:     domain.PickKey(tip, sportCode),
		Description: domain.UnknownDescription,
		Caption:     domain.UnknownCaption,
		OddsValue:   raw.OddsValue,
		Status:      raw.Status,
	}
	var group domain.GroupInfo
	entry, ok := idx.Pick(tip, sportCode)
	if ok {
		out.Description = entry.Description
		out.Caption = entry.Caption
		if g, found := idx.GroupForPick(entry); found {
			group = domain.NewGroupInfo(g)
		}
	} else if g, found := idx.GroupFor(raw.TipType, sportCode); found {
		group = domain.NewGroupInfo(g)
	}
	return out, group, entry
}

func betTypeName(idx *catalog.Index, entry domain.PickEntry, betType string) string {
	if entry.BetTypeCode != "" {
		if bt, ok := idx.BetType(entry.BetTypeCode); ok {
			return bt.Name
		}
	}
	if bt, ok := idx.BetType(betType); ok {
		return bt.Name
	}
	return ""
}
