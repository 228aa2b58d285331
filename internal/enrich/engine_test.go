package enrich

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddstream/internal/catalog"
	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/alanyoungcy/oddstream/internal/livestate"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testIndex() *catalog.Index {
	return catalog.NewIndex(&domain.Catalog{
		Sports:   []domain.SportEntry{{Name: "Football", Code: "S", Active: true}},
		BetTypes: []domain.BetTypeEntry{{Code: "OU", Name: "Total goals"}, {Code: "1X2", Name: "Final result"}},
		Picks: []domain.PickEntry{
			{TipCode: "1", SportCode: "S", TipType: "FT1", BetTypeCode: "1X2", Description: "Home win", Caption: "1"},
			{TipCode: "2", SportCode: "S", TipType: "FT2", BetTypeCode: "1X2", Description: "Away win", Caption: "2"},
			{TipCode: "OVER", SportCode: "S", TipType: "OVER", BetTypeCode: "OU", Description: "Over", Caption: "O"},
			{TipCode: "UNDER", SportCode: "S", TipType: "UNDER", BetTypeCode: "OU", Description: "Under", Caption: "U"},
		},
		Groups: []domain.PickGroupEntry{
			{ID: 7, Name: "Match Result", Order: 1, TipTypes: []string{"FT1", "FT2"}},
			{ID: 9, Name: "Totals", Order: 2, TipTypes: []string{"OVER", "UNDER"}},
		},
	})
}

func TestParseSpecialValue(t *testing.T) {
	sv := ParseSpecialValue("total=2.50, handicap=-1 ,period=1,junk")
	require.NotNil(t, sv.Total)
	require.NotNil(t, sv.Handicap)
	assert.Equal(t, "2.5", sv.Total.String())
	assert.Equal(t, "-1", sv.Handicap.String())
	assert.Equal(t, "1", sv.Params["period"])

	empty := ParseSpecialValue("")
	assert.Nil(t, empty.Total)
	assert.Nil(t, empty.Handicap)

	bad := ParseSpecialValue("total=abc")
	assert.Nil(t, bad.Total)
}

func TestGroupingKeyDeterministic(t *testing.T) {
	a := ParseSpecialValue("total=2.50")
	b := ParseSpecialValue("total=2.5")
	assert.Equal(t, GroupingKey("9", a.Total, a.Handicap), GroupingKey("9", b.Total, b.Handicap))
	assert.Equal(t, "9|2.5|null", GroupingKey("9", a.Total, nil))
	assert.Equal(t, "null|null|null", GroupingKey("", nil, nil))
}

func TestSortOutcomeKeys(t *testing.T) {
	keys := []string{"X", "10", "2", "1", "A"}
	sortOutcomeKeys(keys)
	assert.Equal(t, []string{"1", "2", "10", "A", "X"}, keys)
}

func TestMatchOddsEnrichesAndDegrades(t *testing.T) {
	store := livestate.New()
	store.Load(domain.Snapshot{
		Headers: []domain.MatchHeader{
			{ID: 1, HomeTeam: "Ajax", AwayTeam: "PSV", SportCode: "S"},
			{ID: 2, HomeTeam: "Nobody", AwayTeam: "Else"},
		},
		Bets: []domain.OddsQuote{
			{ID: 100, MatchID: 1, Outcomes: map[string]domain.Outcome{
				"1":  {Value: dec("1.90"), PickCode: "P1"},
				"2":  {Value: dec("3.40"), PickCode: "P2"},
				"ZZ": {Value: dec("9.00"), PickCode: "P3"},
			}},
			{ID: 200, MatchID: 2, Outcomes: map[string]domain.Outcome{
				"1": {Value: dec("2.00")},
			}},
		},
	})
	idx := testIndex()

	got := MatchOdds(store.Snapshot(), idx, 1)
	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, int64(100), rec.ID)
	assert.Equal(t, int64(7), rec.GroupID)
	assert.Equal(t, "Match Result", rec.GroupName)
	require.Len(t, rec.Outcomes, 3)

	assert.Equal(t, "1_S", rec.Outcomes[0].PickKey)
	assert.Equal(t, "Home win", rec.Outcomes[0].Description)
	assert.Equal(t, "Away win", rec.Outcomes[1].Description)

	unknown := rec.Outcomes[2]
	assert.Equal(t, "ZZ", unknown.Key)
	assert.Equal(t, domain.UnknownDescription, unknown.Description)
	assert.Equal(t, domain.UnknownCaption, unknown.Caption)
	assert.Zero(t, unknown.GroupID)

	assert.Empty(t, MatchOdds(store.Snapshot(), idx, 2), "header without sport code")
	assert.Empty(t, MatchOdds(store.Snapshot(), idx, 99), "unknown match")
}

func TestScheduledGroupingCollapse(t *testing.T) {
	m := domain.ScheduledMatch{
		ID:        5,
		HomeTeam:  "Ajax",
		AwayTeam:  "PSV",
		SportCode: "S",
		Bets: map[string]map[string]domain.RawPick{
			"OVER": {
				"total=2.5": {PickCode: "O25", TipType: "OVER", Status: "OPEN", OddsValue: dec("1.80"), BetCode: "B1", SpecialValue: "total=2.5"},
			},
			"UNDER": {
				"total=2.50": {PickCode: "U25", TipType: "UNDER", Status: "OPEN", OddsValue: dec("2.00"), BetCode: "B2", SpecialValue: "total=2.50"},
				"total=2.5,handicap=1": {PickCode: "U25H", TipType: "UNDER", Status: "OPEN", OddsValue: dec("2.10"), BetCode: "B3", SpecialValue: "total=2.5,handicap=1"},
			},
		},
	}

	em := ScheduledMatch(m, testIndex())
	require.Len(t, em.Bets, 2)

	first := em.Bets[0]
	assert.Equal(t, "9|2.5|null", first.Key)
	assert.Equal(t, "O25", first.ID, "first-seen pick seeds the record")
	assert.Equal(t, "B1", first.BetCode)
	assert.Equal(t, "Total goals", first.BetTypeName)
	assert.Equal(t, "Totals", first.GroupName)
	require.Len(t, first.Outcomes, 2)
	assert.Equal(t, "Over", first.Outcomes[0].Description)
	assert.Equal(t, "Under", first.Outcomes[1].Description)

	second := em.Bets[1]
	assert.Equal(t, "9|2.5|1", second.Key)
	require.Len(t, second.Outcomes, 1)
	require.NotNil(t, second.Handicap)
	assert.Equal(t, "1", second.Handicap.String())
}

func TestScheduledUnknownPicksDegrade(t *testing.T) {
	m := domain.ScheduledMatch{
		ID:        6,
		SportCode: "S",
		Bets: map[string]map[string]domain.RawPick{
			"CORNERS": {"": {PickCode: "C1", TipType: "CRN", OddsValue: dec("1.50")}},
			"CARDS":   {"": {PickCode: "K1", TipType: "CRD", OddsValue: dec("1.70")}},
		},
	}
	em := ScheduledMatch(m, testIndex())
	require.Len(t, em.Bets, 1)
	b := em.Bets[0]
	assert.False(t, b.Known())
	assert.Equal(t, "null|null|null", b.Key)
	assert.Equal(t, "K1", b.ID)
	require.Len(t, b.Outcomes, 2)
	for _, o := range b.Outcomes {
		assert.Equal(t, domain.UnknownDescription, o.Description)
	}

	m.SportCode = ""
	assert.Empty(t, ScheduledMatch(m, testIndex()).Bets)
}

func TestScheduledUnknownGroupsCollapseByLine(t *testing.T) {
	m := domain.ScheduledMatch{
		ID:        7,
		SportCode: "S",
		Bets: map[string]map[string]domain.RawPick{
			"CORNERS": {"total=9.5": {PickCode: "C1", TipType: "CRN", OddsValue: dec("1.50")}},
			"CARDS":   {"total=9.50": {PickCode: "K1", TipType: "CRD", OddsValue: dec("1.70")}},
		},
	}
	em := ScheduledMatch(m, testIndex())
	require.Len(t, em.Bets, 1)
	assert.Equal(t, "null|9.5|null", em.Bets[0].Key)
	assert.Len(t, em.Bets[0].Outcomes, 2)
}
