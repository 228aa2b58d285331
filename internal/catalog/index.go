package catalog

import (
	"sort"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// Index is the immutable lookup structure built once per catalog fetch. It
// is safe for concurrent use.
type Index struct {
	sports   *SportTable
	picks    map[string]domain.PickEntry
	betTypes map[string]domain.BetTypeEntry
	groups   []domain.PickGroupEntry
	// owners lists, per tip type, the indexes into groups of every group that
	// claims it, in catalog order.
	owners map[string][]int
}

// NewIndex builds an Index from a catalog.
func NewIndex(cat *domain.Catalog) *Index {
	idx := &Index{
		sports:   NewSportTable(cat.Sports),
		picks:    make(map[string]domain.PickEntry, len(cat.Picks)),
		betTypes: make(map[string]domain.BetTypeEntry, len(cat.BetTypes)),
		groups:   cat.Groups,
		owners:   make(map[string][]int),
	}
	for _, p := range cat.Picks {
		key := p.Key()
		if _, dup := idx.picks[key]; dup {
			continue
		}
		idx.picks[key] = p
	}
	for _, bt := range cat.BetTypes {
		if _, dup := idx.betTypes[bt.Code]; dup {
			continue
		}
		idx.betTypes[bt.Code] = bt
	}
	for i, g := range cat.Groups {
		for _, tt := range g.TipTypes {
			idx.owners[tt] = append(idx.owners[tt], i)
		}
	}
	return idx
}

// Sports returns the sport mapping table of the catalog.
func (idx *Index) Sports() *SportTable {
	return idx.sports
}

// Pick looks up a dictionary entry by tip code and sport code.
func (idx *Index) Pick(tipCode, sportCode string) (domain.PickEntry, bool) {
	p, ok := idx.picks[domain.PickKey(tipCode, sportCode)]
	return p, ok
}

// PickByKey looks up a dictionary entry by its composite key.
func (idx *Index) PickByKey(key string) (domain.PickEntry, bool) {
	p, ok := idx.picks[key]
	return p, ok
}

// BetType looks up a bet type by code.
func (idx *Index) BetType(code string) (domain.BetTypeEntry, bool) {
	bt, ok := idx.betTypes[code]
	return bt, ok
}

// GroupFor returns the group owning tipType for sportCode. The first group
// in catalog order that lists the tip type and applies to the sport wins.
func (idx *Index) GroupFor(tipType, sportCode string) (domain.PickGroupEntry, bool) {
	if tipType == "" {
		return domain.PickGroupEntry{}, false
	}
	for _, i := range idx.owners[tipType] {
		g := idx.groups[i]
		if g.SportCode == "" || g.SportCode == sportCode {
			return g, true
		}
	}
	return domain.PickGroupEntry{}, false
}

// GroupForPick resolves the owning group of a dictionary entry.
func (idx *Index) GroupForPick(p domain.PickEntry) (domain.PickGroupEntry, bool) {
	return idx.GroupFor(tipTypeOf(p), p.SportCode)
}

// tipTypeOf returns the tip type a pick is grouped by. Entries without a
// tip type are grouped by their tip code.
func tipTypeOf(p domain.PickEntry) string {
	if p.TipType != "" {
		return p.TipType
	}
	return p.TipCode
}

// sortGroups orders groups by display order, then id.
func sortGroups(groups []domain.PickGroupEntry) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Order != groups[j].Order {
			return groups[i].Order < groups[j].Order
		}
		return groups[i].ID < groups[j].ID
	})
}
