package catalog

import (
	"sort"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// GroupView is a pick group together with the picks it owns for one sport.
type GroupView struct {
	domain.PickGroupEntry
	Picks []domain.PickEntry `json:"picks"`
}

// View is the catalog scoped to a single sport.
type View struct {
	SportCode string                `json:"sportCode"`
	SportName string                `json:"sportName"`
	BetTypes  []domain.BetTypeEntry `json:"betTypes"`
	Groups    []GroupView           `json:"groups"`
	Ungrouped []domain.PickEntry    `json:"ungrouped"`
}

// View builds the per-sport catalog view. Groups are ordered by display
// order; a pick appears under the single group that owns it.
func (idx *Index) View(sportCode string) *View {
	v := &View{
		SportCode: sportCode,
		SportName: idx.sports.Name(sportCode),
	}

	var groups []domain.PickGroupEntry
	for _, g := range idx.groups {
		if g.SportCode == "" || g.SportCode == sportCode {
			groups = append(groups, g)
		}
	}
	sortGroups(groups)

	pos := make(map[int64]int, len(groups))
	for _, g := range groups {
		pos[g.ID] = len(v.Groups)
		v.Groups = append(v.Groups, GroupView{PickGroupEntry: g})
	}

	betTypes := make(map[string]struct{})
	for _, p := range idx.picks {
		if p.SportCode != sportCode {
			continue
		}
		if p.BetTypeCode != "" {
			betTypes[p.BetTypeCode] = struct{}{}
		}
		g, ok := idx.GroupForPick(p)
		if !ok {
			v.Ungrouped = append(v.Ungrouped, p)
			continue
		}
		i := pos[g.ID]
		v.Groups[i].Picks = append(v.Groups[i].Picks, p)
	}

	for i := range v.Groups {
		sortPicks(v.Groups[i].Picks)
	}
	sortPicks(v.Ungrouped)

	for code := range betTypes {
		if bt, ok := idx.betTypes[code]; ok {
			v.BetTypes = append(v.BetTypes, bt)
		} else {
			v.BetTypes = append(v.BetTypes, domain.BetTypeEntry{Code: code})
		}
	}
	sort.Slice(v.BetTypes, func(i, j int) bool { return v.BetTypes[i].Code < v.BetTypes[j].Code })
	return v
}

func sortPicks(picks []domain.PickEntry) {
	sort.Slice(picks, func(i, j int) bool { return picks[i].TipCode < picks[j].TipCode })
}
