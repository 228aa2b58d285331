package domain

import "time"

// SportEntry is a row of the provider's sport catalog.
type SportEntry struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Active bool   `json:"active"`
}

// BetTypeEntry describes a bet type (market) known to the provider.
type BetTypeEntry struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PickEntry is a dictionary row describing a single outcome (tip) of a bet
// type for one sport. Entries are keyed by PickKey(TipCode, SportCode).
type PickEntry struct {
	TipCode     string `json:"tipCode"`
	SportCode   string `json:"sportCode"`
	TipType     string `json:"tipType"`
	BetTypeCode string `json:"betTypeCode,omitempty"`
	Description string `json:"description"`
	Caption     string `json:"caption"`
}

// Key returns the composite dictionary key of the entry.
func (p PickEntry) Key() string {
	return PickKey(p.TipCode, p.SportCode)
}

// PickGroupEntry is a named cluster of related tip types, e.g. "Match Result".
// A group owns a pick when the pick's tip type appears in TipTypes.
type PickGroupEntry struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Order       int      `json:"order"`
	SportCode   string   `json:"sportCode,omitempty"` // empty means every sport
	TipTypes    []string `json:"tipTypes"`
}

// Catalog is the full reference catalog returned by one successful fetch.
// It is immutable once built and replaced wholesale on re-fetch.
type Catalog struct {
	Sports    []SportEntry     `json:"sports"`
	BetTypes  []BetTypeEntry   `json:"betTypes"`
	Picks     []PickEntry      `json:"picks"`
	Groups    []PickGroupEntry `json:"groups"`
	FetchedAt time.Time        `json:"fetchedAt"`
}

// PickKey builds the composite key used to join an outcome code to its
// dictionary entry: "<tipCode>_<sportCode>".
func PickKey(tipCode, sportCode string) string {
	return tipCode + "_" + sportCode
}

// Dictionary is the bet-type, pick and pick-group reference data.
type Dictionary struct {
	BetTypes []BetTypeEntry   `json:"betTypes"`
	Picks    []PickEntry      `json:"picks"`
	Groups   []PickGroupEntry `json:"groups"`
}
