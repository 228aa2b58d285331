package catalog

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// SportTable maps user-facing sport selectors (code or name) to the
// provider's canonical sport code.
type SportTable struct {
	entries []domain.SportEntry
	byCode  map[string]domain.SportEntry
	byFold  map[string]string // lower-cased code or name -> code
}

// NewSportTable builds the table from catalog entries. When two entries
// share a name, the active one wins.
func NewSportTable(entries []domain.SportEntry) *SportTable {
	t := &SportTable{
		entries: entries,
		byCode:  make(map[string]domain.SportEntry, len(entries)),
		byFold:  make(map[string]string, 2*len(entries)),
	}
	for _, e := range entries {
		code := strings.TrimSpace(e.Code)
		if code == "" {
			continue
		}
		t.byCode[code] = e
		t.index(strings.ToLower(code), e)
		if name := strings.TrimSpace(e.Name); name != "" {
			t.index(strings.ToLower(name), e)
		}
	}
	return t
}

func (t *SportTable) index(key string, e domain.SportEntry) {
	if prev, ok := t.byFold[key]; ok && t.byCode[prev].Active && !e.Active {
		return
	}
	t.byFold[key] = strings.TrimSpace(e.Code)
}

// Resolve returns the canonical code for a sport code or name.
func (t *SportTable) Resolve(selector string) (string, error) {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return "", fmt.Errorf("catalog: empty sport selector: %w", domain.ErrUnknownSport)
	}
	if _, ok := t.byCode[sel]; ok {
		return sel, nil
	}
	if code, ok := t.byFold[strings.ToLower(sel)]; ok {
		return code, nil
	}
	return "", fmt.Errorf("catalog: sport %q: %w", selector, domain.ErrUnknownSport)
}

// Name returns the display name of a sport code, or the code itself when
// the code is unknown.
func (t *SportTable) Name(code string) string {
	if e, ok := t.byCode[code]; ok && e.Name != "" {
		return e.Name
	}
	return code
}

// Active returns the active sports in catalog order.
func (t *SportTable) Active() []domain.SportEntry {
	var out []domain.SportEntry
	for _, e := range t.entries {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}
