// Package livestate holds the authoritative in-memory view of live match
// headers and odds quotes. Writers build a new immutable state and publish
// it with a single atomic swap, so readers never observe a torn patch.
package livestate

import (
	"maps"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// Patch is one incremental update as received from the update feed. All
// parts of a patch become visible to readers together.
type Patch struct {
	Headers []domain.HeaderPatch
	Bets    []domain.OddsPatch
	// Watermark advances the store watermark when greater than zero.
	Watermark int64
}

// Empty reports whether applying p would change nothing.
func (p Patch) Empty() bool {
	return len(p.Headers) == 0 && len(p.Bets) == 0 && p.Watermark <= 0
}

type state struct {
	headers   map[int64]domain.MatchHeader
	odds      map[int64]domain.OddsQuote
	watermark int64
	loaded    bool
	version   uint64
}

var emptyState = &state{
	headers: map[int64]domain.MatchHeader{},
	odds:    map[int64]domain.OddsQuote{},
}

// Store is the live state store. It has a single writer role (ingestion and
// subscription) and any number of concurrent readers.
type Store struct {
	mu  sync.Mutex // serialises writers
	cur atomic.Pointer[state]
}

// New returns an empty, unloaded store.
func New() *Store {
	s := &Store{}
	s.cur.Store(emptyState)
	return s
}

// Load replaces the whole state with the given snapshot.
func (s *Store) Load(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := &state{
		headers:   make(map[int64]domain.MatchHeader, len(snap.Headers)),
		odds:      make(map[int64]domain.OddsQuote, len(snap.Bets)),
		watermark: snap.Watermark,
		loaded:    true,
		version:   s.cur.Load().version + 1,
	}
	for _, h := range snap.Headers {
		next.headers[h.ID] = h
	}
	for _, q := range snap.Bets {
		q.Outcomes = maps.Clone(q.Outcomes)
		next.odds[q.ID] = q
	}
	s.cur.Store(next)
}

// ApplyHeaderPatch merges header patches by id.
func (s *Store) ApplyHeaderPatch(patches []domain.HeaderPatch) {
	s.Apply(Patch{Headers: patches})
}

// ApplyOddsPatch merges odds patches by id.
func (s *Store) ApplyOddsPatch(patches []domain.OddsPatch) {
	s.Apply(Patch{Bets: patches})
}

// Apply merges every part of p and publishes the result atomically.
func (s *Store) Apply(p Patch) {
	if p.Empty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cur.Load()
	next := *prev
	next.version++
	if len(p.Headers) > 0 {
		next.headers = maps.Clone(prev.headers)
		MergeHeaders(next.headers, p.Headers)
	}
	if len(p.Bets) > 0 {
		next.odds = maps.Clone(prev.odds)
		MergeOdds(next.odds, p.Bets)
	}
	if p.Watermark > next.watermark {
		next.watermark = p.Watermark
	}
	s.cur.Store(&next)
}

// Reset discards all headers, odds and the watermark.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Store(&state{
		headers: map[int64]domain.MatchHeader{},
		odds:    map[int64]domain.OddsQuote{},
		version: s.cur.Load().version + 1,
	})
}

// Snapshot returns a read-only point-in-time view.
func (s *Store) Snapshot() *View {
	return &View{st: s.cur.Load()}
}

// MergeHeaders applies patches to dst using replace-present-fields-only
// semantics. Unknown ids are inserted as-is.
func MergeHeaders(dst map[int64]domain.MatchHeader, patches []domain.HeaderPatch) {
	for _, p := range patches {
		if existing, ok := dst[p.ID]; ok {
			dst[p.ID] = p.ApplyTo(existing)
			continue
		}
		dst[p.ID] = p.Header()
	}
}

// MergeOdds applies patches to dst; an outcome map present in a patch
// replaces the stored map as a whole.
func MergeOdds(dst map[int64]domain.OddsQuote, patches []domain.OddsPatch) {
	for _, p := range patches {
		if p.Outcomes != nil {
			p.Outcomes = maps.Clone(p.Outcomes)
		}
		if existing, ok := dst[p.ID]; ok {
			dst[p.ID] = p.ApplyTo(existing)
			continue
		}
		dst[p.ID] = p.Quote()
	}
}

// View is an immutable point-in-time read of the store. Values returned from
// a View share outcome maps with the store; callers must not mutate them.
type View struct {
	st *state
}

// Loaded reports whether a snapshot has been loaded since the last reset.
func (v *View) Loaded() bool { return v.st.loaded }

// Watermark returns the timestamp up to which the state is known complete.
func (v *View) Watermark() int64 { return v.st.watermark }

// Version increases with every applied write.
func (v *View) Version() uint64 { return v.st.version }

// HeaderCount returns the number of stored headers.
func (v *View) HeaderCount() int { return len(v.st.headers) }

// OddsCount returns the number of stored quotes.
func (v *View) OddsCount() int { return len(v.st.odds) }

// Header looks up a header by match id.
func (v *View) Header(id int64) (domain.MatchHeader, bool) {
	h, ok := v.st.headers[id]
	return h, ok
}

// Quote looks up an odds quote by id.
func (v *View) Quote(id int64) (domain.OddsQuote, bool) {
	q, ok := v.st.odds[id]
	return q, ok
}

// Headers returns all headers ordered by kickoff, then id.
func (v *View) Headers() []domain.MatchHeader {
	return v.HeadersWhere(nil)
}

// HeadersWhere returns the headers accepted by keep, ordered by kickoff,
// then id. A nil keep accepts everything.
func (v *View) HeadersWhere(keep func(domain.MatchHeader) bool) []domain.MatchHeader {
	out := make([]domain.MatchHeader, 0, len(v.st.headers))
	for _, h := range v.st.headers {
		if keep == nil || keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Kickoff.Equal(out[j].Kickoff) {
			return out[i].Kickoff.Before(out[j].Kickoff)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Odds returns all quotes ordered by id.
func (v *View) Odds() []domain.OddsQuote {
	out := make([]domain.OddsQuote, 0, len(v.st.odds))
	for _, q := range v.st.odds {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OddsForMatch returns the quotes of one match ordered by id.
func (v *View) OddsForMatch(matchID int64) []domain.OddsQuote {
	var out []domain.OddsQuote
	for _, q := range v.st.odds {
		if q.MatchID == matchID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LiveData materialises the view for callers outside the core.
func (v *View) LiveData() domain.LiveData {
	return domain.LiveData{
		Headers:   v.Headers(),
		Odds:      v.Odds(),
		Watermark: v.st.watermark,
	}
}
