// Package catalog loads the provider's reference catalog and builds the
// lookup structures used to join raw odds against it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// Source fetches catalog data from the provider.
type Source interface {
	GetSports(ctx context.Context) ([]domain.SportEntry, error)
	GetDictionary(ctx context.Context) (domain.Dictionary, error)
}

// Loader fetches the reference catalog and remembers the last successful
// result. When a cache is configured, a cached catalog younger than the TTL
// is reused instead of hitting the provider.
type Loader struct {
	source Source
	cache  domain.CatalogCache
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu   sync.RWMutex
	last *domain.Catalog
}

// NewLoader creates a Loader. cache may be nil.
func NewLoader(source Source, cache domain.CatalogCache, ttl time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "catalog_loader")),
		now:    time.Now,
	}
}

// Load returns the current catalog, fetching sports and dictionaries
// concurrently. A failed fetch leaves the last successful catalog untouched.
func (l *Loader) Load(ctx context.Context) (*domain.Catalog, error) {
	if cat, ok := l.fromCache(ctx); ok {
		l.remember(cat)
		return cat, nil
	}

	var (
		sports []domain.SportEntry
		dict   domain.Dictionary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sports, err = l.source.GetSports(gctx)
		if err != nil {
			return fmt.Errorf("sports: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		dict, err = l.source.GetDictionary(gctx)
		if err != nil {
			return fmt.Errorf("dictionary: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog: fetch: %w", err)
	}
	if len(sports) == 0 {
		return nil, fmt.Errorf("catalog: fetch: provider returned no sports")
	}

	cat := &domain.Catalog{
		Sports:    sports,
		BetTypes:  dict.BetTypes,
		Picks:     dict.Picks,
		Groups:    dict.Groups,
		FetchedAt: l.now().UTC(),
	}
	l.remember(cat)

	l.logger.InfoContext(ctx, "catalog fetched",
		slog.Int("sports", len(cat.Sports)),
		slog.Int("bet_types", len(cat.BetTypes)),
		slog.Int("picks", len(cat.Picks)),
		slog.Int("groups", len(cat.Groups)),
	)

	if l.cache != nil && l.ttl > 0 {
		if err := l.cache.Set(ctx, *cat, l.ttl); err != nil {
			l.logger.WarnContext(ctx, "catalog cache write failed", slog.String("error", err.Error()))
		}
	}
	return cat, nil
}

// Last returns the last successfully loaded catalog.
func (l *Loader) Last() (*domain.Catalog, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last, l.last != nil
}

func (l *Loader) remember(cat *domain.Catalog) {
	l.mu.Lock()
	l.last = cat
	l.mu.Unlock()
}

func (l *Loader) fromCache(ctx context.Context) (*domain.Catalog, bool) {
	if l.cache == nil || l.ttl <= 0 {
		return nil, false
	}
	cached, err := l.cache.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			l.logger.WarnContext(ctx, "catalog cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	if len(cached.Sports) == 0 || l.now().Sub(cached.FetchedAt) >= l.ttl {
		return nil, false
	}
	l.logger.DebugContext(ctx, "catalog served from cache",
		slog.Time("fetched_at", cached.FetchedAt),
	)
	return &cached, true
}
