package orchestrator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/oddstream/internal/catalog"
	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/alanyoungcy/oddstream/internal/feed"
	"github.com/alanyoungcy/oddstream/internal/livestate"
)

// session is everything one successful initialization produced. It is
// built completely before it becomes visible and torn down as a unit.
type session struct {
	id        string
	mode      Mode
	sportCode string
	sportName string
	interval  time.Duration
	startedAt time.Time

	index *catalog.Index
	view  *catalog.View

	ctx    context.Context
	cancel context.CancelFunc

	// live mode
	store *livestate.Store
	sub   *feed.Subscription

	// scheduled mode
	scheduled   atomic.Pointer[[]domain.ScheduledMatch]
	refreshedAt atomic.Int64
	refresher   *refresher
}

func (s *session) scheduledMatches() []domain.ScheduledMatch {
	if p := s.scheduled.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *session) setScheduled(matches []domain.ScheduledMatch) {
	s.scheduled.Store(&matches)
	s.refreshedAt.Store(time.Now().UnixMilli())
}

// stop terminates background work and discards the session's state.
func (s *session) stop() {
	s.cancel()
	if s.sub != nil {
		s.sub.Stop()
		<-s.sub.Done()
	}
	if s.refresher != nil {
		s.refresher.Stop()
	}
	if s.store != nil {
		s.store.Reset()
	}
	s.scheduled.Store(nil)
}

// refresher re-runs a job on a cron schedule within a base context.
type refresher struct {
	cron    *cron.Cron
	baseCtx context.Context
	logger  *slog.Logger
}

func newRefresher(baseCtx context.Context, logger *slog.Logger) *refresher {
	return &refresher{
		cron:    cron.New(),
		baseCtx: baseCtx,
		logger:  logger,
	}
}

func (r *refresher) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		job(r.baseCtx)
	})
}

func (r *refresher) Start() {
	r.cron.Start()
	r.logger.Info("scheduled refresh started")
}

func (r *refresher) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("scheduled refresh stopped")
}
