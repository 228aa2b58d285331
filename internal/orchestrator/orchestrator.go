// Package orchestrator sequences catalog load, snapshot ingestion and the
// update subscription for one sport, and owns the reset lifecycle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/oddstream/internal/catalog"
	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/alanyoungcy/oddstream/internal/enrich"
	"github.com/alanyoungcy/oddstream/internal/feed"
	"github.com/alanyoungcy/oddstream/internal/livestate"
)

// Mode selects what an initialization loads.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeScheduled Mode = "scheduled"
)

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLive:
		return ModeLive, nil
	case ModeScheduled:
		return ModeScheduled, nil
	default:
		return "", fmt.Errorf("orchestrator: mode %q: %w", s, domain.ErrUnsupportedMode)
	}
}

// State is the orchestrator lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
)

// Provider is everything the orchestrator needs from the odds provider.
type Provider interface {
	catalog.Source
	feed.StreamOpener
	GetScheduledMatches(ctx context.Context, sportCode string, interval time.Duration) ([]domain.ScheduledMatch, error)
}

// Config tunes the orchestrator.
type Config struct {
	InitialFraming   feed.Framing
	UpdateFraming    feed.Framing
	BulkTimeout      time.Duration
	EndedBackoff     time.Duration
	FailedBackoff    time.Duration
	ScheduledRefresh string // cron spec, empty disables
}

// Deps are the optional collaborators. Nil members are skipped.
type Deps struct {
	Queue    *feed.Queue
	Audit    domain.AuditLogger
	Archiver domain.SnapshotArchiver
	Alerter  feed.Alerter
}

// InitRequest is the input of Initialize.
type InitRequest struct {
	Mode     Mode
	Sport    string
	Interval time.Duration
}

// InitResult describes the session Initialize committed.
type InitResult struct {
	SessionID string           `json:"sessionId"`
	Mode      Mode             `json:"mode"`
	SportCode string           `json:"sportCode"`
	SportName string           `json:"sportName"`
	Snapshot  *domain.Snapshot `json:"snapshot,omitempty"`
	Scheduled int              `json:"scheduled"`
}

// Status is a point-in-time summary of the orchestrator.
type Status struct {
	State             State      `json:"state"`
	SessionID         string     `json:"sessionId,omitempty"`
	Mode              Mode       `json:"mode,omitempty"`
	SportCode         string     `json:"sportCode,omitempty"`
	SportName         string     `json:"sportName,omitempty"`
	Streaming         bool       `json:"streaming"`
	SubscriptionState string     `json:"subscriptionState,omitempty"`
	Watermark         int64      `json:"watermark,omitempty"`
	Headers           int        `json:"headers"`
	Odds              int        `json:"odds"`
	Scheduled         int        `json:"scheduled"`
	QueueDropped      uint64     `json:"queueDropped"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	RefreshedAt       *time.Time `json:"refreshedAt,omitempty"`
}

// Orchestrator owns the current session. Queries are safe to call
// concurrently with Initialize and Reset.
type Orchestrator struct {
	provider Provider
	loader   *catalog.Loader
	cfg      Config
	deps     Deps
	logger   *slog.Logger

	initializing atomic.Bool

	mu   sync.RWMutex
	sess *session
	gen  uint64
}

// New creates an Orchestrator.
func New(provider Provider, loader *catalog.Loader, cfg Config, deps Deps, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		loader:   loader,
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Initialize loads the catalog, resolves the sport and starts a new
// session in the requested mode. Nothing is committed unless every step
// succeeds; a previous session keeps serving until the new one replaces it.
func (o *Orchestrator) Initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	if !o.initializing.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("orchestrator: initialize: %w", domain.ErrInitInProgress)
	}
	defer o.initializing.Store(false)

	o.mu.RLock()
	gen := o.gen
	o.mu.RUnlock()

	start := time.Now()
	sess, err := o.build(ctx, req)
	if err != nil {
		o.logger.ErrorContext(ctx, "initialize failed",
			slog.String("mode", string(req.Mode)),
			slog.String("sport", req.Sport),
			slog.String("error", err.Error()),
		)
		o.audit(ctx, "", "init_failed", map[string]any{
			"mode":  string(req.Mode),
			"sport": req.Sport,
			"error": err.Error(),
		})
		o.alert(ctx, "init_failed", "Initialization failed",
			fmt.Sprintf("mode %s sport %s: %v", req.Mode, req.Sport, err))
		return nil, err
	}

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		sess.stop()
		return nil, fmt.Errorf("orchestrator: initialize: reset during initialization: %w", domain.ErrAborted)
	}
	prev := o.sess
	o.sess = sess
	o.gen++
	o.mu.Unlock()

	if prev != nil {
		prev.stop()
		o.logger.InfoContext(ctx, "previous session replaced", slog.String("session_id", prev.id))
	}

	res := &InitResult{
		SessionID: sess.id,
		Mode:      sess.mode,
		SportCode: sess.sportCode,
		SportName: sess.sportName,
	}
	detail := map[string]any{"mode": string(sess.mode), "sport": sess.sportCode}
	switch sess.mode {
	case ModeLive:
		view := sess.store.Snapshot()
		snap := domain.Snapshot{
			Headers:   view.Headers(),
			Bets:      view.Odds(),
			Watermark: view.Watermark(),
		}
		res.Snapshot = &snap
		detail["headers"] = len(snap.Headers)
		detail["bets"] = len(snap.Bets)
		detail["watermark"] = snap.Watermark
	case ModeScheduled:
		res.Scheduled = len(sess.scheduledMatches())
		detail["scheduled"] = res.Scheduled
		detail["interval"] = sess.interval.String()
	}
	o.audit(ctx, sess.id, "initialize", detail)

	o.logger.InfoContext(ctx, "session ready",
		slog.String("session_id", sess.id),
		slog.String("mode", string(sess.mode)),
		slog.String("sport", sess.sportCode),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (o *Orchestrator) build(ctx context.Context, req InitRequest) (*session, error) {
	if req.Mode != ModeLive && req.Mode != ModeScheduled {
		return nil, fmt.Errorf("orchestrator: mode %q: %w", req.Mode, domain.ErrUnsupportedMode)
	}

	cat, err := o.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load catalog: %w", err)
	}
	idx := catalog.NewIndex(cat)
	code, err := idx.Sports().Resolve(req.Sport)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &session{
		id:        uuid.NewString(),
		mode:      req.Mode,
		sportCode: code,
		sportName: idx.Sports().Name(code),
		interval:  req.Interval,
		startedAt: time.Now().UTC(),
		index:     idx,
		view:      idx.View(code),
		ctx:       sessCtx,
		cancel:    cancel,
	}
	logger := o.logger.With(slog.String("session_id", sess.id), slog.String("sport", code))

	switch req.Mode {
	case ModeLive:
		err = o.startLive(ctx, sess, logger)
	case ModeScheduled:
		err = o.startScheduled(ctx, sess, logger)
	}
	if err != nil {
		sess.stop()
		return nil, err
	}
	return sess, nil
}

func (o *Orchestrator) startLive(ctx context.Context, sess *session, logger *slog.Logger) error {
	ingestor := feed.NewIngestor(o.provider, o.cfg.InitialFraming, o.cfg.BulkTimeout, logger)
	snap, err := ingestor.FetchSnapshot(ctx, sess.sportCode)
	if err != nil {
		return fmt.Errorf("orchestrator: initial snapshot: %w", err)
	}

	sess.store = livestate.New()
	sess.store.Load(snap)
	sess.sub = feed.NewSubscription(o.provider, sess.store, o.deps.Queue, feed.SubscriptionConfig{
		SessionID:     sess.id,
		Sport:         sess.sportCode,
		Framing:       o.cfg.UpdateFraming,
		EndedBackoff:  o.cfg.EndedBackoff,
		FailedBackoff: o.cfg.FailedBackoff,
	}, logger)
	if err := sess.sub.Start(sess.ctx); err != nil {
		return fmt.Errorf("orchestrator: start subscription: %w", err)
	}

	if o.deps.Archiver != nil {
		go func() {
			if err := o.deps.Archiver.ArchiveSnapshot(sess.ctx, sess.id, sess.sportCode, snap); err != nil {
				logger.Warn("snapshot archive failed", slog.String("error", err.Error()))
			}
		}()
	}
	return nil
}

func (o *Orchestrator) startScheduled(ctx context.Context, sess *session, logger *slog.Logger) error {
	matches, err := o.fetchScheduled(ctx, sess)
	if err != nil {
		return err
	}
	sess.setScheduled(matches)
	o.archiveScheduled(sess, matches, logger)

	if o.cfg.ScheduledRefresh == "" {
		return nil
	}
	sess.refresher = newRefresher(sess.ctx, logger)
	if _, err := sess.refresher.Add(o.cfg.ScheduledRefresh, func(ctx context.Context) {
		o.refreshScheduled(ctx, sess, logger)
	}); err != nil {
		sess.refresher = nil
		return fmt.Errorf("orchestrator: scheduled refresh %q: %w", o.cfg.ScheduledRefresh, err)
	}
	sess.refresher.Start()
	return nil
}

func (o *Orchestrator) fetchScheduled(ctx context.Context, sess *session) ([]domain.ScheduledMatch, error) {
	if o.cfg.BulkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.BulkTimeout)
		defer cancel()
	}
	matches, err := o.provider.GetScheduledMatches(ctx, sess.sportCode, sess.interval)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: scheduled matches: %w", err)
	}
	return matches, nil
}

// refreshScheduled replaces the scheduled set on success and keeps the
// previous set on failure.
func (o *Orchestrator) refreshScheduled(ctx context.Context, sess *session, logger *slog.Logger) {
	matches, err := o.fetchScheduled(ctx, sess)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("scheduled refresh failed, keeping previous set", slog.String("error", err.Error()))
		}
		return
	}
	sess.setScheduled(matches)
	logger.Info("scheduled matches refreshed", slog.Int("count", len(matches)))
	o.archiveScheduled(sess, matches, logger)
}

func (o *Orchestrator) archiveScheduled(sess *session, matches []domain.ScheduledMatch, logger *slog.Logger) {
	if o.deps.Archiver == nil {
		return
	}
	go func() {
		if err := o.deps.Archiver.ArchiveScheduled(sess.ctx, sess.id, sess.sportCode, matches); err != nil {
			logger.Warn("scheduled archive failed", slog.String("error", err.Error()))
		}
	}()
}

// Reset stops the subscription, if any, and discards all session state. It
// is a no-op when nothing is initialized.
func (o *Orchestrator) Reset(ctx context.Context) {
	o.mu.Lock()
	sess := o.sess
	o.sess = nil
	o.gen++
	o.mu.Unlock()

	if sess == nil {
		return
	}
	sess.stop()
	o.audit(ctx, sess.id, "reset", map[string]any{"mode": string(sess.mode), "sport": sess.sportCode})
	o.alert(ctx, "reset", "Session reset", fmt.Sprintf("session %s (%s %s) reset", sess.id, sess.mode, sess.sportCode))
	o.logger.InfoContext(ctx, "session reset", slog.String("session_id", sess.id))
}

func (o *Orchestrator) current() *session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sess
}

func (o *Orchestrator) liveSession() *session {
	if s := o.current(); s != nil && s.mode == ModeLive {
		return s
	}
	return nil
}

// GetLiveData returns the current live state, or false when no live
// session holds a snapshot.
func (o *Orchestrator) GetLiveData() (domain.LiveData, bool) {
	s := o.liveSession()
	if s == nil {
		return domain.LiveData{}, false
	}
	view := s.store.Snapshot()
	if !view.Loaded() {
		return domain.LiveData{}, false
	}
	return view.LiveData(), true
}

// IsStreaming reports whether the update subscription is running.
func (o *Orchestrator) IsStreaming() bool {
	s := o.liveSession()
	return s != nil && s.sub.Active()
}

// GetEnrichedMatchOdds returns the enriched quotes of one live match.
func (o *Orchestrator) GetEnrichedMatchOdds(matchID int64) []domain.EnrichedOdds {
	s := o.liveSession()
	if s == nil {
		return []domain.EnrichedOdds{}
	}
	return enrich.MatchOdds(s.store.Snapshot(), s.index, matchID)
}

// GetEnrichedScheduledMatches returns the scheduled matches with grouped,
// labelled bets.
func (o *Orchestrator) GetEnrichedScheduledMatches() []domain.EnrichedScheduledMatch {
	s := o.current()
	if s == nil || s.mode != ModeScheduled {
		return []domain.EnrichedScheduledMatch{}
	}
	return enrich.ScheduledMatches(s.scheduledMatches(), s.index)
}

// GetFilteredHeadersBySport returns the live headers of the session's sport.
func (o *Orchestrator) GetFilteredHeadersBySport() []domain.MatchHeader {
	s := o.liveSession()
	if s == nil {
		return []domain.MatchHeader{}
	}
	code := s.sportCode
	return s.store.Snapshot().HeadersWhere(func(h domain.MatchHeader) bool {
		return h.SportCode == code
	})
}

// GetCatalogView returns the catalog view of the session's sport.
func (o *Orchestrator) GetCatalogView() (*catalog.View, bool) {
	s := o.current()
	if s == nil {
		return nil, false
	}
	return s.view, true
}

// Status summarises the orchestrator state.
func (o *Orchestrator) Status() Status {
	st := Status{State: StateUninitialized}
	if o.deps.Queue != nil {
		st.QueueDropped = o.deps.Queue.Dropped()
	}
	s := o.current()
	if s != nil {
		st.State = StateReady
		st.SessionID = s.id
		st.Mode = s.mode
		st.SportCode = s.sportCode
		st.SportName = s.sportName
		started := s.startedAt
		st.StartedAt = &started
		switch s.mode {
		case ModeLive:
			view := s.store.Snapshot()
			st.Streaming = s.sub.Active()
			st.SubscriptionState = string(s.sub.State())
			st.Watermark = view.Watermark()
			st.Headers = view.HeaderCount()
			st.Odds = view.OddsCount()
		case ModeScheduled:
			st.Scheduled = len(s.scheduledMatches())
			if ms := s.refreshedAt.Load(); ms > 0 {
				t := time.UnixMilli(ms).UTC()
				st.RefreshedAt = &t
			}
		}
	}
	if o.initializing.Load() {
		st.State = StateInitializing
	}
	return st
}

// Ready reports whether a session is committed.
func (o *Orchestrator) Ready() bool {
	return o.current() != nil
}

func (o *Orchestrator) audit(ctx context.Context, sessionID, event string, detail map[string]any) {
	if o.deps.Audit == nil {
		return
	}
	if err := o.deps.Audit.Log(context.WithoutCancel(ctx), sessionID, event, detail); err != nil {
		o.logger.WarnContext(ctx, "audit log write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) alert(ctx context.Context, event, title, message string) {
	if o.deps.Alerter == nil {
		return
	}
	if err := o.deps.Alerter.Notify(context.WithoutCancel(ctx), event, title, message); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
