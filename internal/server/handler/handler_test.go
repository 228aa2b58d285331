package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddstream/internal/catalog"
	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/alanyoungcy/oddstream/internal/orchestrator"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOrchestrator satisfies every service interface of the package.
type fakeOrchestrator struct {
	initErr error
	lastReq orchestrator.InitRequest
	resets  int
	live    *domain.LiveData
	odds    map[int64][]domain.EnrichedOdds
	view    *catalog.View
	sched   []domain.EnrichedScheduledMatch
	headers []domain.MatchHeader
	stream  bool
}

func (f *fakeOrchestrator) Initialize(_ context.Context, req orchestrator.InitRequest) (*orchestrator.InitResult, error) {
	f.lastReq = req
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &orchestrator.InitResult{
		SessionID: "sess-1",
		Mode:      req.Mode,
		SportCode: req.Sport,
		Snapshot:  &domain.Snapshot{Watermark: 9},
	}, nil
}

func (f *fakeOrchestrator) Reset(context.Context) { f.resets++ }

func (f *fakeOrchestrator) Status() orchestrator.Status {
	return orchestrator.Status{State: orchestrator.StateReady, SportCode: "S", Streaming: f.stream}
}

func (f *fakeOrchestrator) GetLiveData() (domain.LiveData, bool) {
	if f.live == nil {
		return domain.LiveData{}, false
	}
	return *f.live, true
}

func (f *fakeOrchestrator) GetFilteredHeadersBySport() []domain.MatchHeader { return f.headers }

func (f *fakeOrchestrator) GetEnrichedMatchOdds(id int64) []domain.EnrichedOdds {
	if o, ok := f.odds[id]; ok {
		return o
	}
	return []domain.EnrichedOdds{}
}

func (f *fakeOrchestrator) IsStreaming() bool { return f.stream }

func (f *fakeOrchestrator) GetCatalogView() (*catalog.View, bool) { return f.view, f.view != nil }

func (f *fakeOrchestrator) GetEnrichedScheduledMatches() []domain.EnrichedScheduledMatch {
	return f.sched
}

func serve(h http.HandlerFunc, method, pattern, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(method+" "+pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSessionInitialize(t *testing.T) {
	f := &fakeOrchestrator{}
	h := NewSessionHandler(f, quietLogger())

	rec := serve(h.Initialize, http.MethodPost, "/api/session", "/api/session",
		`{"mode":"Scheduled","sport":"Soccer","interval":"6h"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, orchestrator.ModeScheduled, f.lastReq.Mode)
	assert.Equal(t, "Soccer", f.lastReq.Sport)
	assert.Equal(t, 6*time.Hour, f.lastReq.Interval)

	res := decode[map[string]any](t, rec)
	assert.Equal(t, "sess-1", res["sessionId"])
	assert.NotContains(t, res, "snapshot", "snapshot is not echoed over HTTP")
}

func TestSessionInitializeValidation(t *testing.T) {
	h := NewSessionHandler(&fakeOrchestrator{}, quietLogger())

	cases := map[string]string{
		"bad json":     `{`,
		"bad mode":     `{"mode":"replay","sport":"S"}`,
		"no sport":     `{"mode":"live"}`,
		"bad interval": `{"mode":"live","sport":"S","interval":"soon"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(h.Initialize, http.MethodPost, "/api/session", "/api/session", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSessionInitializeErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrUnknownSport), http.StatusNotFound},
		{fmt.Errorf("x: %w", domain.ErrInitInProgress), http.StatusConflict},
		{fmt.Errorf("x: %w: %w", domain.ErrIncompleteSnapshot, domain.ErrTransport), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewSessionHandler(&fakeOrchestrator{initErr: tc.err}, quietLogger())
		rec := serve(h.Initialize, http.MethodPost, "/api/session", "/api/session", `{"mode":"live","sport":"S"}`)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestSessionResetAndStatus(t *testing.T) {
	f := &fakeOrchestrator{stream: true}
	h := NewSessionHandler(f, quietLogger())

	rec := serve(h.Reset, http.MethodDelete, "/api/session", "/api/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.resets)

	rec = serve(h.Status, http.MethodGet, "/api/status", "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[orchestrator.Status](t, rec)
	assert.Equal(t, orchestrator.StateReady, st.State)
	assert.True(t, st.Streaming)
}

func TestLiveEndpoints(t *testing.T) {
	f := &fakeOrchestrator{}
	h := NewLiveHandler(f, quietLogger())

	rec := serve(h.GetLive, http.MethodGet, "/api/live", "/api/live", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.live = &domain.LiveData{Headers: []domain.MatchHeader{{ID: 1}}, Watermark: 12}
	f.stream = true
	rec = serve(h.GetLive, http.MethodGet, "/api/live", "/api/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(12), body["watermark"])
	assert.Equal(t, true, body["streaming"])

	f.headers = []domain.MatchHeader{{ID: 1, SportCode: "S"}}
	rec = serve(h.GetHeaders, http.MethodGet, "/api/live/headers", "/api/live/headers", "")
	assert.Len(t, decode[[]domain.MatchHeader](t, rec), 1)

	f.odds = map[int64][]domain.EnrichedOdds{7: {{ID: 70, MatchID: 7, Outcomes: []domain.EnrichedOutcome{
		{Key: "1", Value: decimal.RequireFromString("2.5")},
	}}}}
	rec = serve(h.GetMatchOdds, http.MethodGet, "/api/live/matches/{id}/odds", "/api/live/matches/7/odds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	odds := decode[[]domain.EnrichedOdds](t, rec)
	require.Len(t, odds, 1)
	assert.True(t, odds[0].Outcomes[0].Value.Equal(decimal.RequireFromString("2.5")))

	rec = serve(h.GetMatchOdds, http.MethodGet, "/api/live/matches/{id}/odds", "/api/live/matches/x/odds", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h.GetMatchOdds, http.MethodGet, "/api/live/matches/{id}/odds", "/api/live/matches/99/odds", "")
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCatalogEndpoints(t *testing.T) {
	f := &fakeOrchestrator{sched: []domain.EnrichedScheduledMatch{}}
	h := NewCatalogHandler(f, quietLogger())

	rec := serve(h.GetCatalog, http.MethodGet, "/api/catalog", "/api/catalog", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.view = &catalog.View{SportCode: "S", SportName: "Soccer"}
	rec = serve(h.GetCatalog, http.MethodGet, "/api/catalog", "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Soccer", decode[catalog.View](t, rec).SportName)

	rec = serve(h.GetScheduled, http.MethodGet, "/api/scheduled", "/api/scheduled", "")
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return nil }),
	}, quietLogger())
	rec := serve(h.HealthCheck, http.MethodGet, "/api/health", "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	h = NewHealthHandler(map[string]Pinger{
		"redis":    PingFunc(func(context.Context) error { return nil }),
		"postgres": PingFunc(func(context.Context) error { return errors.New("refused") }),
	}, quietLogger())
	rec = serve(h.HealthCheck, http.MethodGet, "/api/health", "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "refused", body["checks"].(map[string]any)["postgres"])
}

type fakeAuditStore struct {
	opts domain.ListOpts
}

func (f *fakeAuditStore) Log(context.Context, string, string, map[string]any) error { return nil }

func (f *fakeAuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	f.opts = opts
	return nil, nil
}

func TestListAudit(t *testing.T) {
	store := &fakeAuditStore{}
	h := NewAuditHandler(store, quietLogger())

	rec := serve(h.ListAudit, http.MethodGet, "/api/audit",
		"/api/audit?limit=9999&offset=5&session=s-1&since=2024-05-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, store.opts.Limit)
	assert.Equal(t, 5, store.opts.Offset)
	assert.Equal(t, "s-1", store.opts.SessionID)
	require.NotNil(t, store.opts.Since)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)

	rec = serve(h.ListAudit, http.MethodGet, "/api/audit", "/api/audit?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
