package app

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/oddstream/internal/config"
	"github.com/alanyoungcy/oddstream/internal/feed"
	"github.com/alanyoungcy/oddstream/internal/notify"
)

func TestOrchestratorConfigFromDefaults(t *testing.T) {
	cfg := config.Defaults()
	oc := orchestratorConfig(&cfg)

	assert.Equal(t, "\n\n", oc.InitialFraming.Delimiter)
	assert.Equal(t, "\n", oc.UpdateFraming.Delimiter)
	assert.Equal(t, cfg.Feed.MaxFrameBytes, oc.UpdateFraming.MaxFrameBytes)
	assert.Equal(t, time.Second, oc.EndedBackoff)
	assert.Equal(t, 5*time.Second, oc.FailedBackoff)
	assert.Equal(t, 2*time.Minute, oc.BulkTimeout)
	assert.Equal(t, "@every 5m", oc.ScheduledRefresh)
}

func TestOrchestratorDepsLeavesDisabledBackendsNil(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := &Dependencies{
		Queue:    feed.NewQueue(4),
		Notifier: notify.NewNotifier(nil, nil, logger),
	}

	od := orchestratorDeps(deps)
	assert.NotNil(t, od.Queue)
	assert.Nil(t, od.Audit)
	assert.Nil(t, od.Archiver)
	assert.Nil(t, od.Alerter, "notifier without senders is not wired as alerter")

	deps.Notifier = notify.NewNotifier([]notify.Sender{notify.NewDiscordSender("http://127.0.0.1:1")}, nil, logger)
	assert.NotNil(t, orchestratorDeps(deps).Alerter)
}
