package watch

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kx9v/rfscout/internal/notify"
	"github.com/kx9v/rfscout/internal/scanner"
	"github.com/kx9v/rfscout/internal/tuner"
)

type recordingSink struct {
	mu    sync.Mutex
	sent  []notify.Notification
	reply bool
}

func (r *recordingSink) Send(_ context.Context, n notify.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.reply
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func newTestWatch(t *testing.T, cfg Config) (*Watch, *recordingSink) {
	t.Helper()
	mock := tuner.NewMock(7)
	mock.Tones = []tuner.InjectedTone{{FrequencyHz: 100_300_000, PowerDB: -10}}
	sc := scanner.New(mock)
	sc.FFTSize = 512
	sc.ThresholdDB = cfg.ThresholdDB

	sink := &recordingSink{reply: true}
	w := New(cfg, sc, sink, nil, nil, filepath.Join(t.TempDir(), "watches"))
	return w, sink
}

func quickConfig() Config {
	cfg := DefaultConfig("watch-1", "Test Watch")
	cfg.CustomRange = &FreqRange{StartHz: 100_000_000, EndHz: 100_600_000}
	cfg.ScanIntervalSeconds = 0.01
	cfg.BaselineScans = 2
	return cfg
}

func TestStartEstablishesBaselineThenWatches(t *testing.T) {
	cfg := quickConfig()
	w, _ := newTestWatch(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	require.Eventually(t, func() bool {
		return w.Status()["status"] == string(StatusWatching)
	}, 2*time.Second, 5*time.Millisecond)

	w.Stop(context.Background())
	require.Equal(t, string(StatusStopped), w.Status()["status"])
}

func TestPauseAndResume(t *testing.T) {
	cfg := quickConfig()
	w, _ := newTestWatch(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	require.Eventually(t, func() bool {
		return w.Status()["status"] == string(StatusWatching)
	}, 2*time.Second, 5*time.Millisecond)

	w.Pause()
	require.Equal(t, string(StatusPaused), w.Status()["status"])

	w.Resume()
	require.Equal(t, string(StatusWatching), w.Status()["status"])

	w.Stop(context.Background())
}

func TestStartingAlreadyRunningWatchIsNoop(t *testing.T) {
	cfg := quickConfig()
	w, _ := newTestWatch(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	w.Start(ctx)
	w.Stop(context.Background())
}

func TestCheckNewSignalsSkipsBeforeBaselineEstablished(t *testing.T) {
	w, _ := newTestWatch(t, quickConfig())
	threshold := -40.0
	cond := AlertCondition{ConditionType: ConditionNewSignal, ThresholdDB: &threshold}
	result := scanner.Result{Peaks: []scanner.Peak{{FrequencyHz: 100_300_000, PowerDB: -10}}}
	require.Empty(t, w.checkNewSignals(DefaultedCondition(cond), result))
}

func TestCooldownSuppressesRepeatedAlerts(t *testing.T) {
	w, sink := newTestWatch(t, quickConfig())
	threshold := -20.0
	w.Config.AlertConditions = []AlertCondition{
		{ConditionType: ConditionThresholdBreach, ThresholdDB: &threshold, CooldownSeconds: 3600},
	}

	result := scanner.Result{Peaks: []scanner.Peak{{FrequencyHz: 100_300_000, PowerDB: -10}}}

	first := w.checkAlerts(result)
	require.Len(t, first, 1)
	second := w.checkAlerts(result)
	require.Empty(t, second)
	_ = sink
}

func TestSendAlertEscalatesPriorityForEmergencyFrequency(t *testing.T) {
	w, sink := newTestWatch(t, quickConfig())
	cond := DefaultedCondition(AlertCondition{ConditionType: ConditionNewSignal})
	alert := w.newAlert(cond, 121_500_000, -15, "test")

	w.sendAlert(context.Background(), alert)
	require.Equal(t, 1, sink.count())
	require.Equal(t, notify.PriorityUrgent, sink.sent[0].Priority)
}

func TestSendAlertUsesHighPriorityForOrdinaryFrequency(t *testing.T) {
	w, sink := newTestWatch(t, quickConfig())
	cond := DefaultedCondition(AlertCondition{ConditionType: ConditionNewSignal})
	alert := w.newAlert(cond, 200_000_000, -15, "test")

	w.sendAlert(context.Background(), alert)
	require.Equal(t, notify.PriorityHigh, sink.sent[0].Priority)
}

func TestSaveAndLoadStateRoundTrips(t *testing.T) {
	cfg := quickConfig()
	w, _ := newTestWatch(t, cfg)
	w.state.ScansCompleted = 5
	w.state.AlertsSent = 2

	require.NoError(t, w.SaveState())

	loaded, err := LoadState(cfg.WatchID, w.Scanner, nil, nil, nil, w.StateDir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, 5, loaded.state.ScansCompleted)
	require.Equal(t, 2, loaded.state.AlertsSent)
}

func TestLoadStateReturnsNilWhenMissing(t *testing.T) {
	loaded, err := LoadState("nonexistent", nil, nil, nil, nil, filepath.Join(t.TempDir(), "watches"))
	require.NoError(t, err)
	require.Nil(t, loaded)
}
