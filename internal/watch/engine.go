package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kx9v/rfscout/internal/audit"
	"github.com/kx9v/rfscout/internal/baseline"
	"github.com/kx9v/rfscout/internal/logging"
	"github.com/kx9v/rfscout/internal/notify"
	"github.com/kx9v/rfscout/internal/scanner"
)

// StepHz is the default re-tune step used when scanning a watch's
// configured ranges; a watch favors a finer, uniform step over the
// priority-band-tuned steps the survey engine uses, since it re-scans the
// same narrow range every cycle.
const StepHz = 25_000

// alertHistoryLimit bounds the in-memory/persisted alert history, matching
// the last-100 slice kept by _save_state in the original.
const alertHistoryLimit = 100

// Watch runs one configuration's baseline-then-alert lifecycle: a single
// background goroutine performs the scan loop, guarded by a mutex over the
// fields _scan_loop and the public methods both touch.
type Watch struct {
	Config   Config
	Scanner  *scanner.Scanner
	Notifier notify.Sink
	Audit    *audit.Logger
	Log      logging.Logger
	StateDir string

	mu             sync.Mutex
	state          State
	baseline       *baseline.Baseline
	running        bool
	cancel         context.CancelFunc
	group          *errgroup.Group
	alertCooldowns map[string]time.Time
	alertHistory   []Alert
}

// New builds a Watch ready to Start. notifier and log may be nil; a nil
// notifier falls back to a console sink, a nil log to logging.Default().
func New(cfg Config, sc *scanner.Scanner, notifier notify.Sink, auditLogger *audit.Logger, log logging.Logger, stateDir string) *Watch {
	if log == nil {
		log = logging.Default()
	}
	log = logging.Component(log, "watch")
	if notifier == nil {
		notifier = notify.NewConsoleSink(log)
	}
	if stateDir == "" {
		home, _ := os.UserHomeDir()
		stateDir = filepath.Join(home, ".rf-asset-discovery", "watches")
	}
	b := baseline.New()
	if cfg.BaselineScans > 0 {
		b.MinScansRequired = cfg.BaselineScans
	}

	return &Watch{
		Config:         cfg,
		Scanner:        sc,
		Notifier:       notifier,
		Audit:          auditLogger,
		Log:            log,
		StateDir:       stateDir,
		state:          State{Status: StatusIdle},
		baseline:       b,
		alertCooldowns: make(map[string]time.Time),
	}
}

func (w *Watch) auditID() string {
	return fmt.Sprintf("watch_%s", w.Config.WatchID)
}

// Start begins the baseline phase and launches the background scan loop.
// Starting an already-running watch is a no-op, matching the original's
// warning-and-return behavior.
func (w *Watch) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.Log.Warn("watch already running", logging.WatchID(w.Config.WatchID))
		return
	}
	w.running = true
	w.state.Status = StatusBaseline
	now := time.Now()
	w.state.StartedAt = &now
	w.mu.Unlock()

	if w.Audit != nil {
		bands := make([]string, len(w.Config.Bands))
		for i, b := range w.Config.Bands {
			bands[i] = string(b)
		}
		conditions := make([]string, len(w.Config.AlertConditions))
		for i, c := range w.Config.AlertConditions {
			conditions[i] = string(c.ConditionType)
		}
		w.Audit.Log(w.auditID(), "watch_started", map[string]any{
			"name": w.Config.Name, "bands": bands, "conditions": conditions,
		}, nil, nil, "", nil)
	}

	w.Log.Info("starting watch", logging.Field{Key: "name", Value: w.Config.Name})
	w.Notifier.Send(ctx, notify.Notification{
		Title:   fmt.Sprintf("Watch Started: %s", w.Config.Name),
		Message: fmt.Sprintf("Establishing baseline (%d scans)...", w.Config.BaselineScans),
		Priority: notify.PriorityLow,
		Tags:    []string{"sdr", "watch", "start"},
	})

	loopCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(loopCtx)
	w.mu.Lock()
	w.cancel = cancel
	w.group = group
	w.mu.Unlock()
	group.Go(func() error {
		w.scanLoop(gctx)
		return nil
	})
}

// Stop halts the scan loop, persists state, and sends a summary
// notification. Stopping an idle watch is a no-op.
func (w *Watch) Stop(ctx context.Context) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.state.Status = StatusStopped
	cancel := w.cancel
	group := w.group
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if group != nil {
		_ = group.Wait()
	}

	if err := w.SaveState(); err != nil {
		w.Log.Warn("failed to save watch state", logging.Err(err))
	}

	w.mu.Lock()
	scans, alerts := w.state.ScansCompleted, w.state.AlertsSent
	w.mu.Unlock()

	if w.Audit != nil {
		w.Audit.Log(w.auditID(), "watch_stopped", map[string]any{
			"scans_completed": scans, "alerts_sent": alerts,
		}, nil, nil, "", nil)
	}

	w.Notifier.Send(ctx, notify.Notification{
		Title:    fmt.Sprintf("Watch Stopped: %s", w.Config.Name),
		Message:  fmt.Sprintf("Scans: %d, Alerts: %d", scans, alerts),
		Priority: notify.PriorityLow,
		Tags:     []string{"sdr", "watch", "stop"},
	})

	w.Log.Info("watch stopped", logging.Field{Key: "scans", Value: scans}, logging.Field{Key: "alerts", Value: alerts})
}

// Pause suspends scanning without losing baseline/state. Only valid while
// watching or establishing baseline.
func (w *Watch) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Status == StatusWatching || w.state.Status == StatusBaseline {
		w.state.Status = StatusPaused
		w.Log.Info("watch paused", logging.WatchID(w.Config.WatchID))
	}
}

// Resume continues a paused watch, returning to baseline establishment if
// the baseline was never completed.
func (w *Watch) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Status != StatusPaused {
		return
	}
	if w.baseline.Established() {
		w.state.Status = StatusWatching
	} else {
		w.state.Status = StatusBaseline
	}
	w.Log.Info("watch resumed", logging.WatchID(w.Config.WatchID))
}

// scanLoop runs continuously until ctx is cancelled, matching _scan_loop in
// the original: paused watches poll once a second, otherwise every
// configured range is scanned once per cycle before sleeping the
// configured interval.
func (w *Watch) scanLoop(ctx context.Context) {
	interval := time.Duration(w.Config.ScanIntervalSeconds * float64(time.Second))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.Lock()
		status := w.state.Status
		w.mu.Unlock()

		if status == StatusPaused {
			if !sleepOrDone(ctx, time.Second) {
				return
			}
			continue
		}

		ranges := w.Config.FrequencyRanges()
		if len(ranges) == 0 {
			w.Log.Error("no frequency ranges configured", logging.WatchID(w.Config.WatchID))
			if !sleepOrDone(ctx, interval) {
				return
			}
			continue
		}

		for _, r := range ranges {
			select {
			case <-ctx.Done():
				return
			default:
			}

			result, err := w.Scanner.Scan(ctx, r.StartHz, r.EndHz, StepHz, w.Config.DwellTimeMs)
			if err != nil {
				w.Log.Error("scan error", logging.Err(err))
				w.mu.Lock()
				w.state.Error = err.Error()
				w.mu.Unlock()
				continue
			}

			w.mu.Lock()
			w.state.ScansCompleted++
			now := time.Now()
			w.state.LastScanTime = &now
			currentStatus := w.state.Status
			w.mu.Unlock()

			if currentStatus == StatusBaseline {
				w.processBaselineScan(ctx, result)
			} else {
				for _, alert := range w.checkAlerts(result) {
					w.sendAlert(ctx, alert)
				}
			}
		}

		if !sleepOrDone(ctx, interval) {
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// processBaselineScan folds one scan into the baseline and transitions to
// watching once enough scans have accumulated.
func (w *Watch) processBaselineScan(ctx context.Context, result scanner.Result) {
	w.baseline.AddScan(result)
	stats := w.baseline.Stats()

	w.mu.Lock()
	w.state.BaselineScansComplete = stats.ScanCount
	w.mu.Unlock()

	w.Log.Info("baseline scan",
		logging.Field{Key: "scan_count", Value: stats.ScanCount},
		logging.Field{Key: "target", Value: w.Config.BaselineScans},
		logging.Field{Key: "peaks", Value: len(result.Peaks)},
	)

	if !w.baseline.Established() {
		return
	}

	w.mu.Lock()
	w.state.Status = StatusWatching
	w.state.BaselineEstablished = true
	w.mu.Unlock()

	stable := len(w.baseline.Signals())

	if w.Audit != nil {
		w.Audit.Log(w.auditID(), "baseline_established", map[string]any{
			"scans": stats.ScanCount, "stable_signals": stable,
		}, nil, nil, "", nil)
	}

	w.Notifier.Send(ctx, notify.Notification{
		Title:    "Baseline Established",
		Message:  fmt.Sprintf("Tracking %d signals. Now watching...", stable),
		Priority: notify.PriorityDefault,
		Tags:     []string{"sdr", "baseline"},
	})

	w.Log.Info("baseline established", logging.Field{Key: "stable_signals", Value: stable})
}

// checkAlerts evaluates every configured condition against result,
// skipping any still within its cooldown window, and records a fresh
// cooldown start for every condition that fired.
func (w *Watch) checkAlerts(result scanner.Result) []Alert {
	var alerts []Alert

	for _, rawCond := range w.Config.AlertConditions {
		cond := DefaultedCondition(rawCond)
		key := cooldownKey(cond)

		w.mu.Lock()
		last, onCooldown := w.alertCooldowns[key]
		w.mu.Unlock()
		if onCooldown && time.Since(last).Seconds() < cond.CooldownSeconds {
			continue
		}

		triggered := w.evaluateCondition(cond, result)
		alerts = append(alerts, triggered...)

		if len(triggered) > 0 {
			w.mu.Lock()
			w.alertCooldowns[key] = time.Now()
			w.mu.Unlock()
		}
	}

	return alerts
}

func cooldownKey(cond AlertCondition) string {
	freq := "none"
	if cond.FrequencyHz != nil {
		freq = fmt.Sprintf("%.0f", *cond.FrequencyHz)
	}
	return fmt.Sprintf("%s_%s", cond.ConditionType, freq)
}

func (w *Watch) evaluateCondition(cond AlertCondition, result scanner.Result) []Alert {
	switch cond.ConditionType {
	case ConditionNewSignal:
		return w.checkNewSignals(cond, result)
	case ConditionThresholdBreach:
		return w.checkThresholdBreach(cond, result)
	case ConditionBandActivity:
		if alert := w.checkBandActivity(cond, result); alert != nil {
			return []Alert{*alert}
		}
		return nil
	case ConditionSignalLoss:
		return w.checkSignalLoss(cond, result)
	default:
		return nil
	}
}

func notableLabel(freqHz float64) (string, bool) {
	rounded := math.Round(freqHz/1000) * 1000
	label, ok := NotableFrequencies[rounded]
	return label, ok
}

func (w *Watch) newAlert(cond AlertCondition, freqHz, powerDB float64, message string) Alert {
	return Alert{
		AlertID:     uuid.NewString(),
		WatchID:     w.Config.WatchID,
		Condition:   cond,
		TriggeredAt: time.Now(),
		FrequencyHz: freqHz,
		PowerDB:     powerDB,
		Message:     message,
	}
}

func (w *Watch) checkNewSignals(cond AlertCondition, result scanner.Result) []Alert {
	var alerts []Alert
	for _, peak := range result.Peaks {
		if cond.ThresholdDB != nil && peak.PowerDB < *cond.ThresholdDB {
			continue
		}
		if cond.FrequencyHz != nil && math.Abs(peak.FrequencyHz-*cond.FrequencyHz) > cond.FrequencyToleranceHz {
			continue
		}
		if !w.baseline.IsNewSignal(peak) {
			continue
		}

		message := fmt.Sprintf("New signal at %.3f MHz (%.1f dB)", peak.FrequencyHz/1e6, peak.PowerDB)
		if label, ok := notableLabel(peak.FrequencyHz); ok {
			message += " - " + label
		}
		alerts = append(alerts, w.newAlert(cond, peak.FrequencyHz, peak.PowerDB, message))
	}
	return alerts
}

func (w *Watch) checkThresholdBreach(cond AlertCondition, result scanner.Result) []Alert {
	if cond.ThresholdDB == nil {
		return nil
	}
	var alerts []Alert
	for _, peak := range result.Peaks {
		if peak.PowerDB <= *cond.ThresholdDB {
			continue
		}
		message := fmt.Sprintf("Threshold breach at %.3f MHz: %.1f dB > %.1f dB",
			peak.FrequencyHz/1e6, peak.PowerDB, *cond.ThresholdDB)
		alerts = append(alerts, w.newAlert(cond, peak.FrequencyHz, peak.PowerDB, message))
	}
	return alerts
}

func (w *Watch) checkBandActivity(cond AlertCondition, result scanner.Result) *Alert {
	if cond.ActivityChangePercent == nil {
		return nil
	}
	change := w.baseline.ActivityChange(result, result.StartHz, result.EndHz, true)
	if math.Abs(change) <= *cond.ActivityChangePercent {
		return nil
	}

	direction := "increased"
	if change < 0 {
		direction = "decreased"
	}
	message := fmt.Sprintf("Band activity %s by %.1f%% (threshold: %.1f%%)",
		direction, math.Abs(change), *cond.ActivityChangePercent)
	alert := w.newAlert(cond, result.StartHz, result.NoiseFloorDB, message)
	return &alert
}

func (w *Watch) checkSignalLoss(cond AlertCondition, result scanner.Result) []Alert {
	var alerts []Alert
	for _, missing := range w.baseline.MissingSignals(result) {
		if cond.FrequencyHz != nil && math.Abs(missing.FrequencyHz-*cond.FrequencyHz) > cond.FrequencyToleranceHz {
			continue
		}
		message := fmt.Sprintf("Signal lost at %.3f MHz (was %.1f dB)", missing.FrequencyHz/1e6, missing.LastPowerDB)
		if label, ok := notableLabel(missing.FrequencyHz); ok {
			message += " - " + label
		}
		alerts = append(alerts, w.newAlert(cond, missing.FrequencyHz, missing.LastPowerDB, message))
	}
	return alerts
}

// sendAlert delivers the alert through the configured notifier, escalating
// priority to urgent for emergency frequencies, audits the trigger, and
// records the alert in the bounded in-memory history.
func (w *Watch) sendAlert(ctx context.Context, alert Alert) {
	w.mu.Lock()
	w.state.Status = StatusAlerting
	w.mu.Unlock()

	priority := notify.PriorityHigh
	if label, ok := notableLabel(alert.FrequencyHz); ok && strings.Contains(strings.ToLower(label), "emergency") {
		priority = notify.PriorityUrgent
	}

	title := fmt.Sprintf("SDR Alert: %s", titleCase(string(alert.Condition.ConditionType)))
	ok := w.Notifier.Send(ctx, notify.Notification{
		Title:    title,
		Message:  alert.Message,
		Priority: priority,
		Tags:     []string{"sdr", "alert", string(alert.Condition.ConditionType)},
		Data:     alert.ToMap(),
	})
	alert.Notified = ok

	if w.Audit != nil {
		w.Audit.Log(w.auditID(), "alert_triggered", map[string]any{
			"alert_id":      alert.AlertID,
			"condition_type": string(alert.Condition.ConditionType),
			"frequency_mhz":  alert.FrequencyHz / 1e6,
			"power_db":       alert.PowerDB,
		}, nil, nil, "", nil)
	}

	w.mu.Lock()
	w.state.AlertsSent++
	w.alertHistory = append(w.alertHistory, alert)
	if len(w.alertHistory) > alertHistoryLimit {
		w.alertHistory = w.alertHistory[len(w.alertHistory)-alertHistoryLimit:]
	}
	w.state.Status = StatusWatching
	w.mu.Unlock()

	w.Log.Warn("ALERT", logging.Field{Key: "message", Value: alert.Message})
}

func titleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// Status returns a point-in-time snapshot of the watch's runtime status,
// matching get_status() in the original.
func (w *Watch) Status() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()

	var uptime float64
	if w.state.StartedAt != nil {
		uptime = time.Since(*w.state.StartedAt).Seconds()
	}

	return map[string]any{
		"watch_id":             w.Config.WatchID,
		"name":                 w.Config.Name,
		"status":               string(w.state.Status),
		"baseline_established": w.baseline.Established(),
		"baseline_progress":    fmt.Sprintf("%d/%d", w.baseline.Stats().ScanCount, w.Config.BaselineScans),
		"scans_completed":      w.state.ScansCompleted,
		"alerts_sent":          w.state.AlertsSent,
		"stable_signals":       len(w.baseline.Signals()),
		"uptime_seconds":       uptime,
	}
}

// persistedState is the on-disk JSON shape written by SaveState and read
// by LoadState, mirroring _save_state/load_state in the original.
type persistedState struct {
	Config       Config           `json:"config"`
	State        persistedRuntime `json:"state"`
	Baseline     *baseline.Baseline `json:"baseline"`
	AlertHistory []Alert          `json:"alert_history"`
}

type persistedRuntime struct {
	Status                Status     `json:"status"`
	BaselineEstablished   bool       `json:"baseline_established"`
	ScansCompleted        int        `json:"scans_completed"`
	AlertsSent            int        `json:"alerts_sent"`
	StartedAt             *time.Time `json:"started_at"`
}

func (w *Watch) statePath() string {
	return filepath.Join(w.StateDir, w.Config.WatchID+".json")
}

// SaveState serializes (config, runtime state, baseline, last-100 alerts)
// to a JSON document under StateDir, matching _save_state in the original.
func (w *Watch) SaveState() error {
	if err := os.MkdirAll(w.StateDir, 0o755); err != nil {
		return err
	}

	w.mu.Lock()
	data := persistedState{
		Config: w.Config,
		State: persistedRuntime{
			Status:              w.state.Status,
			BaselineEstablished: w.state.BaselineEstablished,
			ScansCompleted:      w.state.ScansCompleted,
			AlertsSent:          w.state.AlertsSent,
			StartedAt:           w.state.StartedAt,
		},
		Baseline:     w.baseline,
		AlertHistory: w.alertHistory,
	}
	w.mu.Unlock()

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(w.statePath(), body, 0o644)
}

// LoadState restores a watch previously saved with SaveState. It returns
// (nil, nil) if no state file exists for watchID, matching load_state
// returning None on a missing file in the original.
func LoadState(watchID string, sc *scanner.Scanner, notifier notify.Sink, auditLogger *audit.Logger, log logging.Logger, stateDir string) (*Watch, error) {
	if stateDir == "" {
		home, _ := os.UserHomeDir()
		stateDir = filepath.Join(home, ".rf-asset-discovery", "watches")
	}
	path := filepath.Join(stateDir, watchID+".json")
	body, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data persistedState
	data.Baseline = baseline.New()
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}

	w := New(data.Config, sc, notifier, auditLogger, log, stateDir)
	w.baseline = data.Baseline
	w.state.BaselineEstablished = data.State.BaselineEstablished
	w.state.ScansCompleted = data.State.ScansCompleted
	w.state.AlertsSent = data.State.AlertsSent
	w.alertHistory = data.AlertHistory

	w.Log.Info("loaded watch state", logging.WatchID(watchID))
	return w, nil
}
