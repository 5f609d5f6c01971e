// Package baseline implements spectrum baseline tracking and anomaly
// detection (spec.md §4.4, C4): it accumulates scan results over time to
// learn which signals are normally present in a band, then flags peaks that
// are new, power-anomalous, missing, or indicative of an overall activity
// change.
package baseline

import (
	"encoding/json"
	"math"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/kx9v/rfscout/internal/scanner"
)

// SignalHistory tracks the power readings observed for one tracked signal.
type SignalHistory struct {
	FrequencyHz       float64
	PowerSamples      []float64
	LastSeenScan      int
	ConsecutiveMisses int
}

// AveragePower returns the mean recorded power in dB, or -60 dB if no
// samples have been recorded yet.
func (h *SignalHistory) AveragePower() float64 {
	if len(h.PowerSamples) == 0 {
		return -60.0
	}
	return stat.Mean(h.PowerSamples, nil)
}

// PowerStdDev returns the sample standard deviation of recorded power, or 0
// if fewer than two samples have been recorded.
func (h *SignalHistory) PowerStdDev() float64 {
	if len(h.PowerSamples) < 2 {
		return 0
	}
	return stat.StdDev(h.PowerSamples, nil)
}

// IsStable reports whether the signal has been consistently present: at
// least 3 samples recorded and no misses since its last sighting.
func (h *SignalHistory) IsStable() bool {
	return len(h.PowerSamples) >= 3 && h.ConsecutiveMisses == 0
}

// Baseline accumulates scan results to learn normal spectrum activity for a
// band, then answers is-new / is-anomaly / is-missing / activity-change
// queries against it. Safe for concurrent use.
type Baseline struct {
	ToleranceHz               float64
	MinScansRequired          int
	PowerDeviationThresholdDB float64
	MissThreshold             int

	mu                sync.Mutex
	signals           map[int]*SignalHistory
	scanCount         int
	established       bool
	totalPowerHistory []float64
}

// New builds a Baseline with the teacher's customary defaults: 50 kHz
// tolerance, 12 scans to establish, 6 dB deviation threshold, 3 misses
// before a signal is considered gone.
func New() *Baseline {
	return &Baseline{
		ToleranceHz:               50_000,
		MinScansRequired:          12,
		PowerDeviationThresholdDB: 6.0,
		MissThreshold:             3,
		signals:                   make(map[int]*SignalHistory),
	}
}

func (b *Baseline) freqKey(freqHz float64) int {
	return int(freqHz / b.ToleranceHz)
}

// findMatchingSignal must be called with b.mu held.
func (b *Baseline) findMatchingSignal(freqHz float64) *SignalHistory {
	key := b.freqKey(freqHz)
	for _, k := range [3]int{key - 1, key, key + 1} {
		if sig, ok := b.signals[k]; ok {
			if math.Abs(sig.FrequencyHz-freqHz) <= b.ToleranceHz {
				return sig
			}
		}
	}
	return nil
}

// AddScan folds one scan result into the baseline: existing signals have
// their power history and EWMA frequency updated, new signals are recorded,
// and signals absent this scan accrue a miss.
func (b *Baseline) AddScan(result scanner.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scanCount++
	seenKeys := make(map[int]struct{}, len(result.Peaks))

	for _, peak := range result.Peaks {
		key := b.freqKey(peak.FrequencyHz)
		seenKeys[key] = struct{}{}

		if existing := b.findMatchingSignal(peak.FrequencyHz); existing != nil {
			existing.PowerSamples = append(existing.PowerSamples, peak.PowerDB)
			existing.LastSeenScan = b.scanCount
			existing.ConsecutiveMisses = 0
			existing.FrequencyHz = existing.FrequencyHz*0.9 + peak.FrequencyHz*0.1
		} else {
			b.signals[key] = &SignalHistory{
				FrequencyHz:  peak.FrequencyHz,
				PowerSamples: []float64{peak.PowerDB},
				LastSeenScan: b.scanCount,
			}
		}
	}

	for key, sig := range b.signals {
		if _, seen := seenKeys[key]; !seen && b.scanCount > sig.LastSeenScan {
			sig.ConsecutiveMisses++
		}
	}

	if len(result.Peaks) > 0 {
		var total float64
		for _, p := range result.Peaks {
			total += math.Pow(10, p.PowerDB/10)
		}
		b.totalPowerHistory = append(b.totalPowerHistory, total)
	}

	if b.scanCount >= b.MinScansRequired && !b.established {
		b.established = true
	}
}

// Established reports whether enough scans have accumulated to trust the
// baseline's is-new / is-missing judgments.
func (b *Baseline) Established() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.established
}

// IsNewSignal reports whether peak falls outside every tracked signal's
// tolerance window. Always false until the baseline is established.
func (b *Baseline) IsNewSignal(peak scanner.Peak) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.established {
		return false
	}
	return b.findMatchingSignal(peak.FrequencyHz) == nil
}

// PowerDeviation returns peak's power minus its matching signal's average
// power, or (0, false) if no matching signal has recorded samples.
func (b *Baseline) PowerDeviation(peak scanner.Peak) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing := b.findMatchingSignal(peak.FrequencyHz)
	if existing == nil || len(existing.PowerSamples) == 0 {
		return 0, false
	}
	return peak.PowerDB - existing.AveragePower(), true
}

// IsPowerAnomaly reports whether peak's deviation from its baseline average
// exceeds PowerDeviationThresholdDB in either direction.
func (b *Baseline) IsPowerAnomaly(peak scanner.Peak) bool {
	deviation, ok := b.PowerDeviation(peak)
	if !ok {
		return false
	}
	return math.Abs(deviation) > b.PowerDeviationThresholdDB
}

// MissingSignal is a baseline signal absent from the current scan for at
// least MissThreshold consecutive scans.
type MissingSignal struct {
	FrequencyHz  float64
	LastPowerDB  float64
}

// MissingSignals returns every baseline signal that was stable before it went
// missing (at least 3 recorded power samples), is absent from result, and has
// at least MissThreshold consecutive misses. Always nil until the baseline is
// established.
func (b *Baseline) MissingSignals(result scanner.Result) []MissingSignal {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.established {
		return nil
	}

	var missing []MissingSignal
	for _, sig := range b.signals {
		if len(sig.PowerSamples) < 3 {
			continue
		}
		found := false
		for _, p := range result.Peaks {
			if math.Abs(p.FrequencyHz-sig.FrequencyHz) <= b.ToleranceHz {
				found = true
				break
			}
		}
		if !found && sig.ConsecutiveMisses >= b.MissThreshold {
			missing = append(missing, MissingSignal{FrequencyHz: sig.FrequencyHz, LastPowerDB: sig.AveragePower()})
		}
	}
	return missing
}

// ActivityChange returns the percentage change in total linear band power
// versus the historical average, optionally restricted to [bandStartHz,
// bandEndHz]. Returns -100 on complete silence in a band that previously
// had activity, and 0 before the baseline is established.
func (b *Baseline) ActivityChange(result scanner.Result, bandStartHz, bandEndHz float64, hasBand bool) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.established || len(b.totalPowerHistory) == 0 {
		return 0
	}

	peaks := result.Peaks
	if hasBand {
		filtered := make([]scanner.Peak, 0, len(peaks))
		for _, p := range peaks {
			if p.FrequencyHz >= bandStartHz && p.FrequencyHz <= bandEndHz {
				filtered = append(filtered, p)
			}
		}
		peaks = filtered
	}
	if len(peaks) == 0 {
		return -100.0
	}

	var currentPower float64
	for _, p := range peaks {
		currentPower += math.Pow(10, p.PowerDB/10)
	}

	baselineAvg := stat.Mean(b.totalPowerHistory, nil)
	if baselineAvg == 0 {
		return 0
	}
	return (currentPower - baselineAvg) / baselineAvg * 100
}

// BaselineSignal is a stable tracked signal's identity for reporting.
type BaselineSignal struct {
	FrequencyHz float64
	PowerDB     float64
}

// Signals returns every stable tracked signal.
func (b *Baseline) Signals() []BaselineSignal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BaselineSignal, 0, len(b.signals))
	for _, sig := range b.signals {
		if sig.IsStable() {
			out = append(out, BaselineSignal{FrequencyHz: sig.FrequencyHz, PowerDB: sig.AveragePower()})
		}
	}
	return out
}

// Stats summarizes the baseline's current size and establishment state.
type Stats struct {
	Established      bool
	ScanCount        int
	TotalSignals     int
	StableSignals    int
	ToleranceHz      float64
	MinScansRequired int
}

// Stats returns a snapshot of the baseline's bookkeeping counters.
func (b *Baseline) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	stable := 0
	for _, sig := range b.signals {
		if sig.IsStable() {
			stable++
		}
	}
	return Stats{
		Established:      b.established,
		ScanCount:        b.scanCount,
		TotalSignals:     len(b.signals),
		StableSignals:    stable,
		ToleranceHz:      b.ToleranceHz,
		MinScansRequired: b.MinScansRequired,
	}
}

// persistedSignal is the JSON-serializable form of a SignalHistory.
type persistedSignal struct {
	FrequencyHz       float64   `json:"frequency_hz"`
	PowerSamples      []float64 `json:"power_samples"`
	LastSeenScan      int       `json:"last_seen_scan"`
	ConsecutiveMisses int       `json:"consecutive_misses"`
}

// snapshot is the JSON-serializable form of a Baseline, used for on-disk
// persistence across process restarts (spec.md §4.4).
type snapshot struct {
	ToleranceHz               float64                    `json:"tolerance_hz"`
	MinScansRequired          int                        `json:"min_scans_required"`
	PowerDeviationThresholdDB float64                    `json:"power_deviation_threshold_db"`
	MissThreshold             int                        `json:"miss_threshold"`
	ScanCount                 int                        `json:"scan_count"`
	Established               bool                       `json:"established"`
	TotalPowerHistory         []float64                  `json:"total_power_history"`
	Signals                   map[string]persistedSignal `json:"signals"`
}

// Clear resets the baseline to its initial, unestablished state, keeping
// its configured thresholds.
func (b *Baseline) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = make(map[int]*SignalHistory)
	b.totalPowerHistory = nil
	b.scanCount = 0
	b.established = false
}

// MarshalJSON serializes the baseline for on-disk persistence across
// process restarts (spec.md §4.4).
func (b *Baseline) MarshalJSON() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	signals := make(map[string]persistedSignal, len(b.signals))
	for key, sig := range b.signals {
		signals[strconv.Itoa(key)] = persistedSignal{
			FrequencyHz:       sig.FrequencyHz,
			PowerSamples:      sig.PowerSamples,
			LastSeenScan:      sig.LastSeenScan,
			ConsecutiveMisses: sig.ConsecutiveMisses,
		}
	}

	return json.Marshal(snapshot{
		ToleranceHz:               b.ToleranceHz,
		MinScansRequired:          b.MinScansRequired,
		PowerDeviationThresholdDB: b.PowerDeviationThresholdDB,
		MissThreshold:             b.MissThreshold,
		ScanCount:                 b.scanCount,
		Established:               b.established,
		TotalPowerHistory:         b.totalPowerHistory,
		Signals:                   signals,
	})
}

// UnmarshalJSON restores a baseline previously serialized with MarshalJSON.
func (b *Baseline) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.ToleranceHz = snap.ToleranceHz
	b.MinScansRequired = snap.MinScansRequired
	b.PowerDeviationThresholdDB = snap.PowerDeviationThresholdDB
	b.MissThreshold = snap.MissThreshold
	b.scanCount = snap.ScanCount
	b.established = snap.Established
	b.totalPowerHistory = snap.TotalPowerHistory

	b.signals = make(map[int]*SignalHistory, len(snap.Signals))
	for keyStr, sig := range snap.Signals {
		key, err := strconv.Atoi(keyStr)
		if err != nil {
			return err
		}
		b.signals[key] = &SignalHistory{
			FrequencyHz:       sig.FrequencyHz,
			PowerSamples:      sig.PowerSamples,
			LastSeenScan:      sig.LastSeenScan,
			ConsecutiveMisses: sig.ConsecutiveMisses,
		}
	}
	return nil
}
