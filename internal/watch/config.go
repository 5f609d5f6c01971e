// Package watch implements the baseline+alert watch engine (spec.md §4.5,
// C5): a long-running per-configuration state machine that establishes a
// spectrum baseline, then continuously re-scans and raises cooldown-gated
// alerts against it.
package watch

import "time"

// FrequencyBand names a well-known receive band a watch can be pointed at
// instead of (or in addition to) a custom range.
type FrequencyBand string

const (
	BandFMBroadcast  FrequencyBand = "fm_broadcast"
	BandAMBroadcast  FrequencyBand = "am_broadcast"
	BandAircraftVHF  FrequencyBand = "aircraft_vhf"
	BandMarineVHF    FrequencyBand = "marine_vhf"
	BandAmateur2M    FrequencyBand = "amateur_2m"
	BandAmateur70CM  FrequencyBand = "amateur_70cm"
	BandNOAAWeather  FrequencyBand = "noaa_weather"
	BandNOAASatellite FrequencyBand = "noaa_satellite"
	BandFRSGMRS      FrequencyBand = "frs_gmrs"
	BandADSB         FrequencyBand = "adsb"
	BandCustom       FrequencyBand = "custom"
)

// FreqRange is an inclusive [StartHz, EndHz] span.
type FreqRange struct {
	StartHz float64
	EndHz   float64
}

// bandRanges maps each named band to its Hz range, matching
// watch_config.py's BAND_RANGES table. ADS-B's range is degenerately
// zero-width (1090 MHz, a single channel) in the original and is kept that
// way here rather than widened.
var bandRanges = map[FrequencyBand]FreqRange{
	BandFMBroadcast:   {87_500_000, 108_000_000},
	BandAMBroadcast:   {500_000, 1_700_000},
	BandAircraftVHF:   {118_000_000, 137_000_000},
	BandMarineVHF:     {156_000_000, 162_025_000},
	BandAmateur2M:     {144_000_000, 148_000_000},
	BandAmateur70CM:   {420_000_000, 450_000_000},
	BandNOAAWeather:   {162_400_000, 162_550_000},
	BandNOAASatellite: {137_000_000, 138_000_000},
	BandFRSGMRS:       {462_562_500, 467_712_500},
	BandADSB:          {1_090_000_000, 1_090_000_000},
}

// RangeFor returns the Hz range for a named band.
func RangeFor(b FrequencyBand) (FreqRange, bool) {
	r, ok := bandRanges[b]
	return r, ok
}

// NotableFrequencies annotates specific frequencies with a human label,
// used to enrich alert messages and to escalate alert priority for
// emergency frequencies (spec.md §4.5). Keys are rounded to the nearest
// kHz, matching round(freq_hz, -3) in the original.
var NotableFrequencies = map[float64]string{
	121_500_000: "Aircraft Emergency",
	156_800_000: "Marine Channel 16 (Distress)",
	162_550_000: "NOAA Weather",
	146_520_000: "2m FM Calling",
	446_000_000: "70cm FM Calling",
}

// ConditionType names one of the four alert condition kinds a watch can
// evaluate each scan.
type ConditionType string

const (
	ConditionNewSignal       ConditionType = "new_signal"
	ConditionThresholdBreach ConditionType = "threshold_breach"
	ConditionBandActivity    ConditionType = "band_activity"
	ConditionSignalLoss      ConditionType = "signal_loss"
)

// AlertCondition describes one rule a watch checks on every scan.
type AlertCondition struct {
	ConditionType          ConditionType
	ThresholdDB            *float64
	FrequencyHz            *float64
	FrequencyToleranceHz   float64 // default 50_000
	ActivityChangePercent  *float64
	CooldownSeconds        float64 // default 60
}

// Describe renders a short human summary of the condition, matching
// AlertCondition.describe() in the original.
func (c AlertCondition) Describe() string {
	switch c.ConditionType {
	case ConditionNewSignal:
		return "Alert on new signals"
	case ConditionThresholdBreach:
		if c.ThresholdDB != nil {
			return "Alert on power above threshold"
		}
		return "Alert on threshold breach"
	case ConditionBandActivity:
		return "Alert on band activity change"
	case ConditionSignalLoss:
		return "Alert on signal loss"
	default:
		return string(c.ConditionType)
	}
}

// DefaultedCondition fills CooldownSeconds/FrequencyToleranceHz with the
// teacher's defaults when left at their zero value.
func DefaultedCondition(c AlertCondition) AlertCondition {
	if c.FrequencyToleranceHz == 0 {
		c.FrequencyToleranceHz = 50_000
	}
	if c.CooldownSeconds == 0 {
		c.CooldownSeconds = 60
	}
	return c
}

// Config is the persisted definition of a watch: what to scan, what
// conditions to raise alerts on, and how to notify.
type Config struct {
	WatchID             string
	Name                string
	Description         string
	Bands               []FrequencyBand
	CustomRange         *FreqRange
	AlertConditions     []AlertCondition
	ScanIntervalSeconds float64 // default 5
	DwellTimeMs         float64 // default 100
	ThresholdDB         float64 // default -30
	BaselineScans       int     // default 12
	Notifications       []string
	Enabled             bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DefaultConfig returns a Config with the teacher's customary defaults
// applied; callers override the fields they care about.
func DefaultConfig(watchID, name string) Config {
	now := time.Now()
	return Config{
		WatchID:             watchID,
		Name:                name,
		ScanIntervalSeconds: 5,
		DwellTimeMs:         100,
		ThresholdDB:         -30,
		BaselineScans:       12,
		Notifications:       []string{"console"},
		Enabled:             true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// FrequencyRanges resolves the watch's configured bands (and custom range,
// if set) into concrete [start,end] Hz spans to scan.
func (c Config) FrequencyRanges() []FreqRange {
	var ranges []FreqRange
	for _, b := range c.Bands {
		if r, ok := RangeFor(b); ok {
			ranges = append(ranges, r)
		}
	}
	if c.CustomRange != nil {
		ranges = append(ranges, *c.CustomRange)
	}
	return ranges
}

// AlertFrequencies returns every frequency explicitly named by an alert
// condition, used to report what the watch is keyed on.
func (c Config) AlertFrequencies() []float64 {
	var freqs []float64
	for _, cond := range c.AlertConditions {
		if cond.FrequencyHz != nil {
			freqs = append(freqs, *cond.FrequencyHz)
		}
	}
	return freqs
}
