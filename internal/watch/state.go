package watch

import "time"

// Status is the watch's current lifecycle phase.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusBaseline Status = "baseline"
	StatusWatching Status = "watching"
	StatusAlerting Status = "alerting"
	StatusPaused   Status = "paused"
	StatusStopped  Status = "stopped"
)

// State is the mutable runtime state of one running watch.
type State struct {
	Status                Status
	BaselineEstablished   bool
	BaselineScansComplete int
	LastScanTime          *time.Time
	StartedAt             *time.Time
	ScansCompleted        int
	AlertsSent            int
	Error                 string
}

// Alert is one triggered condition, ready for notification.
type Alert struct {
	AlertID      string
	WatchID      string
	Condition    AlertCondition
	TriggeredAt  time.Time
	FrequencyHz  float64
	PowerDB      float64
	Message      string
	Notified     bool
	Acknowledged bool
}

// ToMap renders the alert as a plain map, matching Alert.to_dict() in the
// original, for embedding in notification payloads and audit params.
func (a Alert) ToMap() map[string]any {
	return map[string]any{
		"alert_id":      a.AlertID,
		"watch_id":      a.WatchID,
		"condition":     string(a.Condition.ConditionType),
		"triggered_at":  a.TriggeredAt,
		"frequency_hz":  a.FrequencyHz,
		"power_db":      a.PowerDB,
		"message":       a.Message,
		"notified":      a.Notified,
		"acknowledged":  a.Acknowledged,
	}
}
