// Package audit implements the append-only JSON-lines audit log described
// by spec.md §6: each recorded operation is one JSON object per line,
// carrying a compliance verdict alongside the operation's own result. The
// watch engine is the only writer in this tree; scanner, survey engine and
// legal-band checker operations are not recorded.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/kx9v/rfscout/internal/logging"
)

// ComplianceStatus classifies an audited operation against legal-band
// policy (spec.md §6).
type ComplianceStatus string

const (
	ComplianceOK        ComplianceStatus = "ok"
	ComplianceWarning   ComplianceStatus = "warning"
	ComplianceViolation ComplianceStatus = "violation"
)

// Entry is one audit record. Timestamp is stamped by Logger.Log, not by the
// caller, so entries are ordered by write time regardless of clock skew
// between callers.
type Entry struct {
	Timestamp        time.Time        `json:"timestamp"`
	ID               string           `json:"adw_id"`
	Operation        string           `json:"operation"`
	Params           map[string]any   `json:"params"`
	Result           map[string]any   `json:"result,omitempty"`
	DurationSeconds  *float64         `json:"duration_seconds,omitempty"`
	ComplianceStatus ComplianceStatus `json:"compliance_status"`
	Warnings         []string         `json:"warnings"`
}

// Logger appends Entry records to a JSON-lines file. Safe for concurrent
// use; a write failure is logged and swallowed, matching the original's
// best-effort semantics (an audit outage must never abort the operation
// being audited).
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	enabled bool
	log     logging.Logger
}

// Open creates or appends to the audit log at path. Passing an empty path
// disables logging: Log becomes a no-op, matching AuditLogger(enabled=False)
// in the original.
func Open(path string, log logging.Logger) (*Logger, error) {
	if log == nil {
		log = logging.Default()
	}
	if path == "" {
		return &Logger{enabled: false, log: log}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{file: f, enabled: true, log: log}, nil
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Log appends an operation record. result, warnings, and duration may be
// nil/zero; a nil/empty warnings slice is normalized to an empty slice so
// the emitted JSON always carries a `warnings` array.
func (l *Logger) Log(id, operation string, params map[string]any, result map[string]any, duration *float64, status ComplianceStatus, warnings []string) Entry {
	if status == "" {
		status = ComplianceOK
	}
	if warnings == nil {
		warnings = []string{}
	}
	entry := Entry{
		Timestamp:        time.Now(),
		ID:               id,
		Operation:        operation,
		Params:           params,
		Result:           result,
		DurationSeconds:  duration,
		ComplianceStatus: status,
		Warnings:         warnings,
	}

	if !l.enabled {
		return entry
	}

	line, err := json.Marshal(entry)
	if err != nil {
		l.log.Warn("failed to marshal audit entry", logging.Err(err))
		return entry
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		l.log.Warn("failed to write audit log", logging.Err(err))
	}
	return entry
}
