// Package notify implements the notification transport collaborator of
// spec.md §6: a console backend, an HTTP backend for ntfy-compatible push
// services, and a concurrent multi-backend fan-out.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kx9v/rfscout/internal/logging"
)

// Priority maps to ntfy's 1-5 priority scale.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityDefault
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityUrgent:
		return "URGENT"
	default:
		return "DEFAULT"
	}
}

// Notification is a single message to deliver through one or more Sinks.
type Notification struct {
	Title     string
	Message   string
	Priority  Priority
	Timestamp time.Time
	Tags      []string
	Data      map[string]any
}

// Sink delivers a Notification to one transport. Implementations must not
// panic; transport failures are reported via the bool return.
type Sink interface {
	Send(ctx context.Context, n Notification) bool
}

// ConsoleSink formats notifications for terminal output via a logger.
type ConsoleSink struct {
	log logging.Logger
}

// NewConsoleSink builds a console sink. A nil logger uses logging.Default().
func NewConsoleSink(log logging.Logger) *ConsoleSink {
	if log == nil {
		log = logging.Default()
	}
	return &ConsoleSink{log: log}
}

func (c *ConsoleSink) Send(_ context.Context, n Notification) bool {
	c.log.Info(n.Title,
		logging.Field{Key: "message", Value: n.Message},
		logging.Field{Key: "priority", Value: n.Priority.String()},
		logging.Field{Key: "tags", Value: strings.Join(n.Tags, ",")},
	)
	return true
}

// NtfySink delivers notifications via an HTTP POST to an ntfy-compatible
// push server, matching the header contract of spec.md §6.
type NtfySink struct {
	Topic     string
	Server    string // default "https://ntfy.sh"
	AuthToken string
	Client    *http.Client
}

// NewNtfySink builds an ntfy sink. An empty server defaults to ntfy.sh.
func NewNtfySink(topic, server, authToken string) *NtfySink {
	if server == "" {
		server = "https://ntfy.sh"
	}
	return &NtfySink{
		Topic:     topic,
		Server:    strings.TrimRight(server, "/"),
		AuthToken: authToken,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *NtfySink) Send(ctx context.Context, n Notification) bool {
	url := fmt.Sprintf("%s/%s", s.Server, s.Topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(n.Message))
	if err != nil {
		return false
	}
	req.Header.Set("Title", n.Title)
	req.Header.Set("Priority", fmt.Sprintf("%d", int(n.Priority)))
	if len(n.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(n.Tags, ","))
	}
	if s.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AuthToken)
	}
	if len(n.Data) > 0 {
		if b, err := json.Marshal(n.Data); err == nil {
			req.Header.Set("X-Data", string(b))
		}
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// MultiSink dispatches concurrently to every configured Sink and returns a
// per-sink success vector, matching MultiBackend.send in the original.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink wraps a set of sinks for concurrent delivery.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// SendAll delivers n to every sink concurrently and returns a result slice
// aligned with MultiSink.Sinks.
func (m *MultiSink) SendAll(ctx context.Context, n Notification) []bool {
	results := make([]bool, len(m.Sinks))
	done := make(chan struct{}, len(m.Sinks))
	for i, sink := range m.Sinks {
		go func(i int, sink Sink) {
			defer func() { done <- struct{}{} }()
			results[i] = sink.Send(ctx, n)
		}(i, sink)
	}
	for range m.Sinks {
		<-done
	}
	return results
}

// Send implements Sink, reporting success iff any backend succeeded.
func (m *MultiSink) Send(ctx context.Context, n Notification) bool {
	for _, ok := range m.SendAll(ctx, n) {
		if ok {
			return true
		}
	}
	return false
}
