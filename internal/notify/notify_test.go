package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSink struct {
	result bool
	called bool
}

func (s *stubSink) Send(_ context.Context, _ Notification) bool {
	s.called = true
	return s.result
}

func TestConsoleSinkAlwaysSucceeds(t *testing.T) {
	c := NewConsoleSink(nil)
	require.True(t, c.Send(context.Background(), Notification{Title: "t", Message: "m"}))
}

func TestMultiSinkSucceedsIfAnySucceeds(t *testing.T) {
	a := &stubSink{result: false}
	b := &stubSink{result: true}
	m := NewMultiSink(a, b)
	require.True(t, m.Send(context.Background(), Notification{Title: "t"}))
	require.True(t, a.called)
	require.True(t, b.called)
}

func TestMultiSinkAllFail(t *testing.T) {
	a := &stubSink{result: false}
	b := &stubSink{result: false}
	m := NewMultiSink(a, b)
	require.False(t, m.Send(context.Background(), Notification{Title: "t"}))
}

func TestNtfySinkSendsExpectedHeaders(t *testing.T) {
	var gotTitle, gotPriority, gotTags, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		gotTags = r.Header.Get("Tags")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewNtfySink("alerts", server.URL, "secret-token")
	ok := sink.Send(context.Background(), Notification{
		Title:    "SDR Alert",
		Message:  "New signal",
		Priority: PriorityUrgent,
		Tags:     []string{"sdr", "alert"},
	})

	require.True(t, ok)
	require.Equal(t, "SDR Alert", gotTitle)
	require.Equal(t, "5", gotPriority)
	require.Equal(t, "sdr,alert", gotTags)
	require.Equal(t, "Bearer secret-token", gotAuth)
}

func TestNtfySinkNon200IsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewNtfySink("alerts", server.URL, "")
	ok := sink.Send(context.Background(), Notification{Title: "t", Message: "m"})
	require.False(t, ok)
}
