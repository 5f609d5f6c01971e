package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogTextIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Info, Text, &buf)

	l.Info("segment started", SegmentID("seg-1"), Attempt(2))

	out := buf.String()
	require.Contains(t, out, "segment started")
	require.Contains(t, out, "segment_id=seg-1")
	require.Contains(t, out, "attempt=2")
}

func TestLogJSONEncodesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Info, JSON, &buf)

	l.Warn("signal lookup failed", SignalID("sig-1"), Err(errors.New("not found")))

	out := buf.String()
	require.Contains(t, out, `"signal_id":"sig-1"`)
	require.Contains(t, out, `"error":"not found"`)
	require.Contains(t, out, `"level":"WARN"`)
}

func TestDebugBelowLevelIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	l := New(Info, Text, &buf)

	l.Debug("should not appear")

	require.Empty(t, strings.TrimSpace(buf.String()))
}

func TestWithAppendsFieldsToSubsequentCalls(t *testing.T) {
	var buf bytes.Buffer
	l := New(Info, Text, &buf).With(SurveyID("sv-1"))

	l.Info("segment completed", SegmentID("seg-1"))

	out := buf.String()
	require.Contains(t, out, "survey_id=sv-1")
	require.Contains(t, out, "segment_id=seg-1")
}

func TestComponentTagsSubsequentLines(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(Info, Text, &buf), "scanner")

	l.Info("scan started")

	require.Contains(t, buf.String(), "component=scanner")
}

func TestParseLevelAndFormat(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	require.Equal(t, Warn, lvl)

	_, err = ParseLevel("bogus")
	require.Error(t, err)

	f, err := ParseFormat("json")
	require.NoError(t, err)
	require.Equal(t, JSON, f)
}
