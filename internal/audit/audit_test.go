package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogAppendsOneJSONLinePerEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := Open(path, nil)
	require.NoError(t, err)
	defer l.Close()

	l.Log("watch_1", "watch_started", map[string]any{"name": "Test"}, nil, nil, "", nil)
	l.Log("watch_1", "watch_stopped", map[string]any{"scans": 3}, nil, nil, ComplianceOK, nil)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "watch_1", first.ID)
	require.Equal(t, "watch_started", first.Operation)
	require.Equal(t, ComplianceOK, first.ComplianceStatus)
	require.NotNil(t, first.Warnings)
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	l, err := Open("", nil)
	require.NoError(t, err)
	entry := l.Log("x", "op", nil, nil, nil, "", nil)
	require.Equal(t, "op", entry.Operation)
}
