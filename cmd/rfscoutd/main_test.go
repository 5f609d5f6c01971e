package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testGetenv(t *testing.T) func(string) string {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rfscout.yaml")
	doc := "device:\n  driver: mock\nstore:\n  path: " + filepath.Join(dir, "rfscout.db") + "\naudit:\n  path: \"\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))
	return func(key string) string {
		if key == "RFSCOUT_CONFIG" {
			return cfgPath
		}
		return ""
	}
}

func TestRunWithNoArgsReturnsArgError(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(nil, &out, &errOut, func(string) string { return "" })
	require.Equal(t, exitArgError, code)
}

func TestRunWithUnknownSubcommandReturnsArgError(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"bogus"}, &out, &errOut, testGetenv(t))
	require.Equal(t, exitArgError, code)
}

func TestRunScanAgainstMockDeviceSucceeds(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"scan", "--freq", "100300000", "--bandwidth", "200000"}, &out, &errOut, testGetenv(t))
	require.Equal(t, exitOK, code, errOut.String())
	require.Contains(t, out.String(), "noise floor")
}

func TestRunSurveyWithoutActionIsRuntimeError(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"survey"}, &out, &errOut, testGetenv(t))
	require.Equal(t, exitRuntime, code)
}
