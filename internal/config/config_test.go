package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsValidatedDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "rtltcp", cfg.Device.Driver)
	require.Equal(t, 8192, cfg.Scan.FFTSize)
}

func TestLoadOverlaysDocumentOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfscout.yaml")
	doc := `
device:
  driver: mock
scan:
  threshold_db: -20
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "mock", cfg.Device.Driver)
	require.Equal(t, -20.0, cfg.Scan.ThresholdDB)
	require.Equal(t, 8192, cfg.Scan.FFTSize, "unset fields keep their default")
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Device.Driver = "usrp"
	require.Error(t, Validate(&cfg))
}

func TestValidateRejectsNonPowerOfTwoFFTSize(t *testing.T) {
	cfg := Default()
	cfg.Scan.FFTSize = 1000
	require.Error(t, Validate(&cfg))
}

func TestValidateFillsEmptySinksWithConsole(t *testing.T) {
	cfg := Default()
	cfg.Notify.Sinks = nil
	require.NoError(t, Validate(&cfg))
	require.Equal(t, []string{"console"}, cfg.Notify.Sinks)
}

func TestNewLoggerBuildsStdAndZapBackends(t *testing.T) {
	std, err := NewLogger(Logging{Level: "info", Format: "text", Backend: "std"})
	require.NoError(t, err)
	require.NotNil(t, std)

	z, err := NewLogger(Logging{Level: "info", Format: "json", Backend: "zap"})
	require.NoError(t, err)
	require.NotNil(t, z)
}
