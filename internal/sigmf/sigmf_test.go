package sigmf

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleSignal(n int) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		t := float64(i) / 48000.0
		re := 0.5 * float32(math.Cos(2*math.Pi*440*t))
		im := 0.5 * float32(math.Sin(2*math.Pi*440*t))
		out[i] = complex(re, im)
	}
	return out
}

func TestCreateLoadToSamplesRoundTripsComplexFloat32(t *testing.T) {
	dir := t.TempDir()
	original := sampleSignal(256)

	rec, err := Create(original, 48000, 100_300_000, dir, "capture1", "test capture", ComplexFloat32)
	require.NoError(t, err)

	loaded, err := Load(rec.MetaPath)
	require.NoError(t, err)
	require.Equal(t, ComplexFloat32, loaded.Datatype)
	require.Equal(t, float64(48000), loaded.SampleRate)

	freq, ok := loaded.CenterFrequency()
	require.True(t, ok)
	require.Equal(t, float64(100_300_000), freq)

	samples, err := loaded.ToSamples()
	require.NoError(t, err)
	require.Len(t, samples, len(original))
	for i := range original {
		require.InDelta(t, real(original[i]), real(samples[i]), 1e-6)
		require.InDelta(t, imag(original[i]), imag(samples[i]), 1e-6)
	}
}

func TestLoadAcceptsEitherPairedPath(t *testing.T) {
	dir := t.TempDir()
	rec, err := Create(sampleSignal(16), 2_000_000, 915_000_000, dir, "capture2", "", ComplexInt16)
	require.NoError(t, err)

	fromData, err := Load(rec.DataPath)
	require.NoError(t, err)
	require.Equal(t, ComplexInt16, fromData.Datatype)
}

func TestLoadRejectsInvalidExtension(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "capture.txt"))
	require.Error(t, err)
}

func TestLoadFailsWhenPairedFileMissing(t *testing.T) {
	dir := t.TempDir()
	rec, err := Create(sampleSignal(8), 1000, 1000, dir, "lonely", "", ComplexFloat32)
	require.NoError(t, err)

	require.NoError(t, os.Remove(rec.DataPath))
	_, err = Load(rec.MetaPath)
	require.Error(t, err)
}

func TestDecodeRejectsLengthNotMultipleOfSampleSize(t *testing.T) {
	_, err := Decode([]byte{0, 1, 2}, ComplexFloat32)
	require.Error(t, err)
}

func TestAddAnnotationAppendsAndPersists(t *testing.T) {
	dir := t.TempDir()
	rec, err := Create(sampleSignal(32), 48000, 100_300_000, dir, "annotated", "", ComplexFloat32)
	require.NoError(t, err)

	rec.AddAnnotation(0, 16, "burst", "short burst", 100_290_000, 100_310_000, true, true)
	require.NoError(t, rec.SaveMetadata())

	loaded, err := Load(rec.MetaPath)
	require.NoError(t, err)
	require.Len(t, loaded.Annotations, 1)
	require.Equal(t, "burst", loaded.Annotations[0].Label)
	require.True(t, loaded.Annotations[0].HasFreqLower)
}

func TestDurationSecondsMatchesSampleCount(t *testing.T) {
	dir := t.TempDir()
	rec, err := Create(sampleSignal(4800), 48000, 100_300_000, dir, "duration", "", ComplexFloat32)
	require.NoError(t, err)

	require.InDelta(t, 0.1, rec.DurationSeconds(), 1e-9)
}
