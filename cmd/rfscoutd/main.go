// Command rfscoutd is the thin CLI entrypoint over the spectrum discovery
// engine: spectrum scanning, FM/AM demodulation, baseline watches, and
// survey management, each a subcommand of one process.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kx9v/rfscout/internal/audit"
	"github.com/kx9v/rfscout/internal/config"
	"github.com/kx9v/rfscout/internal/dsp"
	"github.com/kx9v/rfscout/internal/logging"
	"github.com/kx9v/rfscout/internal/notify"
	"github.com/kx9v/rfscout/internal/scanner"
	"github.com/kx9v/rfscout/internal/sigmf"
	"github.com/kx9v/rfscout/internal/store"
	"github.com/kx9v/rfscout/internal/survey"
	"github.com/kx9v/rfscout/internal/tuner"
	"github.com/kx9v/rfscout/internal/watch"
)

// Exit codes per the documented CLI surface: 0 success, 1 runtime failure,
// 2 argument error.
const (
	exitOK       = 0
	exitRuntime  = 1
	exitArgError = 2
)

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	os.Exit(code)
}

func run(args []string, out, errOut io.Writer, getenv func(string) string) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: rfscoutd <scan|record|am|fm|watch|survey|iot-scan> [flags]")
		return exitArgError
	}

	cmd, rest := args[0], args[1:]

	fs := pflag.NewFlagSet("rfscoutd", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", defaultConfigPath(getenv), "path to rfscout.yaml")
	freqHz := fs.Float64("freq", 0, "center frequency in Hz")
	bandwidthHz := fs.Float64("bandwidth", 0, "scan bandwidth in Hz")
	startHz := fs.Float64("start", 0, "scan range start in Hz")
	endHz := fs.Float64("end", 0, "scan range end in Hz")
	stepHz := fs.Float64("step", 100_000, "re-tune step in Hz")
	dwellMs := fs.Float64("dwell-ms", 50, "dwell time per step in milliseconds")
	durationS := fs.Float64("duration", 5, "capture/demod duration in seconds")
	outputPath := fs.String("output", "", "output directory or file path")
	deviceIndex := fs.Int("device-index", 0, "SDR device index")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	jsonOutput := fs.Bool("json", false, "emit machine-readable output")
	surveyID := fs.String("survey-id", "", "survey identifier")
	fullCoverage := fs.Bool("full", false, "cover the full scan range including gap segments")

	if err := fs.Parse(rest); err != nil {
		return exitArgError
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(errOut, "loading config: %v\n", err)
		return exitArgError
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(errOut, "building logger: %v\n", err)
		return exitArgError
	}

	auditLog, err := audit.Open(cfg.Audit.Path, log)
	if err != nil {
		fmt.Fprintf(errOut, "opening audit log: %v\n", err)
		return exitRuntime
	}
	defer auditLog.Close()

	opts := cmdOptions{
		cfg:          cfg,
		log:          log,
		audit:        auditLog,
		out:          out,
		freqHz:       *freqHz,
		bandwidthHz:  *bandwidthHz,
		startHz:      *startHz,
		endHz:        *endHz,
		stepHz:       *stepHz,
		dwellMs:      *dwellMs,
		durationS:    *durationS,
		outputPath:   *outputPath,
		deviceIndex:  *deviceIndex,
		jsonOutput:   *jsonOutput,
		surveyID:     *surveyID,
		fullCoverage: *fullCoverage,
		args:         fs.Args(),
	}

	ctx := context.Background()
	var runErr error
	switch cmd {
	case "scan":
		runErr = cmdScan(ctx, opts)
	case "record":
		runErr = cmdRecord(ctx, opts)
	case "am":
		runErr = cmdDemod(ctx, opts, "am")
	case "fm":
		runErr = cmdDemod(ctx, opts, "fm")
	case "watch":
		runErr = cmdWatch(ctx, opts)
	case "survey":
		runErr = cmdSurvey(ctx, opts)
	case "iot-scan":
		runErr = cmdIOTScan(ctx, opts)
	default:
		fmt.Fprintf(errOut, "unknown subcommand %q\n", cmd)
		return exitArgError
	}

	if runErr != nil {
		fmt.Fprintf(errOut, "%s: %v\n", cmd, runErr)
		return exitRuntime
	}
	return exitOK
}

func defaultConfigPath(getenv func(string) string) string {
	if p := strings.TrimSpace(getenv("RFSCOUT_CONFIG")); p != "" {
		return p
	}
	return "rfscout.yaml"
}

type cmdOptions struct {
	cfg          config.Config
	log          logging.Logger
	audit        *audit.Logger
	out          io.Writer
	freqHz       float64
	bandwidthHz  float64
	startHz      float64
	endHz        float64
	stepHz       float64
	dwellMs      float64
	durationS    float64
	outputPath   string
	deviceIndex  int
	jsonOutput   bool
	surveyID     string
	fullCoverage bool
	args         []string
}

func openTuner(ctx context.Context, opts cmdOptions) (tuner.Tuner, error) {
	var t tuner.Tuner
	switch opts.cfg.Device.Driver {
	case "mock":
		m := tuner.NewMock(time.Now().UnixNano())
		t = m
	default:
		t = tuner.NewRTLTCPTuner(opts.cfg.Device.Address)
	}
	if err := t.Open(ctx, opts.cfg.Device.SampleRate, opts.freqHz, opts.cfg.Device.Gain, opts.cfg.Device.PPM, opts.deviceIndex); err != nil {
		return nil, fmt.Errorf("opening tuner: %w", err)
	}
	return t, nil
}

func newScanner(t tuner.Tuner, opts cmdOptions) *scanner.Scanner {
	sc := scanner.New(t)
	sc.SampleRate = opts.cfg.Device.SampleRate
	sc.FFTSize = opts.cfg.Scan.FFTSize
	sc.ThresholdDB = opts.cfg.Scan.ThresholdDB
	sc.USBRetries = opts.cfg.Scan.USBRetries
	sc.Gain = opts.cfg.Device.Gain
	sc.PPM = opts.cfg.Device.PPM
	sc.DeviceIndex = opts.deviceIndex
	if opts.log != nil {
		sc.Log = opts.log
	}
	return sc
}

func cmdScan(ctx context.Context, opts cmdOptions) error {
	t, err := openTuner(ctx, opts)
	if err != nil {
		return err
	}
	defer t.Close()

	sc := newScanner(t, opts)
	start, end := opts.startHz, opts.endHz
	if end == 0 {
		start, end = opts.freqHz-opts.bandwidthHz/2, opts.freqHz+opts.bandwidthHz/2
	}

	result, err := sc.Scan(ctx, start, end, opts.stepHz, opts.dwellMs)
	if err != nil {
		return err
	}

	for _, p := range result.Peaks {
		fmt.Fprintf(opts.out, "%.3f MHz  %.1f dB\n", p.FrequencyHz/1e6, p.PowerDB)
	}
	fmt.Fprintf(opts.out, "noise floor: %.1f dB, %d peaks, %.2fs\n", result.NoiseFloorDB, len(result.Peaks), result.ScanTimeS)
	return nil
}

func cmdRecord(ctx context.Context, opts cmdOptions) error {
	t, err := openTuner(ctx, opts)
	if err != nil {
		return err
	}
	defer t.Close()

	n := int(opts.durationS * opts.cfg.Device.SampleRate)
	samples, err := t.ReadSamples(ctx, n)
	if err != nil {
		return fmt.Errorf("reading samples: %w", err)
	}

	outDir := opts.outputPath
	if outDir == "" {
		outDir = "."
	}
	rec, err := sigmf.Create(samples, opts.cfg.Device.SampleRate, opts.freqHz, outDir, "", "rfscoutd capture", sigmf.ComplexFloat32)
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.out, "wrote %s\n", rec.DataPath)
	return nil
}

func cmdDemod(ctx context.Context, opts cmdOptions, mode string) error {
	t, err := openTuner(ctx, opts)
	if err != nil {
		return err
	}
	defer t.Close()

	n := int(opts.durationS * opts.cfg.Device.SampleRate)
	samples, err := t.ReadSamples(ctx, n)
	if err != nil {
		return fmt.Errorf("reading samples: %w", err)
	}

	var audioOut []float64
	switch mode {
	case "fm":
		audioOut = dsp.DemodFM(samples, dsp.FMOptions{SampleRate: opts.cfg.Device.SampleRate, AudioRate: 48_000})
	case "am":
		audioOut = dsp.DemodAM(samples, dsp.AMOptions{SampleRate: opts.cfg.Device.SampleRate, AudioRate: 48_000})
	}
	fmt.Fprintf(opts.out, "demodulated %d audio samples\n", len(audioOut))
	return nil
}

func cmdWatch(ctx context.Context, opts cmdOptions) error {
	t, err := openTuner(ctx, opts)
	if err != nil {
		return err
	}
	defer t.Close()

	sc := newScanner(t, opts)
	sink, err := buildNotifySink(opts.cfg.Notify)
	if err != nil {
		return err
	}

	wcfg := watch.DefaultConfig("cli-watch", "rfscoutd watch")
	if opts.endHz != 0 {
		wcfg.CustomRange = &watch.FreqRange{StartHz: opts.startHz, EndHz: opts.endHz}
	}

	w := watch.New(wcfg, sc, sink, opts.audit, opts.log, opts.cfg.WatchStateDir)
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.durationS)*time.Second)
	defer cancel()

	w.Start(runCtx)
	<-runCtx.Done()
	w.Stop(context.Background())
	return nil
}

func buildNotifySink(cfg config.Notify) (notify.Sink, error) {
	var sinks []notify.Sink
	for _, name := range cfg.Sinks {
		switch {
		case name == "console":
			sinks = append(sinks, notify.NewConsoleSink(nil))
		case strings.HasPrefix(name, "ntfy:"):
			topic := strings.TrimPrefix(name, "ntfy:")
			sinks = append(sinks, notify.NewNtfySink(topic, cfg.NtfyAddr, cfg.NtfyToken))
		default:
			return nil, fmt.Errorf("unknown notification sink %q", name)
		}
	}
	if len(sinks) == 0 {
		return notify.NewConsoleSink(nil), nil
	}
	return notify.NewMultiSink(sinks...), nil
}

func cmdSurvey(ctx context.Context, opts cmdOptions) error {
	if len(opts.args) == 0 {
		return fmt.Errorf("survey requires a subcommand: create, list, status, resume, next, reclaim-stale")
	}
	action := opts.args[0]

	s, err := store.Open(opts.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	switch action {
	case "create":
		t, err := openTuner(ctx, opts)
		if err != nil {
			return err
		}
		defer t.Close()
		sc := newScanner(t, opts)
		eng := survey.New(s, sc)
		sv, err := eng.CreateSurvey(ctx, "rfscoutd survey", survey.CreateSurveyOptions{
			StartHz:      opts.startHz,
			EndHz:        opts.endHz,
			FullCoverage: opts.fullCoverage,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(opts.out, "created survey %s (%d segments)\n", sv.SurveyID, sv.TotalSegments)
	case "status":
		sv, err := s.GetSurvey(ctx, opts.surveyID)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return json.NewEncoder(opts.out).Encode(sv)
		}
		fmt.Fprintf(opts.out, "%s: %s (%.1f%% complete, %d signals)\n", sv.SurveyID, sv.Status, sv.CompletionPct, sv.TotalSignalsFound)
	case "resume", "next":
		t, err := openTuner(ctx, opts)
		if err != nil {
			return err
		}
		defer t.Close()
		sc := newScanner(t, opts)
		eng := survey.New(s, sc)
		_, ok := eng.ExecuteNext(ctx, opts.surveyID, true)
		if !ok {
			fmt.Fprintln(opts.out, "no segments remaining")
		}
	case "list":
		surveys, err := s.ListSurveys(ctx)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return json.NewEncoder(opts.out).Encode(surveys)
		}
		if len(surveys) == 0 {
			fmt.Fprintln(opts.out, "no surveys recorded")
			break
		}
		for _, sv := range surveys {
			fmt.Fprintf(opts.out, "%s  %-11s %.1f%% complete  %d signals  %s\n",
				sv.SurveyID, sv.Status, sv.CompletionPct, sv.TotalSignalsFound, sv.Name)
		}
	case "reclaim-stale":
		eng := survey.New(s, nil)
		olderThan := time.Duration(opts.durationS * float64(time.Second))
		n, err := eng.ReclaimStale(ctx, olderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(opts.out, "reclaimed %d stale segment(s)\n", n)
	default:
		return fmt.Errorf("unknown survey action %q", action)
	}
	return nil
}

func cmdIOTScan(ctx context.Context, opts cmdOptions) error {
	t, err := openTuner(ctx, opts)
	if err != nil {
		return err
	}
	defer t.Close()

	sc := newScanner(t, opts)
	peaks, err := sc.QuickScan(ctx, opts.freqHz, opts.bandwidthHz)
	if err != nil {
		return err
	}
	for _, p := range peaks {
		fmt.Fprintf(opts.out, "%.3f MHz  %.1f dB\n", p.FrequencyHz/1e6, p.PowerDB)
	}
	return nil
}
