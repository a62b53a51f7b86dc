package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"media-transcoder/internal/config"
	"media-transcoder/internal/domain"
	"media-transcoder/internal/jobs"
)

type cliTestEnv struct {
	configPath string
	outputDir  string
	baseDir    string
}

// setupCLITestEnv writes a config whose engine module does not exist.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Engine.ModulePath = filepath.Join(base, "engine", "ffmpeg.wasm")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "config.toml")
	if err := config.NewTOMLStore(configPath).Save(cfg); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath, outputDir: cfg.Paths.OutputDir, baseDir: base}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFormatsCommandListsCatalogs(t *testing.T) {
	out, _, err := runCLI(t, "formats")
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	for _, want := range []string{"webm", "video/webm", "vp9", "opus", "1280x720", "keep source size"} {
		if !strings.Contains(out, want) {
			t.Fatalf("formats output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitWritesSampleOnce(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output = %q, want path %q", out, target)
	}
	if _, err := config.NewTOMLStore(target).Load(); err != nil {
		t.Fatalf("load sample: %v", err)
	}

	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init to refuse overwriting")
	}
	if _, _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestTranscodeFailsWhenEngineMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "clip.mp4")
	if err := os.WriteFile(input, []byte("frames"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, _, err := runCLI(t, "--config", env.configPath, "transcode", input, "--format", "webm")
	if err == nil || !strings.Contains(err.Error(), "transcode failed") {
		t.Fatalf("transcode error = %v, want transcode failure", err)
	}
	for _, want := range []string{"Starting transcoding process...", "Error during transcoding"} {
		if !strings.Contains(out, want) {
			t.Fatalf("session log missing %q:\n%s", want, out)
		}
	}
	if _, statErr := os.Stat(env.outputDir); !os.IsNotExist(statErr) {
		t.Fatalf("output dir stat err = %v, want not exist", statErr)
	}
}

func TestTranscodeRejectsMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, "--config", env.configPath, "transcode", filepath.Join(env.baseDir, "missing.mp4"))
	if err == nil || !strings.Contains(err.Error(), "load input") {
		t.Fatalf("transcode error = %v, want load input failure", err)
	}
	if !strings.Contains(out, "Error reading file") {
		t.Fatalf("session log missing read error:\n%s", out)
	}
}

func TestDiagnoseReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, "--config", env.configPath, "diagnose")
	if !errors.Is(err, errDiagnosticsFailed) {
		t.Fatalf("diagnose error = %v, want %v", err, errDiagnosticsFailed)
	}
	for _, want := range []string{env.configPath, "Engine module", "fail"} {
		if !strings.Contains(out, want) {
			t.Fatalf("diagnose output missing %q:\n%s", want, out)
		}
	}
}

func TestApplyFlagOverridesOnlyChangedFlags(t *testing.T) {
	var opts transcodeOptions
	cmd := &cobra.Command{Use: "transcode"}
	cmd.Flags().StringVar(&opts.format, "format", "", "")
	cmd.Flags().StringVar(&opts.videoCodec, "vcodec", "", "")
	cmd.Flags().StringVar(&opts.audioCodec, "acodec", "", "")
	cmd.Flags().StringVar(&opts.videoBitrate, "vbitrate", "", "")
	cmd.Flags().StringVar(&opts.audioBitrate, "abitrate", "", "")
	cmd.Flags().StringVar(&opts.resolution, "resolution", "", "")
	cmd.Flags().StringVar(&opts.customResolution, "custom-resolution", "", "")
	if err := cmd.ParseFlags([]string{"--format", " mkv ", "--abitrate", "192"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	settings := domain.Settings{OutputFormat: "mp4", VideoCodec: "h264", AudioCodec: "aac", AudioBitrate: "128"}
	applyFlagOverrides(cmd, opts, &settings)

	want := domain.Settings{OutputFormat: "mkv", VideoCodec: "h264", AudioCodec: "aac", AudioBitrate: "192"}
	if settings != want {
		t.Fatalf("settings = %+v, want %+v", settings, want)
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "[----------]"},
		{50, "[#####-----]"},
		{100, "[##########]"},
		{140, "[##########]"},
		{-5, "[----------]"},
	}
	for _, tt := range tests {
		if got := renderBar(tt.percent, 10); got != tt.want {
			t.Fatalf("renderBar(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestProgressPrinterAppendsCoarseLines(t *testing.T) {
	var out bytes.Buffer
	printer := newProgressPrinter(&out, false)

	printer.handle(jobs.Event{Type: jobs.EventTypeStatus, Status: domain.JobStatusTranscoding})
	for _, p := range []float64{10, 20, 30, 60, 90} {
		printer.handle(jobs.Event{Type: jobs.EventTypeProgress, Progress: p})
	}
	printer.handle(jobs.Event{Type: jobs.EventTypeResult})
	printer.finish()

	want := "Transcoding:   0%\nTranscoding:  30%\nTranscoding:  60%\nTranscoding:  90%\nTranscoding: 100%\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestProgressPrinterLiveRedrawsLine(t *testing.T) {
	var out bytes.Buffer
	printer := newProgressPrinter(&out, true)

	printer.handle(jobs.Event{Type: jobs.EventTypeProgress, Progress: 50})
	printer.finish()

	got := out.String()
	if !strings.HasPrefix(got, "\r[") || !strings.HasSuffix(got, " 50.0%\n") {
		t.Fatalf("output = %q, want redrawn line ending in newline", got)
	}
}
