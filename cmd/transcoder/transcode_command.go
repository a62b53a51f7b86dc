package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"media-transcoder/internal/domain"
	"media-transcoder/internal/jobs"
)

type transcodeOptions struct {
	format           string
	videoCodec       string
	audioCodec       string
	videoBitrate     string
	audioBitrate     string
	resolution       string
	customResolution string
	output           string
	quiet            bool
}

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	var opts transcodeOptions

	cmd := &cobra.Command{
		Use:   "transcode <input>",
		Short: "Transcode one media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.config.Defaults
			applyFlagOverrides(cmd, opts, &settings)
			return runTranscode(cmd, ctx, args[0], settings, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "", "Output container (see `transcoder formats`)")
	flags.StringVar(&opts.videoCodec, "vcodec", "", "Video codec")
	flags.StringVar(&opts.audioCodec, "acodec", "", "Audio codec")
	flags.StringVar(&opts.videoBitrate, "vbitrate", "", "Video bitrate in kbps")
	flags.StringVar(&opts.audioBitrate, "abitrate", "", "Audio bitrate in kbps")
	flags.StringVarP(&opts.resolution, "resolution", "r", "", "Resolution preset, WxH, same, or custom")
	flags.StringVar(&opts.customResolution, "custom-resolution", "", "WxH used when --resolution=custom")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file (defaults to the configured output directory)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Skip progress output and the session log")
	return cmd
}

// applyFlagOverrides replaces configured defaults with explicitly set flags.
func applyFlagOverrides(cmd *cobra.Command, opts transcodeOptions, settings *domain.Settings) {
	flags := cmd.Flags()
	overrides := []struct {
		name  string
		value string
		dst   *string
	}{
		{"format", opts.format, &settings.OutputFormat},
		{"vcodec", opts.videoCodec, &settings.VideoCodec},
		{"acodec", opts.audioCodec, &settings.AudioCodec},
		{"vbitrate", opts.videoBitrate, &settings.VideoBitrate},
		{"abitrate", opts.audioBitrate, &settings.AudioBitrate},
		{"resolution", opts.resolution, &settings.Resolution},
		{"custom-resolution", opts.customResolution, &settings.CustomResolution},
	}
	for _, o := range overrides {
		if flags.Changed(o.name) {
			*o.dst = strings.TrimSpace(o.value)
		}
	}
}

func runTranscode(cmd *cobra.Command, cctx *commandContext, input string, settings domain.Settings, opts transcodeOptions) error {
	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	logger := cctx.newLogger(cmd)

	stopMetrics, err := cctx.startMetricsServer(logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	bridge := cctx.newBridge(logger)
	defer func() {
		if err := bridge.Close(context.Background()); err != nil {
			logger.Warn("close engine", "error", err)
		}
	}()

	printer := newProgressPrinter(out, !opts.quiet && isTerminal(out))
	notify := printer.handle
	if opts.quiet {
		notify = nil
	}
	orchestrator := jobs.New(bridge, jobs.Options{
		Logger:   logger.Named("jobs"),
		Settings: settings,
		Notify:   notify,
	})

	// An engine that fails to initialize fails the job below with the same error.
	_ = orchestrator.Initialize(runCtx)

	job, err := loadInput(runCtx, orchestrator, input)
	if err != nil {
		printSessionLog(out, orchestrator, opts.quiet)
		return err
	}

	if err := orchestrator.StartTranscode(runCtx); err != nil {
		printSessionLog(out, orchestrator, opts.quiet)
		return err
	}
	job, err = orchestrator.Wait(runCtx)
	printer.finish()
	if err != nil {
		return err
	}

	if job.Status != domain.JobStatusCompleted {
		printSessionLog(out, orchestrator, opts.quiet)
		if job.Error != nil {
			return fmt.Errorf("transcode failed: %s: %s", job.Error.Kind, job.Error.Message)
		}
		return fmt.Errorf("transcode ended %s", job.Status)
	}

	saver := &jobs.PathSaver{Path: opts.output, Dir: cctx.config.Paths.OutputDir}
	_, exportErr := orchestrator.ExportResult(runCtx, saver)
	printSessionLog(out, orchestrator, opts.quiet)
	if exportErr != nil {
		return fmt.Errorf("save result: %w", exportErr)
	}

	fmt.Fprintf(out, "Wrote %s (%s from %s)\n",
		saver.Written,
		humanize.IBytes(uint64(job.Result.Size)),
		humanize.IBytes(uint64(job.InputSize)))
	return nil
}

// loadInput selects the input file and waits for it to be read.
func loadInput(ctx context.Context, orchestrator *jobs.Orchestrator, input string) (domain.Job, error) {
	if err := orchestrator.SelectFile(ctx, jobs.PathSource{Path: input}); err != nil {
		return domain.Job{}, err
	}
	job, err := orchestrator.Wait(ctx)
	if err != nil {
		return job, err
	}
	if job.Status != domain.JobStatusReady {
		return job, fmt.Errorf("load input %s: job is %s", input, job.Status)
	}
	return job, nil
}

func printSessionLog(out io.Writer, orchestrator *jobs.Orchestrator, quiet bool) {
	if quiet {
		return
	}
	fmt.Fprintln(out, renderSessionLog(orchestrator.Logs()))
}

func renderSessionLog(entries []domain.LogEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{entry.Timestamp.Local().Format("15:04:05"), entry.Level, entry.Message})
	}
	return renderTable([]string{"Time", "Level", "Message"}, rows, nil)
}
