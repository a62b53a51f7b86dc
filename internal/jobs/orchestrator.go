package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"media-transcoder/internal/domain"
	"media-transcoder/internal/faults"
	"media-transcoder/internal/media"
	"media-transcoder/internal/metrics"
	"media-transcoder/internal/progress"
)

var (
	// ErrUnknownSetting is returned by UpdateSetting for a name it does not know.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrExportCancelled is returned by a Saver when the user dismisses the export.
	ErrExportCancelled = errors.New("export cancelled")
)

// Engine runs transcodes. Only one Transcode call may be outstanding.
type Engine interface {
	Initialize(ctx context.Context) error
	Transcode(ctx context.Context, req media.Request) (domain.ResultArtifact, error)
	Subscribe() (<-chan float64, func())
}

// FileSource is an input file picked by the user.
type FileSource interface {
	Name() string
	ReadAll(ctx context.Context) ([]byte, error)
}

// Export is a finished result ready to be written somewhere.
type Export struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Saver writes an exported result, typically through a save dialog.
type Saver interface {
	Save(ctx context.Context, export Export) error
}

// Options configures an Orchestrator.
type Options struct {
	Logger hclog.Logger
	// Settings seeds the pending settings; the zero value uses media defaults.
	Settings domain.Settings
	// Notify receives every published event after the orchestrator lock is
	// released.
	Notify   func(Event)
	NewJobID func() string
}

// Orchestrator owns the single job, accepts user intents and drives the
// engine. All state changes are serialized under mu.
type Orchestrator struct {
	engine  Engine
	logger  hclog.Logger
	manager *Manager
	bus     *EventBus
	notify  func(Event)
	newID   func() string

	mu        sync.Mutex
	pending   domain.Settings
	reporter  *progress.Reporter
	sampler   *progress.Sampler
	epoch     uint64
	inFlight  bool
	format    media.Format
	startedAt time.Time
	changed   chan struct{}
	outbox    []Event
}

// New creates an orchestrator in Idle with the welcome entry logged.
func New(engine Engine, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	settings := opts.Settings
	if settings == (domain.Settings{}) {
		settings = media.DefaultSettings()
	}
	newID := opts.NewJobID
	if newID == nil {
		newID = uuid.NewString
	}

	o := &Orchestrator{
		engine:   engine,
		logger:   logger,
		manager:  NewManager(),
		bus:      NewEventBus(0),
		notify:   opts.Notify,
		newID:    newID,
		pending:  settings,
		reporter: progress.NewReporter(),
		sampler:  progress.NewSampler(10),
		changed:  make(chan struct{}),
	}

	o.mu.Lock()
	o.logLocked(LevelInfo, "Welcome to the media transcoder")
	o.unlock()
	return o
}

// Initialize sets up the engine once. A failure is logged and returned but
// not retried; later transcodes fail with the same error.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	err := o.engine.Initialize(ctx)
	if err == nil {
		return nil
	}

	normalized := faults.Normalize(err)
	o.mu.Lock()
	defer o.unlock()
	o.logLocked(LevelError, "Engine initialization failed: "+normalized.Message)
	return normalized
}

// SelectFile starts a new job for src and reads it in the background. It is
// valid in every state and discards all data of the previous job. A
// transcode still running is left to finish and its outcome is dropped.
func (o *Orchestrator) SelectFile(ctx context.Context, src FileSource) error {
	o.mu.Lock()
	defer o.unlock()

	if src == nil {
		return o.rejectLocked("selectFile", "No file selected", nil)
	}

	o.epoch++
	token := o.epoch
	o.manager.Begin(o.newID(), src.Name())
	o.resetProgressLocked()
	o.statusLocked()
	o.logLocked(LevelInfo, "File selected: "+src.Name())

	go o.load(ctx, token, src)
	return nil
}

func (o *Orchestrator) load(ctx context.Context, token uint64, src FileSource) {
	data, err := readAll(ctx, src)

	o.mu.Lock()
	defer o.unlock()

	if token != o.epoch || o.manager.Status() != domain.JobStatusLoading {
		return
	}
	if err != nil {
		o.manager.Reset()
		o.statusLocked()
		o.logLocked(LevelError, "Error reading file: "+err.Error())
		return
	}
	o.fileLoadedLocked(data)
}

func readAll(ctx context.Context, src FileSource) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, faults.FromPanic(r)
		}
	}()
	return src.ReadAll(ctx)
}

// FileLoaded stores input bytes for the job being loaded and moves it to
// Ready. It supersedes a background read still in progress.
func (o *Orchestrator) FileLoaded(data []byte) error {
	o.mu.Lock()
	defer o.unlock()

	if status := o.manager.Status(); status != domain.JobStatusLoading {
		return o.rejectLocked("fileLoaded", fmt.Sprintf("Cannot accept file data while %s", status), nil)
	}
	o.epoch++
	o.fileLoadedLocked(data)
	return nil
}

func (o *Orchestrator) fileLoadedLocked(data []byte) {
	if err := o.manager.Load(data); err != nil {
		o.logLocked(LevelError, "Cannot accept file data: "+err.Error())
		return
	}
	metrics.InputBytes.Observe(float64(len(data)))
	o.statusLocked()
	o.logLocked(LevelInfo, fmt.Sprintf("File loaded: %d bytes (%s)", len(data), mimetype.Detect(data).String()))
}

// UpdateSetting changes one pending setting. While Transcoding the change is
// kept for the next job. A Completed or Failed job returns to Ready.
func (o *Orchestrator) UpdateSetting(name domain.Setting, value string) error {
	o.mu.Lock()
	defer o.unlock()

	if !o.applySettingLocked(name, value) {
		return o.rejectLocked("updateSetting", fmt.Sprintf("Unknown setting: %s", name), ErrUnknownSetting)
	}

	switch o.manager.Status() {
	case domain.JobStatusTranscoding:
		o.logLocked(LevelInfo, fmt.Sprintf("Setting %s changed to %q; it applies to the next job", name, value))
	case domain.JobStatusCompleted, domain.JobStatusFailed:
		if err := o.manager.Rearm(); err != nil {
			o.logLocked(LevelError, "Cannot reset job: "+err.Error())
			return err
		}
		o.resetProgressLocked()
		o.statusLocked()
		o.logLocked(LevelInfo, "Settings changed, ready to transcode again")
	}
	return nil
}

func (o *Orchestrator) applySettingLocked(name domain.Setting, value string) bool {
	switch name {
	case domain.SettingOutputFormat:
		o.pending.OutputFormat = value
	case domain.SettingVideoCodec:
		o.pending.VideoCodec = value
	case domain.SettingAudioCodec:
		o.pending.AudioCodec = value
	case domain.SettingVideoBitrate:
		o.pending.VideoBitrate = value
	case domain.SettingAudioBitrate:
		o.pending.AudioBitrate = value
	case domain.SettingResolution:
		o.pending.Resolution = value
	case domain.SettingCustomResolution:
		o.pending.CustomResolution = value
	default:
		return false
	}
	return true
}

// StartTranscode commits the pending settings and invokes the engine in the
// background. It is refused unless the job is Ready with no engine call
// outstanding. Settings the engine cannot accept fail the job without
// calling it.
func (o *Orchestrator) StartTranscode(ctx context.Context) error {
	o.mu.Lock()
	defer o.unlock()

	status := o.manager.Status()
	switch {
	case status == domain.JobStatusIdle:
		return o.rejectLocked("startTranscode", "Error: No input file data available", nil)
	case status == domain.JobStatusTranscoding || o.inFlight:
		return o.rejectLocked("startTranscode", "Cannot start transcoding: a transcode is already running", ErrJobAlreadyRunning)
	case status != domain.JobStatusReady:
		return o.rejectLocked("startTranscode", fmt.Sprintf("Cannot start transcoding while %s", status), nil)
	}

	input := o.manager.Input()
	if err := o.manager.Start(); err != nil {
		return o.rejectLocked("startTranscode", "Cannot start transcoding: "+err.Error(), nil)
	}
	o.epoch++
	token := o.epoch
	o.resetProgressLocked()
	o.startedAt = time.Now()
	o.statusLocked()
	o.logLocked(LevelInfo, "Starting transcoding process...")

	req, err := media.NewRequest(input, o.pending)
	if err != nil {
		o.failLocked(err)
		return nil
	}
	o.format = req.Format
	o.logLocked(LevelInfo, fmt.Sprintf("Transcoding to %s format with %s(%d) and %s(%d) codecs",
		req.Format, req.VideoCodec, req.VideoBitrate, req.AudioCodec, req.AudioBitrate))

	o.inFlight = true
	updates, cancel := o.engine.Subscribe()
	go o.run(context.WithoutCancel(ctx), token, req, updates, cancel)
	return nil
}

// run performs one engine call. Progress is drained before the outcome is
// applied so no update lands after the terminal state.
func (o *Orchestrator) run(ctx context.Context, token uint64, req media.Request, updates <-chan float64, cancel func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range updates {
			o.engineProgress(token, p)
		}
	}()

	artifact, err := o.transcode(ctx, req)
	cancel()
	<-done

	o.mu.Lock()
	defer o.unlock()

	o.inFlight = false
	if token != o.epoch || o.manager.Status() != domain.JobStatusTranscoding {
		metrics.JobsTotal.WithLabelValues(metrics.OutcomeDiscarded).Inc()
		o.logLocked(LevelInfo, "Discarded the outcome of a superseded transcode")
		o.signalLocked()
		return
	}
	if err != nil {
		o.failLocked(err)
		return
	}
	o.succeedLocked(artifact)
}

func (o *Orchestrator) transcode(ctx context.Context, req media.Request) (artifact domain.ResultArtifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact, err = domain.ResultArtifact{}, faults.FromPanic(r)
		}
	}()
	return o.engine.Transcode(ctx, req)
}

func (o *Orchestrator) engineProgress(token uint64, raw float64) {
	o.mu.Lock()
	defer o.unlock()

	if token != o.epoch || o.manager.Status() != domain.JobStatusTranscoding {
		return
	}
	o.progressLocked(raw)
}

// OnProgress applies one raw progress value to the running job.
func (o *Orchestrator) OnProgress(value float64) error {
	o.mu.Lock()
	defer o.unlock()

	if status := o.manager.Status(); status != domain.JobStatusTranscoding {
		return o.rejectLocked("onProgress", fmt.Sprintf("Ignoring progress update while %s", status), nil)
	}
	o.progressLocked(value)
	return nil
}

func (o *Orchestrator) progressLocked(raw float64) {
	value := o.reporter.Observe(raw)
	if err := o.manager.SetProgress(value); err != nil {
		return
	}
	metrics.ProgressPercent.Set(value)
	if o.sampler.ShouldEmit(value) {
		o.publishLocked(Event{Type: EventTypeProgress, Progress: value})
	}
}

// OnTranscodeSuccess completes the running job with data.
func (o *Orchestrator) OnTranscodeSuccess(data []byte) error {
	o.mu.Lock()
	defer o.unlock()

	if status := o.manager.Status(); status != domain.JobStatusTranscoding {
		return o.rejectLocked("onTranscodeSuccess", fmt.Sprintf("Ignoring transcode result while %s", status), nil)
	}
	o.succeedLocked(domain.ResultArtifact{Data: data, Format: string(o.format), Size: len(data)})
	return nil
}

// OnTranscodeFailure fails the running job with the normalized err.
func (o *Orchestrator) OnTranscodeFailure(err error) error {
	o.mu.Lock()
	defer o.unlock()

	if status := o.manager.Status(); status != domain.JobStatusTranscoding {
		return o.rejectLocked("onTranscodeFailure", fmt.Sprintf("Ignoring transcode failure while %s", status), nil)
	}
	o.failLocked(err)
	return nil
}

func (o *Orchestrator) succeedLocked(artifact domain.ResultArtifact) {
	o.reporter.Complete()
	if err := o.manager.Complete(artifact); err != nil {
		o.logLocked(LevelError, "Cannot complete job: "+err.Error())
		return
	}
	metrics.ProgressPercent.Set(100)
	metrics.JobsTotal.WithLabelValues(metrics.OutcomeCompleted).Inc()
	metrics.OutputBytes.Observe(float64(artifact.Size))
	o.observeDurationLocked()

	o.statusLocked()
	o.publishLocked(Event{Type: EventTypeResult, Size: artifact.Size})
	o.logLocked(LevelInfo, fmt.Sprintf("Transcoding completed! Output size: %d bytes", artifact.Size))
}

func (o *Orchestrator) failLocked(err error) {
	normalized := faults.Normalize(err)
	if normalized == nil {
		normalized = faults.Unknown(nil)
	}
	if ferr := o.manager.Fail(domain.JobError{Kind: string(normalized.Kind), Message: normalized.Message}); ferr != nil {
		o.logLocked(LevelError, "Cannot fail job: "+ferr.Error())
		return
	}
	metrics.JobsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	o.observeDurationLocked()

	o.statusLocked()
	o.publishLocked(Event{Type: EventTypeError, ErrorKind: string(normalized.Kind), Message: normalized.Message})
	o.logLocked(LevelError, "Error during transcoding: "+normalized.Message)
}

func (o *Orchestrator) observeDurationLocked() {
	if o.startedAt.IsZero() {
		return
	}
	metrics.JobDuration.Observe(time.Since(o.startedAt).Seconds())
	o.startedAt = time.Time{}
}

// AppendLog adds one entry to the session log. It never fails.
func (o *Orchestrator) AppendLog(message string) {
	o.mu.Lock()
	defer o.unlock()
	o.logLocked(LevelInfo, message)
}

// ExportResult hands the completed result to saver under its derived file
// name and MIME type. Without a result it logs and returns ErrNoResult.
func (o *Orchestrator) ExportResult(ctx context.Context, saver Saver) (Export, error) {
	o.mu.Lock()
	job := o.manager.Current()
	if job.Status != domain.JobStatusCompleted || job.Result == nil {
		err := o.rejectLocked("exportResult", "No processed file available to download", ErrNoResult)
		o.unlock()
		return Export{}, err
	}
	export := Export{
		FileName: media.OutputFileName(job.FileName, job.Result.Format),
		MIMEType: media.MIMEType(job.Result.Format),
		Data:     job.Result.Data,
	}
	o.unlock()

	if saver != nil {
		if err := saver.Save(ctx, export); err != nil {
			o.mu.Lock()
			defer o.unlock()
			if errors.Is(err, ErrExportCancelled) {
				o.logLocked(LevelInfo, "Download cancelled")
			} else {
				o.logLocked(LevelError, "Error saving file: "+err.Error())
			}
			return export, err
		}
	}

	o.mu.Lock()
	defer o.unlock()
	o.logLocked(LevelInfo, fmt.Sprintf("File '%s' downloaded", export.FileName))
	return export, nil
}

// Current returns a snapshot of the job with the pending settings.
func (o *Orchestrator) Current() domain.Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	job := o.manager.Current()
	job.Settings = o.pending
	return job
}

// Settings returns the pending settings.
func (o *Orchestrator) Settings() domain.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// Events returns events published after seq.
func (o *Orchestrator) Events(since int64) []Event {
	return o.bus.Since(since)
}

// Logs returns the whole session log, oldest first.
func (o *Orchestrator) Logs() []domain.LogEntry {
	return o.bus.Logs()
}

// Wait blocks until no file read or engine call is pending and returns the
// settled job.
func (o *Orchestrator) Wait(ctx context.Context) (domain.Job, error) {
	for {
		o.mu.Lock()
		if !o.manager.IsRunning() && !o.inFlight {
			job := o.manager.Current()
			job.Settings = o.pending
			o.mu.Unlock()
			return job, nil
		}
		changed := o.changed
		o.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return o.Current(), ctx.Err()
		}
	}
}

// rejectLocked records a refused operation as one log entry and returns an
// error wrapping ErrInvalidJobState and cause.
func (o *Orchestrator) rejectLocked(op, message string, cause error) error {
	metrics.RejectedOperationsTotal.WithLabelValues(op).Inc()
	o.logLocked(LevelError, message)

	status := o.manager.Status()
	if cause != nil {
		return fmt.Errorf("%s while %s: %w: %w", op, status, ErrInvalidJobState, cause)
	}
	return fmt.Errorf("%s while %s: %w", op, status, ErrInvalidJobState)
}

func (o *Orchestrator) resetProgressLocked() {
	o.reporter.Reset()
	o.sampler.Reset()
	metrics.ProgressPercent.Set(0)
}

func (o *Orchestrator) statusLocked() {
	o.publishLocked(Event{Type: EventTypeStatus, Status: o.manager.Status()})
	o.signalLocked()
}

// signalLocked wakes every Wait call.
func (o *Orchestrator) signalLocked() {
	close(o.changed)
	o.changed = make(chan struct{})
}

func (o *Orchestrator) logLocked(level, message string) {
	event := o.publishLocked(Event{Type: EventTypeLog, Level: level, Message: message})
	if level == LevelError {
		o.logger.Error(message, "job_id", event.JobID)
	} else {
		o.logger.Info(message, "job_id", event.JobID)
	}
}

func (o *Orchestrator) publishLocked(event Event) Event {
	event.JobID = o.manager.Current().ID
	event = o.bus.Publish(event)
	o.outbox = append(o.outbox, event)
	return event
}

// unlock releases mu and then delivers queued events to Notify.
func (o *Orchestrator) unlock() {
	events := o.outbox
	o.outbox = nil
	o.mu.Unlock()

	if o.notify == nil {
		return
	}
	for _, event := range events {
		o.notify(event)
	}
}
