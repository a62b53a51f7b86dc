package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"media-transcoder/internal/config"
	"media-transcoder/internal/diagnostics"
	"media-transcoder/internal/domain"
	"media-transcoder/internal/engine"
	"media-transcoder/internal/jobs"
	"media-transcoder/internal/logging"
	"media-transcoder/internal/media"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// JobEventName is the runtime event carrying every published job event.
const JobEventName = "job:event"

var mediaDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Media files",
		Pattern:     "*.mp4;*.mov;*.mkv;*.avi;*.webm;*.gif;*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the job orchestrator, and UI runtime callbacks.
type App struct {
	Config       config.Config
	Store        config.Store
	Orchestrator *jobs.Orchestrator
	Engine       jobs.Engine
	Diagnostics  domain.DiagnosticReport
	assets       fs.FS
	checker      *diagnostics.Checker
	logger       hclog.Logger

	openDialog func(ctx context.Context, opts wailsruntime.OpenDialogOptions) (string, error)
	saveDialog func(ctx context.Context, opts wailsruntime.SaveDialogOptions) (string, error)
	emit       func(ctx context.Context, name string, data ...interface{})

	mu         sync.Mutex
	runtimeCtx context.Context
}

// New builds the application from the default config file.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	return NewFromConfigPath(path, assets)
}

// NewFromConfigPath loads config from path and builds the application with
// a wazero-hosted engine.
func NewFromConfigPath(path string, assets fs.FS) (*App, error) {
	store := config.NewTOMLStore(path)
	cfg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	bridge := engine.NewBridge(engine.NewWazeroLoader(engine.WazeroConfig{
		ModulePath:     cfg.Engine.ModulePath,
		MemoryLimitMiB: cfg.Engine.MemoryLimitMiB,
	}, logger.Named("engine")), logger.Named("engine"))

	app := newApp(cfg, store, bridge, logger.Named("bootstrap"))
	app.assets = assets
	return app, nil
}

// newApp assembles an App around eng. Startup diagnostics run without the
// runtime probe; Startup refreshes them once the engine is initialized.
func newApp(cfg config.Config, store config.Store, eng jobs.Engine, logger hclog.Logger) *App {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	a := &App{
		Config:     cfg,
		Store:      store,
		Engine:     eng,
		checker:    diagnostics.NewChecker(),
		logger:     logger,
		openDialog: wailsruntime.OpenFileDialog,
		saveDialog: wailsruntime.SaveFileDialog,
		emit:       wailsruntime.EventsEmit,
	}
	a.Orchestrator = jobs.New(eng, jobs.Options{
		Logger:   logger.Named("jobs"),
		Settings: cfg.Defaults,
		Notify:   a.publishEvent,
	})
	a.Diagnostics = a.checker.Run(context.Background(), cfg, nil)
	return a
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Media Transcoder",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context and initializes the engine. The
// engine stays loaded for the lifetime of the process.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	if err := a.Orchestrator.Initialize(ctx); err != nil {
		a.logger.Error("engine unavailable", "error", err)
	}

	report := a.checker.Run(ctx, a.Config, a.Engine)
	a.mu.Lock()
	a.Diagnostics = report
	a.mu.Unlock()
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads config and reruns the startup checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	cfg, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load config: %w", err)
	}

	report := a.checker.Run(context.Background(), cfg, a.Engine)
	a.mu.Lock()
	a.Config = cfg
	a.Diagnostics = report
	a.mu.Unlock()
	return report, nil
}

// ListOptions returns the format, codec, and resolution catalogs.
func (a *App) ListOptions() media.Options {
	return media.ListOptions()
}

// PickInputFile opens a native file dialog and starts a job for the chosen
// file. Dismissing the dialog leaves the current job untouched.
func (a *App) PickInputFile() (domain.Job, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.Job{}, err
	}

	path, err := a.openDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select media file",
		Filters: mediaDialogFilter,
	})
	if err != nil {
		return domain.Job{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return a.Orchestrator.Current(), nil
	}
	return a.SelectInput(path)
}

// SelectInput starts a job for a file path, e.g. one dropped on the window.
func (a *App) SelectInput(path string) (domain.Job, error) {
	if strings.TrimSpace(path) == "" {
		return a.Orchestrator.Current(), fmt.Errorf("input path is empty")
	}
	err := a.Orchestrator.SelectFile(context.Background(), jobs.PathSource{Path: path})
	return a.Orchestrator.Current(), err
}

// UpdateSetting changes one pending transcode setting.
func (a *App) UpdateSetting(name, value string) (domain.Job, error) {
	err := a.Orchestrator.UpdateSetting(domain.Setting(name), value)
	return a.Orchestrator.Current(), err
}

// StartTranscode runs the engine on the loaded file with the pending settings.
func (a *App) StartTranscode() (domain.Job, error) {
	err := a.Orchestrator.StartTranscode(context.Background())
	return a.Orchestrator.Current(), err
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Orchestrator.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.Orchestrator.Events(sinceSeq)
}

// SessionLog returns the session log formatted for display.
func (a *App) SessionLog() []string {
	entries := a.Orchestrator.Logs()
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, jobs.FormatLogEntry(entry))
	}
	return lines
}

// SaveResult asks where to store the completed output and writes it there.
// It returns the written path, or an empty path when the dialog is dismissed.
func (a *App) SaveResult() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	var written string
	saver := jobs.SaverFunc(func(ctx context.Context, export jobs.Export) error {
		a.mu.Lock()
		outputDir := a.Config.Paths.OutputDir
		a.mu.Unlock()

		path, err := a.saveDialog(ctx, wailsruntime.SaveDialogOptions{
			Title:            "Save transcoded file",
			DefaultDirectory: existingDir(outputDir),
			DefaultFilename:  export.FileName,
		})
		if err != nil {
			return err
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return jobs.ErrExportCancelled
		}

		target := &jobs.PathSaver{Path: path}
		if err := target.Save(ctx, export); err != nil {
			return err
		}
		written = target.Written
		return nil
	})

	if _, err := a.Orchestrator.ExportResult(ctx, saver); err != nil {
		if errors.Is(err, jobs.ErrExportCancelled) {
			return "", nil
		}
		return "", err
	}
	return written, nil
}

// OpenOutputFolder opens the given path (or configured output dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Config.Paths.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// publishEvent forwards orchestrator events as runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	emit := a.emit
	a.mu.Unlock()
	if ctx != nil && emit != nil {
		emit(ctx, JobEventName, event)
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// existingDir returns dir when it exists, so dialogs fall back to their own default.
func existingDir(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
