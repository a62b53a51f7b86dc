package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"media-transcoder/internal/config"
	"media-transcoder/internal/domain"
)

// wasmMagic opens every WebAssembly binary: "\0asm" followed by version 1.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// EngineProbe initializes the engine and reports the outcome.
type EngineProbe interface {
	Initialize(ctx context.Context) error
}

// Checker validates the engine module and required filesystem paths.
type Checker struct {
	stat       func(string) (os.FileInfo, error)
	readHeader func(string) ([]byte, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		stat:       os.Stat,
		readHeader: readHeader,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report. A nil
// probe skips the runtime check.
func (c *Checker) Run(ctx context.Context, cfg config.Config, probe EngineProbe) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkEngineModule(cfg.Engine.ModulePath),
		c.checkEngineHeader(cfg.Engine.ModulePath),
		c.checkRuntime(ctx, probe),
		c.checkOutputDir(cfg.Paths.OutputDir),
	}

	return domain.NewDiagnosticReport(items)
}

// checkEngineModule verifies the configured engine module file exists.
func (c *Checker) checkEngineModule(modulePath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "engine_module",
		Name: "Engine module",
	}

	if strings.TrimSpace(modulePath) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Engine module path is empty."
		item.Hint = "Set engine.module_path in the config file."
		return item
	}

	info, err := c.stat(modulePath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Engine module does not exist: %s", modulePath)
		} else {
			item.Message = fmt.Sprintf("Cannot access engine module: %s", modulePath)
		}
		item.Hint = "Build or download the ffmpeg WebAssembly engine and point engine.module_path at it."
		return item
	}
	if info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Engine module path is a directory: %s", modulePath)
		item.Hint = "Point engine.module_path at the .wasm file itself."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Engine module found: %s (%s)", modulePath, humanize.IBytes(uint64(info.Size())))
	return item
}

// checkEngineHeader verifies the module is a WebAssembly binary.
func (c *Checker) checkEngineHeader(modulePath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "engine_format",
		Name: "Engine format",
	}

	header, err := c.readHeader(modulePath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Engine module could not be read."
		item.Hint = "Check that the engine module exists and is readable."
		return item
	}

	if !bytes.HasPrefix(header, wasmMagic) {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Engine module is not WebAssembly (detected %s).", mimetype.Detect(header).String())
		item.Hint = "The engine must be a WebAssembly module built from the ffmpeg wrapper."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "WebAssembly module header is valid."
	return item
}

// checkRuntime initializes the engine through probe.
func (c *Checker) checkRuntime(ctx context.Context, probe EngineProbe) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "engine_runtime",
		Name: "Engine runtime",
	}

	if probe == nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Engine runtime was not checked."
		item.Hint = "Fix the engine module checks above and run diagnostics again."
		return item
	}

	if err := probe.Initialize(ctx); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Engine failed to initialize: %v", err)
		item.Hint = "Rebuild the engine module or raise engine.memory_limit_mib. Restart the application after fixing it."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "Engine initialized."
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set paths.output_dir to where transcoded files can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for transcoded output."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	stat func(string) (os.FileInfo, error),
	readHeader func(string) ([]byte, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		stat:       stat,
		readHeader: readHeader,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// readHeader returns up to the first 512 bytes of path.
func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
