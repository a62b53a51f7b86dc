// Package config loads and persists the transcoder's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-transcoder/internal/domain"
	"media-transcoder/internal/media"
)

const defaultConfigPath = "~/.config/media-transcoder/config.toml"

// Engine locates the sandboxed engine module.
type Engine struct {
	ModulePath     string `toml:"module_path"`
	MemoryLimitMiB int    `toml:"memory_limit_mib"`
}

// Paths contains output locations.
type Paths struct {
	OutputDir string `toml:"output_dir"`
}

// Logging contains process log settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Metrics configures the optional Prometheus listener. Empty disables it.
type Metrics struct {
	ListenAddr string `toml:"listen_addr"`
}

// Config is the full on-disk configuration.
//
// Defaults seeds the pending transcode settings of every new session; edits
// made during a session are never written back.
type Config struct {
	Engine   Engine          `toml:"engine"`
	Paths    Paths           `toml:"paths"`
	Logging  Logging         `toml:"logging"`
	Metrics  Metrics         `toml:"metrics"`
	Defaults domain.Settings `toml:"defaults"`
}

// Default returns the configuration used on first launch.
func Default() Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return Config{
		Engine: Engine{
			ModulePath:     filepath.Join(homeDir, ".media-transcoder", "engine", "ffmpeg.wasm"),
			MemoryLimitMiB: 2048,
		},
		Paths: Paths{
			OutputDir: filepath.Join(homeDir, "Videos", "Transcoded"),
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Defaults: media.DefaultSettings(),
	}
}

// DefaultPath returns the absolute location of the user's config file.
func DefaultPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// ExpandPath resolves a leading ~ and returns a cleaned absolute path.
func ExpandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
