package config

import (
	"errors"
	"fmt"
	"strings"

	"media-transcoder/internal/media"
)

// maxMemoryLimitMiB is the 32-bit linear memory ceiling.
const maxMemoryLimitMiB = 4096

// Normalize trims values, expands paths and fills empty fields from defaults.
func (c *Config) Normalize() error {
	defaults := Default()

	var err error
	if strings.TrimSpace(c.Engine.ModulePath) == "" {
		c.Engine.ModulePath = defaults.Engine.ModulePath
	}
	if c.Engine.ModulePath, err = ExpandPath(c.Engine.ModulePath); err != nil {
		return fmt.Errorf("engine.module_path: %w", err)
	}
	if c.Engine.MemoryLimitMiB == 0 {
		c.Engine.MemoryLimitMiB = defaults.Engine.MemoryLimitMiB
	}

	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaults.Paths.OutputDir
	}
	if c.Paths.OutputDir, err = ExpandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}

	c.Metrics.ListenAddr = strings.TrimSpace(c.Metrics.ListenAddr)

	d := &c.Defaults
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&d.OutputFormat, defaults.Defaults.OutputFormat)
	fill(&d.VideoCodec, defaults.Defaults.VideoCodec)
	fill(&d.AudioCodec, defaults.Defaults.AudioCodec)
	fill(&d.VideoBitrate, defaults.Defaults.VideoBitrate)
	fill(&d.AudioBitrate, defaults.Defaults.AudioBitrate)
	fill(&d.Resolution, defaults.Defaults.Resolution)
	fill(&d.CustomResolution, defaults.Defaults.CustomResolution)
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Engine.MemoryLimitMiB <= 0 || c.Engine.MemoryLimitMiB > maxMemoryLimitMiB {
		return fmt.Errorf("engine.memory_limit_mib must be between 1 and %d", maxMemoryLimitMiB)
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of trace, debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}

	if _, err := media.ParseFormat(c.Defaults.OutputFormat); err != nil {
		return fmt.Errorf("defaults.output_format: %w", err)
	}
	if _, err := media.ParseVideoCodec(c.Defaults.VideoCodec); err != nil {
		return fmt.Errorf("defaults.video_codec: %w", err)
	}
	if _, err := media.ParseAudioCodec(c.Defaults.AudioCodec); err != nil {
		return fmt.Errorf("defaults.audio_codec: %w", err)
	}
	if _, err := media.ParseResolution(c.Defaults.Resolution, c.Defaults.CustomResolution); err != nil {
		return errors.Join(errors.New("defaults.resolution is invalid"), err)
	}
	return nil
}
