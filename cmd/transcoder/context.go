package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"media-transcoder/internal/config"
	"media-transcoder/internal/engine"
	"media-transcoder/internal/logging"
	"media-transcoder/internal/metrics"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	configPath string
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		path, err := c.resolveConfigPath()
		if err != nil {
			c.configErr = err
			return
		}
		cfg, err := config.NewTOMLStore(path).Load()
		if err != nil {
			c.configErr = fmt.Errorf("load config %s: %w", path, err)
			return
		}
		c.configPath = path
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) resolveConfigPath() (string, error) {
	if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
		path, err := config.ExpandPath(strings.TrimSpace(*c.configFlag))
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return path, nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return path, nil
}

// newLogger builds the process logger writing to the command's stderr.
func (c *commandContext) newLogger(cmd *cobra.Command) hclog.Logger {
	return logging.New(c.config.Logging, cmd.ErrOrStderr())
}

// newBridge builds a wazero-hosted engine from the loaded config.
func (c *commandContext) newBridge(logger hclog.Logger) *engine.Bridge {
	named := logger.Named("engine")
	return engine.NewBridge(engine.NewWazeroLoader(engine.WazeroConfig{
		ModulePath:     c.config.Engine.ModulePath,
		MemoryLimitMiB: c.config.Engine.MemoryLimitMiB,
	}, named), named)
}

// startMetricsServer serves /metrics on metrics.listen_addr when set. The
// returned stop function shuts the listener down.
func (c *commandContext) startMetricsServer(logger hclog.Logger) (func(), error) {
	addr := strings.TrimSpace(c.config.Metrics.ListenAddr)
	if addr == "" {
		return func() {}, nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics on %s: %w", addr, err)
	}

	metrics.InitializeMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", listener.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
