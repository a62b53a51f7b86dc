package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Names of the engine's imports and exports.
const (
	hostModuleName     = "transcoder"
	hostProgressExport = "update_progress"

	exportMalloc     = "malloc"
	exportFree       = "free"
	exportInit       = "init_ffmpeg"
	exportTranscode  = "transcode"
	exportFreeResult = "free_transcode_result"

	wasmPageSize = 64 * 1024
)

// WazeroConfig describes how to load the engine module.
type WazeroConfig struct {
	// ModulePath is read when Module is empty.
	ModulePath string
	Module     []byte
	// MemoryLimitMiB caps the engine's linear memory; zero keeps the runtime default.
	MemoryLimitMiB int
}

// NewWazeroLoader returns a Loader that hosts the engine in a wazero runtime.
// Engine stdout and stderr are forwarded to logger at debug level.
func NewWazeroLoader(cfg WazeroConfig, logger hclog.Logger) Loader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return func(ctx context.Context, progress func(percent float64)) (Module, error) {
		wasm := cfg.Module
		if len(wasm) == 0 {
			data, err := os.ReadFile(cfg.ModulePath)
			if err != nil {
				return nil, fmt.Errorf("read engine module: %w", err)
			}
			wasm = data
		}

		runtimeCfg := wazero.NewRuntimeConfig()
		if cfg.MemoryLimitMiB > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(uint32(cfg.MemoryLimitMiB * 1024 * 1024 / wasmPageSize))
		}
		runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

		module, err := instantiate(ctx, runtime, wasm, progress, logger)
		if err != nil {
			_ = runtime.Close(ctx)
			return nil, err
		}
		return module, nil
	}
}

func instantiate(ctx context.Context, runtime wazero.Runtime, wasm []byte, progress func(float64), logger hclog.Logger) (*wazeroModule, error) {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}

	_, err := runtime.NewHostModuleBuilder(hostModuleName).
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, percent int32) {
			if progress != nil {
				progress(float64(percent))
			}
		}).
		Export(hostProgressExport).
		Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate host module: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile engine module: %w", err)
	}

	out := logger.StandardWriter(&hclog.StandardLoggerOptions{ForceLevel: hclog.Debug})
	mod, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName("engine").
		WithStdout(out).
		WithStderr(out).
		WithStartFunctions("_initialize"))
	if err != nil {
		return nil, fmt.Errorf("instantiate engine module: %w", err)
	}

	m := &wazeroModule{runtime: runtime, mem: mod.Memory()}
	if m.mem == nil {
		return nil, fmt.Errorf("engine module does not export its memory")
	}
	for name, dst := range map[string]*api.Function{
		exportMalloc:     &m.malloc,
		exportFree:       &m.free,
		exportInit:       &m.init,
		exportTranscode:  &m.transcode,
		exportFreeResult: &m.freeResult,
	} {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			return nil, fmt.Errorf("engine module is missing export %q", name)
		}
		*dst = fn
	}
	return m, nil
}

// wazeroModule adapts an instantiated wazero module to Module.
type wazeroModule struct {
	runtime    wazero.Runtime
	mem        api.Memory
	malloc     api.Function
	free       api.Function
	init       api.Function
	transcode  api.Function
	freeResult api.Function
}

func (m *wazeroModule) Malloc(ctx context.Context, size uint32) (uint32, error) {
	results, err := m.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(results[0]), nil
}

func (m *wazeroModule) Free(ctx context.Context, ptr uint32) error {
	_, err := m.free.Call(ctx, uint64(ptr))
	return err
}

func (m *wazeroModule) Read(offset, length uint32) ([]byte, bool) {
	return m.mem.Read(offset, length)
}

func (m *wazeroModule) Write(offset uint32, data []byte) bool {
	return m.mem.Write(offset, data)
}

func (m *wazeroModule) ReadUint32(offset uint32) (uint32, bool) {
	return m.mem.ReadUint32Le(offset)
}

func (m *wazeroModule) Init(ctx context.Context) error {
	_, err := m.init.Call(ctx)
	return err
}

func (m *wazeroModule) Transcode(ctx context.Context, args TranscodeArgs) (uint32, error) {
	results, err := m.transcode.Call(ctx,
		uint64(args.Input.Ptr),
		uint64(args.Input.Len),
		uint64(args.Format.Ptr),
		uint64(args.VideoCodec.Ptr),
		uint64(args.AudioCodec.Ptr),
		api.EncodeI32(args.VideoBitrate),
		api.EncodeI32(args.AudioBitrate),
		uint64(args.Resolution.Ptr),
	)
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(results[0]), nil
}

func (m *wazeroModule) FreeResult(ctx context.Context, ptr uint32) error {
	_, err := m.freeResult.Call(ctx, uint64(ptr))
	return err
}

func (m *wazeroModule) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}
