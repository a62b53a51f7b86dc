// Package engine hosts the sandboxed native transcoding engine and marshals
// buffers across its memory boundary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"media-transcoder/internal/domain"
	"media-transcoder/internal/faults"
	"media-transcoder/internal/media"
)

// Layout of the engine's transcode result struct (wasm32, little endian).
const (
	resultSuccessOffset   = 0
	resultErrorOffset     = 8
	resultErrorSize       = 256
	resultOutputPtrOffset = 264
	resultOutputLenOffset = 268

	progressBuffer = 32
)

var (
	// ErrNotInitialized is returned by Transcode before Initialize has run.
	ErrNotInitialized = errors.New("engine not initialized")
	// ErrBusy is returned when a transcode is already outstanding.
	ErrBusy = errors.New("engine is busy with another transcode")
)

// TranscodeArgs are the marshalled arguments of one engine transcode call.
type TranscodeArgs struct {
	Input        Handle
	Format       Handle
	VideoCodec   Handle
	AudioCodec   Handle
	Resolution   Handle
	VideoBitrate int32
	AudioBitrate int32
}

// Module is one instantiated engine and its exported entry points.
type Module interface {
	Memory
	Init(ctx context.Context) error
	Transcode(ctx context.Context, args TranscodeArgs) (uint32, error)
	FreeResult(ctx context.Context, ptr uint32) error
	Close(ctx context.Context) error
}

// Loader instantiates the engine. progress receives raw percentages the
// engine reports while encoding.
type Loader func(ctx context.Context, progress func(percent float64)) (Module, error)

// Bridge owns the single engine instance for the life of the process.
type Bridge struct {
	load   Loader
	logger hclog.Logger

	mu          sync.Mutex
	module      Module
	initialized bool
	initErr     *faults.Error

	subMu sync.Mutex
	sub   *subscription

	busy atomic.Bool
}

// subscription is the single active progress stream.
type subscription struct {
	ch     chan float64
	closed bool
}

// NewBridge binds a bridge to the loader that will construct its engine.
func NewBridge(load Loader, logger hclog.Logger) *Bridge {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Bridge{load: load, logger: logger}
}

// Initialize constructs and initializes the engine once. Later calls return
// the first outcome, so a failed initialization is permanent.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return b.initResult()
	}
	b.initialized = true

	module, err := b.construct(ctx)
	if err != nil {
		b.initErr = faults.Initialization("initialize engine", err)
		b.logger.Error("engine initialization failed", "error", b.initErr.Message)
		return b.initErr
	}

	b.module = module
	b.logger.Info("engine initialized")
	return nil
}

// construct runs the loader and the engine's init export, converting panics.
func (b *Bridge) construct(ctx context.Context) (module Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			module, err = nil, faults.FromPanic(r)
		}
	}()

	if b.load == nil {
		return nil, errors.New("no engine loader configured")
	}
	module, err = b.load(ctx, b.emit)
	if err != nil {
		return nil, err
	}
	if err := module.Init(ctx); err != nil {
		_ = module.Close(ctx)
		return nil, fmt.Errorf("engine init call: %w", err)
	}
	return module, nil
}

func (b *Bridge) initResult() error {
	if b.initErr != nil {
		return b.initErr
	}
	return nil
}

// Subscribe installs the single progress stream, closing any previous one.
// cancel detaches and closes the stream; it is safe to call more than once.
func (b *Bridge) Subscribe() (<-chan float64, func()) {
	sub := &subscription{ch: make(chan float64, progressBuffer)}

	b.subMu.Lock()
	if b.sub != nil {
		b.closeSubscription(b.sub)
	}
	b.sub = sub
	b.subMu.Unlock()

	cancel := func() {
		b.subMu.Lock()
		defer b.subMu.Unlock()
		if b.sub == sub {
			b.sub = nil
		}
		b.closeSubscription(sub)
	}
	return sub.ch, cancel
}

func (b *Bridge) closeSubscription(sub *subscription) {
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// emit forwards one raw progress value without blocking the engine. When the
// subscriber lags, the oldest queued value is dropped.
func (b *Bridge) emit(percent float64) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	sub := b.sub
	if sub == nil || sub.closed {
		return
	}
	select {
	case sub.ch <- percent:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- percent:
	default:
	}
}

// Transcode runs one engine call and returns the output artifact. It does
// not queue: a call made while another is outstanding fails with ErrBusy.
func (b *Bridge) Transcode(ctx context.Context, req media.Request) (artifact domain.ResultArtifact, err error) {
	b.mu.Lock()
	module, initialized, initErr := b.module, b.initialized, b.initErr
	b.mu.Unlock()

	if !initialized {
		return domain.ResultArtifact{}, faults.Initialization("transcode", ErrNotInitialized)
	}
	if initErr != nil {
		return domain.ResultArtifact{}, initErr
	}
	if !b.busy.CompareAndSwap(false, true) {
		return domain.ResultArtifact{}, &faults.Error{Kind: faults.KindEngineExecution, Op: "transcode", Message: ErrBusy.Error(), Err: ErrBusy}
	}
	defer b.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			artifact, err = domain.ResultArtifact{}, faults.FromPanic(r)
		}
	}()

	data, err := b.run(ctx, module, req)
	if err != nil {
		return domain.ResultArtifact{}, err
	}
	return domain.ResultArtifact{Data: data, Format: string(req.Format), Size: len(data)}, nil
}

// run marshals the request, invokes the engine, and reads back its result.
func (b *Bridge) run(ctx context.Context, module Module, req media.Request) ([]byte, error) {
	videoBitrate, err := engineBitrate("video bitrate", req.VideoBitrate)
	if err != nil {
		return nil, err
	}
	audioBitrate, err := engineBitrate("audio bitrate", req.AudioBitrate)
	if err != nil {
		return nil, err
	}

	var handles []Handle
	defer func() {
		for _, h := range handles {
			if err := Release(ctx, module, h); err != nil {
				b.logger.Warn("release engine buffer", "ptr", h.Ptr, "error", err)
			}
		}
	}()

	input, err := ToEngineBuffer(ctx, module, req.Input)
	if err != nil {
		return nil, err
	}
	handles = append(handles, input)

	strs := []string{string(req.Format), string(req.VideoCodec), string(req.AudioCodec), req.Resolution.String()}
	strHandles := make([]Handle, len(strs))
	for i, s := range strs {
		h, err := ToEngineString(ctx, module, s)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
		strHandles[i] = h
	}

	b.logger.Debug("engine transcode",
		"input_bytes", len(req.Input),
		"format", req.Format,
		"video_codec", req.VideoCodec,
		"audio_codec", req.AudioCodec,
		"video_bitrate", req.VideoBitrate,
		"audio_bitrate", req.AudioBitrate,
		"resolution", req.Resolution.String())

	resultPtr, err := module.Transcode(ctx, TranscodeArgs{
		Input:        input,
		Format:       strHandles[0],
		VideoCodec:   strHandles[1],
		AudioCodec:   strHandles[2],
		Resolution:   strHandles[3],
		VideoBitrate: videoBitrate,
		AudioBitrate: audioBitrate,
	})
	if err != nil {
		return nil, &faults.Error{Kind: faults.KindEngineExecution, Op: "transcode", Message: err.Error(), Err: err}
	}
	if resultPtr == 0 {
		return nil, &faults.Error{Kind: faults.KindUnknown, Op: "transcode", Message: "engine returned no result"}
	}
	defer func() {
		if err := module.FreeResult(ctx, resultPtr); err != nil {
			b.logger.Warn("free engine result", "ptr", resultPtr, "error", err)
		}
	}()

	return readResult(module, resultPtr)
}

// engineBitrate narrows a bitrate to the engine's i32 argument. Values that
// would wrap are rejected before any engine memory is touched.
func engineBitrate(op string, kbps int) (int32, error) {
	if kbps <= 0 || kbps > math.MaxInt32 {
		return 0, faults.UnsupportedParameter(op, fmt.Sprintf("%s %d kbps is out of range", op, kbps))
	}
	return int32(kbps), nil
}

// readResult decodes the engine's result struct.
func readResult(mem Memory, ptr uint32) ([]byte, error) {
	success, ok := mem.ReadUint32(ptr + resultSuccessOffset)
	if !ok {
		return nil, faults.Marshal("read result", fmt.Errorf("result struct at %#x is out of range", ptr))
	}

	if success == 0 {
		msg, err := ReadCString(mem, ptr+resultErrorOffset, resultErrorSize)
		if err != nil {
			return nil, err
		}
		if msg == "" {
			return nil, &faults.Error{Kind: faults.KindUnknown, Op: "transcode", Message: "Unknown error"}
		}
		return nil, faults.EngineExecution("transcode", msg)
	}

	outPtr, okPtr := mem.ReadUint32(ptr + resultOutputPtrOffset)
	outLen, okLen := mem.ReadUint32(ptr + resultOutputLenOffset)
	if !okPtr || !okLen {
		return nil, faults.Marshal("read result", fmt.Errorf("output descriptor at %#x is out of range", ptr))
	}
	return FromEngineBuffer(mem, Handle{Ptr: outPtr, Len: outLen})
}

// Close releases the engine instance. The desktop shell never calls it; the
// CLI does at exit.
func (b *Bridge) Close(ctx context.Context) error {
	b.subMu.Lock()
	if b.sub != nil {
		b.closeSubscription(b.sub)
		b.sub = nil
	}
	b.subMu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.module == nil {
		return nil
	}
	err := b.module.Close(ctx)
	b.module = nil
	b.initErr = faults.Initialization("transcode", errors.New("engine closed"))
	return err
}
