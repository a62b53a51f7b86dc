package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"media-transcoder/internal/faults"
)

// Memory is the engine's linear memory together with its allocator.
// Read returns a view that is only valid until the next engine call.
type Memory interface {
	Malloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, ptr uint32) error
	Read(offset, length uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
	ReadUint32(offset uint32) (uint32, bool)
}

// Handle locates a buffer in engine memory.
type Handle struct {
	Ptr uint32
	Len uint32
}

// ToEngineBuffer allocates engine memory sized to data and copies every byte.
// An empty buffer still gets a one-byte allocation so the pointer is valid.
func ToEngineBuffer(ctx context.Context, mem Memory, data []byte) (Handle, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return Handle{}, faults.Marshal("copy to engine", fmt.Errorf("buffer of %d bytes exceeds engine address space", len(data)))
	}

	size := uint32(len(data))
	ptr, err := mem.Malloc(ctx, max(size, 1))
	if err != nil {
		return Handle{}, faults.Marshal("copy to engine", fmt.Errorf("allocate %d bytes: %w", size, err))
	}
	if ptr == 0 {
		return Handle{}, faults.Marshal("copy to engine", fmt.Errorf("engine could not allocate %d bytes", size))
	}
	if !mem.Write(ptr, data) {
		_ = mem.Free(ctx, ptr)
		return Handle{}, faults.Marshal("copy to engine", fmt.Errorf("write of %d bytes at %#x is out of range", size, ptr))
	}
	return Handle{Ptr: ptr, Len: size}, nil
}

// FromEngineBuffer copies exactly h.Len bytes out of engine memory.
func FromEngineBuffer(mem Memory, h Handle) ([]byte, error) {
	if h.Len == 0 {
		return []byte{}, nil
	}
	view, ok := mem.Read(h.Ptr, h.Len)
	if !ok || uint32(len(view)) != h.Len {
		return nil, faults.Marshal("copy from engine", fmt.Errorf("read of %d bytes at %#x is out of range", h.Len, h.Ptr))
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// ToEngineString copies s into engine memory as a NUL-terminated UTF-8 string.
func ToEngineString(ctx context.Context, mem Memory, s string) (Handle, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return Handle{}, faults.Marshal("copy to engine", errors.New("string contains NUL byte"))
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return ToEngineBuffer(ctx, mem, buf)
}

// ReadCString reads a NUL-terminated string of at most limit bytes.
func ReadCString(mem Memory, ptr, limit uint32) (string, error) {
	view, ok := mem.Read(ptr, limit)
	if !ok {
		return "", faults.Marshal("copy from engine", fmt.Errorf("string at %#x is out of range", ptr))
	}
	if idx := strings.IndexByte(string(view), 0); idx >= 0 {
		view = view[:idx]
	}
	return strings.ToValidUTF8(string(view), "�"), nil
}

// Release frees a handle allocated with ToEngineBuffer.
func Release(ctx context.Context, mem Memory, h Handle) error {
	if h.Ptr == 0 {
		return nil
	}
	return mem.Free(ctx, h.Ptr)
}
