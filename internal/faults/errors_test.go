package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type explodingError struct{}

func (*explodingError) Error() string { panic("boom") }

func TestNormalizeClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{"classified passes through", EngineExecution("transcode", "unsupported codec"), KindEngineExecution, "unsupported codec"},
		{"wrapped classified", fmt.Errorf("run: %w", Marshal("copy", errors.New("out of range"))), KindMarshal, "out of range"},
		{"plain error", errors.New("boom"), KindUnknown, "boom"},
		{"empty message", errors.New(""), KindUnknown, "Unknown error"},
		{"deadline", context.DeadlineExceeded, KindEngineExecution, context.DeadlineExceeded.Error()},
		{"panicking error", &explodingError{}, KindUnknown, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorIsMatchesKindAndMessage(t *testing.T) {
	err := fmt.Errorf("job: %w", EngineExecution("transcode", "unsupported codec"))

	assert.ErrorIs(t, err, ErrEngineExecution)
	assert.ErrorIs(t, err, &Error{Kind: KindEngineExecution, Message: "unsupported codec"})
	assert.NotErrorIs(t, err, &Error{Kind: KindEngineExecution, Message: "other"})
	assert.NotErrorIs(t, err, ErrMarshal)
}

func TestErrorFormatting(t *testing.T) {
	assert.Equal(t, "transcode: bad input", EngineExecution("transcode", "bad input").Error())
	assert.Equal(t, "bad input", (&Error{Kind: KindUnknown, Message: "bad input"}).Error())
	assert.Equal(t, "Unknown error", EngineExecution("transcode", "  ").Message)

	cause := errors.New("no runtime")
	initErr := Initialization("initialize", cause)
	assert.ErrorIs(t, initErr, cause)
	assert.Equal(t, KindInitialization, KindOf(initErr))
}

func TestFromPanic(t *testing.T) {
	assert.Nil(t, FromPanic(nil))

	got := FromPanic("wasm error: unreachable")
	require.NotNil(t, got)
	assert.Equal(t, KindUnknown, got.Kind)
	assert.Equal(t, "wasm error: unreachable", got.Message)

	assert.Equal(t, "42", FromPanic(42).Message)
	assert.Equal(t, KindMarshal, FromPanic(Marshal("read", errors.New("oob"))).Kind)
	assert.Equal(t, "boom", FromPanic(errors.New("boom")).Message)
	assert.Equal(t, "Unknown error", FromPanic("").Message)
}
