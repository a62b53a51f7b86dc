package jobs

import (
	"errors"
	"testing"

	"media-transcoder/internal/domain"
)

// TestManagerLifecycle verifies normal progression to completed state.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsRunning() {
		t.Fatal("new manager should be idle")
	}

	m.Begin("job-1", "clip.mp4")
	if !m.IsRunning() {
		t.Fatal("expected running while loading")
	}
	if err := m.Load([]byte("input")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SetProgress(40); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := m.Complete(domain.ResultArtifact{Data: []byte("out"), Format: "mp4", Size: 3}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	current := m.Current()
	if current.Status != domain.JobStatusCompleted {
		t.Fatalf("current status = %s, want completed", current.Status)
	}
	if current.Progress != 100 || current.Result == nil || current.Error != nil {
		t.Fatalf("current = %+v, want result at 100%%", current)
	}
	if current.ID != "job-1" || current.FileName != "clip.mp4" || current.InputSize != 5 {
		t.Fatalf("current = %+v, want job-1 clip.mp4 5 bytes", current)
	}
}

// TestManagerRejectsInvalidTransition checks state machine constraints.
func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()

	if err := m.Start(); !errors.Is(err, ErrInvalidJobState) {
		t.Fatalf("start from idle error = %v, want %v", err, ErrInvalidJobState)
	}
	if err := m.Load([]byte("x")); !errors.Is(err, ErrInvalidJobState) {
		t.Fatalf("load from idle error = %v, want %v", err, ErrInvalidJobState)
	}

	m.Begin("job-1", "clip.mp4")
	if err := m.Complete(domain.ResultArtifact{}); !errors.Is(err, ErrInvalidJobState) {
		t.Fatalf("complete from loading error = %v, want %v", err, ErrInvalidJobState)
	}
	if err := m.SetProgress(10); !errors.Is(err, ErrInvalidJobState) {
		t.Fatalf("progress from loading error = %v, want %v", err, ErrInvalidJobState)
	}
	if got := m.Status(); got != domain.JobStatusLoading {
		t.Fatalf("status = %s, want loading", got)
	}
}

// TestManagerFailAndRearm verifies a failed job returns to ready with input kept.
func TestManagerFailAndRearm(t *testing.T) {
	m := NewManager()
	m.Begin("job-1", "clip.mp4")
	if err := m.Load([]byte("input")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Fail(domain.JobError{Kind: "EngineExecutionError", Message: "unsupported codec"}); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if got := m.Current(); got.Error == nil || got.Result != nil {
		t.Fatalf("failed job = %+v, want error only", got)
	}

	if err := m.Rearm(); err != nil {
		t.Fatalf("rearm: %v", err)
	}
	got := m.Current()
	if got.Status != domain.JobStatusReady || got.Error != nil || got.Result != nil {
		t.Fatalf("rearmed job = %+v, want clean ready job", got)
	}
	if string(m.Input()) != "input" {
		t.Fatalf("input = %q, want input", m.Input())
	}
	if err := m.Rearm(); !errors.Is(err, ErrInvalidJobState) {
		t.Fatalf("second rearm error = %v, want %v", err, ErrInvalidJobState)
	}
}

// TestManagerBeginClearsPreviousJob verifies reselection drops derived data.
func TestManagerBeginClearsPreviousJob(t *testing.T) {
	m := NewManager()
	m.Begin("job-1", "a.mp4")
	if err := m.Load([]byte("a")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	m.Begin("job-2", "b.mp4")
	got := m.Current()
	if got.Status != domain.JobStatusLoading || got.ID != "job-2" || got.InputSize != 0 {
		t.Fatalf("job = %+v, want fresh loading job-2", got)
	}
	if m.Input() != nil {
		t.Fatalf("input = %q, want nil", m.Input())
	}

	m.Reset()
	if got := m.Current(); got.Status != domain.JobStatusIdle || got.ID != "" {
		t.Fatalf("job = %+v, want idle", got)
	}
}

// TestManagerEmptyFileIsLoaded treats a zero-byte file as present input.
func TestManagerEmptyFileIsLoaded(t *testing.T) {
	m := NewManager()
	m.Begin("job-1", "empty.mp4")
	if err := m.Load(nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start with empty input: %v", err)
	}
}

// TestManagerCurrentIsSnapshot verifies callers cannot mutate held state.
func TestManagerCurrentIsSnapshot(t *testing.T) {
	m := NewManager()
	m.Begin("job-1", "clip.mp4")
	_ = m.Load([]byte("x"))
	_ = m.Start()
	_ = m.Complete(domain.ResultArtifact{Format: "mp4", Size: 1})

	snapshot := m.Current()
	snapshot.Result.Format = "webm"
	if got := m.Current().Result.Format; got != "mp4" {
		t.Fatalf("result format = %s, want mp4", got)
	}
}
