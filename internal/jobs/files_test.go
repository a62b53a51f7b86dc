package jobs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// TestPathSourceReadsFile checks name and content of a local input.
func TestPathSourceReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mov")
	if err := os.WriteFile(path, []byte("frames"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	src := PathSource{Path: path}
	if src.Name() != "clip.mov" {
		t.Fatalf("Name() = %q, want %q", src.Name(), "clip.mov")
	}
	data, err := src.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, []byte("frames")) {
		t.Fatalf("ReadAll = %q, want %q", data, "frames")
	}
}

// TestPathSourceMissingFile checks read errors surface.
func TestPathSourceMissingFile(t *testing.T) {
	src := PathSource{Path: filepath.Join(t.TempDir(), "missing.mp4")}
	if _, err := src.ReadAll(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestPathSaverUsesDirAndDerivedName checks the default output location.
func TestPathSaverUsesDirAndDerivedName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	saver := &PathSaver{Dir: dir}

	err := saver.Save(context.Background(), Export{FileName: "clip.webm", Data: []byte("webm")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := filepath.Join(dir, "clip.webm")
	if saver.Written != want {
		t.Fatalf("Written = %q, want %q", saver.Written, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "webm" {
		t.Fatalf("output = %q, want %q", data, "webm")
	}
}

// TestPathSaverExplicitPathWins checks Path overrides Dir.
func TestPathSaverExplicitPathWins(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "custom.bin")
	saver := &PathSaver{Path: target, Dir: filepath.Join(root, "ignored")}

	if err := saver.Save(context.Background(), Export{FileName: "clip.mp4", Data: []byte{1, 2}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saver.Written != target {
		t.Fatalf("Written = %q, want %q", saver.Written, target)
	}
	if _, err := os.Stat(filepath.Join(root, "ignored")); !os.IsNotExist(err) {
		t.Fatalf("ignored dir stat err = %v, want not exist", err)
	}
}

// TestPathSaverHonoursCancelledContext checks nothing is written after cancel.
func TestPathSaverHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	saver := &PathSaver{Dir: dir}
	if err := saver.Save(ctx, Export{FileName: "clip.mp4"}); err == nil {
		t.Fatal("expected context error")
	}
	if saver.Written != "" {
		t.Fatalf("Written = %q, want empty", saver.Written)
	}
}
