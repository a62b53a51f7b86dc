package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathSource reads an input file from the local filesystem.
type PathSource struct {
	Path string
}

// Name returns the base name of the file.
func (s PathSource) Name() string {
	return filepath.Base(s.Path)
}

// ReadAll reads the whole file into memory.
func (s PathSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	return data, nil
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, export Export) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, export Export) error {
	return f(ctx, export)
}

// PathSaver writes an export to Path, or to Dir joined with the export's
// derived file name when Path is empty. Written holds the final location.
type PathSaver struct {
	Path    string
	Dir     string
	Written string
}

// Save writes export and creates missing parent directories.
func (s *PathSaver) Save(ctx context.Context, export Export) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := strings.TrimSpace(s.Path)
	if target == "" {
		target = filepath.Join(s.Dir, export.FileName)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(target, export.Data, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	s.Written = target
	return nil
}
