package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"FundRadar/internal/model"
)

// FileSink writes the snapshot document to a local path.
type FileSink struct {
	Path string
}

func NewFileSink(path string) *FileSink { return &FileSink{Path: path} }

func (s *FileSink) Name() string { return "file" }

// Write replaces the target atomically: the document goes to a temp file in
// the same directory which is then renamed over the target.
func (s *FileSink) Write(_ context.Context, snap *model.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replace %s: %w", s.Path, err)
	}
	return nil
}

// LoadFile reads a snapshot document from disk.
func LoadFile(path string) (*model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
