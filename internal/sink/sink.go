package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"FundRadar/internal/model"
)

// Sink persists a finished snapshot.
type Sink interface {
	Write(ctx context.Context, snap *model.Snapshot) error
	Name() string
}

// Encode renders a snapshot as indented UTF-8 JSON with a trailing newline.
func Encode(snap *model.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a document written by Encode.
func Decode(r io.Reader) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// WriterSink writes the document to an io.Writer, e.g. stdout for dry runs.
type WriterSink struct {
	W io.Writer
}

func (s *WriterSink) Name() string { return "writer" }

func (s *WriterSink) Write(_ context.Context, snap *model.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	_, err = s.W.Write(data)
	return err
}
