package sink

import (
	"context"
	"errors"
	"os"
	"sync"

	"FundRadar/internal/model"
)

// ErrNoSnapshot is returned by CachingSink.Latest before any document exists.
var ErrNoSnapshot = errors.New("no snapshot available yet")

// CachingSink forwards writes to Next and keeps the last written snapshot
// for readers. Before the first write in this process, Latest falls back to
// the document at FallbackPath.
type CachingSink struct {
	Next         Sink
	FallbackPath string

	mu   sync.RWMutex
	last *model.Snapshot
}

func NewCachingSink(next Sink, fallbackPath string) *CachingSink {
	return &CachingSink{Next: next, FallbackPath: fallbackPath}
}

func (c *CachingSink) Name() string { return c.Next.Name() }

func (c *CachingSink) Write(ctx context.Context, snap *model.Snapshot) error {
	if err := c.Next.Write(ctx, snap); err != nil {
		return err
	}
	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()
	return nil
}

// Latest returns the most recent snapshot.
func (c *CachingSink) Latest() (*model.Snapshot, error) {
	c.mu.RLock()
	last := c.last
	c.mu.RUnlock()
	if last != nil {
		return last, nil
	}
	if c.FallbackPath == "" {
		return nil, ErrNoSnapshot
	}
	snap, err := LoadFile(c.FallbackPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return snap, err
}
