package listing

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// References reports which of the given public URLs a stored listing still
// points at.
type References interface {
	ReferencedImages(ctx context.Context, urls []string) (map[string]bool, error)
}

// Sweeper periodically deletes uploaded objects that were never claimed by
// a saved listing.  When Refs is set, objects still referenced by a listing
// are forgotten instead of deleted.
type Sweeper struct {
	Store    ObjectStore
	Ledger   Ledger
	Refs     References
	TTL      time.Duration
	Interval time.Duration
	Batch    int64
	Now      func() time.Time
	Log      *slog.Logger
}

// Run sweeps once per Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger().Warn("upload sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes one batch of stale objects and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	batch := s.Batch
	if batch <= 0 {
		batch = 100
	}
	keys, err := s.Ledger.Stale(ctx, now().Add(-s.TTL), batch)
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	doomed, err := s.unreferenced(ctx, keys)
	if err != nil {
		return 0, err
	}
	if len(doomed) > 0 {
		if err := s.Store.Delete(ctx, doomed...); err != nil {
			return 0, err
		}
	}
	if err := s.Ledger.Claim(ctx, keys...); err != nil {
		return 0, err
	}
	if kept := len(keys) - len(doomed); kept > 0 {
		s.logger().Info("referenced uploads kept", "count", kept)
	}
	if len(doomed) > 0 {
		s.logger().Info("orphaned uploads removed", "count", len(doomed))
	}
	return len(doomed), nil
}

// unreferenced drops the keys whose public URL a listing still uses.
func (s *Sweeper) unreferenced(ctx context.Context, keys []string) ([]string, error) {
	if s.Refs == nil {
		return keys, nil
	}
	urls := make([]string, len(keys))
	for i, k := range keys {
		urls[i] = s.Store.PublicURL(k)
	}
	used, err := s.Refs.ReferencedImages(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("check image references: %w", err)
	}
	out := make([]string, 0, len(keys))
	for i, k := range keys {
		if !used[urls[i]] {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Sweeper) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
