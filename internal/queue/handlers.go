package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditLog appends one line per saved listing to <dir>/listing.log.
type AuditLog struct {
	Dir string
	mu  sync.Mutex
}

func (a *AuditLog) Handle(_ context.Context, body []byte) error {
	var ev ListingSavedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ListingID == "" {
		return fmt.Errorf("event without listing_id")
	}
	dir := a.Dir
	if dir == "" {
		dir = "logs"
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "listing.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Listing %s | id=%s | title=%q | type=%s | listing_type=%s | city=%q | status=%s | price=%q | images=%d\n",
		ev.SavedAt.UTC().Format(time.RFC3339), ev.Action, ev.ListingID, ev.Title, ev.PropertyType,
		ev.ListingType, ev.City, ev.Status, ev.Price, ev.ImageCount)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// ObjectDeleter removes stored objects.
type ObjectDeleter interface {
	Delete(ctx context.Context, keys ...string) error
}

// KeyClaimer forgets pending-upload markers.
type KeyClaimer interface {
	Claim(ctx context.Context, keys ...string) error
}

// OrphanCleaner deletes the objects named by an UploadsOrphanedEvent and
// clears their pending markers.  Ledger may be nil.
type OrphanCleaner struct {
	Store  ObjectDeleter
	Ledger KeyClaimer
}

func (o *OrphanCleaner) Handle(ctx context.Context, body []byte) error {
	var ev UploadsOrphanedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if len(ev.Keys) == 0 {
		return nil
	}
	if err := o.Store.Delete(ctx, ev.Keys...); err != nil {
		return fmt.Errorf("delete orphans: %w", err)
	}
	if o.Ledger != nil {
		if err := o.Ledger.Claim(ctx, ev.Keys...); err != nil {
			return fmt.Errorf("claim orphans: %w", err)
		}
	}
	return nil
}
