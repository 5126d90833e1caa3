// ABOUTME: Derives fetch windows from watermarks and commits new positions
// ABOUTME: Fails open to a full sync whenever the stored position is unusable
package watermark

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harperreed/hublake/models"
)

// DefaultOverlap is how far the fetch window reaches back behind the stored
// watermark. Records modified while the previous run was in flight land
// inside the overlap and are picked up again; the merge writer makes the
// second copy harmless.
const DefaultOverlap = 2 * time.Hour

// Manager turns stored watermarks into fetch windows and advances them after
// successful runs.
type Manager struct {
	store       Store
	log         *slog.Logger
	start       time.Time
	overlap     time.Duration
	incremental bool
}

func NewManager(store Store, start time.Time, overlap time.Duration, incremental bool, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if overlap <= 0 {
		overlap = DefaultOverlap
	}
	return &Manager{store: store, log: log, start: start, overlap: overlap, incremental: incremental}
}

// Window decides what to fetch for entity. It returns the time range plus the
// write mode: ModeMerge for an incremental pass, ModeFullReplace when the
// whole history is being refetched. Any problem reading the watermark falls
// open to a full sync rather than failing the run — refetching is safe, a
// silent gap is not.
func (m *Manager) Window(ctx context.Context, entity models.EntityType, now time.Time) (models.FetchWindow, string) {
	full := models.FetchWindow{Entity: entity, From: m.start, To: now}

	if !m.incremental || !entity.Incremental() {
		return full, models.ModeFullReplace
	}

	w, err := m.store.Get(ctx, entity)
	if err != nil {
		m.log.Warn("watermark read failed, falling back to full sync", "entity", entity, "error", err)
		return full, models.ModeFullReplace
	}
	if w == nil {
		m.log.Info("no watermark yet, running full sync", "entity", entity)
		return full, models.ModeFullReplace
	}
	max, ok := w.MaxTimestamp()
	if !ok {
		return full, models.ModeFullReplace
	}

	from := max.Add(-m.overlap)
	if from.Before(m.start) {
		from = m.start
	}
	return models.FetchWindow{Entity: entity, From: from, To: now}, models.ModeMerge
}

// Commit records the new sync position. The stored watermark only ever moves
// forward: an observed maximum older than what is already recorded (possible
// when a split window finished out of order) leaves the stored value alone.
func (m *Manager) Commit(ctx context.Context, entity models.EntityType, maxCreated, maxModified *time.Time, processed int, now time.Time) error {
	existing, err := m.store.Get(ctx, entity)
	if err != nil {
		m.log.Warn("watermark read before commit failed", "entity", entity, "error", err)
		existing = nil
	}

	next := &models.Watermark{
		EntityType:       entity,
		LastSyncAt:       now.UTC(),
		RecordsProcessed: processed,
	}
	next.LastCreatedAt = laterOf(maxCreated, watermarkCreated(existing))
	next.LastModifiedAt = laterOf(maxModified, watermarkModified(existing))

	if err := m.store.Put(ctx, next); err != nil {
		return fmt.Errorf("failed to commit watermark for %s: %w", entity, err)
	}
	return nil
}

func watermarkCreated(w *models.Watermark) *time.Time {
	if w == nil {
		return nil
	}
	return w.LastCreatedAt
}

func watermarkModified(w *models.Watermark) *time.Time {
	if w == nil {
		return nil
	}
	return w.LastModifiedAt
}

func laterOf(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}
