// ABOUTME: Tests for window derivation and watermark commits
// ABOUTME: Overlap arithmetic, fail-open paths, and monotonic advance
package watermark

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/harperreed/hublake/models"
)

type memStore struct {
	marks  map[models.EntityType]*models.Watermark
	getErr error
	putErr error
	putCnt int
}

func newMemStore() *memStore {
	return &memStore{marks: make(map[models.EntityType]*models.Watermark)}
}

func (s *memStore) Get(_ context.Context, entity models.EntityType) (*models.Watermark, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.marks[entity], nil
}

func (s *memStore) Put(_ context.Context, w *models.Watermark) error {
	s.putCnt++
	if s.putErr != nil {
		return s.putErr
	}
	s.marks[w.EntityType] = w
	return nil
}

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testManager(store Store) *Manager {
	return NewManager(store, testStart, 2*time.Hour, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func tp(t time.Time) *time.Time { return &t }

func TestWindowSubtractsOverlap(t *testing.T) {
	store := newMemStore()
	store.marks[models.EntityDeals] = &models.Watermark{
		EntityType:     models.EntityDeals,
		LastSyncAt:     time.Date(2025, 6, 1, 0, 5, 0, 0, time.UTC),
		LastModifiedAt: tp(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	win, mode := testManager(store).Window(context.Background(), models.EntityDeals, now)

	if mode != models.ModeMerge {
		t.Errorf("Expected merge mode, got %s", mode)
	}
	want := time.Date(2025, 5, 31, 22, 0, 0, 0, time.UTC)
	if !win.From.Equal(want) {
		t.Errorf("Expected window start %v, got %v", want, win.From)
	}
	if !win.To.Equal(now) {
		t.Errorf("Expected window end %v, got %v", now, win.To)
	}
}

func TestWindowUsesLaterOfCreatedAndModified(t *testing.T) {
	store := newMemStore()
	store.marks[models.EntityContacts] = &models.Watermark{
		EntityType:     models.EntityContacts,
		LastCreatedAt:  tp(time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)),
		LastModifiedAt: tp(time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)),
	}

	now := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	win, _ := testManager(store).Window(context.Background(), models.EntityContacts, now)
	want := time.Date(2025, 6, 4, 22, 0, 0, 0, time.UTC)
	if !win.From.Equal(want) {
		t.Errorf("Expected window start from created mark, got %v", win.From)
	}
}

func TestWindowFailsOpenOnReadError(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("table unavailable")

	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	win, mode := testManager(store).Window(context.Background(), models.EntityDeals, now)

	if mode != models.ModeFullReplace {
		t.Errorf("Expected full-replace on read error, got %s", mode)
	}
	if !win.From.Equal(testStart) {
		t.Errorf("Expected full window from start date, got %v", win.From)
	}
}

func TestWindowFullSyncWhenNoWatermark(t *testing.T) {
	win, mode := testManager(newMemStore()).Window(context.Background(), models.EntityDeals, time.Now())
	if mode != models.ModeFullReplace || !win.From.Equal(testStart) {
		t.Errorf("Expected first run to be a full sync, got mode=%s from=%v", mode, win.From)
	}
}

func TestWindowClampsToStartDate(t *testing.T) {
	store := newMemStore()
	store.marks[models.EntityDeals] = &models.Watermark{
		EntityType:     models.EntityDeals,
		LastModifiedAt: tp(testStart.Add(30 * time.Minute)),
	}
	win, _ := testManager(store).Window(context.Background(), models.EntityDeals, time.Now())
	if !win.From.Equal(testStart) {
		t.Errorf("Expected window clamped to start date, got %v", win.From)
	}
}

func TestWindowDimensionsAlwaysFullReplace(t *testing.T) {
	store := newMemStore()
	store.marks[models.EntityOwners] = &models.Watermark{
		EntityType:     models.EntityOwners,
		LastModifiedAt: tp(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	_, mode := testManager(store).Window(context.Background(), models.EntityOwners, time.Now())
	if mode != models.ModeFullReplace {
		t.Errorf("Expected snapshot entities to always full-replace, got %s", mode)
	}
}

func TestWindowIncrementalDisabled(t *testing.T) {
	store := newMemStore()
	store.marks[models.EntityDeals] = &models.Watermark{
		EntityType:     models.EntityDeals,
		LastModifiedAt: tp(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	m := NewManager(store, testStart, 2*time.Hour, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	win, mode := m.Window(context.Background(), models.EntityDeals, time.Now())
	if mode != models.ModeFullReplace || !win.From.Equal(testStart) {
		t.Errorf("Expected toggle-off to force full sync, got mode=%s from=%v", mode, win.From)
	}
}

func TestCommitAdvancesMonotonically(t *testing.T) {
	store := newMemStore()
	m := testManager(store)
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	first := m.Commit(ctx, models.EntityDeals,
		tp(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		tp(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)), 10, now)
	if first != nil {
		t.Fatalf("Commit failed: %v", first)
	}

	// A later commit with older observed maxima must not move marks backward.
	older := tp(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC))
	if err := m.Commit(ctx, models.EntityDeals, older, older, 3, now.Add(time.Hour)); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	w := store.marks[models.EntityDeals]
	if !w.LastModifiedAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("watermark moved backward: %v", w.LastModifiedAt)
	}
	if w.RecordsProcessed != 3 {
		t.Errorf("Expected latest record count, got %d", w.RecordsProcessed)
	}
	if !w.LastSyncAt.Equal(now.Add(time.Hour)) {
		t.Errorf("Expected sync time to advance, got %v", w.LastSyncAt)
	}
}

func TestCommitSurfacesPutError(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("throttled")
	err := testManager(store).Commit(context.Background(), models.EntityDeals, nil, nil, 0, time.Now())
	if err == nil {
		t.Error("Expected commit error to surface for caller to log")
	}
}
