// ABOUTME: Tests for the badger watermark store
// ABOUTME: Round trip, missing entity, and wholesale replace
package watermark

import (
	"context"
	"testing"
	"time"

	"github.com/harperreed/hublake/models"
)

func TestBadgerRoundTrip(t *testing.T) {
	s, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	missing, err := s.Get(ctx, models.EntityDeals)
	if err != nil || missing != nil {
		t.Errorf("Expected nil for unseen entity, got %v, %v", missing, err)
	}

	mod := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := &models.Watermark{
		EntityType:       models.EntityDeals,
		LastSyncAt:       time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		LastModifiedAt:   &mod,
		RecordsProcessed: 42,
	}
	if err := s.Put(ctx, w); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, models.EntityDeals)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || !got.LastModifiedAt.Equal(mod) || got.RecordsProcessed != 42 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// Put replaces, never merges.
	w2 := &models.Watermark{EntityType: models.EntityDeals, LastSyncAt: w.LastSyncAt}
	if err := s.Put(ctx, w2); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	got, err = s.Get(ctx, models.EntityDeals)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastModifiedAt != nil {
		t.Errorf("Expected replaced watermark without modified mark, got %+v", got)
	}
}
