// ABOUTME: Watermark persistence contract
// ABOUTME: One watermark per entity, read whole and replaced whole
package watermark

import (
	"context"

	"github.com/harperreed/hublake/models"
)

// Store persists per-entity sync positions. Get returns nil for an entity
// that has never synced; Put replaces the stored watermark wholesale.
type Store interface {
	Get(ctx context.Context, entity models.EntityType) (*models.Watermark, error)
	Put(ctx context.Context, w *models.Watermark) error
}
