// ABOUTME: Core data model for CRM ingestion
// ABOUTME: Defines EntityType, Watermark, FetchWindow, Record, and RunResult
package models

import (
	"fmt"
	"time"
)

// EntityType identifies one ingested CRM dataset.
type EntityType string

const (
	EntityDeals      EntityType = "deals"
	EntityActivities EntityType = "activities"
	EntityContacts   EntityType = "contacts"
	EntityCompanies  EntityType = "companies"
	EntityOwners     EntityType = "owners"
	EntityPipelines  EntityType = "pipelines"
)

// AllEntityTypes returns every entity type in a stable order.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityDeals,
		EntityActivities,
		EntityContacts,
		EntityCompanies,
		EntityOwners,
		EntityPipelines,
	}
}

// ParseEntityType validates a CLI/orchestrator entity selector.
func ParseEntityType(s string) (EntityType, error) {
	for _, e := range AllEntityTypes() {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// PrimaryKey returns the column that uniquely identifies a record of this
// entity across all partitions.
func (e EntityType) PrimaryKey() string {
	switch e {
	case EntityDeals:
		return "deal_id"
	case EntityActivities:
		return "activity_id"
	case EntityContacts:
		return "contact_id"
	case EntityCompanies:
		return "company_id"
	case EntityOwners:
		return "owner_id"
	case EntityPipelines:
		return "stage_id"
	}
	return "id"
}

// Incremental reports whether the entity participates in watermark-based
// incremental sync. Owners and pipelines are small dimension snapshots and
// are always replaced wholesale.
func (e EntityType) Incremental() bool {
	switch e {
	case EntityOwners, EntityPipelines:
		return false
	}
	return true
}

// Watermark is the last-known sync position for one entity type. It is owned
// by the watermark store and replaced as a whole on commit, never patched.
type Watermark struct {
	EntityType       EntityType `json:"entity_type"`
	LastSyncAt       time.Time  `json:"last_sync_at"`
	LastCreatedAt    *time.Time `json:"last_created_at,omitempty"`
	LastModifiedAt   *time.Time `json:"last_modified_at,omitempty"`
	RecordsProcessed int        `json:"records_processed"`
}

// MaxTimestamp returns the later of the created/modified high-water marks,
// falling back to LastSyncAt when neither was recorded.
func (w *Watermark) MaxTimestamp() (time.Time, bool) {
	var max time.Time
	if w.LastCreatedAt != nil {
		max = *w.LastCreatedAt
	}
	if w.LastModifiedAt != nil && w.LastModifiedAt.After(max) {
		max = *w.LastModifiedAt
	}
	if !max.IsZero() {
		return max, true
	}
	if !w.LastSyncAt.IsZero() {
		return w.LastSyncAt, true
	}
	return time.Time{}, false
}

// FetchWindow is the half-open time range [From, To] queried from the remote
// API for one run. Ephemeral, derived from the watermark.
type FetchWindow struct {
	Entity EntityType
	From   time.Time
	To     time.Time
}

// Split halves the window for result-cap subdivision. The right half starts
// one millisecond after the left half ends so the union covers the original
// window with no gap and no overlap (the API filters at ms resolution).
func (w FetchWindow) Split() (FetchWindow, FetchWindow) {
	mid := w.From.Add(w.To.Sub(w.From) / 2).Truncate(time.Millisecond)
	left := FetchWindow{Entity: w.Entity, From: w.From, To: mid}
	right := FetchWindow{Entity: w.Entity, From: mid.Add(time.Millisecond), To: w.To}
	return left, right
}

// Duration returns the window length.
func (w FetchWindow) Duration() time.Duration {
	return w.To.Sub(w.From)
}

func (w FetchWindow) String() string {
	return fmt.Sprintf("%s[%s..%s]", w.Entity, w.From.UTC().Format(time.RFC3339), w.To.UTC().Format(time.RFC3339))
}

// Record is one normalized row. ID is the primary key value, Partition the
// date partition key (YYYY-MM-DD). Columns holds entity-specific fields;
// a nil value is an explicit null, distinguishing "unknown" from "empty".
type Record struct {
	Entity     EntityType
	ID         string
	Partition  string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
	Columns    map[string]any
}

// ModifiedOrZero returns the designated last-modified timestamp used for
// merge-dedup ordering; a record without one sorts before any dated record.
func (r *Record) ModifiedOrZero() time.Time {
	if r.ModifiedAt != nil {
		return *r.ModifiedAt
	}
	return time.Time{}
}

// Run modes.
const (
	ModeMerge       = "merge"
	ModeFullReplace = "full-replace"
)

// Run states recorded in the run log.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusError   = "error"
)

// RunResult is the structured outcome reported back to the orchestrator.
type RunResult struct {
	RunID      string     `json:"run_id"`
	Entity     EntityType `json:"entity"`
	Mode       string     `json:"mode"`
	Written    int        `json:"written"`
	Skipped    int        `json:"skipped"`
	Partitions int        `json:"partitions"`
	StartedAt  time.Time  `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// SnapshotPartition is the partition key for unwatermarked dimension
// snapshots (owners, pipelines), replaced wholesale on every run.
const SnapshotPartition = "latest"

// PartitionDate formats a timestamp as a partition key.
func PartitionDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
