// ABOUTME: Partition store contract and the on-disk row codec
// ABOUTME: Partitions are whole units: read fully, replaced atomically, never patched
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/hublake/models"
)

// PartitionStore is the object-storage surface the engine writes through.
// A partition is keyed by (entity, date) and only ever replaced wholesale;
// no reader may observe a half-written partition.
type PartitionStore interface {
	// List returns the partition dates present for entity.
	List(ctx context.Context, entity models.EntityType) ([]string, error)
	// Read returns every row of one partition; a missing partition is
	// empty, not an error.
	Read(ctx context.Context, entity models.EntityType, date string) ([]models.Record, error)
	// Replace swaps the partition's contents for rows.
	Replace(ctx context.Context, entity models.EntityType, date string, rows []models.Record) error
}

const (
	colPartition = "dt"
	colCreated   = "created_at"
	colModified  = "last_modified_at"
)

// EncodeRows renders rows as NDJSON. Key order inside a line is stable
// (encoding/json sorts map keys), so identical row sets encode to identical
// bytes regardless of how they were produced.
func EncodeRows(entity models.EntityType, rows []models.Record) ([]byte, error) {
	pk := entity.PrimaryKey()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		line := make(map[string]any, len(row.Columns)+4)
		for k, v := range row.Columns {
			line[k] = v
		}
		line[pk] = row.ID
		line[colPartition] = row.Partition
		line[colCreated] = formatTime(row.CreatedAt)
		line[colModified] = formatTime(row.ModifiedAt)
		if err := enc.Encode(line); err != nil {
			return nil, fmt.Errorf("failed to encode row %s: %w", row.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeRows parses NDJSON back into records. Numbers are kept as
// json.Number so a decode/encode round trip is byte-stable.
func DecodeRows(entity models.EntityType, date string, data []byte) ([]models.Record, error) {
	pk := entity.PrimaryKey()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out []models.Record
	for dec.More() {
		line := make(map[string]any)
		if err := dec.Decode(&line); err != nil {
			return nil, fmt.Errorf("corrupt partition %s/%s: %w", entity, date, err)
		}

		id, _ := line[pk].(string)
		if id == "" {
			return nil, fmt.Errorf("partition %s/%s: row without primary key %s", entity, date, pk)
		}
		rec := models.Record{
			Entity:     entity,
			ID:         id,
			Partition:  date,
			CreatedAt:  parseTime(line[colCreated]),
			ModifiedAt: parseTime(line[colModified]),
			Columns:    line,
		}
		delete(line, pk)
		delete(line, colPartition)
		delete(line, colCreated)
		delete(line, colModified)
		out = append(out, rec)
	}
	return out, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
