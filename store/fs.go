// ABOUTME: Local filesystem partition store
// ABOUTME: One gzip NDJSON object per partition, replaced by atomic rename
package store

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/harperreed/hublake/models"
)

const partitionObject = "rows.ndjson.gz"

// FSStore keeps partitions under <root>/<entity>/dt=<date>/rows.ndjson.gz.
// The layout mirrors the S3 store so local runs and warehouse loads agree.
type FSStore struct {
	root string
	log  *slog.Logger
}

func NewFSStore(root string, log *slog.Logger) *FSStore {
	if log == nil {
		log = slog.Default()
	}
	return &FSStore{root: root, log: log}
}

func (s *FSStore) partitionDir(entity models.EntityType, date string) string {
	return filepath.Join(s.root, string(entity), "dt="+date)
}

// List returns partition dates for entity in ascending order.
func (s *FSStore) List(_ context.Context, entity models.EntityType) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(entity)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions for %s: %w", entity, err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "dt=") {
			dates = append(dates, strings.TrimPrefix(e.Name(), "dt="))
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// Read loads one partition. A partition that was never written is empty.
func (s *FSStore) Read(_ context.Context, entity models.EntityType, date string) ([]models.Record, error) {
	path := filepath.Join(s.partitionDir(entity, date), partitionObject)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %s/%s: %w", entity, date, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("corrupt partition %s/%s: %w", entity, date, err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition %s/%s: %w", entity, date, err)
	}
	return DecodeRows(entity, date, data)
}

// Replace writes rows to a temp file and renames it over the live object, so
// a crash mid-write leaves the previous partition intact.
func (s *FSStore) Replace(_ context.Context, entity models.EntityType, date string, rows []models.Record) error {
	dir := s.partitionDir(entity, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create partition dir: %w", err)
	}

	data, err := EncodeRows(entity, rows)
	if err != nil {
		return err
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", partitionObject, ulid.Make()))
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp object: %w", err)
	}

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write partition %s/%s: %w", entity, date, err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize partition %s/%s: %w", entity, date, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp object: %w", err)
	}

	if err := os.Rename(tmp, filepath.Join(dir, partitionObject)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace partition %s/%s: %w", entity, date, err)
	}

	s.log.Debug("partition replaced", "entity", entity, "dt", date, "rows", len(rows))
	return nil
}
