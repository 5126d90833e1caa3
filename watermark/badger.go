// ABOUTME: Badger-backed watermark store for local runs
// ABOUTME: One JSON value per entity under the wm: key prefix
package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/harperreed/hublake/models"
)

// BadgerStore keeps watermarks in an embedded badger database, so local and
// scheduled runs on one host share sync state without any AWS dependency.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(dir string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func badgerKey(entity models.EntityType) []byte {
	return []byte("wm:" + string(entity))
}

func (s *BadgerStore) Get(_ context.Context, entity models.EntityType) (*models.Watermark, error) {
	var w *models.Watermark
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(entity))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			w = &models.Watermark{}
			return json.Unmarshal(val, w)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark for %s: %w", entity, err)
	}
	return w, nil
}

func (s *BadgerStore) Put(_ context.Context, w *models.Watermark) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode watermark: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(w.EntityType), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store watermark for %s: %w", w.EntityType, err)
	}
	return nil
}
