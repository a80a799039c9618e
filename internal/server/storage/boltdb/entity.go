package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/vidsync/internal/crdt"
	"github.com/iudanet/vidsync/internal/models"
	"github.com/iudanet/vidsync/internal/server/storage"
)

// CreateEntity persists a freshly created record
// Returns ErrEntityExists if a record with this id already exists
func (s *Storage) CreateEntity(ctx context.Context, rec *models.MetadataRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities)

		if bucket.Get([]byte(rec.ID)) != nil {
			return storage.ErrEntityExists
		}

		if err := bucket.Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// GetEntity retrieves the current record snapshot
// Returns ErrEntityNotFound if the record doesn't exist
func (s *Storage) GetEntity(ctx context.Context, id string) (*models.MetadataRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var rec *models.MetadataRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntities).Get([]byte(id))
		if data == nil {
			return storage.ErrEntityNotFound
		}

		rec = &models.MetadataRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// SaveEntity commits a mutated record. Проверка часов и запись выполняются
// в одной write-транзакции BoltDB, поэтому compare-and-swap атомарен.
// Returns ErrEntityModified when the persisted clock no longer equals
// expected.
func (s *Storage) SaveEntity(ctx context.Context, rec *models.MetadataRecord, expected crdt.VectorClock) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities)

		current := bucket.Get([]byte(rec.ID))
		if current == nil {
			return storage.ErrEntityNotFound
		}

		var persisted models.MetadataRecord
		if err := json.Unmarshal(current, &persisted); err != nil {
			return fmt.Errorf("failed to unmarshal persisted record: %w", err)
		}

		if !persisted.VectorClock.Equal(expected) {
			return storage.ErrEntityModified
		}

		if err := bucket.Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}

		return nil
	})
}
