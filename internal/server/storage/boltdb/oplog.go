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

// opKey строит ключ операции во вложенном bucket'е журнала.
// Timestamp дополняется нулями до фиксированной ширины, чтобы
// лексикографический порядок ключей BoltDB совпадал с порядком
// (timestamp, actorId).
func opKey(op *models.Operation) []byte {
	return fmt.Appendf(nil, "%020d:%s", op.Timestamp, op.ActorID)
}

// AppendOperation appends one accepted operation to the entity's log.
// Returns ErrOperationExists when the (timestamp, actorId) dedup key is
// already present.
func (s *Storage) AppendOperation(ctx context.Context, entityID string, op *models.Operation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		log, err := tx.Bucket(bucketOperations).CreateBucketIfNotExists([]byte(entityID))
		if err != nil {
			return fmt.Errorf("failed to create entity log bucket: %w", err)
		}

		key := opKey(op)
		if log.Get(key) != nil {
			return storage.ErrOperationExists
		}

		if err := log.Put(key, data); err != nil {
			return fmt.Errorf("failed to append operation: %w", err)
		}

		return nil
	})
}

// GetOperations retrieves the entity's full operation log ordered by
// (timestamp, actorId)
func (s *Storage) GetOperations(ctx context.Context, entityID string) ([]*models.Operation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	ops := make([]*models.Operation, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		log := tx.Bucket(bucketOperations).Bucket([]byte(entityID))
		if log == nil {
			// Журнала еще нет - пустой результат
			return nil
		}

		return log.ForEach(func(k, v []byte) error {
			var op models.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			ops = append(ops, &op)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}

	return ops, nil
}

// GetOperationsSince retrieves operations whose vector clock is not
// dominated by the given clock. См. комментарий в sqlite-реализации:
// фильтрация по доминированию выполняется в памяти.
func (s *Storage) GetOperationsSince(ctx context.Context, entityID string, clock crdt.VectorClock) ([]*models.Operation, error) {
	all, err := s.GetOperations(ctx, entityID)
	if err != nil {
		return nil, err
	}

	missed := make([]*models.Operation, 0)
	for _, op := range all {
		if !clock.Dominates(op.VectorClock) {
			missed = append(missed, op)
		}
	}

	return missed, nil
}
