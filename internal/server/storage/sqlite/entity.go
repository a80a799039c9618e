package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/vidsync/internal/crdt"
	"github.com/iudanet/vidsync/internal/models"
	"github.com/iudanet/vidsync/internal/server/storage"
)

// CreateEntity persists a freshly created record
// Returns ErrEntityExists if a record with this id already exists
func (s *Storage) CreateEntity(ctx context.Context, rec *models.MetadataRecord) error {
	tags, clock, err := marshalRecordState(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO entities (
			id, title, description, category, tags,
			vector_clock, version, last_modified_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Title,
		rec.Description,
		rec.Category,
		tags,
		clock,
		rec.Version,
		rec.LastModifiedBy,
		rec.CreatedAt.Unix(),
		rec.UpdatedAt.Unix(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrEntityExists
		}
		return fmt.Errorf("failed to insert entity: %w", err)
	}

	return nil
}

// GetEntity retrieves the current record snapshot
// Returns ErrEntityNotFound if the record doesn't exist
func (s *Storage) GetEntity(ctx context.Context, id string) (*models.MetadataRecord, error) {
	query := `
		SELECT id, title, description, category, tags,
		       vector_clock, version, last_modified_by,
		       created_at, updated_at
		FROM entities
		WHERE id = ?
	`

	rec := &models.MetadataRecord{}
	var tags, clock string
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Title,
		&rec.Description,
		&rec.Category,
		&tags,
		&clock,
		&rec.Version,
		&rec.LastModifiedBy,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(clock), &rec.VectorClock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vector clock: %w", err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return rec, nil
}

// SaveEntity commits a mutated record with a compare-and-swap on the
// vector clock column: the UPDATE matches only if the persisted clock
// still equals the clock read at the start of the exchange.
// Returns ErrEntityModified when another exchange committed in between.
func (s *Storage) SaveEntity(ctx context.Context, rec *models.MetadataRecord, expected crdt.VectorClock) error {
	tags, clock, err := marshalRecordState(rec)
	if err != nil {
		return err
	}

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		return fmt.Errorf("failed to marshal expected clock: %w", err)
	}

	query := `
		UPDATE entities
		SET title = ?, description = ?, category = ?, tags = ?,
		    vector_clock = ?, version = ?, last_modified_by = ?,
		    updated_at = ?
		WHERE id = ? AND vector_clock = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		rec.Title,
		rec.Description,
		rec.Category,
		tags,
		clock,
		rec.Version,
		rec.LastModifiedBy,
		rec.UpdatedAt.Unix(),
		rec.ID,
		string(expectedJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// UPDATE не совпал: либо записи нет, либо часы изменились под нами
	if _, err := s.GetEntity(ctx, rec.ID); err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return storage.ErrEntityNotFound
		}
		return fmt.Errorf("failed to check entity after cas miss: %w", err)
	}

	return storage.ErrEntityModified
}

// marshalRecordState сериализует JSON-колонки записи.
func marshalRecordState(rec *models.MetadataRecord) (tags, clock string, err error) {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal tags: %w", err)
	}

	clockJSON, err := json.Marshal(rec.VectorClock)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal vector clock: %w", err)
	}

	return string(tagsJSON), string(clockJSON), nil
}

// isUniqueViolation распознает нарушение уникальности в modernc.org/sqlite.
// Драйвер не экспортирует типизированные коды, проверяем текст ошибки.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
