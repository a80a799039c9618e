package storage

import (
	"context"

	"github.com/iudanet/vidsync/internal/crdt"
	"github.com/iudanet/vidsync/internal/models"
)

// EntityStorage defines the persistence contract the sync coordinator needs:
// the metadata record and its append-only operation log, transactionally
// consistent per entity.
type EntityStorage interface {
	// CreateEntity persists a freshly created record.
	// Returns ErrEntityExists if a record with this id already exists.
	CreateEntity(ctx context.Context, rec *models.MetadataRecord) error

	// GetEntity retrieves the current record snapshot.
	// Returns ErrEntityNotFound if the record doesn't exist.
	GetEntity(ctx context.Context, id string) (*models.MetadataRecord, error)

	// SaveEntity commits a mutated record. The write succeeds only if the
	// record's persisted vector clock still equals expected (the clock read
	// at the start of the exchange); otherwise ErrEntityModified is returned
	// and the caller must retry with fresh state. This is the
	// re-read-before-commit check that closes the check-then-act race
	// between two overlapping exchanges for the same entity.
	SaveEntity(ctx context.Context, rec *models.MetadataRecord, expected crdt.VectorClock) error

	// AppendOperation appends one accepted operation to the entity's log.
	// The log is append-only; entries are never mutated. Returns
	// ErrOperationExists if an entry with the same (timestamp, actorId)
	// dedup key is already logged.
	AppendOperation(ctx context.Context, entityID string, op *models.Operation) error

	// GetOperations retrieves the entity's full operation log ordered by
	// (timestamp, actorId).
	GetOperations(ctx context.Context, entityID string) ([]*models.Operation, error)

	// GetOperationsSince retrieves logged operations whose vector clock is
	// not dominated by the given clock, i.e. operations the holder of that
	// clock has not seen. Ordered by (timestamp, actorId).
	GetOperationsSince(ctx context.Context, entityID string, clock crdt.VectorClock) ([]*models.Operation, error)
}
