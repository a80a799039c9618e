package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/iudanet/vidsync/internal/crdt"
	"github.com/iudanet/vidsync/internal/models"
	"github.com/iudanet/vidsync/internal/server/storage"
	"github.com/iudanet/vidsync/internal/validation"
)

// Coordinator оркестрирует один обмен синхронизации: классифицирует
// отношение состояния сервера и клиента сравнением векторных часов и
// выполняет одну из трех веток примирения. Координатор эксклюзивно
// владеет рабочей копией записи на время обмена; журнал операций
// append-only и безопасен для конкурентных читателей.
type Coordinator struct {
	logger  *slog.Logger
	storage storage.EntityStorage
	locks   *entityLocks
}

// NewCoordinator создает координатор поверх хранилища.
func NewCoordinator(logger *slog.Logger, st storage.EntityStorage) *Coordinator {
	return &Coordinator{
		logger:  logger,
		storage: st,
		locks:   newEntityLocks(),
	}
}

// exchange несет все состояние одного обмена. Живет строго в рамках
// вызова Sync/DirectUpdate и возвращается вызывающему через Result -
// никакого процессного реестра "активных" обменов.
type exchange struct {
	rec      *models.MetadataRecord // рабочая копия записи
	expected crdt.VectorClock       // часы на момент чтения, для CAS при коммите
	applied  []*models.Operation
	warnings []models.Warning
}

// Sync выполняет один обмен синхронизации для сущности.
//
// Ветка выбирается по compare(serverClock, clientClock):
//   - After  (клиент позади): состояние сервера не трогается, клиенту
//     возвращаются пропущенные операции и авторитетный снимок.
//   - Before (сервер позади): операции клиента применяются и журналируются.
//   - Concurrent: новые (недублирующиеся) операции клиента сливаются
//     детерминированно.
//
// Невалидные операции батча пропускаются с предупреждением и никогда не
// прерывают обмен целиком.
func (c *Coordinator) Sync(ctx context.Context, req *Request) (*Result, error) {
	unlock := c.locks.lock(req.EntityID)
	defer unlock()

	rec, err := c.storage.GetEntity(ctx, req.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity: %w", err)
	}

	ex := &exchange{
		rec:      rec,
		expected: rec.VectorClock.Clone(),
	}

	ops := c.validateBatch(ex, req.Operations)

	// Эффективные часы клиента: заявленные часы плюс часы его отложенных
	// операций. Локальные мутации продвигают клиента вперед заявленной
	// базы; классификация по одной лишь базе ошибочно приняла бы такого
	// клиента за отставшего.
	effective := req.ClientVectorClock.Clone()
	for _, op := range ops {
		effective = effective.Merge(op.VectorClock)
	}

	ordering := rec.VectorClock.Compare(effective)

	c.logger.Info("sync exchange classified",
		"entity_id", req.EntityID,
		"sync_type", ordering.String(),
		"pending_operations", len(ops),
		"client_version", req.ClientVersion,
		"server_version", rec.Version)

	switch ordering {
	case crdt.OrderingBefore:
		return c.applyClientOperations(ctx, req, ex, ops)
	case crdt.OrderingAfter:
		return c.updateClient(ctx, req, ex)
	default:
		return c.mergeConcurrent(ctx, req, ex, ops)
	}
}

// applyClientOperations выполняет ветку Before: сервер причинно позади,
// все валидные операции клиента применяются в детерминированном порядке
// и журналируются.
func (c *Coordinator) applyClientOperations(
	ctx context.Context, req *Request, ex *exchange, ops []*models.Operation,
) (*Result, error) {
	novel, err := c.dedupAgainstLog(ctx, req.EntityID, ops)
	if err != nil {
		return nil, err
	}
	sortOperations(novel)

	if err := c.applyAndPersist(ctx, req.EntityID, ex, novel); err != nil {
		return c.resultOf(ex, crdt.OrderingBefore, ActionAppliedOperations, 0), err
	}

	if err := c.commit(ctx, ex); err != nil {
		return nil, err
	}

	return c.resultOf(ex, crdt.OrderingBefore, ActionAppliedOperations, 0), nil
}

// updateClient выполняет ветку After: клиент позади, сервер не мутирует
// ничего и возвращает операции, часы которых не доминируются часами
// клиента, плюс авторитетный снимок.
func (c *Coordinator) updateClient(ctx context.Context, req *Request, ex *exchange) (*Result, error) {
	missed, err := c.storage.GetOperationsSince(ctx, req.EntityID, req.ClientVectorClock)
	if err != nil {
		return nil, fmt.Errorf("failed to load missed operations: %w", err)
	}

	res := c.resultOf(ex, crdt.OrderingAfter, ActionUpdateClient, 0)
	res.MissedOperations = missed
	return res, nil
}

// mergeConcurrent выполняет ветку Concurrent: ни одна сторона не
// доминирует. Операции клиента, уже присутствующие в журнале сервера,
// отбрасываются по ключу (timestamp, actorId) - так повторная отправка
// батча после таймаута становится идемпотентной. Оставшиеся новые
// операции упорядочиваются и применяются последовательно.
func (c *Coordinator) mergeConcurrent(
	ctx context.Context, req *Request, ex *exchange, ops []*models.Operation,
) (*Result, error) {
	novel, err := c.dedupAgainstLog(ctx, req.EntityID, ops)
	if err != nil {
		return nil, err
	}

	// set_tags - некоммутативная полная замена: внутри конкурентного
	// слияния она допустима только когда клиент не отстает по версии,
	// иначе она затерла бы теги, добавленные невиданными клиентом
	// операциями
	filtered := novel[:0]
	for _, op := range novel {
		if op.Kind == models.OpKindSetTags && req.ClientVersion < ex.rec.Version {
			ex.warnings = append(ex.warnings, models.Warning{
				OperationKey: op.DedupKey(),
				Reason: fmt.Sprintf("set_tags requires client version >= %d (got %d), resync required",
					ex.rec.Version, req.ClientVersion),
			})
			continue
		}
		filtered = append(filtered, op)
	}
	sortOperations(filtered)

	if err := c.applyAndPersist(ctx, req.EntityID, ex, filtered); err != nil {
		return c.resultOf(ex, crdt.OrderingConcurrent, ActionMergedConcurrent, len(ex.applied)), err
	}

	if err := c.commit(ctx, ex); err != nil {
		return nil, err
	}

	return c.resultOf(ex, crdt.OrderingConcurrent, ActionMergedConcurrent, len(ex.applied)), nil
}

// UpdateRequest представляет прямое (небатчевое) обновление скалярных
// полей. Nil-поле означает "не менять".
type UpdateRequest struct {
	Title             *string
	Description       *string
	Category          *string
	ClientVectorClock crdt.VectorClock
	EntityID          string
	ActorID           string
	ClientVersion     int64
}

// DirectUpdate выполняет прямую перезапись скалярных полей вне батчевого
// протокола. Запрос проходит ту же классификацию compare: если сервер
// строго впереди, возвращается StaleError с текущими часами и версией -
// клиент обязан перечитать и повторить, молчаливая перезапись запрещена.
func (c *Coordinator) DirectUpdate(ctx context.Context, req *UpdateRequest) (*Result, error) {
	unlock := c.locks.lock(req.EntityID)
	defer unlock()

	rec, err := c.storage.GetEntity(ctx, req.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity: %w", err)
	}

	ordering := rec.VectorClock.Compare(req.ClientVectorClock)
	if ordering == crdt.OrderingAfter {
		c.logger.Info("direct update rejected, client is stale",
			"entity_id", req.EntityID,
			"client_version", req.ClientVersion,
			"server_version", rec.Version)
		return nil, &StaleError{
			ServerVectorClock: rec.VectorClock.Clone(),
			ServerVersion:     rec.Version,
		}
	}

	ex := &exchange{
		rec:      rec,
		expected: rec.VectorClock.Clone(),
	}

	ops := buildScalarOperations(req, time.Now())
	if err := c.applyAndPersist(ctx, req.EntityID, ex, ops); err != nil {
		return c.resultOf(ex, ordering, ActionAppliedOperations, 0), err
	}

	if err := c.commit(ctx, ex); err != nil {
		return nil, err
	}

	return c.resultOf(ex, ordering, ActionAppliedOperations, 0), nil
}

// buildScalarOperations синтезирует операции перезаписи для заполненных
// полей запроса. Часы каждой следующей операции инкрементируют счетчик
// актора поверх заявленных клиентом часов.
func buildScalarOperations(req *UpdateRequest, now time.Time) []*models.Operation {
	clock := req.ClientVectorClock
	ts := now.UnixMilli()

	fields := []struct {
		value *string
		kind  models.OpKind
	}{
		{req.Title, models.OpKindUpdateTitle},
		{req.Description, models.OpKindUpdateDescription},
		{req.Category, models.OpKindUpdateCategory},
	}

	ops := make([]*models.Operation, 0, len(fields))
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		clock = clock.Increment(req.ActorID)
		ops = append(ops, &models.Operation{
			Kind:        f.kind,
			Payload:     models.Payload{Value: *f.value},
			VectorClock: clock,
			ActorID:     req.ActorID,
			Timestamp:   ts,
		})
		// Несколько полей в одном запросе не должны делить ключ дедупликации
		ts++
	}

	return ops
}

// validateBatch отбирает валидные операции батча. Невалидная операция
// (неизвестный вид, пустой актор, испорченные часы) пропускается с
// предупреждением; обмен продолжается с остальными.
func (c *Coordinator) validateBatch(ex *exchange, ops []*models.Operation) []*models.Operation {
	valid := make([]*models.Operation, 0, len(ops))
	for _, op := range ops {
		if err := validateOperation(op); err != nil {
			c.logger.Warn("skipping invalid operation",
				"operation_key", op.DedupKey(),
				"error", err)
			ex.warnings = append(ex.warnings, models.Warning{
				OperationKey: op.DedupKey(),
				Reason:       err.Error(),
			})
			continue
		}
		valid = append(valid, op)
	}
	return valid
}

// validateOperation проверяет операцию синтаксически.
func validateOperation(op *models.Operation) error {
	if op.Kind == models.OpKindUnknown {
		return errors.New("unknown operation kind, skipped")
	}
	if err := validation.ValidateActorID(op.ActorID); err != nil {
		return fmt.Errorf("invalid actor id: %w", err)
	}
	if op.Timestamp <= 0 {
		return errors.New("operation timestamp must be positive")
	}
	if err := validation.ValidateVectorClock(op.VectorClock); err != nil {
		return fmt.Errorf("malformed vector clock: %w", err)
	}
	switch op.Kind {
	case models.OpKindAddTag, models.OpKindRemoveTag:
		if err := validation.ValidateTag(op.Payload.Value); err != nil {
			return fmt.Errorf("invalid tag: %w", err)
		}
	case models.OpKindSetTags:
		for _, tag := range op.Payload.Tags {
			if err := validation.ValidateTag(tag); err != nil {
				return fmt.Errorf("invalid tag: %w", err)
			}
		}
	}
	return nil
}

// dedupAgainstLog отбрасывает операции, ключ дедупликации которых уже
// присутствует в журнале сервера. Гарантия идемпотентного повтора:
// повторно присланный батч дает ноль новых изменений.
func (c *Coordinator) dedupAgainstLog(
	ctx context.Context, entityID string, ops []*models.Operation,
) ([]*models.Operation, error) {
	logged, err := c.storage.GetOperations(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load operation log: %w", err)
	}

	seen := make(map[string]struct{}, len(logged))
	for _, op := range logged {
		seen[op.DedupKey()] = struct{}{}
	}

	novel := make([]*models.Operation, 0, len(ops))
	for _, op := range ops {
		if _, dup := seen[op.DedupKey()]; dup {
			c.logger.Debug("skipping duplicate operation", "operation_key", op.DedupKey())
			continue
		}
		novel = append(novel, op)
	}

	return novel, nil
}

// applyAndPersist применяет операции к рабочей копии, журналируя каждую
// принятую операцию перед тем, как принять ее эффект. Порядок важен:
// часы записи не должны оказаться слитыми без соответствующей операции в
// журнале. При сбое хранилища остаток батча прерывается, рабочая копия
// (отражающая ровно закоммиченные операции) сохраняется best-effort, и
// вызывающему возвращается PartialApplyError со списком закоммиченного.
func (c *Coordinator) applyAndPersist(
	ctx context.Context, entityID string, ex *exchange, ops []*models.Operation,
) error {
	for i, op := range ops {
		next, warn := models.ApplyOperation(ex.rec, op)
		if warn != nil {
			// Операция ничего не изменила - не журналируем, но слитые
			// часы из шага 1 применения сохраняем
			ex.rec = next
			ex.warnings = append(ex.warnings, *warn)
			continue
		}

		if err := c.storage.AppendOperation(ctx, entityID, op); err != nil {
			if errors.Is(err, storage.ErrOperationExists) {
				// Гонка с параллельным коммитом той же операции - уже
				// в журнале, эффект учтет перечитывание
				continue
			}

			c.logger.Error("operation log append failed, aborting batch",
				"entity_id", entityID,
				"operation_key", op.DedupKey(),
				"committed", i,
				"remaining", len(ops)-i,
				"error", err)

			if saveErr := c.commit(ctx, ex); saveErr != nil {
				c.logger.Error("failed to persist partial batch state",
					"entity_id", entityID, "error", saveErr)
			}

			return &PartialApplyError{
				Committed: append([]*models.Operation(nil), ex.applied...),
				Err:       err,
			}
		}

		ex.rec = next
		ex.applied = append(ex.applied, op)
	}

	return nil
}

// commit сохраняет рабочую копию с CAS по часам, прочитанным в начале
// обмена. ErrEntityModified означает, что параллельный обмен успел
// закоммититься первым - retryable конфликт, отличный от CRDT-level
// "клиент отстал".
func (c *Coordinator) commit(ctx context.Context, ex *exchange) error {
	if len(ex.applied) == 0 && ex.rec.VectorClock.Equal(ex.expected) {
		// Нечего коммитить
		return nil
	}

	if err := c.storage.SaveEntity(ctx, ex.rec, ex.expected); err != nil {
		if errors.Is(err, storage.ErrEntityModified) {
			return fmt.Errorf("exchange lost commit race: %w", err)
		}
		return fmt.Errorf("failed to save entity: %w", err)
	}

	return nil
}

// resultOf собирает Result из состояния обмена.
func (c *Coordinator) resultOf(ex *exchange, ordering crdt.Ordering, action Action, conflicts int) *Result {
	return &Result{
		Record:            ex.rec,
		SyncType:          ordering,
		Action:            action,
		AppliedOperations: ex.applied,
		Warnings:          ex.warnings,
		ConflictsResolved: conflicts,
	}
}

// sortOperations упорядочивает операции детерминированно: причинный
// порядок по compare, конкурентные пары - по (timestamp, actorId) так,
// что LWW-победитель применяется последним.
func sortOperations(ops []*models.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		switch ops[i].VectorClock.Compare(ops[j].VectorClock) {
		case crdt.OrderingBefore:
			return true
		case crdt.OrderingAfter:
			return false
		default:
			return crdt.NewerThan(ops[j].Timestamp, ops[j].ActorID, ops[i].Timestamp, ops[i].ActorID)
		}
	})
}
