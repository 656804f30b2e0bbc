package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
	"github.com/jhoicas/Insumos-api/pkg/logger"
)

// Operaciones de mutación (etiquetas de métricas, logs y alertas).
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpRead   = "read"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 20 * time.Millisecond
)

var tracer = otel.Tracer("insumos-api/ledger")

// LedgerDeps dependencias del motor. Notifier, Cache, Metrics y Log son opcionales.
type LedgerDeps struct {
	TxRunner     TxRunner
	ItemRepo     repository.ItemRepository
	MovementRepo repository.MovementRepository
	UserRepo     repository.UserRepository
	Notifier     Notifier
	Cache        StockCache
	Metrics      Metrics
	Log          *logger.Logger
	MaxAttempts  int
	RetryBackoff time.Duration
	Now          func() time.Time
}

// LedgerEngine registra, edita y elimina movimientos garantizando que el stock derivado
// nunca quede negativo ni sea llevado a cero por una salida. Todas las mutaciones de un
// mismo insumo se serializan a través de TxRunner.RunForItem.
type LedgerEngine struct {
	txRunner     TxRunner
	itemRepo     repository.ItemRepository
	movementRepo repository.MovementRepository
	userRepo     repository.UserRepository
	notifier     Notifier
	cache        StockCache
	cacheEnabled bool
	metrics      Metrics
	log          *logger.Logger
	maxAttempts  int
	retryBackoff time.Duration
	now          func() time.Time
}

// NewLedgerEngine construye el motor aplicando valores por defecto.
func NewLedgerEngine(deps LedgerDeps) *LedgerEngine {
	e := &LedgerEngine{
		txRunner:     deps.TxRunner,
		itemRepo:     deps.ItemRepo,
		movementRepo: deps.MovementRepo,
		userRepo:     deps.UserRepo,
		notifier:     deps.Notifier,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		log:          deps.Log,
		maxAttempts:  deps.MaxAttempts,
		retryBackoff: deps.RetryBackoff,
		now:          deps.Now,
	}
	if e.notifier == nil {
		e.notifier = noopNotifier{}
	}
	if e.cache == nil {
		e.cache = noopCache{}
	} else {
		e.cacheEnabled = true
	}
	if e.metrics == nil {
		e.metrics = noopMetrics{}
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = defaultMaxAttempts
	}
	if e.retryBackoff <= 0 {
		e.retryBackoff = defaultRetryBackoff
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// CreateMovementInput entrada para registrar un movimiento.
// OccurredAt nil = instante del registro.
type CreateMovementInput struct {
	ItemID     string
	ActorID    string
	Kind       string
	Quantity   int64
	OccurredAt *time.Time
}

// UpdateMovementInput entrada para editar un movimiento existente.
// OccurredAt nil fecha la edición en el instante en que se aplica.
type UpdateMovementInput struct {
	MovementID string
	Kind       string
	Quantity   int64
	OccurredAt *time.Time
}

// CreateMovement valida y agrega un movimiento al historial del insumo.
func (e *LedgerEngine) CreateMovement(ctx context.Context, in CreateMovementInput) (*entity.Movement, error) {
	ctx, span := tracer.Start(ctx, "ledger.CreateMovement", trace.WithAttributes(
		attribute.String("item.id", in.ItemID),
		attribute.String("movement.kind", in.Kind),
		attribute.Int64("movement.quantity", in.Quantity),
	))
	defer span.End()
	start := time.Now()

	kind, err := validateKindQuantity(in.Kind, in.Quantity)
	if err == nil && in.ItemID == "" {
		err = fmt.Errorf("%w: item_id es obligatorio", domain.ErrInvalidInput)
	}
	if err == nil {
		err = e.checkActor(ctx, in.ActorID)
	}
	if err != nil {
		e.finish(ctx, span, OpCreate, start, err)
		return nil, err
	}

	var (
		created *entity.Movement
		alert   *entity.StockAlert
	)
	err = e.runLocked(ctx, OpCreate, in.ItemID, func(movRepo repository.MovementRepository, itemRepo repository.ItemRepository) error {
		created, alert = nil, nil

		item, err := itemRepo.GetByID(ctx, in.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: insumo %s", domain.ErrNotFound, in.ItemID)
		}
		history, err := movRepo.ListByItem(ctx, in.ItemID)
		if err != nil {
			return err
		}
		current := inventory.StockCalculator(history)
		after := current + in.Quantity*kind.Sign()
		if err := inventory.CheckResultingStock(in.ItemID, kind, current, after); err != nil {
			return err
		}

		now := e.now()
		occurredAt := now
		if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
			occurredAt = *in.OccurredAt
		}
		mov := &entity.Movement{
			ID:         uuid.New().String(),
			ItemID:     in.ItemID,
			ActorID:    in.ActorID,
			Kind:       kind,
			Quantity:   in.Quantity,
			OccurredAt: occurredAt,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := movRepo.Append(ctx, mov); err != nil {
			return err
		}
		created = mov
		if inventory.ShouldAlert(after, item.CriticalThreshold) {
			alert = newAlert(item, after, mov.ID, OpCreate, now)
		}
		e.log.Ctx(ctx).Info().
			Str("item_id", in.ItemID).
			Str("movement_id", mov.ID).
			Str("kind", string(kind)).
			Int64("quantity", in.Quantity).
			Int64("stock_before", current).
			Int64("stock_after", after).
			Msg("movimiento registrado")
		return nil
	})
	e.finish(ctx, span, OpCreate, start, err)
	if err != nil {
		return nil, err
	}
	e.afterCommit(ctx, OpCreate, in.ItemID, alert)
	return created, nil
}

// UpdateMovement reemplaza tipo, cantidad y opcionalmente fecha de un movimiento.
// La validación se hace sobre el stock sin el movimiento más el nuevo efecto.
func (e *LedgerEngine) UpdateMovement(ctx context.Context, in UpdateMovementInput) (*entity.Movement, error) {
	ctx, span := tracer.Start(ctx, "ledger.UpdateMovement", trace.WithAttributes(
		attribute.String("movement.id", in.MovementID),
		attribute.String("movement.kind", in.Kind),
		attribute.Int64("movement.quantity", in.Quantity),
	))
	defer span.End()
	start := time.Now()

	kind, err := validateKindQuantity(in.Kind, in.Quantity)
	var itemID string
	if err == nil {
		itemID, err = e.lookupItemOf(ctx, in.MovementID)
	}
	if err != nil {
		e.finish(ctx, span, OpUpdate, start, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("item.id", itemID))

	var (
		updated *entity.Movement
		alert   *entity.StockAlert
	)
	err = e.runLocked(ctx, OpUpdate, itemID, func(movRepo repository.MovementRepository, itemRepo repository.ItemRepository) error {
		updated, alert = nil, nil

		cur, err := movRepo.GetByID(ctx, in.MovementID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, in.MovementID)
		}
		item, err := itemRepo.GetByID(ctx, cur.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: insumo %s", domain.ErrNotFound, cur.ItemID)
		}
		history, err := movRepo.ListByItem(ctx, cur.ItemID)
		if err != nil {
			return err
		}
		baseline := inventory.StockExcluding(history, cur.ID)
		before := baseline + cur.Effect()
		after := baseline + in.Quantity*kind.Sign()
		if err := inventory.CheckResultingStock(cur.ItemID, kind, before, after); err != nil {
			return err
		}

		now := e.now()
		next := *cur
		next.Kind = kind
		next.Quantity = in.Quantity
		next.OccurredAt = now
		if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
			next.OccurredAt = *in.OccurredAt
		}
		next.UpdatedAt = now
		if err := movRepo.Replace(ctx, &next); err != nil {
			return err
		}
		updated = &next
		if inventory.ShouldAlert(after, item.CriticalThreshold) {
			alert = newAlert(item, after, next.ID, OpUpdate, now)
		}
		e.log.Ctx(ctx).Info().
			Str("item_id", cur.ItemID).
			Str("movement_id", cur.ID).
			Str("old_kind", string(cur.Kind)).
			Int64("old_quantity", cur.Quantity).
			Str("kind", string(kind)).
			Int64("quantity", in.Quantity).
			Int64("stock_before", before).
			Int64("stock_after", after).
			Msg("movimiento actualizado")
		return nil
	})
	e.finish(ctx, span, OpUpdate, start, err)
	if err != nil {
		return nil, err
	}
	e.afterCommit(ctx, OpUpdate, itemID, alert)
	return updated, nil
}

// DeleteMovement elimina un movimiento del historial. Eliminar una entrada se rechaza si el
// stock quedaría negativo; eliminar una salida siempre se permite.
func (e *LedgerEngine) DeleteMovement(ctx context.Context, movementID string) error {
	ctx, span := tracer.Start(ctx, "ledger.DeleteMovement", trace.WithAttributes(
		attribute.String("movement.id", movementID),
	))
	defer span.End()
	start := time.Now()

	itemID, err := e.lookupItemOf(ctx, movementID)
	if err != nil {
		e.finish(ctx, span, OpDelete, start, err)
		return err
	}
	span.SetAttributes(attribute.String("item.id", itemID))

	var alert *entity.StockAlert
	err = e.runLocked(ctx, OpDelete, itemID, func(movRepo repository.MovementRepository, itemRepo repository.ItemRepository) error {
		alert = nil

		cur, err := movRepo.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
		}
		item, err := itemRepo.GetByID(ctx, cur.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: insumo %s", domain.ErrNotFound, cur.ItemID)
		}
		history, err := movRepo.ListByItem(ctx, cur.ItemID)
		if err != nil {
			return err
		}
		current := inventory.StockCalculator(history)
		after := current - cur.Effect()
		if err := inventory.CheckRemoval(cur.ItemID, cur.Kind, current, after); err != nil {
			return err
		}
		if err := movRepo.Remove(ctx, cur.ID); err != nil {
			return err
		}
		// Quitar una salida solo sube el stock: no puede entrar en la franja crítica.
		if cur.Kind == entity.MovementKindIN && inventory.ShouldAlert(after, item.CriticalThreshold) {
			alert = newAlert(item, after, cur.ID, OpDelete, e.now())
		}
		e.log.Ctx(ctx).Info().
			Str("item_id", cur.ItemID).
			Str("movement_id", cur.ID).
			Str("kind", string(cur.Kind)).
			Int64("quantity", cur.Quantity).
			Int64("stock_before", current).
			Int64("stock_after", after).
			Msg("movimiento eliminado")
		return nil
	})
	e.finish(ctx, span, OpDelete, start, err)
	if err != nil {
		return err
	}
	e.afterCommit(ctx, OpDelete, itemID, alert)
	return nil
}

// CurrentStock devuelve el stock derivado del insumo (suma de efectos de su historial).
// Sin caché lee el historial directamente. Con caché, un fallo se recalcula bajo el lock del
// insumo para que ningún commit pueda quedar tapado por un valor leído antes que él.
func (e *LedgerEngine) CurrentStock(ctx context.Context, itemID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "ledger.CurrentStock", trace.WithAttributes(attribute.String("item.id", itemID)))
	defer span.End()

	item, err := e.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, fmt.Errorf("%w: insumo %s", domain.ErrNotFound, itemID)
	}
	if !e.cacheEnabled {
		history, err := e.movementRepo.ListByItem(ctx, itemID)
		if err != nil {
			return 0, err
		}
		return inventory.StockCalculator(history), nil
	}
	if qty, ok := e.cache.Get(ctx, itemID); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return qty, nil
	}

	var qty int64
	err = e.runLocked(ctx, OpRead, itemID, func(movRepo repository.MovementRepository, _ repository.ItemRepository) error {
		history, err := movRepo.ListByItem(ctx, itemID)
		if err != nil {
			return err
		}
		qty = inventory.StockCalculator(history)
		e.cache.Set(ctx, itemID, qty)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// runLocked ejecuta fn bajo el lock del insumo, reintentando solo ante ErrConcurrentUpdate.
// Agotados los intentos devuelve ErrContention. En las mutaciones la caché se invalida
// todavía dentro del lock, antes del commit.
func (e *LedgerEngine) runLocked(ctx context.Context, op, itemID string, fn func(repository.MovementRepository, repository.ItemRepository) error) error {
	locked := fn
	if op != OpRead {
		locked = func(movRepo repository.MovementRepository, itemRepo repository.ItemRepository) error {
			if err := fn(movRepo, itemRepo); err != nil {
				return err
			}
			e.cache.Invalidate(ctx, itemID)
			return nil
		}
	}
	var err error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err = e.txRunner.RunForItem(ctx, itemID, locked)
		if !errors.Is(err, domain.ErrConcurrentUpdate) {
			return err
		}
		e.metrics.IncRetry(op)
		e.log.Ctx(ctx).Warn().Err(err).
			Str("op", op).
			Str("item_id", itemID).
			Int("attempt", attempt).
			Msg("conflicto de concurrencia, reintentando")
		if attempt == e.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.retryBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrContention, err)
}

// lookupItemOf obtiene el insumo del movimiento fuera del lock; dentro del lock se relee.
func (e *LedgerEngine) lookupItemOf(ctx context.Context, movementID string) (string, error) {
	if movementID == "" {
		return "", fmt.Errorf("%w: id de movimiento vacío", domain.ErrInvalidInput)
	}
	mov, err := e.movementRepo.GetByID(ctx, movementID)
	if err != nil {
		return "", err
	}
	if mov == nil {
		return "", fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
	}
	return mov.ItemID, nil
}

func (e *LedgerEngine) checkActor(ctx context.Context, actorID string) error {
	if actorID == "" {
		return fmt.Errorf("%w: actor es obligatorio", domain.ErrInvalidInput)
	}
	user, err := e.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: usuario %s", domain.ErrNotFound, actorID)
	}
	if !user.IsActive() {
		return fmt.Errorf("%w: usuario inactivo", domain.ErrForbidden)
	}
	return nil
}

// afterCommit corre fuera del lock: invalida la caché y despacha la alerta.
func (e *LedgerEngine) afterCommit(ctx context.Context, op, itemID string, alert *entity.StockAlert) {
	e.cache.Invalidate(ctx, itemID)
	if alert == nil {
		return
	}
	e.metrics.IncAlert(op)
	e.log.Ctx(ctx).Warn().
		Str("item_id", alert.ItemID).
		Int64("stock", alert.CurrentQuantity).
		Int64("critical_threshold", alert.CriticalThreshold).
		Msg("stock en nivel crítico")
	e.notifier.Dispatch(ctx, *alert)
}

func (e *LedgerEngine) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	outcome := outcomeOf(err)
	e.metrics.ObserveMutation(op, outcome, time.Since(start))
	if err == nil {
		return
	}
	var inv *domain.InvariantError
	if errors.As(err, &inv) {
		e.metrics.IncRejection(op, inv.Rule)
		e.log.Ctx(ctx).Warn().
			Str("op", op).
			Str("rule", inv.Rule).
			Str("item_id", inv.ItemID).
			Int64("stock", inv.Current).
			Int64("stock_after", inv.After).
			Msg("movimiento rechazado")
		span.SetStatus(codes.Error, inv.Rule)
		return
	}
	if outcome == "error" {
		e.log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("fallo en operación del libro de movimientos")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "rejected"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrContention):
		return "contention"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

func validateKindQuantity(rawKind string, quantity int64) (entity.MovementKind, error) {
	kind, ok := entity.ParseMovementKind(rawKind)
	if !ok {
		return "", fmt.Errorf("%w: tipo de movimiento %q no reconocido", domain.ErrInvalidInput, rawKind)
	}
	if quantity <= 0 {
		return "", fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	return kind, nil
}

func newAlert(item *entity.Item, after int64, movementID, op string, now time.Time) *entity.StockAlert {
	return &entity.StockAlert{
		ID:                uuid.New().String(),
		ItemID:            item.ID,
		ItemName:          item.Name,
		ItemCode:          item.Code,
		CurrentQuantity:   after,
		CriticalThreshold: item.CriticalThreshold,
		MovementID:        movementID,
		Operation:         op,
		RaisedAt:          now,
	}
}
