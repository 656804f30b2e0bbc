package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con exclusión mutua sobre itemID,
// pasando repositorios atados a esa transacción. Operaciones sobre insumos distintos no se bloquean.
// Debe devolver domain.ErrConcurrentUpdate (envuelto) cuando la transacción falla por concurrencia.
type TxRunner interface {
	RunForItem(ctx context.Context, itemID string, fn func(
		movRepo repository.MovementRepository,
		itemRepo repository.ItemRepository,
	) error) error
}

// Notifier recibe las alertas de stock crítico. Dispatch no bloquea ni devuelve error:
// la entrega es independiente del resultado de la mutación. ctx solo se usa para
// enlazar la traza; su cancelación no afecta la entrega.
type Notifier interface {
	Dispatch(ctx context.Context, alert entity.StockAlert)
}

// StockCache caché de lectura del stock derivado. Nunca se consulta para validar invariantes.
type StockCache interface {
	Get(ctx context.Context, itemID string) (int64, bool)
	Set(ctx context.Context, itemID string, quantity int64)
	Invalidate(ctx context.Context, itemID string)
}

// Metrics observador de las operaciones del motor.
type Metrics interface {
	ObserveMutation(op, outcome string, elapsed time.Duration)
	IncRejection(op, rule string)
	IncRetry(op string)
	IncAlert(op string)
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(context.Context, entity.StockAlert) {}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (int64, bool) { return 0, false }
func (noopCache) Set(context.Context, string, int64)        {}
func (noopCache) Invalidate(context.Context, string)        {}

type noopMetrics struct{}

func (noopMetrics) ObserveMutation(string, string, time.Duration) {}
func (noopMetrics) IncRejection(string, string)                   {}
func (noopMetrics) IncRetry(string)                               {}
func (noopMetrics) IncAlert(string)                               {}
