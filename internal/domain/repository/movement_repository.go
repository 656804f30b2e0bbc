package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Insumos-api/internal/domain/entity"
)

// MovementFilter filtros opcionales para el listado de movimientos.
type MovementFilter struct {
	ItemID string
	Kind   entity.MovementKind
	From   *time.Time
	To     *time.Time
}

// MovementRepository es el registro ordenado de movimientos por insumo.
// ListByItem devuelve el historial completo ordenado por fecha y luego por ID.
type MovementRepository interface {
	Append(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.Movement, error)
	Replace(ctx context.Context, movement *entity.Movement) error
	Remove(ctx context.Context, id string) error
	List(ctx context.Context, filter MovementFilter, limit, offset int) ([]*entity.Movement, error)
	CountByItem(ctx context.Context, itemID string) (int, error)
}
