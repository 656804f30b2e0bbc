package repository

import (
	"context"

	"github.com/jhoicas/Insumos-api/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para Item (DIP).
// Los métodos Get devuelven (nil, nil) si el registro no existe.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	GetByCode(ctx context.Context, code string) (*entity.Item, error)
	Update(ctx context.Context, item *entity.Item) error
	List(ctx context.Context, limit, offset int) ([]*entity.Item, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}
