package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepository)(nil)

// ItemRepository implementación en memoria de repository.ItemRepository.
type ItemRepository struct {
	store *Store
}

func (r *ItemRepository) Create(_ context.Context, item *entity.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.items[item.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, it := range r.store.items {
		if it.Code == item.Code {
			return domain.ErrDuplicate
		}
	}
	r.store.items[item.ID] = *item
	return nil
}

func (r *ItemRepository) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	it, ok := r.store.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *ItemRepository) GetByCode(_ context.Context, code string) (*entity.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, it := range r.store.items {
		if it.Code == code {
			found := it
			return &found, nil
		}
	}
	return nil, nil
}

func (r *ItemRepository) Update(_ context.Context, item *entity.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.items[item.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, it := range r.store.items {
		if it.ID != item.ID && it.Code == item.Code {
			return domain.ErrDuplicate
		}
	}
	r.store.items[item.ID] = *item
	return nil
}

// List ordena por nombre, como el listado de Postgres.
func (r *ItemRepository) List(_ context.Context, limit, offset int) ([]*entity.Item, error) {
	r.store.mu.RLock()
	all := make([]*entity.Item, 0, len(r.store.items))
	for _, it := range r.store.items {
		cp := it
		all = append(all, &cp)
	}
	r.store.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return page(all, limit, offset), nil
}

func (r *ItemRepository) Count(_ context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.items), nil
}

func (r *ItemRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.items, id)
	return nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
