package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepository)(nil)

// MovementRepository lecturas y escrituras directas (sin lock de insumo).
// Las mutaciones del libro deben pasar por TxRunner.
type MovementRepository struct {
	store *Store
}

func (r *MovementRepository) Append(_ context.Context, m *entity.Movement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.items[m.ItemID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.store.movements[m.ID]; ok {
		return domain.ErrDuplicate
	}
	r.store.movements[m.ID] = *m
	return nil
}

func (r *MovementRepository) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	m, ok := r.store.movements[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *MovementRepository) ListByItem(_ context.Context, itemID string) ([]*entity.Movement, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.movementsOf(itemID), nil
}

func (r *MovementRepository) Replace(_ context.Context, m *entity.Movement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.movements[m.ID]; !ok {
		return domain.ErrNotFound
	}
	r.store.movements[m.ID] = *m
	return nil
}

func (r *MovementRepository) Remove(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.movements[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.movements, id)
	return nil
}

// List más recientes primero.
func (r *MovementRepository) List(_ context.Context, f repository.MovementFilter, limit, offset int) ([]*entity.Movement, error) {
	r.store.mu.RLock()
	out := make([]*entity.Movement, 0)
	for _, m := range r.store.movements {
		if !matches(m, f) {
			continue
		}
		cp := m
		out = append(out, &cp)
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, limit, offset), nil
}

func (r *MovementRepository) CountByItem(_ context.Context, itemID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, m := range r.store.movements {
		if m.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

func matches(m entity.Movement, f repository.MovementFilter) bool {
	if f.ItemID != "" && m.ItemID != f.ItemID {
		return false
	}
	if f.Kind != "" && m.Kind != f.Kind {
		return false
	}
	if f.From != nil && m.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.OccurredAt.After(*f.To) {
		return false
	}
	return true
}
