package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner serializa las operaciones por insumo con un mutex por clave.
// Las escrituras de fn quedan en un área temporal y se aplican solo si fn no devuelve error.
type TxRunner struct {
	store *Store
}

// RunForItem toma el lock de itemID, ejecuta fn y aplica los cambios (todo o nada).
func (r *TxRunner) RunForItem(ctx context.Context, itemID string, fn func(
	movRepo repository.MovementRepository,
	itemRepo repository.ItemRepository,
) error) error {
	unlock, err := r.store.locks.Lock(ctx, itemID)
	if err != nil {
		return fmt.Errorf("lock insumo %s: %w", itemID, err)
	}
	defer unlock()

	if r.store.takeConflict() {
		return fmt.Errorf("insumo %s: %w", itemID, domain.ErrConcurrentUpdate)
	}

	tx := &memTx{
		store:    r.store,
		movPuts:  make(map[string]entity.Movement),
		movDels:  make(map[string]bool),
		itemPuts: make(map[string]entity.Item),
		itemDels: make(map[string]bool),
	}
	if err := fn(&txMovementRepo{tx: tx}, &txItemRepo{tx: tx}); err != nil {
		return err
	}
	return tx.commit()
}

type memTx struct {
	store    *Store
	movPuts  map[string]entity.Movement
	movDels  map[string]bool
	itemPuts map[string]entity.Item
	itemDels map[string]bool
}

func (t *memTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Primero se valida todo contra el estado actual; un error no deja escrituras a medias.
	if err := t.validate(); err != nil {
		return err
	}
	for id, it := range t.itemPuts {
		s.items[id] = it
	}
	for id, m := range t.movPuts {
		s.movements[id] = m
	}
	for id := range t.movDels {
		delete(s.movements, id)
	}
	for id := range t.itemDels {
		delete(s.items, id)
	}
	return nil
}

// validate corre con s.mu tomado. Otra transacción sobre otro insumo pudo confirmar
// entre el staging y el commit: el código único y la existencia del insumo se revisan aquí.
func (t *memTx) validate() error {
	s := t.store
	for id, it := range t.itemPuts {
		for otherID, other := range s.items {
			if otherID == id || t.itemDels[otherID] {
				continue
			}
			if staged, ok := t.itemPuts[otherID]; ok {
				other = staged
			}
			if other.Code == it.Code {
				return fmt.Errorf("%w: ya existe un insumo con código %s", domain.ErrDuplicate, it.Code)
			}
		}
	}
	for _, m := range t.movPuts {
		if t.itemDels[m.ItemID] {
			return fmt.Errorf("%w: insumo %s", domain.ErrNotFound, m.ItemID)
		}
		if _, staged := t.itemPuts[m.ItemID]; staged {
			continue
		}
		if _, ok := s.items[m.ItemID]; !ok {
			return fmt.Errorf("%w: insumo %s", domain.ErrNotFound, m.ItemID)
		}
	}
	return nil
}

// snapshot devuelve los movimientos visibles dentro de la transacción.
func (t *memTx) snapshot() map[string]entity.Movement {
	t.store.mu.RLock()
	out := make(map[string]entity.Movement, len(t.store.movements)+len(t.movPuts))
	for id, m := range t.store.movements {
		out[id] = m
	}
	t.store.mu.RUnlock()
	for id, m := range t.movPuts {
		out[id] = m
	}
	for id := range t.movDels {
		delete(out, id)
	}
	return out
}

func (t *memTx) item(id string) (entity.Item, bool) {
	if t.itemDels[id] {
		return entity.Item{}, false
	}
	if it, ok := t.itemPuts[id]; ok {
		return it, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	it, ok := t.store.items[id]
	return it, ok
}

type txMovementRepo struct {
	tx *memTx
}

func (r *txMovementRepo) Append(_ context.Context, m *entity.Movement) error {
	if _, ok := r.tx.item(m.ItemID); !ok {
		return fmt.Errorf("%w: insumo %s", domain.ErrNotFound, m.ItemID)
	}
	if _, ok := r.tx.snapshot()[m.ID]; ok {
		return domain.ErrDuplicate
	}
	delete(r.tx.movDels, m.ID)
	r.tx.movPuts[m.ID] = *m
	return nil
}

func (r *txMovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	m, ok := r.tx.snapshot()[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *txMovementRepo) ListByItem(_ context.Context, itemID string) ([]*entity.Movement, error) {
	out := make([]*entity.Movement, 0)
	for _, m := range r.tx.snapshot() {
		if m.ItemID == itemID {
			mv := m
			out = append(out, &mv)
		}
	}
	sortMovements(out)
	return out, nil
}

func (r *txMovementRepo) Replace(_ context.Context, m *entity.Movement) error {
	if _, ok := r.tx.snapshot()[m.ID]; !ok {
		return domain.ErrNotFound
	}
	r.tx.movPuts[m.ID] = *m
	return nil
}

func (r *txMovementRepo) Remove(_ context.Context, id string) error {
	if _, ok := r.tx.snapshot()[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tx.movPuts, id)
	r.tx.movDels[id] = true
	return nil
}

func (r *txMovementRepo) List(ctx context.Context, f repository.MovementFilter, limit, offset int) ([]*entity.Movement, error) {
	out := make([]*entity.Movement, 0)
	for _, m := range r.tx.snapshot() {
		if matches(m, f) {
			mv := m
			out = append(out, &mv)
		}
	}
	sortMovements(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return page(out, limit, offset), nil
}

func (r *txMovementRepo) CountByItem(ctx context.Context, itemID string) (int, error) {
	movs, _ := r.ListByItem(ctx, itemID)
	return len(movs), nil
}

type txItemRepo struct {
	tx *memTx
}

func (r *txItemRepo) Create(ctx context.Context, item *entity.Item) error {
	if _, ok := r.tx.item(item.ID); ok {
		return domain.ErrDuplicate
	}
	if existing, _ := r.GetByCode(ctx, item.Code); existing != nil {
		return domain.ErrDuplicate
	}
	delete(r.tx.itemDels, item.ID)
	r.tx.itemPuts[item.ID] = *item
	return nil
}

func (r *txItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	it, ok := r.tx.item(id)
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *txItemRepo) GetByCode(ctx context.Context, code string) (*entity.Item, error) {
	for _, it := range r.tx.itemPuts {
		if it.Code == code {
			found := it
			return &found, nil
		}
	}
	found, err := r.tx.store.Items().GetByCode(ctx, code)
	if err != nil || found == nil || r.tx.itemDels[found.ID] {
		return nil, err
	}
	if _, staged := r.tx.itemPuts[found.ID]; staged {
		return nil, nil
	}
	return found, nil
}

func (r *txItemRepo) Update(ctx context.Context, item *entity.Item) error {
	if _, ok := r.tx.item(item.ID); !ok {
		return domain.ErrNotFound
	}
	if existing, _ := r.GetByCode(ctx, item.Code); existing != nil && existing.ID != item.ID {
		return domain.ErrDuplicate
	}
	r.tx.itemPuts[item.ID] = *item
	return nil
}

func (r *txItemRepo) List(ctx context.Context, limit, offset int) ([]*entity.Item, error) {
	return r.tx.store.Items().List(ctx, limit, offset)
}

func (r *txItemRepo) Count(ctx context.Context) (int, error) {
	return r.tx.store.Items().Count(ctx)
}

func (r *txItemRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tx.item(id); !ok {
		return domain.ErrNotFound
	}
	delete(r.tx.itemPuts, id)
	r.tx.itemDels[id] = true
	return nil
}
