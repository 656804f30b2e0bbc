// Package memory implementa los repositorios y el TxRunner sobre mapas en memoria.
// Se usa en tests y con STORE_DRIVER=memory; no es durable.
package memory

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/pkg/keylock"
)

// Store estado compartido por los repositorios en memoria.
type Store struct {
	mu        sync.RWMutex
	items     map[string]entity.Item
	movements map[string]entity.Movement
	users     map[string]entity.User

	locks     *keylock.KeyedMutex
	conflicts atomic.Int32
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		items:     make(map[string]entity.Item),
		movements: make(map[string]entity.Movement),
		users:     make(map[string]entity.User),
		locks:     keylock.New(),
	}
}

// Items repositorio de insumos fuera de transacción.
func (s *Store) Items() *ItemRepository { return &ItemRepository{store: s} }

// Movements repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *MovementRepository { return &MovementRepository{store: s} }

// Users repositorio de usuarios.
func (s *Store) Users() *UserRepository { return &UserRepository{store: s} }

// TxRunner runner con exclusión por insumo.
func (s *Store) TxRunner() *TxRunner { return &TxRunner{store: s} }

// InjectConflicts hace que las próximas n transacciones fallen con ErrConcurrentUpdate antes de ejecutar fn.
func (s *Store) InjectConflicts(n int) { s.conflicts.Store(int32(n)) }

func (s *Store) takeConflict() bool {
	for {
		n := s.conflicts.Load()
		if n <= 0 {
			return false
		}
		if s.conflicts.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// movementsOf devuelve copias ordenadas por fecha y luego por ID. Requiere s.mu tomado.
func (s *Store) movementsOf(itemID string) []*entity.Movement {
	out := make([]*entity.Movement, 0)
	for _, m := range s.movements {
		if m.ItemID == itemID {
			mv := m
			out = append(out, &mv)
		}
	}
	sortMovements(out)
	return out
}

func sortMovements(movs []*entity.Movement) {
	sort.Slice(movs, func(i, j int) bool {
		if !movs[i].OccurredAt.Equal(movs[j].OccurredAt) {
			return movs[i].OccurredAt.Before(movs[j].OccurredAt)
		}
		return movs[i].ID < movs[j].ID
	})
}
