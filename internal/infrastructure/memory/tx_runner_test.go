package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/memory"
)

func seedItem(t *testing.T, s *memory.Store, id, code string) {
	t.Helper()
	require.NoError(t, s.Items().Create(context.Background(), &entity.Item{ID: id, Code: code, Name: "Guantes"}))
}

func mov(id, itemID string, kind entity.MovementKind, qty int64, at time.Time) *entity.Movement {
	return &entity.Movement{ID: id, ItemID: itemID, ActorID: "u1", Kind: kind, Quantity: qty, OccurredAt: at}
}

// ─────────────────────────────────────────────────────────────────────────────
// Atomicidad
// ─────────────────────────────────────────────────────────────────────────────

func TestRunForItem_CommitAplicaCambios(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	ctx := context.Background()
	now := time.Now()

	err := s.TxRunner().RunForItem(ctx, "i1", func(movRepo repository.MovementRepository, _ repository.ItemRepository) error {
		require.NoError(t, movRepo.Append(ctx, mov("m1", "i1", entity.MovementKindIN, 10, now)))
		visible, err := movRepo.ListByItem(ctx, "i1")
		require.NoError(t, err)
		assert.Len(t, visible, 1, "el movimiento debe ser visible dentro de la transacción")

		outside, err := s.Movements().ListByItem(ctx, "i1")
		require.NoError(t, err)
		assert.Empty(t, outside, "no debe ser visible fuera antes del commit")
		return nil
	})
	require.NoError(t, err)

	got, err := s.Movements().GetByID(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(10), got.Quantity)
}

func TestRunForItem_ErrorDescartaCambios(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.TxRunner().RunForItem(ctx, "i1", func(movRepo repository.MovementRepository, _ repository.ItemRepository) error {
		require.NoError(t, movRepo.Append(ctx, mov("m1", "i1", entity.MovementKindIN, 10, time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.Movements().CountByItem(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "un error debe descartar todas las escrituras")
}

func TestRunForItem_RemoveYReplaceDentroDeTx(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.Movements().Append(ctx, mov("m1", "i1", entity.MovementKindIN, 10, now)))
	require.NoError(t, s.Movements().Append(ctx, mov("m2", "i1", entity.MovementKindOUT, 3, now.Add(time.Second))))

	err := s.TxRunner().RunForItem(ctx, "i1", func(movRepo repository.MovementRepository, _ repository.ItemRepository) error {
		require.NoError(t, movRepo.Remove(ctx, "m2"))
		m1, err := movRepo.GetByID(ctx, "m1")
		require.NoError(t, err)
		m1.Quantity = 4
		require.NoError(t, movRepo.Replace(ctx, m1))

		gone, err := movRepo.GetByID(ctx, "m2")
		require.NoError(t, err)
		assert.Nil(t, gone)
		return nil
	})
	require.NoError(t, err)

	history, err := s.Movements().ListByItem(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(4), history[0].Quantity)
}

func TestRunForItem_AppendSinInsumoEsNotFound(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	err := s.TxRunner().RunForItem(ctx, "nope", func(movRepo repository.MovementRepository, _ repository.ItemRepository) error {
		return movRepo.Append(ctx, mov("m1", "nope", entity.MovementKindIN, 1, time.Now()))
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunForItem_ConflictoInyectado(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	s.InjectConflicts(1)
	calls := 0
	fn := func(repository.MovementRepository, repository.ItemRepository) error {
		calls++
		return nil
	}

	err := s.TxRunner().RunForItem(context.Background(), "i1", fn)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	assert.NoError(t, s.TxRunner().RunForItem(context.Background(), "i1", fn))
	assert.Equal(t, 1, calls, "fn no debe ejecutarse en el intento en conflicto")
}

func TestRunForItem_CommitFallidoNoDejaEscriturasParciales(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	ctx := context.Background()

	err := s.TxRunner().RunForItem(ctx, "i2", func(movRepo repository.MovementRepository, itemRepo repository.ItemRepository) error {
		require.NoError(t, itemRepo.Create(ctx, &entity.Item{ID: "i2", Code: "MAS-01", Name: "Mascarillas"}))
		require.NoError(t, movRepo.Append(ctx, mov("m1", "i1", entity.MovementKindIN, 5, time.Now())))
		// Otra operación elimina el insumo antes del commit.
		return s.Items().Delete(ctx, "i1")
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created, err := s.Items().GetByID(ctx, "i2")
	require.NoError(t, err)
	assert.Nil(t, created, "el insumo en staging no se aplica si el commit falla")
	got, err := s.Movements().GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunForItem_AltasConcurrentesMismoCodigo(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	var staged, done sync.WaitGroup
	staged.Add(2)
	errs := make([]error, 2)
	for i, id := range []string{"a", "b"} {
		done.Add(1)
		go func() {
			defer done.Done()
			errs[i] = s.TxRunner().RunForItem(ctx, id, func(_ repository.MovementRepository, itemRepo repository.ItemRepository) error {
				err := itemRepo.Create(ctx, &entity.Item{ID: id, Code: "GUA-01", Name: "Guantes"})
				staged.Done()
				// Ambas pasan el chequeo de staging antes de que ninguna confirme.
				staged.Wait()
				return err
			})
		}()
	}
	done.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicate):
			dup++
		}
	}
	assert.Equal(t, 1, ok, "solo una alta con el mismo código confirma")
	assert.Equal(t, 1, dup)

	items, err := s.Items().List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRunForItem_RenombrarLiberaElCodigo(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	ctx := context.Background()

	err := s.TxRunner().RunForItem(ctx, "i1", func(_ repository.MovementRepository, itemRepo repository.ItemRepository) error {
		it, err := itemRepo.GetByID(ctx, "i1")
		require.NoError(t, err)
		it.Code = "GUA-02"
		if err := itemRepo.Update(ctx, it); err != nil {
			return err
		}
		return itemRepo.Create(ctx, &entity.Item{ID: "i2", Code: "GUA-01", Name: "Guantes talla M"})
	})
	require.NoError(t, err)

	got, err := s.Items().GetByCode(ctx, "GUA-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "i2", got.ID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Orden y filtros
// ─────────────────────────────────────────────────────────────────────────────

func TestListByItem_OrdenPorFechaLuegoID(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Movements().Append(ctx, mov("b", "i1", entity.MovementKindIN, 1, t0)))
	require.NoError(t, s.Movements().Append(ctx, mov("a", "i1", entity.MovementKindIN, 1, t0)))
	require.NoError(t, s.Movements().Append(ctx, mov("c", "i1", entity.MovementKindIN, 1, t0.Add(-time.Hour))))

	history, err := s.Movements().ListByItem(ctx, "i1")
	require.NoError(t, err)
	ids := []string{history[0].ID, history[1].ID, history[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestList_FiltraPorTipoYRango(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Movements().Append(ctx, mov("m1", "i1", entity.MovementKindIN, 10, t0)))
	require.NoError(t, s.Movements().Append(ctx, mov("m2", "i1", entity.MovementKindOUT, 2, t0.Add(24*time.Hour))))
	require.NoError(t, s.Movements().Append(ctx, mov("m3", "i1", entity.MovementKindOUT, 1, t0.Add(48*time.Hour))))

	from := t0.Add(time.Hour)
	got, err := s.Movements().List(ctx, repository.MovementFilter{Kind: entity.MovementKindOUT, From: &from}, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m3", got[0].ID, "el listado va del más reciente al más antiguo")
}

func TestItems_CodigoDuplicado(t *testing.T) {
	s := memory.NewStore()
	seedItem(t, s, "i1", "GUA-01")
	err := s.Items().Create(context.Background(), &entity.Item{ID: "i2", Code: "GUA-01"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}
