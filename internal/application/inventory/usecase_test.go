package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
)

// ─────────────────────────────────────────────────────────────────────────────
// MovementUseCase
// ─────────────────────────────────────────────────────────────────────────────

func TestMovementUseCase_CreateUsaUsuarioAutenticado(t *testing.T) {
	f := newFixture(t, 0)
	uc := inventory.NewMovementUseCase(f.engine, f.store.Movements(), f.store.Items())

	resp, err := uc.Create(context.Background(), actorID, dto.CreateMovementRequest{
		ItemID: itemID, Kind: "IN", Quantity: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, actorID, resp.ActorID)
	assert.Equal(t, "GUA-001", resp.ItemCode, "la respuesta se enriquece con el insumo")
	assert.Equal(t, "Guantes de nitrilo", resp.ItemName)
}

func TestMovementUseCase_ListFiltros(t *testing.T) {
	f := newFixture(t, 0)
	uc := inventory.NewMovementUseCase(f.engine, f.store.Movements(), f.store.Items())
	f.create(t, "IN", 10)
	f.create(t, "OUT", 2)
	f.create(t, "OUT", 3)

	list, err := uc.List(context.Background(), dto.MovementListFilter{ItemID: itemID, Kind: "out"})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, 20, list.Page.Limit, "límite por defecto")

	_, err = uc.List(context.Background(), dto.MovementListFilter{Kind: "SIDEWAYS"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	from := time.Now().Add(time.Hour)
	to := time.Now()
	_, err = uc.List(context.Background(), dto.MovementListFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMovementUseCase_GetInexistente(t *testing.T) {
	f := newFixture(t, 0)
	uc := inventory.NewMovementUseCase(f.engine, f.store.Movements(), f.store.Items())
	_, err := uc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// Kardex
// ─────────────────────────────────────────────────────────────────────────────

type fakeRenderer struct {
	got *dto.ItemStatement
}

func (r *fakeRenderer) RenderStatement(st *dto.ItemStatement) ([]byte, error) {
	r.got = st
	return []byte("%PDF-fake"), nil
}

func TestStatement_SaldoAcumulado(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	for i, step := range []struct {
		kind string
		qty  int64
	}{{"IN", 10}, {"OUT", 4}, {"IN", 6}, {"OUT", 2}} {
		at := base.Add(time.Duration(i) * time.Hour)
		_, err := f.engine.CreateMovement(ctx, inventory.CreateMovementInput{
			ItemID: itemID, ActorID: actorID, Kind: step.kind, Quantity: step.qty, OccurredAt: &at,
		})
		require.NoError(t, err)
	}

	renderer := &fakeRenderer{}
	uc := inventory.NewStatementUseCase(f.store.Items(), f.store.Movements(), renderer)
	st, err := uc.Statement(ctx, itemID)
	require.NoError(t, err)

	require.Len(t, st.Lines, 4)
	balances := []int64{st.Lines[0].Balance, st.Lines[1].Balance, st.Lines[2].Balance, st.Lines[3].Balance}
	assert.Equal(t, []int64{10, 6, 12, 10}, balances)
	assert.Equal(t, int64(16), st.TotalIn)
	assert.Equal(t, int64(6), st.TotalOut)
	assert.Equal(t, int64(10), st.FinalBalance)

	pdf, err := uc.StatementPDF(ctx, itemID)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	require.NotNil(t, renderer.got)
	assert.Equal(t, "GUA-001", renderer.got.Code)
}

func TestStatement_InsumoInexistente(t *testing.T) {
	f := newFixture(t, 0)
	uc := inventory.NewStatementUseCase(f.store.Items(), f.store.Movements(), nil)
	_, err := uc.Statement(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// Lista crítica
// ─────────────────────────────────────────────────────────────────────────────

func TestCriticalList_SoloFranjaCritica(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.NoError(t, f.store.Items().Create(ctx, &entity.Item{ID: "item-2", Code: "JER-005", Name: "Jeringa 5ml", CriticalThreshold: 4}))
	require.NoError(t, f.store.Items().Create(ctx, &entity.Item{ID: "item-3", Code: "GAS-010", Name: "Gasa", CriticalThreshold: 3}))

	f.create(t, "IN", 3) // item-1: 3/10
	_, err := f.engine.CreateMovement(ctx, inventory.CreateMovementInput{ItemID: "item-2", ActorID: actorID, Kind: "IN", Quantity: 2})
	require.NoError(t, err) // item-2: 2/4
	_, err = f.engine.CreateMovement(ctx, inventory.CreateMovementInput{ItemID: "item-3", ActorID: actorID, Kind: "IN", Quantity: 9})
	require.NoError(t, err) // item-3: fuera de la franja

	uc := inventory.NewCriticalListUseCase(f.store.Items(), f.engine)
	list, err := uc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, itemID, list[0].ItemID, "3/10 es más crítico que 2/4")
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, int64(7), list[0].Deficit)
	assert.Equal(t, int64(12), list[0].SuggestedOrderQty, "ceil(10*1.5) - 3")
	assert.Equal(t, "item-2", list[1].ItemID)
	assert.Equal(t, int64(4), list[1].SuggestedOrderQty, "ceil(4*1.5) - 2")
}
