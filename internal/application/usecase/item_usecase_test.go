package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/application/usecase"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/memory"
)

const actorID = "actor-1"

type itemFixture struct {
	store  *memory.Store
	engine *inventory.LedgerEngine
	uc     *usecase.ItemUseCase
}

func newItemFixture(t *testing.T) *itemFixture {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Users().Create(context.Background(), &entity.User{
		ID: actorID, Email: "ana@insumos.test", Role: entity.RoleAdmin, Status: entity.UserStatusActive,
	}))
	engine := inventory.NewLedgerEngine(inventory.LedgerDeps{
		TxRunner:     store.TxRunner(),
		ItemRepo:     store.Items(),
		MovementRepo: store.Movements(),
		UserRepo:     store.Users(),
	})
	return &itemFixture{
		store:  store,
		engine: engine,
		uc:     usecase.NewItemUseCase(store.Items(), store.TxRunner(), engine),
	}
}

func (f *itemFixture) move(t *testing.T, itemID, kind string, qty int64) {
	t.Helper()
	_, err := f.engine.CreateMovement(context.Background(), inventory.CreateMovementInput{
		ItemID: itemID, ActorID: actorID, Kind: kind, Quantity: qty,
	})
	require.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

func TestItemCreate_NormalizaCodigo(t *testing.T) {
	f := newItemFixture(t)
	resp, err := f.uc.Create(context.Background(), dto.CreateItemRequest{
		Code: "  guá 001 ", Name: "  Guantes   de nitrilo ", CriticalThreshold: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "GUA-001", resp.Code)
	assert.Equal(t, "Guantes de nitrilo", resp.Name)
	assert.Zero(t, resp.Stock, "un insumo nuevo no tiene stock")
	assert.NotEmpty(t, resp.ID)
}

func TestItemCreate_CodigoDuplicadoTrasNormalizar(t *testing.T) {
	f := newItemFixture(t)
	_, err := f.uc.Create(context.Background(), dto.CreateItemRequest{Code: "GUA-001", Name: "Guantes"})
	require.NoError(t, err)

	_, err = f.uc.Create(context.Background(), dto.CreateItemRequest{Code: "gua 001", Name: "Otro"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestItemCreate_Validaciones(t *testing.T) {
	f := newItemFixture(t)
	_, err := f.uc.Create(context.Background(), dto.CreateItemRequest{Code: " ", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Create(context.Background(), dto.CreateItemRequest{Code: "A", Name: "X", CriticalThreshold: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ─────────────────────────────────────────────────────────────────────────────
// Get / Update / List
// ─────────────────────────────────────────────────────────────────────────────

func TestItemGet_IncluyeStockDerivado(t *testing.T) {
	f := newItemFixture(t)
	ctx := context.Background()
	created, err := f.uc.Create(ctx, dto.CreateItemRequest{Code: "JER-005", Name: "Jeringas", CriticalThreshold: 5})
	require.NoError(t, err)
	f.move(t, created.ID, "IN", 10)
	f.move(t, created.ID, "OUT", 7)

	got, err := f.uc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Stock)
	assert.True(t, got.Critical, "3 está en la franja crítica con umbral 5")

	st, err := f.uc.Stock(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Stock)
	assert.Equal(t, int64(5), st.CriticalThreshold)

	_, err = f.uc.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemUpdate_CamposParciales(t *testing.T) {
	f := newItemFixture(t)
	ctx := context.Background()
	a, err := f.uc.Create(ctx, dto.CreateItemRequest{Code: "A-1", Name: "Alcohol"})
	require.NoError(t, err)
	_, err = f.uc.Create(ctx, dto.CreateItemRequest{Code: "B-1", Name: "Bata"})
	require.NoError(t, err)

	threshold := int64(20)
	name := "Alcohol 70%"
	got, err := f.uc.Update(ctx, a.ID, dto.UpdateItemRequest{Name: &name, CriticalThreshold: &threshold})
	require.NoError(t, err)
	assert.Equal(t, "Alcohol 70%", got.Name)
	assert.Equal(t, int64(20), got.CriticalThreshold)
	assert.Equal(t, "A-1", got.Code, "el código no cambia si no se envía")

	dup := "b 1"
	_, err = f.uc.Update(ctx, a.ID, dto.UpdateItemRequest{Code: &dup})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	neg := int64(-3)
	_, err = f.uc.Update(ctx, a.ID, dto.UpdateItemRequest{CriticalThreshold: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestItemList_Paginado(t *testing.T) {
	f := newItemFixture(t)
	ctx := context.Background()
	for _, code := range []string{"A", "B", "C"} {
		_, err := f.uc.Create(ctx, dto.CreateItemRequest{Code: code, Name: "Insumo " + code})
		require.NoError(t, err)
	}

	list, err := f.uc.List(ctx, dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, 3, list.Page.Total)
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────────────────

func TestItemDelete_ConMovimientosEsConflicto(t *testing.T) {
	f := newItemFixture(t)
	ctx := context.Background()
	it, err := f.uc.Create(ctx, dto.CreateItemRequest{Code: "GAS-01", Name: "Gasas"})
	require.NoError(t, err)
	f.move(t, it.ID, "IN", 4)

	err = f.uc.Delete(ctx, it.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.uc.GetByID(ctx, it.ID)
	assert.NoError(t, err, "el insumo sigue existiendo")
}

func TestItemDelete_SinMovimientos(t *testing.T) {
	f := newItemFixture(t)
	ctx := context.Background()
	it, err := f.uc.Create(ctx, dto.CreateItemRequest{Code: "GAS-02", Name: "Gasas"})
	require.NoError(t, err)

	require.NoError(t, f.uc.Delete(ctx, it.ID))
	_, err = f.uc.GetByID(ctx, it.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.uc.Delete(ctx, it.ID), domain.ErrNotFound)
}
