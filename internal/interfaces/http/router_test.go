package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Insumos-api/internal/application/auth"
	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/application/usecase"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/memory"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/Insumos-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Insumos-api/pkg/jwt"
)

const (
	adminID    = "00000000-0000-0000-0000-0000000000a1"
	operatorID = "00000000-0000-0000-0000-0000000000b2"
)

type apiFixture struct {
	app      *fiber.App
	admin    string
	operator string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Users().Create(ctx, &entity.User{
		ID: adminID, Email: "jefe@insumos.test", Name: "Jefe", Role: entity.RoleAdmin, Status: entity.UserStatusActive,
	}))
	require.NoError(t, store.Users().Create(ctx, &entity.User{
		ID: operatorID, Email: "op@insumos.test", Name: "Op", Role: entity.RoleOperator, Status: entity.UserStatusActive,
	}))

	engine := inventory.NewLedgerEngine(inventory.LedgerDeps{
		TxRunner:     store.TxRunner(),
		ItemRepo:     store.Items(),
		MovementRepo: store.Movements(),
		UserRepo:     store.Users(),
	})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      auth.NewAuthUseCase(store.Users(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: 5, Issuer: testIssuer}),
		UserUC:      usecase.NewUserUseCase(store.Users()),
		ItemUC:      usecase.NewItemUseCase(store.Items(), store.TxRunner(), engine),
		MovementUC:  inventory.NewMovementUseCase(engine, store.Movements(), store.Items()),
		StatementUC: inventory.NewStatementUseCase(store.Items(), store.Movements(), pdf.NewStatementGenerator()),
		CriticalUC:  inventory.NewCriticalListUseCase(store.Items(), engine),
		JWTSecret:   testJWTSecret,
	})

	return &apiFixture{
		app:      app,
		admin:    bearer(t, adminID, entity.RoleAdmin),
		operator: bearer(t, operatorID, entity.RoleOperator),
	}
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, userID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *apiFixture) createItem(t *testing.T, code string, threshold int64) dto.ItemResponse {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/items", f.admin, dto.CreateItemRequest{Code: code, Name: "Insumo " + code, CriticalThreshold: threshold})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[dto.ItemResponse](t, resp)
}

func (f *apiFixture) move(t *testing.T, itemID, kind string, qty int64) *http.Response {
	t.Helper()
	return f.do(t, http.MethodPost, "/api/movements", f.admin, dto.CreateMovementRequest{ItemID: itemID, Kind: kind, Quantity: qty})
}

// ─────────────────────────────────────────────────────────────────────────────
// Autorización
// ─────────────────────────────────────────────────────────────────────────────

func TestAPI_OperatorNoPuedeMutar(t *testing.T) {
	f := newAPI(t)
	resp := f.do(t, http.MethodPost, "/api/items", f.operator, dto.CreateItemRequest{Code: "X", Name: "X"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	item := f.createItem(t, "GUA-001", 5)
	resp = f.do(t, http.MethodGet, "/api/items/"+item.ID, f.operator, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "las lecturas están abiertas a cualquier usuario autenticado")
}

func TestAPI_SinToken(t *testing.T) {
	f := newAPI(t)
	resp := f.do(t, http.MethodGet, "/api/items", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ─────────────────────────────────────────────────────────────────────────────
// Movimientos y stock
// ─────────────────────────────────────────────────────────────────────────────

func TestAPI_SalidaHastaCeroDevuelve422(t *testing.T) {
	f := newAPI(t)
	item := f.createItem(t, "GUA-001", 5)

	resp := f.move(t, item.ID, "IN", 10)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.MovementResponse](t, resp)
	assert.Equal(t, adminID, created.ActorID, "el actor es el usuario autenticado")

	resp = f.move(t, item.ID, "OUT", 10)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errBody := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INVARIANT_VIOLATION", errBody.Code)
	assert.Equal(t, "ZERO_BY_OUT", errBody.Rule)

	resp = f.move(t, item.ID, "OUT", 9)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/items/"+item.ID+"/stock", f.operator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stock := decode[dto.StockResponse](t, resp)
	assert.Equal(t, int64(1), stock.Stock)
}

func TestAPI_MovimientoInvalido(t *testing.T) {
	f := newAPI(t)
	item := f.createItem(t, "GUA-001", 5)

	resp := f.move(t, item.ID, "SIDEWAYS", 3)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2 := f.move(t, "00000000-0000-0000-0000-00000000dead", "IN", 3)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestAPI_EditarYEliminarMovimiento(t *testing.T) {
	f := newAPI(t)
	item := f.createItem(t, "GUA-001", 0)

	in := decode[dto.MovementResponse](t, f.move(t, item.ID, "IN", 10))
	out := decode[dto.MovementResponse](t, f.move(t, item.ID, "OUT", 3))

	resp := f.do(t, http.MethodDelete, "/api/movements/"+in.ID, f.admin, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "eliminar la entrada dejaría -3")
	resp.Body.Close()

	resp = f.do(t, http.MethodPut, "/api/movements/"+out.ID, f.admin, dto.UpdateMovementRequest{Kind: "OUT", Quantity: 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[dto.MovementResponse](t, resp)
	assert.Equal(t, int64(5), updated.Quantity)

	resp = f.do(t, http.MethodDelete, "/api/movements/"+out.ID, f.admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/movements?item_id="+item.ID, f.operator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.MovementListResponse](t, resp)
	assert.Len(t, list.Items, 1)
}

func TestAPI_ListFechaInvalida(t *testing.T) {
	f := newAPI(t)
	resp := f.do(t, http.MethodGet, "/api/movements?from=ayer", f.operator, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ─────────────────────────────────────────────────────────────────────────────
// Insumos
// ─────────────────────────────────────────────────────────────────────────────

func TestAPI_CodigoDuplicado(t *testing.T) {
	f := newAPI(t)
	f.createItem(t, "GUA-001", 5)
	resp := f.do(t, http.MethodPost, "/api/items", f.admin, dto.CreateItemRequest{Code: "gua 001", Name: "Otro"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_EliminarInsumoConMovimientos(t *testing.T) {
	f := newAPI(t)
	item := f.createItem(t, "GUA-001", 5)
	f.move(t, item.ID, "IN", 2).Body.Close()

	resp := f.do(t, http.MethodDelete, "/api/items/"+item.ID, f.admin, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "CONFLICT", body.Code)
}

func TestAPI_ListaCritica(t *testing.T) {
	f := newAPI(t)
	a := f.createItem(t, "A-1", 10)
	b := f.createItem(t, "B-1", 10)
	f.createItem(t, "C-1", 10) // sin stock: no entra en la franja
	f.move(t, a.ID, "IN", 8).Body.Close()
	f.move(t, b.ID, "IN", 2).Body.Close()

	resp := f.do(t, http.MethodGet, "/api/items/critical", f.operator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Total int                   `json:"total"`
		Items []dto.CriticalItemDTO `json:"items"`
	}](t, resp)
	require.Equal(t, 2, body.Total)
	assert.Equal(t, "B-1", body.Items[0].Code, "mayor déficit primero")
	assert.Equal(t, int64(13), body.Items[0].SuggestedOrderQty)
}

func TestAPI_KardexPDF(t *testing.T) {
	f := newAPI(t)
	item := f.createItem(t, "GUA-001", 5)
	f.move(t, item.ID, "IN", 10).Body.Close()

	resp := f.do(t, http.MethodGet, "/api/items/"+item.ID+"/statement.pdf", f.operator, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Auth
// ─────────────────────────────────────────────────────────────────────────────

func TestAPI_RegistroLoginYMe(t *testing.T) {
	f := newAPI(t)
	resp := f.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{Email: "nuevo@insumos.test", Password: "secreto123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "nuevo@insumos.test", Password: "secreto123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[dto.LoginResponse](t, resp)
	assert.Equal(t, entity.RoleOperator, login.User.Role)

	resp = f.do(t, http.MethodGet, "/api/auth/me", "Bearer "+login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[dto.UserResponse](t, resp)
	assert.Equal(t, "nuevo@insumos.test", me.Email)

	resp = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "nuevo@insumos.test", Password: "otra-clave"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ─────────────────────────────────────────────────────────────────────────────
// Usuarios
// ─────────────────────────────────────────────────────────────────────────────

func TestAPI_AltaDeUsuarioConRol(t *testing.T) {
	f := newAPI(t)
	body := dto.CreateUserRequest{Email: "sup@insumos.test", Password: "secreto123", Name: "Sup", Role: entity.RoleAdmin}

	resp := f.do(t, http.MethodPost, "/api/users", f.operator, body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode, "solo un admin asigna roles")
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/users", f.admin, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, entity.RoleAdmin, decode[dto.UserResponse](t, resp).Role)

	resp = f.do(t, http.MethodPost, "/api/users", f.admin, body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_EdicionDeUsuarios(t *testing.T) {
	f := newAPI(t)
	name := "Op Renombrado"

	resp := f.do(t, http.MethodPut, "/api/users/"+adminID, f.operator, dto.UpdateUserRequest{Name: &name})
	require.Equal(t, http.StatusForbidden, resp.StatusCode, "un operator no edita a otros")
	resp.Body.Close()

	resp = f.do(t, http.MethodPut, "/api/users/"+operatorID, f.operator, dto.UpdateUserRequest{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, name, decode[dto.UserResponse](t, resp).Name)

	role := entity.RoleAdmin
	resp = f.do(t, http.MethodPut, "/api/users/"+operatorID, f.operator, dto.UpdateUserRequest{Role: &role})
	require.Equal(t, http.StatusForbidden, resp.StatusCode, "nadie se autopromueve")
	resp.Body.Close()

	taken := "jefe@insumos.test"
	resp = f.do(t, http.MethodPut, "/api/users/"+operatorID, f.operator, dto.UpdateUserRequest{Email: &taken})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/api/users/"+adminID, f.operator, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/api/users/00000000-0000-0000-0000-00000000dead", f.admin, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
