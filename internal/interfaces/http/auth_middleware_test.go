package http_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	pkgjwt "github.com/jhoicas/Insumos-api/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testIssuer    = "insumos-api-test"
	testExpMin    = 60
)

// signup registra por el endpoint público y devuelve el usuario creado y su token.
func (f *apiFixture) signup(t *testing.T, body map[string]any) (dto.UserResponse, string) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decode[dto.UserResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: body["email"].(string), Password: body["password"].(string)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[dto.LoginResponse](t, resp)
	return user, "Bearer " + login.Token
}

// ──────────────────────────────────────────────────────────────────────────────
// Token
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_TokenAusenteOInvalido(t *testing.T) {
	f := newAPI(t)

	expired, err := pkgjwt.Generate(testJWTSecret, adminID, entity.RoleAdmin, testIssuer, -1)
	require.NoError(t, err)
	foreign, err := pkgjwt.Generate("otro-secret-completamente-distinto", adminID, entity.RoleAdmin, testIssuer, testExpMin)
	require.NoError(t, err)

	cases := map[string]string{
		"sin header":  "",
		"sin Bearer":  "Token abc",
		"malformado":  "Bearer token.invalido.aqui",
		"expirado":    "Bearer " + expired,
		"otro secret": "Bearer " + foreign,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			resp := f.do(t, http.MethodGet, "/api/movements", header, nil)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAuth_TokenSinRolEnRutaAdmin(t *testing.T) {
	f := newAPI(t)
	tok, err := pkgjwt.Generate(testJWTSecret, adminID, "", testIssuer, testExpMin)
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/api/items", "Bearer "+tok, dto.CreateItemRequest{Code: "X-1", Name: "X"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "MISSING_ROLE", body.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Roles sobre movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_OperatorNoEditaNiEliminaMovimientos(t *testing.T) {
	f := newAPI(t)
	item := f.createItem(t, "GUA-001", 0)
	mov := decode[dto.MovementResponse](t, f.move(t, item.ID, "IN", 10))

	resp := f.do(t, http.MethodPut, "/api/movements/"+mov.ID, f.operator, dto.UpdateMovementRequest{Kind: "IN", Quantity: 1})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "FORBIDDEN", body.Code)

	resp = f.do(t, http.MethodDelete, "/api/movements/"+mov.ID, f.operator, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/movements/"+mov.ID, f.operator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "el operator sí puede leer")
	got := decode[dto.MovementResponse](t, resp)
	assert.Equal(t, int64(10), got.Quantity, "el movimiento sigue intacto")
}

// ──────────────────────────────────────────────────────────────────────────────
// Registro público y usuarios inactivos
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_RegistroPublicoNoOtorgaAdmin(t *testing.T) {
	f := newAPI(t)
	user, token := f.signup(t, map[string]any{
		"email": "intruso@insumos.test", "password": "secreto123", "name": "Intruso", "role": "admin",
	})
	assert.Equal(t, entity.RoleOperator, user.Role, "el rol enviado se ignora")

	resp := f.do(t, http.MethodPost, "/api/items", token, dto.CreateItemRequest{Code: "X-1", Name: "X"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp2 := f.do(t, http.MethodGet, "/api/users", token, nil)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp2.StatusCode)
}

func TestAuth_UsuarioInactivoRechazado(t *testing.T) {
	f := newAPI(t)
	item := f.createItem(t, "GUA-001", 0)
	user, _ := f.signup(t, map[string]any{"email": "temporal@insumos.test", "password": "secreto123", "name": "Temporal"})

	role := entity.RoleAdmin
	resp := f.do(t, http.MethodPut, "/api/users/"+user.ID, f.admin, dto.UpdateUserRequest{Role: &role})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Token emitido con el rol nuevo: mientras esté activo puede registrar.
	resp = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "temporal@insumos.test", Password: "secreto123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := "Bearer " + decode[dto.LoginResponse](t, resp).Token

	resp = f.do(t, http.MethodPost, "/api/movements", token, dto.CreateMovementRequest{ItemID: item.ID, Kind: "IN", Quantity: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/api/users/"+user.ID, f.admin, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "temporal@insumos.test", Password: "secreto123"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "un inactivo no inicia sesión")
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/movements", token, dto.CreateMovementRequest{ItemID: item.ID, Kind: "IN", Quantity: 3})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "el token vigente no basta si el actor está inactivo")
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/items/"+item.ID+"/stock", f.operator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), decode[dto.StockResponse](t, resp).Stock)
}
