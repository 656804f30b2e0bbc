package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Insumos-api/internal/application/auth"
	"github.com/jhoicas/Insumos-api/internal/application/dto"
	"github.com/jhoicas/Insumos-api/internal/domain"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/memory"
	"github.com/jhoicas/Insumos-api/pkg/jwt"
)

const secret = "test-secret"

func newAuth() (*auth.AuthUseCase, *memory.Store) {
	store := memory.NewStore()
	return auth.NewAuthUseCase(store.Users(), auth.JWTConfig{Secret: secret, ExpMinutes: 5, Issuer: "test"}), store
}

func TestRegister_RolPorDefectoOperator(t *testing.T) {
	uc, _ := newAuth()
	u, err := uc.RegisterUser(context.Background(), dto.RegisterRequest{Email: " Ana@Insumos.test ", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleOperator, u.Role)
	assert.Equal(t, "ana@insumos.test", u.Email)
	assert.Equal(t, entity.UserStatusActive, u.Status)
}

func TestRegister_EmailDuplicado(t *testing.T) {
	uc, _ := newAuth()
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "ana@insumos.test", Password: "secreto123"})
	require.NoError(t, err)

	_, err = uc.RegisterUser(ctx, dto.RegisterRequest{Email: "ANA@insumos.test", Password: "otro12345"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestCreateUser_RolExplicito(t *testing.T) {
	uc, _ := newAuth()
	ctx := context.Background()
	u, err := uc.CreateUser(ctx, dto.CreateUserRequest{Email: "jefa@insumos.test", Password: "secreto123", Role: entity.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, u.Role)

	op, err := uc.CreateUser(ctx, dto.CreateUserRequest{Email: "op@insumos.test", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleOperator, op.Role, "sin rol se crea operator")

	_, err = uc.CreateUser(ctx, dto.CreateUserRequest{Email: "x@y.z", Password: "secreto123", Role: "root"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.CreateUser(ctx, dto.CreateUserRequest{Email: "corta@y.z", Password: "1234"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLogin_TokenConRol(t *testing.T) {
	uc, _ := newAuth()
	ctx := context.Background()
	reg, err := uc.CreateUser(ctx, dto.CreateUserRequest{Email: "jefe@insumos.test", Password: "secreto123", Role: entity.RoleAdmin})
	require.NoError(t, err)

	resp, err := uc.Login(ctx, dto.LoginRequest{Email: "jefe@insumos.test", Password: "secreto123"})
	require.NoError(t, err)

	userID, role, err := jwt.Parse(secret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, userID)
	assert.Equal(t, entity.RoleAdmin, role)

	me, err := uc.Me(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "jefe@insumos.test", me.Email)
}

func TestLogin_Errores(t *testing.T) {
	uc, store := newAuth()
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "ana@insumos.test", Password: "secreto123"})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "ana@insumos.test", Password: "incorrecta"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@insumos.test", Password: "secreto123"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	hash, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(ctx, &entity.User{
		ID: "u-inactivo", Email: "baja@insumos.test", PasswordHash: string(hash),
		Status: entity.UserStatusInactive, Role: entity.RoleOperator,
	}))
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "baja@insumos.test", Password: "secreto123"})
	assert.ErrorIs(t, err, domain.ErrForbidden, "un usuario inactivo no puede ingresar")

	_, err = uc.Me(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
