package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// ValidRole indica si r es un rol conocido.
func ValidRole(r string) bool { return r == RoleAdmin || r == RoleOperator }

// Estados de usuario.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// ValidStatus indica si st es un estado conocido.
func ValidStatus(st string) bool { return st == UserStatusActive || st == UserStatusInactive }

// User representa un usuario del sistema; es el actor que registra movimientos.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, operator
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive indica si el usuario puede actuar sobre el inventario.
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}
