package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrContention         = errors.New("contención: el insumo está siendo modificado, intente nuevamente")

	// ErrConcurrentUpdate lo devuelve la capa de persistencia ante fallas de serialización,
	// deadlocks o locks no disponibles. Es el único error que el motor reintenta.
	ErrConcurrentUpdate = errors.New("conflicto de concurrencia en la transacción")

	// ErrInvariantViolation agrupa las reglas de consistencia del stock.
	ErrInvariantViolation = errors.New("la operación viola una regla de stock")
	ErrNegativeStock      = errors.New("el stock resultante sería negativo")
	ErrZeroStockByOut     = errors.New("no se permite dejar el insumo en cero con una salida")
)

// Reglas de invariante (códigos estables para la API).
const (
	RuleNegativeStock = "NEGATIVE_STOCK"
	RuleZeroByOut     = "ZERO_BY_OUT"
)

// InvariantError describe qué regla se rompió y con qué cantidades.
// errors.Is(err, ErrInvariantViolation) es verdadero para cualquier InvariantError.
type InvariantError struct {
	Rule    string
	ItemID  string
	Current int64
	After   int64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s (insumo %s: stock actual %d, resultante %d)", e.cause().Error(), e.ItemID, e.Current, e.After)
}

// Unwrap devuelve la causa concreta (ErrNegativeStock o ErrZeroStockByOut).
func (e *InvariantError) Unwrap() error { return e.cause() }

// Is permite errors.Is(err, ErrInvariantViolation).
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

func (e *InvariantError) cause() error {
	if e.Rule == RuleZeroByOut {
		return ErrZeroStockByOut
	}
	return ErrNegativeStock
}
