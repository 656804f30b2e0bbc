package entity

import (
	"strings"
	"time"
)

// MovementKind tipo de movimiento de stock.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	MovementKindIN  MovementKind = "IN"  // entrada
	MovementKindOUT MovementKind = "OUT" // salida
)

// ParseMovementKind normaliza el tipo recibido ("in", "OUT", ...). ok=false si no es reconocido.
func ParseMovementKind(s string) (MovementKind, bool) {
	switch MovementKind(strings.ToUpper(strings.TrimSpace(s))) {
	case MovementKindIN:
		return MovementKindIN, true
	case MovementKindOUT:
		return MovementKindOUT, true
	}
	return "", false
}

// Sign devuelve +1 para IN y -1 para OUT.
func (k MovementKind) Sign() int64 {
	if k == MovementKindIN {
		return 1
	}
	return -1
}

// Movement representa un movimiento de stock de un insumo registrado por un usuario.
type Movement struct {
	ID         string
	ItemID     string
	ActorID    string
	Kind       MovementKind
	Quantity   int64 // siempre positivo; el signo lo da Kind
	OccurredAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Effect es el efecto con signo del movimiento sobre el stock.
func (m *Movement) Effect() int64 {
	return m.Quantity * m.Kind.Sign()
}
