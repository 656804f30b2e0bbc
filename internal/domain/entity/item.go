package entity

import "time"

// Item representa un insumo del inventario.
// El stock no se guarda: se deriva siempre del historial de movimientos.
type Item struct {
	ID                string
	Code              string // código de negocio único (normalizado)
	Name              string
	Description       string
	CriticalThreshold int64 // por debajo de este nivel el stock se considera crítico
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
