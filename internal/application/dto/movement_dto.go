package dto

import "time"

// CreateMovementRequest body para POST /api/movements.
// ActorID es opcional: por defecto el usuario autenticado.
type CreateMovementRequest struct {
	ItemID     string     `json:"item_id" validate:"required"`
	ActorID    string     `json:"actor_id,omitempty"`
	Kind       string     `json:"kind" validate:"required,oneof=IN OUT"`
	Quantity   int64      `json:"quantity" validate:"required,gt=0"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// UpdateMovementRequest body para PUT /api/movements/:id.
type UpdateMovementRequest struct {
	Kind       string     `json:"kind" validate:"required,oneof=IN OUT"`
	Quantity   int64      `json:"quantity" validate:"required,gt=0"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// MovementResponse salida de un movimiento, con datos del insumo.
type MovementResponse struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	ItemCode   string    `json:"item_code,omitempty"`
	ItemName   string    `json:"item_name,omitempty"`
	ActorID    string    `json:"actor_id"`
	Kind       string    `json:"kind"`
	Quantity   int64     `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MovementListFilter query params de GET /api/movements.
type MovementListFilter struct {
	ItemID string     `query:"item_id"`
	Kind   string     `query:"kind"`
	From   *time.Time `query:"from"`
	To     *time.Time `query:"to"`
	PageRequest
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// StatementLine línea del kardex de un insumo: movimiento y saldo acumulado.
type StatementLine struct {
	MovementID string    `json:"movement_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Kind       string    `json:"kind"`
	Quantity   int64     `json:"quantity"`
	Balance    int64     `json:"balance"`
	ActorID    string    `json:"actor_id"`
}

// ItemStatement kardex completo de un insumo.
type ItemStatement struct {
	ItemID            string          `json:"item_id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	CriticalThreshold int64           `json:"critical_threshold"`
	Lines             []StatementLine `json:"lines"`
	TotalIn           int64           `json:"total_in"`
	TotalOut          int64           `json:"total_out"`
	FinalBalance      int64           `json:"final_balance"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
