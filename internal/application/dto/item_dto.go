package dto

import "time"

// CreateItemRequest entrada para crear un insumo.
type CreateItemRequest struct {
	Code              string `json:"code" validate:"required,min=1,max=50"`
	Name              string `json:"name" validate:"required,min=1,max=200"`
	Description       string `json:"description"`
	CriticalThreshold int64  `json:"critical_threshold" validate:"min=0"`
}

// UpdateItemRequest entrada para actualizar un insumo. Campos nil no se modifican.
type UpdateItemRequest struct {
	Code              *string `json:"code" validate:"omitempty,min=1,max=50"`
	Name              *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description       *string `json:"description"`
	CriticalThreshold *int64  `json:"critical_threshold" validate:"omitempty,min=0"`
}

// ItemResponse salida de un insumo con su stock derivado.
type ItemResponse struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	CriticalThreshold int64     `json:"critical_threshold"`
	Stock             int64     `json:"stock"`
	Critical          bool      `json:"critical"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ItemListResponse lista paginada de insumos.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// StockResponse stock derivado de un insumo.
type StockResponse struct {
	ItemID            string `json:"item_id"`
	Stock             int64  `json:"stock"`
	CriticalThreshold int64  `json:"critical_threshold"`
}

// CriticalItemDTO insumo en franja crítica con la cantidad sugerida de pedido.
type CriticalItemDTO struct {
	ItemID            string `json:"item_id"`
	Code              string `json:"code"`
	Name              string `json:"name"`
	Stock             int64  `json:"stock"`
	CriticalThreshold int64  `json:"critical_threshold"`
	Deficit           int64  `json:"deficit"`             // umbral - stock
	SuggestedOrderQty int64  `json:"suggested_order_qty"` // ceil(umbral * 1.5) - stock
	Priority          int    `json:"priority"`            // 1 = más urgente
}
