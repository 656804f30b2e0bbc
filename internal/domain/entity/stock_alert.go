package entity

import "time"

// StockAlert carga útil entregada al notificador cuando el stock queda en la franja crítica.
type StockAlert struct {
	ID                string    `json:"id"`
	ItemID            string    `json:"item_id"`
	ItemName          string    `json:"item_name"`
	ItemCode          string    `json:"item_code"`
	CurrentQuantity   int64     `json:"current_quantity"`
	CriticalThreshold int64     `json:"critical_threshold"`
	MovementID        string    `json:"movement_id,omitempty"`
	Operation         string    `json:"operation"` // create, update, delete
	RaisedAt          time.Time `json:"raised_at"`
}
