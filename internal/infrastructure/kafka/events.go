package kafka

// Tipos de evento publicados en el tópico de alertas.
const (
	EventTypeStockAlert = "stock.alert.raised"

	headerEventType = "event_type"
	headerEventID   = "event_id"
)
