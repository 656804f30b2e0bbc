package alert

import (
	"context"

	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/pkg/logger"
)

// LogSink escribe la alerta en el log estructurado. Es el sink por defecto (ALERT_SINK=log).
type LogSink struct {
	log *logger.Logger
}

// NewLogSink construye el sink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, a entity.StockAlert) error {
	s.log.Ctx(ctx).Warn().
		Str("alert_id", a.ID).
		Str("item_id", a.ItemID).
		Str("item_code", a.ItemCode).
		Str("item_name", a.ItemName).
		Int64("current_quantity", a.CurrentQuantity).
		Int64("critical_threshold", a.CriticalThreshold).
		Str("operation", a.Operation).
		Msg("ALERTA: stock crítico")
	return nil
}
