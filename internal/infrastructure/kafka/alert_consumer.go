package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/pkg/logger"
)

// AlertHandler procesa una alerta consumida.
type AlertHandler func(ctx context.Context, a entity.StockAlert) error

// consumeRetryBackoff espera entre intentos de Consume fallidos (broker caído, rebalance).
const consumeRetryBackoff = 2 * time.Second

// AlertConsumer consume el tópico de alertas con un consumer group.
type AlertConsumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler AlertHandler
	log     *logger.Logger
	backoff time.Duration
}

// NewAlertConsumer crea el consumer group.
func NewAlertConsumer(brokers []string, groupID, topic string, handler AlertHandler, log *logger.Logger) (*AlertConsumer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_6_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("crear consumer group: %w", err)
	}
	return &AlertConsumer{group: group, topic: topic, handler: handler, log: log, backoff: consumeRetryBackoff}, nil
}

// Run consume hasta que ctx se cancele.
func (c *AlertConsumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Error().Err(err).Msg("error del consumer group")
		}
	}()

	h := &alertGroupHandler{handler: c.handler, log: c.log}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Error().Err(err).Str("topic", c.topic).Dur("retry_in", c.backoff).Msg("error consumiendo alertas")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close cierra el consumer group.
func (c *AlertConsumer) Close() error {
	return c.group.Close()
}

type alertGroupHandler struct {
	handler AlertHandler
	log     *logger.Logger
}

func (h *alertGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *alertGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marca cada mensaje tras procesarlo, también si falló: una alerta que no se
// pudo entregar queda en el log y no bloquea la partición.
func (h *alertGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		_ = h.handleMessage(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *alertGroupHandler) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		key := string(header.Key)
		if key == "traceparent" || key == "tracestate" {
			carrier[key] = string(header.Value)
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	ctx, span := otel.Tracer("kafka-consumer").Start(ctx, "kafka.consume.stock_alert",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", msg.Topic),
			attribute.Int("messaging.kafka.partition", int(msg.Partition)),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	var a entity.StockAlert
	if err := json.Unmarshal(msg.Value, &a); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payload inválido")
		h.log.Ctx(ctx).Error().Err(err).
			Int64("offset", msg.Offset).
			Msg("mensaje de alerta inválido, se descarta")
		return err
	}
	if err := h.handler(ctx, a); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler")
		h.log.Ctx(ctx).Error().Err(err).
			Str("alert_id", a.ID).
			Str("item_id", a.ItemID).
			Msg("no se pudo procesar la alerta")
		return err
	}
	return nil
}
