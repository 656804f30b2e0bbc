package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Insumos-api/internal/application/alert"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/pkg/logger"
)

var _ alert.Sink = (*AlertPublisher)(nil)

// AlertPublisher publica las alertas de stock crítico en Kafka (sink "kafka" del dispatcher).
type AlertPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewSyncProducer crea un productor síncrono con acks de todas las réplicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("crear productor kafka: %w", err)
	}
	return producer, nil
}

// NewAlertPublisher construye el publisher sobre un productor existente.
func NewAlertPublisher(producer sarama.SyncProducer, topic string, log *logger.Logger) *AlertPublisher {
	return &AlertPublisher{producer: producer, topic: topic, log: log}
}

func (p *AlertPublisher) Name() string { return "kafka" }

// Send publica la alerta con clave = item_id (orden por insumo dentro de la partición)
// y el contexto de traza en los headers.
func (p *AlertPublisher) Send(ctx context.Context, a entity.StockAlert) error {
	ctx, span := otel.Tracer("kafka-publisher").Start(ctx, "kafka.publish.stock_alert",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("event.id", a.ID),
			attribute.String("item.id", a.ItemID),
		),
	)
	defer span.End()

	payload, err := json.Marshal(a)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal")
		return fmt.Errorf("serializar alerta: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := []sarama.RecordHeader{
		{Key: []byte(headerEventType), Value: []byte(EventTypeStockAlert)},
		{Key: []byte(headerEventID), Value: []byte(a.ID)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(a.ItemID),
		Value:   sarama.ByteEncoder(payload),
		Headers: headers,
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send")
		return fmt.Errorf("publicar alerta en kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	p.log.Ctx(ctx).Info().
		Str("alert_id", a.ID).
		Str("item_id", a.ItemID).
		Str("topic", p.topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("alerta publicada")
	return nil
}

// Close cierra el productor.
func (p *AlertPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
