// Package alert entrega las alertas de stock crítico fuera del camino de la mutación:
// cola acotada, workers independientes del request y reintentos por alerta.
package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/pkg/logger"
)

var _ inventory.Notifier = (*Dispatcher)(nil)

// ErrClosed se devuelve cuando el dispatcher ya fue cerrado.
var ErrClosed = errors.New("dispatcher de alertas cerrado")

var tracer = otel.Tracer("insumos-api/alert")

// Sink destino final de una alerta (log, Kafka, ...).
type Sink interface {
	Name() string
	Send(ctx context.Context, alert entity.StockAlert) error
}

// DeliveryObserver recibe el resultado de cada entrega (delivered, failed, dropped).
type DeliveryObserver interface {
	ObserveDelivery(sink, outcome string)
}

// Config parámetros del dispatcher.
type Config struct {
	Workers      int
	QueueSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	SendTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 5 * time.Second
	}
}

type envelope struct {
	alert entity.StockAlert
	span  trace.SpanContext
}

// Dispatcher implementa inventory.Notifier. Dispatch nunca bloquea: si la cola está llena
// la alerta se descarta y se registra.
type Dispatcher struct {
	sink     Sink
	cfg      Config
	log      *logger.Logger
	observer DeliveryObserver

	mu     sync.RWMutex
	closed bool
	queue  chan envelope
	wg     sync.WaitGroup
}

// NewDispatcher arranca los workers. observer puede ser nil.
func NewDispatcher(sink Sink, cfg Config, log *logger.Logger, observer DeliveryObserver) *Dispatcher {
	cfg.applyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	d := &Dispatcher{
		sink:     sink,
		cfg:      cfg,
		log:      log,
		observer: observer,
		queue:    make(chan envelope, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch encola la alerta. Del ctx solo se conserva el span para enlazar la traza.
func (d *Dispatcher) Dispatch(ctx context.Context, alert entity.StockAlert) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(alert, ErrClosed)
		return
	}
	select {
	case d.queue <- envelope{alert: alert, span: trace.SpanContextFromContext(ctx)}:
	default:
		d.drop(alert, errors.New("cola de alertas llena"))
	}
}

// Close deja de aceptar alertas y espera a que se vacíe la cola o venza ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for env := range d.queue {
		d.deliver(env)
	}
}

func (d *Dispatcher) deliver(env envelope) {
	ctx := context.Background()
	if env.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, env.span)
	}
	ctx, span := tracer.Start(ctx, "alert.deliver", trace.WithAttributes(
		attribute.String("alert.sink", d.sink.Name()),
		attribute.String("item.id", env.alert.ItemID),
		attribute.Int64("stock", env.alert.CurrentQuantity),
	))
	defer span.End()

	var err error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.cfg.RetryBackoff * time.Duration(attempt))
		}
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		err = d.sink.Send(sendCtx, env.alert)
		cancel()
		if err == nil {
			d.observe("delivered")
			d.log.Ctx(ctx).Debug().
				Str("sink", d.sink.Name()).
				Str("item_id", env.alert.ItemID).
				Int("attempt", attempt+1).
				Msg("alerta entregada")
			return
		}
		d.log.Ctx(ctx).Warn().Err(err).
			Str("sink", d.sink.Name()).
			Str("item_id", env.alert.ItemID).
			Int("attempt", attempt+1).
			Msg("fallo al entregar alerta")
	}
	d.observe("failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, "entrega fallida")
	d.log.Ctx(ctx).Error().Err(err).
		Str("sink", d.sink.Name()).
		Str("alert_id", env.alert.ID).
		Str("item_id", env.alert.ItemID).
		Int64("stock", env.alert.CurrentQuantity).
		Msg("alerta descartada tras agotar reintentos")
}

func (d *Dispatcher) drop(alert entity.StockAlert, reason error) {
	d.observe("dropped")
	d.log.Error().Err(reason).
		Str("alert_id", alert.ID).
		Str("item_id", alert.ItemID).
		Int64("stock", alert.CurrentQuantity).
		Msg("alerta descartada")
}

func (d *Dispatcher) observe(outcome string) {
	if d.observer != nil {
		d.observer.ObserveDelivery(d.sink.Name(), outcome)
	}
}
