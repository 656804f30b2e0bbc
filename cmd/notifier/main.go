// notifier consume las alertas de stock crítico publicadas en Kafka y las envía por correo.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/Insumos-api/internal/infrastructure/kafka"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/mail"
	"github.com/jhoicas/Insumos-api/pkg/config"
	"github.com/jhoicas/Insumos-api/pkg/logger"
	"github.com/jhoicas/Insumos-api/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS es obligatorio para el notifier")
	}

	tp, err := tracing.Init(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.App.Name + "-notifier",
		ServiceVersion: "1.0.0",
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar tracing")
	}

	mailer := mail.NewAlertMailer(cfg.SMTP, cfg.Alerts.Recipients, log)
	consumer, err := kafka.NewAlertConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.AlertTopic, mailer.Handle, log)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Kafka")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("consumer finalizado con error")
		}
	}()
	log.Info().
		Str("topic", cfg.Kafka.AlertTopic).
		Str("group", cfg.Kafka.GroupID).
		Int("recipients", len(cfg.Alerts.Recipients)).
		Msg("notifier iniciado")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando notifier...")
	cancel()
	<-done
	if err := consumer.Close(); err != nil {
		log.Error().Err(err).Msg("cierre del consumer")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		log.Error().Err(err).Msg("cierre del tracer")
	}
	log.Info().Msg("notifier detenido")
}
