package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Insumos-api/internal/application/alert"
	"github.com/jhoicas/Insumos-api/internal/application/auth"
	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/application/usecase"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
	infrakafka "github.com/jhoicas/Insumos-api/internal/infrastructure/kafka"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/Insumos-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Insumos-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Insumos-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/Insumos-api/internal/interfaces/http"
	"github.com/jhoicas/Insumos-api/pkg/config"
	"github.com/jhoicas/Insumos-api/pkg/logger"
	"github.com/jhoicas/Insumos-api/pkg/metrics"
	"github.com/jhoicas/Insumos-api/pkg/tracing"
)

const serviceVersion = "1.0.0"

// stores agrupa los puertos de persistencia del driver elegido.
type stores struct {
	items     repository.ItemRepository
	movements repository.MovementRepository
	users     repository.UserRepository
	txRunner  inventory.TxRunner
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.StoreDriver).
		Str("alert_sink", cfg.Alerts.Sink).
		Msg("iniciando aplicación")

	ctx := context.Background()

	tp, err := tracing.Init(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.App.Name,
		ServiceVersion: serviceVersion,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar tracing")
	}

	st := openStores(ctx, cfg, log)
	defer st.close()

	ledgerMetrics := metrics.NewLedger(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTP(prometheus.DefaultRegisterer)

	// Caché de stock (opcional): solo acelera lecturas, nunca participa de la validación.
	var stockCache inventory.StockCache
	if cfg.Redis.Enabled {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("redis_addr", cfg.Redis.Addr).Msg("redis no disponible, caché de stock deshabilitada")
		} else {
			defer client.Close()
			stockCache = infraredis.NewStockCache(client, cfg.Redis.StockTTL, log)
		}
	}

	// Pipeline de alertas: dispatcher con cola propia → sink (log o Kafka).
	var sink alert.Sink = alert.NewLogSink(log)
	if cfg.Alerts.Sink == "kafka" {
		producer, err := infrakafka.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("conexión a Kafka")
		}
		publisher := infrakafka.NewAlertPublisher(producer, cfg.Kafka.AlertTopic, log)
		defer publisher.Close()
		sink = publisher
	}
	dispatcher := alert.NewDispatcher(sink, alert.Config{
		Workers:    cfg.Alerts.Workers,
		QueueSize:  cfg.Alerts.QueueSize,
		MaxRetries: cfg.Alerts.MaxRetries,
	}, log, ledgerMetrics)

	engine := inventory.NewLedgerEngine(inventory.LedgerDeps{
		TxRunner:     st.txRunner,
		ItemRepo:     st.items,
		MovementRepo: st.movements,
		UserRepo:     st.users,
		Notifier:     dispatcher,
		Cache:        stockCache,
		Metrics:      ledgerMetrics,
		Log:          log,
		MaxAttempts:  cfg.Ledger.MaxAttempts,
		RetryBackoff: cfg.Ledger.RetryBackoff,
	})

	authUC := auth.NewAuthUseCase(st.users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	itemUC := usecase.NewItemUseCase(st.items, st.txRunner, engine)
	userUC := usecase.NewUserUseCase(st.users)
	movementUC := inventory.NewMovementUseCase(engine, st.movements, st.items)
	statementUC := inventory.NewStatementUseCase(st.items, st.movements, infrapdf.NewStatementGenerator())
	criticalUC := inventory.NewCriticalListUseCase(st.items, engine)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.MetricsMiddleware(httpMetrics))

	// Swagger UI: http://localhost:<port>/docs
	if cfg.Docs.Enabled {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.Docs.FilePath,
			Path:     "docs",
			Title:    "Insumos API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Ledger.StoreDriver})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		UserUC:      userUC,
		ItemUC:      itemUC,
		MovementUC:  movementUC,
		StatementUC: statementUC,
		CriticalUC:  criticalUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Las alertas ya encoladas se entregan antes de cerrar el sink.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre del dispatcher de alertas")
	}
	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		log.Error().Err(err).Msg("cierre del tracer")
	}

	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) stores {
	if cfg.Ledger.StoreDriver == "memory" {
		log.Warn().Msg("STORE_DRIVER=memory: los datos no se persisten")
		mem := memory.NewStore()
		return stores{
			items:     mem.Items(),
			movements: mem.Movements(),
			users:     mem.Users(),
			txRunner:  mem.TxRunner(),
			close:     func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("esquema de base de datos")
	}
	return stores{
		items:     postgres.NewItemRepository(pool),
		movements: postgres.NewMovementRepository(pool),
		users:     postgres.NewUserRepository(pool),
		txRunner:  postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		close:     pool.Close,
	}
}
