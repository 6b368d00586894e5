package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger-api/docs"
	"github.com/jhoicas/stock-ledger-api/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/application/report"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/alerting"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger-api/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger-api/pkg/config"
	"github.com/jhoicas/stock-ledger-api/pkg/logger"
	"github.com/jhoicas/stock-ledger-api/pkg/telemetry"
)

// @title        Stock Ledger API
// @version      1.0
// @description  Ledger de movimientos de inventario y creación transaccional de pedidos.
// @BasePath     /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Str("alert_sink", cfg.Alerts.Sink).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("OpenTelemetry")
	}

	// Persistencia: PostgreSQL (producción) o memoria (demo / desarrollo sin BD).
	var (
		txRunner interface {
			inventory.TxRunner
			fulfillment.OrderTxRunner
		}
		stockRepo  repository.StockRecordRepository
		movRepo    repository.MovementRepository
		reportRepo repository.ReportRepository
		catalog    repository.CatalogLookup
	)
	switch cfg.App.StoreDriver {
	case "memory":
		store := memory.NewStore()
		store.OpenCatalog()
		txRunner = store
		stockRepo, movRepo, reportRepo, catalog = store.StockRecords(), store.Movements(), store.Reports(), store.Catalog()
		log.Warn().Msg("STORE_DRIVER=memory: los datos se pierden al reiniciar y el catálogo acepta cualquier variante con stock")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		txRunner = postgres.NewTxRunner(pool, cfg.DB.LockTimeout)
		stockRepo = postgres.NewStockRecordRepository(pool)
		movRepo = postgres.NewMovementRepository(pool)
		reportRepo = postgres.NewReportRepository(pool)
		catalog = postgres.NewCatalogRepository(pool)
	}

	// Alertas: fuera de la transacción; un sink caído solo deja un warning en el log.
	var sink inventory.AlertSink
	switch cfg.Alerts.Sink {
	case "rabbitmq":
		rs, err := alerting.NewRabbitSink(cfg.Alerts.RabbitURL, cfg.Alerts.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("RabbitMQ")
		}
		defer rs.Close()
		sink = rs
	case "kafka":
		ks := alerting.NewKafkaSink(cfg.Alerts.KafkaBrokers, cfg.Alerts.Topic)
		defer ks.Close()
		sink = ks
	default:
		sink = alerting.NewLogSink(log.Component("alerts"))
	}
	alerts := inventory.NewAlertDispatcher(sink, log.Component("alerts"))

	mutator := inventory.NewStockMutator(txRunner, alerts, log.Component("mutator"), inventory.MutatorConfig{
		MaxConflictRetries: cfg.Stock.MaxConflictRetries,
	})
	coordinator := fulfillment.NewCoordinator(txRunner, mutator, catalog, log.Component("orders"), fulfillment.Config{
		TxTimeout:    cfg.Order.TxTimeout,
		MaxTxRetries: cfg.Order.MaxTxRetries,
	})
	reconciler := inventory.NewReconciler(stockRepo, movRepo, alerts, log.Component("reconciler"), cfg.Reconcile.Concurrency)
	queryUC := inventory.NewQueryUseCase(stockRepo, movRepo)
	aggregator := report.NewAggregator(reportRepo)

	go inventory.NewReconcileJob(reconciler, cfg.Reconcile.Interval, log.Component("reconcile_job")).Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 15,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI: http://localhost:<port>/docs
	if path, err := docs.WriteSpec(os.TempDir()); err != nil {
		log.Warn().Err(err).Msg("swagger deshabilitado")
	} else {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: path,
			Path:     "docs",
			Title:    "Stock Ledger API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.App.StoreDriver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Mutator:     mutator,
		Query:       queryUC,
		Reconciler:  reconciler,
		Coordinator: coordinator,
		Aggregator:  aggregator,
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
		Log:         log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	alerts.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de OpenTelemetry")
	}

	log.Info().Msg("aplicación detenida")
}
