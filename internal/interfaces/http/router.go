package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger-api/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/application/report"
	"github.com/jhoicas/stock-ledger-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Mutator     *inventory.StockMutator
	Query       *inventory.QueryUseCase
	Reconciler  *inventory.Reconciler
	Coordinator *fulfillment.Coordinator
	Aggregator  *report.Aggregator
	JWTSecret   string
	JWTIssuer   string
	Log         zerolog.Logger
}

// Router registra las rutas de la API. Todo /api requiere Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	// Stock: escrituras manuales solo admin y bodeguero; lectura para todos los roles.
	stockHandler := NewStockHandler(deps.Mutator, deps.Query, deps.Log)
	stock := api.Group("/stock")
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	stock.Post("/mutate", writers, stockHandler.Mutate)
	stock.Post("/initialize", writers, stockHandler.Initialize)
	stock.Put("/minimum", writers, stockHandler.SetMinimum)
	stock.Get("/levels", stockHandler.Levels)

	orderHandler := NewOrderHandler(deps.Coordinator, deps.Log)
	orders := api.Group("/orders")
	orders.Post("/", orderHandler.Place)
	orders.Get("/:id", orderHandler.Get)
	orders.Post("/:id/cancel", orderHandler.Cancel)
	orders.Post("/:id/status", writers, orderHandler.AdvanceStatus)

	ledgerHandler := NewLedgerHandler(deps.Query, deps.Reconciler, deps.Log)
	ledger := api.Group("/ledger")
	ledger.Get("/", ledgerHandler.Query)
	ledger.Get("/reconcile", RequireRole(jwt.RoleAdmin), ledgerHandler.Reconcile)

	reportHandler := NewReportHandler(deps.Aggregator, deps.Log)
	api.Get("/reports/summary", reportHandler.Summary)
}
