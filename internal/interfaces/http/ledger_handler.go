package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
)

// LedgerHandler consulta y auditoría del ledger (protegido).
type LedgerHandler struct {
	query      *inventory.QueryUseCase
	reconciler *inventory.Reconciler
	log        zerolog.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(query *inventory.QueryUseCase, reconciler *inventory.Reconciler, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{query: query, reconciler: reconciler, log: log}
}

// Query godoc
// @Summary      Consultar movimientos
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        variant_id    query  string  false  "Variante (UUID)"
// @Param        warehouse_id  query  string  false  "Bodega (UUID)"
// @Param        cause         query  string  false  "manual_add, manual_adjust, initial_stock, order_reserve, order_release, order_fulfill"
// @Param        start_date    query  string  false  "YYYY-MM-DD o RFC3339"
// @Param        end_date      query  string  false  "YYYY-MM-DD (incluido) o RFC3339"
// @Param        limit         query  int     false  "Máximo 500"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.LedgerPageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ledger [get]
func (h *LedgerHandler) Query(c *fiber.Ctx) error {
	var req dto.LedgerQueryRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros inválidos"})
	}
	out, err := h.query.QueryLedger(c.UserContext(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Reconciliar stock con el ledger
// @Description  Recalcula la cantidad sumando los movimientos de la pareja y la compara con la almacenada. No corrige.
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        variant_id    query  string  true  "Variante (UUID)"
// @Param        warehouse_id  query  string  true  "Bodega (UUID)"
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/reconcile [get]
func (h *LedgerHandler) Reconcile(c *fiber.Ctx) error {
	res, err := h.reconciler.Reconcile(c.UserContext(), c.Query("variant_id"), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ReconcileResponse{
		VariantID:          res.VariantID,
		WarehouseID:        res.WarehouseID,
		Consistent:         res.Consistent,
		RecomputedQuantity: res.RecomputedQuantity,
		StoredQuantity:     res.StoredQuantity,
		EntryCount:         res.EntryCount,
		ChainBreaks:        res.ChainBreaks,
	})
}
