package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// StockHandler mutaciones y consulta de niveles de stock (protegido).
type StockHandler struct {
	mutator *inventory.StockMutator
	query   *inventory.QueryUseCase
	log     zerolog.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(mutator *inventory.StockMutator, query *inventory.QueryUseCase, log zerolog.Logger) *StockHandler {
	return &StockHandler{mutator: mutator, query: query, log: log}
}

// Mutate godoc
// @Summary      Registrar movimiento de stock
// @Description  Aplica un delta a la pareja (variante, bodega) y agrega un movimiento al ledger en la misma transacción.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.MutateStockRequest  true  "variant_id, warehouse_id, delta, cause"
// @Success      201   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/mutate [post]
func (h *StockHandler) Mutate(c *fiber.Ctx) error {
	var in dto.MutateStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	refType := in.ReferenceType
	if refType == "" {
		refType = entity.ReferenceManual
	}
	res, err := h.mutator.Mutate(c.UserContext(), inventory.MutationInput{
		VariantID:     in.VariantID,
		WarehouseID:   in.WarehouseID,
		Delta:         in.Delta,
		Cause:         entity.MovementCause(in.Cause),
		ReferenceType: refType,
		ReferenceID:   in.ReferenceID,
		ActorID:       GetActorID(c),
		Note:          in.Note,
		UnitCost:      in.UnitCost,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(mutationResponse(res))
}

// Initialize godoc
// @Summary      Crear stock de una variante en una bodega
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.InitializeStockRequest  true  "variant_id, warehouse_id, quantity, minimum_stock"
// @Success      201   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/initialize [post]
func (h *StockHandler) Initialize(c *fiber.Ctx) error {
	var in dto.InitializeStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.mutator.InitializeStock(c.UserContext(), inventory.InitializeInput{
		VariantID:    in.VariantID,
		WarehouseID:  in.WarehouseID,
		Quantity:     in.Quantity,
		MinimumStock: in.MinimumStock,
		UnitCost:     in.UnitCost,
		ActorID:      GetActorID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(mutationResponse(res))
}

// SetMinimum godoc
// @Summary      Cambiar el stock mínimo
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.SetMinimumStockRequest  true  "variant_id, warehouse_id, minimum_stock"
// @Success      200   {object}  dto.StockRecordResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/minimum [put]
func (h *StockHandler) SetMinimum(c *fiber.Ctx) error {
	var in dto.SetMinimumStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rec, err := h.mutator.SetMinimumStock(c.UserContext(), in.VariantID, in.WarehouseID, in.MinimumStock)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewStockRecordResponse(rec))
}

// Levels godoc
// @Summary      Niveles de stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id         query  string  false  "Bodega (UUID)"
// @Param        low_stock_threshold  query  int     false  "quantity <= umbral"
// @Param        low_stock            query  bool    false  "quantity <= minimum_stock"
// @Param        limit                query  int     false  "Máximo 500"
// @Param        offset               query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.StockLevelsResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/levels [get]
func (h *StockHandler) Levels(c *fiber.Ctx) error {
	var req dto.StockLevelsRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros inválidos"})
	}
	out, err := h.query.ListLevels(c.UserContext(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

func mutationResponse(res *inventory.MutationResult) dto.MutationResponse {
	out := dto.MutationResponse{
		Movement: dto.NewMovementResponse(res.Entry),
		Stock:    dto.NewStockRecordResponse(res.Record),
		LowStock: res.LowStock,
	}
	if res.LowStock {
		out.Warning = "stock en o por debajo del mínimo"
	}
	return out
}
