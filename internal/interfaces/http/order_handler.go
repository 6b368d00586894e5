package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// OrderHandler creación, consulta, avance y cancelación de pedidos (protegido).
type OrderHandler struct {
	coord *fulfillment.Coordinator
	log   zerolog.Logger
}

// NewOrderHandler construye el handler.
func NewOrderHandler(coord *fulfillment.Coordinator, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{coord: coord, log: log}
}

// Place godoc
// @Summary      Crear pedido
// @Description  Descuenta el stock de todas las líneas en una transacción. Si una línea no tiene stock
// @Description  no se descuenta ninguna y la respuesta indica la línea.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.PlaceOrderRequest  true  "customer_ref, lines"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var in dto.PlaceOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines := make([]fulfillment.PlaceOrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, fulfillment.PlaceOrderLine{
			VariantID:   l.VariantID,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			Price:       l.Price,
		})
	}
	order, err := h.coord.PlaceOrder(c.UserContext(), GetActorID(c), fulfillment.PlaceOrderInput{
		CustomerRef: in.CustomerRef,
		Lines:       lines,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewOrderResponse(order))
}

// Get godoc
// @Summary      Obtener pedido
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	order, err := h.coord.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewOrderResponse(order))
}

// Cancel godoc
// @Summary      Cancelar pedido
// @Description  Devuelve el stock de todas las líneas. Solo desde pending, confirmed o processing.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	order, err := h.coord.CancelOrder(c.UserContext(), GetActorID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewOrderResponse(order))
}

// AdvanceStatus godoc
// @Summary      Avanzar estado del pedido
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "ID del pedido"
// @Param        body  body      dto.AdvanceStatusRequest  true  "status"
// @Success      200   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/status [post]
func (h *OrderHandler) AdvanceStatus(c *fiber.Ctx) error {
	var in dto.AdvanceStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	order, err := h.coord.AdvanceStatus(c.UserContext(), GetActorID(c), c.Params("id"), entity.OrderStatus(in.Status))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewOrderResponse(order))
}
