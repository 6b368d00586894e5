package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/report"
)

// ReportHandler reportes agregados del ledger (protegido).
type ReportHandler struct {
	agg *report.Aggregator
	log zerolog.Logger
}

// NewReportHandler construye el handler.
func NewReportHandler(agg *report.Aggregator, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{agg: agg, log: log}
}

// Summary godoc
// @Summary      Resumen de movimientos
// @Description  Totales de entradas, salidas, neto y volumen por causa, bodega, día (UTC) o producto.
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        start_date    query  string  false  "YYYY-MM-DD (por defecto primer día del mes)"
// @Param        end_date      query  string  false  "YYYY-MM-DD (por defecto hoy)"
// @Param        group_by      query  string  false  "type | warehouse | day | product"
// @Param        warehouse_id  query  string  false  "Bodega (UUID)"
// @Success      200  {object}  dto.SummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/summary [get]
func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	req := dto.SummaryRequest{
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
		GroupBy:     c.Query("group_by"),
		WarehouseID: c.Query("warehouse_id"),
	}
	out, err := h.agg.Summarize(c.UserContext(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
