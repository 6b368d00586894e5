package dto

// SummaryRequest parámetros de GET /api/reports/summary.
type SummaryRequest struct {
	StartDate   string `query:"start_date"` // YYYY-MM-DD; por defecto primer día del mes actual
	EndDate     string `query:"end_date"`   // YYYY-MM-DD (día incluido); por defecto hoy
	GroupBy     string `query:"group_by"`   // type|warehouse|day|product
	WarehouseID string `query:"warehouse_id"`
}

// PeriodDTO rango de fechas del reporte.
type PeriodDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SummaryRowDTO totales de un grupo.
type SummaryRowDTO struct {
	Key           string `json:"key"`
	MovementCount int64  `json:"movement_count"`
	TotalIn       int64  `json:"total_in"`  // unidades que entraron
	TotalOut      int64  `json:"total_out"` // unidades que salieron (valor absoluto)
	Net           int64  `json:"net"`
	Volume        int64  `json:"volume"` // suma de |delta|
}

// SummaryResponse respuesta de report.summary.
type SummaryResponse struct {
	Period  PeriodDTO       `json:"period"`
	GroupBy string          `json:"group_by"`
	Rows    []SummaryRowDTO `json:"rows"`
	Totals  SummaryRowDTO   `json:"totals"`
}
