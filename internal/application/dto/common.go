package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage aplica valores por defecto y el máximo permitido.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// InsufficientStockDetail identifica la línea que no tiene stock para que el cliente ajuste cantidades.
type InsufficientStockDetail struct {
	Line        *int   `json:"line,omitempty"`
	VariantID   string `json:"variant_id"`
	WarehouseID string `json:"warehouse_id"`
	Requested   int64  `json:"requested"`
	Available   int64  `json:"available"`
}

// ValidationDetail campo (y línea, si aplica) que no pasó la validación.
type ValidationDetail struct {
	Field  string `json:"field"`
	Line   *int   `json:"line,omitempty"`
	Reason string `json:"reason"`
}
