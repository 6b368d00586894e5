package dto

// LedgerQueryRequest parámetros de GET /api/ledger.
type LedgerQueryRequest struct {
	VariantID   string `query:"variant_id"`
	WarehouseID string `query:"warehouse_id"`
	Cause       string `query:"cause"`
	StartDate   string `query:"start_date"` // YYYY-MM-DD o RFC3339
	EndDate     string `query:"end_date"`   // YYYY-MM-DD (día incluido) o RFC3339
	PageRequest
}

// LedgerPageResponse página de movimientos, del más reciente al más antiguo.
type LedgerPageResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ReconcileResponse salida de GET /api/ledger/reconcile.
type ReconcileResponse struct {
	VariantID          string `json:"variant_id"`
	WarehouseID        string `json:"warehouse_id"`
	Consistent         bool   `json:"consistent"`
	RecomputedQuantity int64  `json:"recomputed_quantity"`
	StoredQuantity     int64  `json:"stored_quantity"`
	EntryCount         int64  `json:"entry_count"`
	ChainBreaks        int64  `json:"chain_breaks"`
}
