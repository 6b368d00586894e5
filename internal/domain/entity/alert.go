package entity

import "time"

// Tipos de alerta enviados al sink de notificaciones.
const (
	AlertLowStock           = "low_stock"
	AlertIntegrityViolation = "integrity_violation"
)

// Alert evento para el sistema de alertas externo. Su envío nunca bloquea ni revierte una mutación.
type Alert struct {
	Type               string    `json:"type"`
	VariantID          string    `json:"variant_id"`
	WarehouseID        string    `json:"warehouse_id"`
	Quantity           int64     `json:"quantity"`
	MinimumStock       int64     `json:"minimum_stock,omitempty"`
	RecomputedQuantity int64     `json:"recomputed_quantity,omitempty"`
	MovementID         int64     `json:"movement_id,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// RoutingKey llave de enrutamiento/tópico para el broker (p. ej. "stock.low_stock").
func (a Alert) RoutingKey() string {
	return "stock." + a.Type
}
