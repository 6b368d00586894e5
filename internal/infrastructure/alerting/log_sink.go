// Package alerting implementa los destinos de alertas de inventario (log, RabbitMQ, Kafka).
package alerting

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

var _ inventory.AlertSink = (*LogSink)(nil)

// LogSink escribe la alerta en el log estructurado. Es el destino por defecto (ALERT_SINK=log).
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink construye el sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Notify nunca falla.
func (s *LogSink) Notify(_ context.Context, a entity.Alert) error {
	ev := s.log.Warn()
	if a.Type == entity.AlertIntegrityViolation {
		ev = s.log.Error()
	}
	ev.Str("alert", a.Type).
		Str("variant_id", a.VariantID).
		Str("warehouse_id", a.WarehouseID).
		Int64("quantity", a.Quantity).
		Int64("minimum_stock", a.MinimumStock).
		Int64("recomputed_quantity", a.RecomputedQuantity).
		Int64("movement_id", a.MovementID).
		Time("occurred_at", a.OccurredAt).
		Msg("alerta de inventario")
	return nil
}
