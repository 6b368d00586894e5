package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

const defaultAlertTimeout = 5 * time.Second

// AlertDispatcher envía alertas en segundo plano, fuera de la transacción que las originó.
// Un sink lento o caído nunca bloquea ni revierte la operación de inventario.
type AlertDispatcher struct {
	sink    AlertSink
	log     zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAlertDispatcher construye el despachador. sink puede ser nil (alertas deshabilitadas).
func NewAlertDispatcher(sink AlertSink, log zerolog.Logger) *AlertDispatcher {
	return &AlertDispatcher{sink: sink, log: log, timeout: defaultAlertTimeout}
}

// Dispatch notifica la alerta de forma asíncrona.
func (d *AlertDispatcher) Dispatch(ctx context.Context, alert entity.Alert) {
	if d == nil || d.sink == nil {
		return
	}
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = time.Now().UTC()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.sink.Notify(nctx, alert); err != nil {
			d.log.Warn().Err(err).
				Str("alert", alert.Type).
				Str("variant_id", alert.VariantID).
				Str("warehouse_id", alert.WarehouseID).
				Msg("no se pudo enviar la alerta")
		}
	}()
}

// Wait espera a que terminen los envíos en curso (apagado ordenado).
func (d *AlertDispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
