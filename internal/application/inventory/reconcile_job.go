package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReconcileJob ejecuta ReconcileAll periódicamente hasta que se cancele el contexto.
type ReconcileJob struct {
	reconciler *Reconciler
	interval   time.Duration
	log        zerolog.Logger
}

// NewReconcileJob construye el job. interval <= 0 lo deshabilita.
func NewReconcileJob(reconciler *Reconciler, interval time.Duration, log zerolog.Logger) *ReconcileJob {
	return &ReconcileJob{reconciler: reconciler, interval: interval, log: log}
}

// Start bloquea hasta que ctx se cancele; llamar en una goroutine.
func (j *ReconcileJob) Start(ctx context.Context) {
	if j.interval <= 0 {
		j.log.Info().Msg("job de reconciliación deshabilitado")
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce ejecuta una corrida y registra el resultado.
func (j *ReconcileJob) RunOnce(ctx context.Context) {
	report, err := j.reconciler.ReconcileAll(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("reconciliación programada falló")
		return
	}
	j.log.Info().
		Int("checked", report.Checked).
		Int("inconsistent", len(report.Inconsistent)).
		Int("failed", len(report.Failed)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("reconciliación programada finalizada")
}
