package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.App.StoreDriver)
	assert.Equal(t, "log", cfg.Alerts.Sink)
	assert.Equal(t, 3*time.Second, cfg.DB.LockTimeout)
	assert.Equal(t, 10*time.Second, cfg.Order.TxTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Alerts.KafkaBrokers)
	assert.Zero(t, cfg.Reconcile.Interval, "el job queda deshabilitado por defecto")
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ALERT_SINK", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("DB_LOCK_TIMEOUT", "1500")
	t.Setenv("ORDER_TX_TIMEOUT", "2s")
	t.Setenv("RECONCILE_INTERVAL", "5m")
	t.Setenv("ORDER_MAX_TX_RETRIES", "4")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.App.StoreDriver)
	assert.Equal(t, "kafka", cfg.Alerts.Sink)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Alerts.KafkaBrokers)
	assert.Equal(t, 1500*time.Millisecond, cfg.DB.LockTimeout, "un número se interpreta en milisegundos")
	assert.Equal(t, 2*time.Second, cfg.Order.TxTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Reconcile.Interval)
	assert.Equal(t, 4, cfg.Order.MaxTxRetries)
}

func TestLoad_Invalida(t *testing.T) {
	cases := map[string][2]string{
		"driver desconocido": {"STORE_DRIVER", "sqlite"},
		"sink desconocido":   {"ALERT_SINK", "sms"},
		"timeout cero":       {"ORDER_TX_TIMEOUT", "0"},
		"reintentos < 0":     {"STOCK_MAX_CONFLICT_RETRIES", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "stock", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/stock?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
