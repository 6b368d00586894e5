package alerting_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/alerting"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleAlert() entity.Alert {
	return entity.Alert{
		Type:         entity.AlertLowStock,
		VariantID:    "v-1",
		WarehouseID:  "w-1",
		Quantity:     2,
		MinimumStock: 5,
		MovementID:   42,
		OccurredAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaSink_PublicaConLlaveYHeader(t *testing.T) {
	w := &fakeWriter{}
	sink := alerting.NewKafkaSinkWithWriter(w)

	require.NoError(t, sink.Notify(context.Background(), sampleAlert()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "v-1/w-1", string(msg.Key), "la llave conserva el orden por pareja")
	require.NotEmpty(t, msg.Headers)
	assert.Equal(t, "alert-type", msg.Headers[0].Key)
	assert.Equal(t, "low_stock", string(msg.Headers[0].Value))

	var got entity.Alert
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, sampleAlert(), got)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_ErrorDeEscritura(t *testing.T) {
	sink := alerting.NewKafkaSinkWithWriter(&fakeWriter{err: errors.New("broker caído")})
	err := sink.Notify(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "low_stock")
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	sent       []published
	closed     bool
	publishErr error
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.closed {
		return amqp.ErrClosed
	}
	if c.publishErr != nil {
		return c.publishErr
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) IsClosed() bool { return c.closed }

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

// opener entrega un canal nuevo por cada conexión y cuenta los cierres de conexión.
type opener struct {
	channels    []*fakeChannel
	connsClosed int
	fail        error
}

func (o *opener) open() (alerting.AMQPChannel, func() error, error) {
	if o.fail != nil {
		return nil, nil, o.fail
	}
	ch := &fakeChannel{}
	o.channels = append(o.channels, ch)
	return ch, func() error { o.connsClosed++; return nil }, nil
}

func TestRabbitSink_PublicaEnExchangeTopic(t *testing.T) {
	o := &opener{}
	sink, err := alerting.NewRabbitSinkWithOpener(o.open, "inventory.alerts")
	require.NoError(t, err)
	require.Len(t, o.channels, 1)
	assert.Equal(t, []string{"inventory.alerts:topic"}, o.channels[0].declared)

	require.NoError(t, sink.Notify(context.Background(), sampleAlert()))
	require.Len(t, o.channels[0].sent, 1)
	p := o.channels[0].sent[0]
	assert.Equal(t, "inventory.alerts", p.exchange)
	assert.Equal(t, "stock.low_stock", p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)

	var got entity.Alert
	require.NoError(t, json.Unmarshal(p.msg.Body, &got))
	assert.Equal(t, sampleAlert(), got)

	require.NoError(t, sink.Close())
	assert.True(t, o.channels[0].closed)
	assert.Equal(t, 1, o.connsClosed)
}

func TestRabbitSink_ReconectaTrasCierreDelCanal(t *testing.T) {
	o := &opener{}
	sink, err := alerting.NewRabbitSinkWithOpener(o.open, "inventory.alerts")
	require.NoError(t, err)

	// El broker reinicia: el canal queda cerrado.
	o.channels[0].closed = true
	require.NoError(t, sink.Notify(context.Background(), sampleAlert()))
	require.Len(t, o.channels, 2, "abre un canal nuevo")
	assert.Len(t, o.channels[1].sent, 1)
	assert.Equal(t, []string{"inventory.alerts:topic"}, o.channels[1].declared, "vuelve a declarar el exchange")
	assert.Equal(t, 1, o.connsClosed, "libera la conexión anterior")
}

func TestRabbitSink_BrokerInaccesible(t *testing.T) {
	o := &opener{}
	sink, err := alerting.NewRabbitSinkWithOpener(o.open, "inventory.alerts")
	require.NoError(t, err)

	o.channels[0].closed = true
	o.fail = errors.New("connection refused")
	err = sink.Notify(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	// Cuando el broker vuelve, el siguiente envío funciona.
	o.fail = nil
	require.NoError(t, sink.Notify(context.Background(), sampleAlert()))
	assert.Len(t, o.channels[1].sent, 1)
}

func TestRabbitSink_ErrorDePublicacionNoReconecta(t *testing.T) {
	o := &opener{}
	sink, err := alerting.NewRabbitSinkWithOpener(o.open, "inventory.alerts")
	require.NoError(t, err)

	o.channels[0].publishErr = errors.New("exchange no encontrado")
	err = sink.Notify(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stock.low_stock")
	assert.Len(t, o.channels, 1)
}

func TestLogSink_NivelSegunTipo(t *testing.T) {
	var buf bytes.Buffer
	sink := alerting.NewLogSink(zerolog.New(&buf))

	require.NoError(t, sink.Notify(context.Background(), sampleAlert()))
	a := sampleAlert()
	a.Type = entity.AlertIntegrityViolation
	require.NoError(t, sink.Notify(context.Background(), a))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "warn", first["level"])
	assert.Equal(t, "low_stock", first["alert"])
	assert.Equal(t, "error", second["level"])
}
