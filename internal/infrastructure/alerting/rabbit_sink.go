package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

var _ inventory.AlertSink = (*RabbitSink)(nil)

// AMQPChannel lo que el sink necesita de *amqp.Channel.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// ChannelOpener abre conexión y canal; closeConn libera la conexión.
type ChannelOpener func() (ch AMQPChannel, closeConn func() error, err error)

// RabbitSink publica alertas en un exchange topic con routing key stock.<tipo>.
// Si el broker cierra el canal, el siguiente Notify reconecta.
type RabbitSink struct {
	open      ChannelOpener
	exchange  string
	mu        sync.Mutex
	ch        AMQPChannel
	closeConn func() error
}

// NewRabbitSink conecta y declara el exchange (durable).
func NewRabbitSink(url, exchange string) (*RabbitSink, error) {
	return NewRabbitSinkWithOpener(dialer(url), exchange)
}

// NewRabbitSinkWithOpener permite inyectar el canal (tests).
func NewRabbitSinkWithOpener(open ChannelOpener, exchange string) (*RabbitSink, error) {
	s := &RabbitSink{open: open, exchange: exchange}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func dialer(url string) ChannelOpener {
	return func() (AMQPChannel, func() error, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
		}
		return ch, conn.Close, nil
	}
}

// connect descarta el canal anterior, abre uno nuevo y declara el exchange. Requiere mu.
func (s *RabbitSink) connect() error {
	_ = s.release()
	ch, closeConn, err := s.open()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return fmt.Errorf("rabbitmq exchange %s: %w", s.exchange, err)
	}
	s.ch, s.closeConn = ch, closeConn
	return nil
}

func (s *RabbitSink) release() error {
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
	var err error
	if s.closeConn != nil {
		err = s.closeConn()
		s.closeConn = nil
	}
	return err
}

// Notify publica la alerta como JSON persistente. Un canal cerrado se reabre y se reintenta una vez.
func (s *RabbitSink) Notify(ctx context.Context, a entity.Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("serializar alerta: %w", err)
	}
	headers := amqp.Table{}
	for k, v := range traceHeaders(ctx) {
		headers[k] = v
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    a.OccurredAt,
		Headers:      headers,
		Body:         body,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil || s.ch.IsClosed() {
		if err := s.connect(); err != nil {
			return fmt.Errorf("rabbitmq reconectar: %w", err)
		}
	}
	err = s.ch.PublishWithContext(ctx, s.exchange, a.RoutingKey(), false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		if cerr := s.connect(); cerr != nil {
			return fmt.Errorf("rabbitmq reconectar: %w", cerr)
		}
		err = s.ch.PublishWithContext(ctx, s.exchange, a.RoutingKey(), false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", a.RoutingKey(), err)
	}
	return nil
}

// Close cierra canal y conexión.
func (s *RabbitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release()
}
