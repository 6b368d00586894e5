package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger-api/internal/application/inventory"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

var _ inventory.AlertSink = (*KafkaSink)(nil)

// MessageWriter lo que el sink necesita de *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publica alertas en un topic; la llave es variante/bodega para conservar el orden por pareja.
type KafkaSink struct {
	w MessageWriter
}

// NewKafkaSink construye el writer hacia los brokers indicados.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

// NewKafkaSinkWithWriter permite inyectar el writer (tests).
func NewKafkaSinkWithWriter(w MessageWriter) *KafkaSink {
	return &KafkaSink{w: w}
}

// Notify escribe la alerta como JSON con el tipo en el header "alert-type".
func (s *KafkaSink) Notify(ctx context.Context, a entity.Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("serializar alerta: %w", err)
	}
	headers := []kafka.Header{{Key: "alert-type", Value: []byte(a.Type)}}
	for k, v := range traceHeaders(ctx) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	msg := kafka.Message{
		Key:     []byte(a.VariantID + "/" + a.WarehouseID),
		Value:   body,
		Headers: headers,
		Time:    a.OccurredAt,
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", a.Type, err)
	}
	return nil
}

// Close vacía y cierra el writer.
func (s *KafkaSink) Close() error {
	return s.w.Close()
}
