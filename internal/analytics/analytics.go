//go:generate mockgen -source ./analytics.go -destination=./mocks/analytics.go -package=mock_analytics
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event is a fire-and-forget record of one engine action. Delivery is
// best-effort; the engine never blocks on or fails with the sink.
type Event struct {
	Name    string            `json:"name"`
	OrderID string            `json:"order_id,omitempty"`
	At      time.Time         `json:"at"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Sink interface {
	Track(ctx context.Context, ev Event) error
	Close() error
}

// KafkaSink publishes events to a Kafka topic.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			WriteTimeout:           3 * time.Second,
		},
	}
}

func (s *KafkaSink) Track(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: value,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// ConsoleSink logs events locally. Used when no broker is configured.
type ConsoleSink struct{}

func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

func (s *ConsoleSink) Track(_ context.Context, ev Event) error {
	zap.S().Infow("analytics event", "name", ev.Name, "order_id", ev.OrderID, "fields", ev.Fields)
	return nil
}

func (s *ConsoleSink) Close() error {
	return nil
}
