package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// KafkaWriter is the subset of *kafka.Writer used by KafkaSink.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes alerts to a Kafka topic, keyed by metric name.
type KafkaSink struct {
	writer KafkaWriter
}

// KafkaSinkOption configures a KafkaSink.
type KafkaSinkOption func(*KafkaSink)

// WithKafkaWriter sets a custom writer (useful for testing).
func WithKafkaWriter(w KafkaWriter) KafkaSinkOption {
	return func(s *KafkaSink) { s.writer = w }
}

// NewKafkaSink creates a new Kafka alert sink.
func NewKafkaSink(brokers []string, topic string, opts ...KafkaSinkOption) (*KafkaSink, error) {
	s := &KafkaSink{}
	for _, o := range opts {
		o(s)
	}
	if s.writer != nil {
		return s, nil
	}

	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	s.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return s, nil
}

// Name returns the sink identifier.
func (s *KafkaSink) Name() string { return "kafka" }

// Send writes the alert record as a single message.
func (s *KafkaSink) Send(ctx context.Context, alert types.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshaling alert: %w", err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.Sample.Metric),
		Value: data,
		Time:  alert.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("writing alert to kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
