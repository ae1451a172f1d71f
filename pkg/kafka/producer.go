package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// HeaderTraceParent carries the W3C trace context of the publishing request
const HeaderTraceParent = "traceparent"

// Writer is the part of kafka.Writer the producer uses
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles Kafka event emission
type Producer struct {
	writer Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// Message is one event to publish. Value is JSON encoded.
type Message struct {
	Key       string
	EventType string
	Value     any
	Headers   map[string]string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, cfg.Topic, logger)
}

// NewProducerWithWriter creates a producer over an existing writer
func NewProducerWithWriter(writer Writer, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

// Topic returns the output topic
func (p *Producer) Topic() string {
	return p.topic
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish writes messages to the output topic in one batch
func (p *Producer) Publish(ctx context.Context, messages ...Message) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish")
	defer span.End()

	if len(messages) == 0 {
		return nil
	}

	kmsgs, err := p.encode(ctx, messages)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kmsgs...)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordKafkaPublish(p.topic, "error", duration)
		tracing.RecordError(span, err)
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(messages),
			"topic":      p.topic,
		}).Error("Failed to publish events batch")
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	metrics.RecordKafkaPublish(p.topic, "success", duration)

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(messages),
		"topic":      p.topic,
	}).Debug("Published events batch")

	return nil
}

func (p *Producer) encode(ctx context.Context, messages []Message) ([]kafka.Message, error) {
	traceParent := tracing.GetTraceParent(ctx)

	kmsgs := make([]kafka.Message, len(messages))
	for i, m := range messages {
		data, err := json.Marshal(m.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s event: %w", m.EventType, err)
		}

		headers := []kafka.Header{{Key: "event_type", Value: []byte(m.EventType)}}
		if traceParent != "" {
			headers = append(headers, kafka.Header{Key: HeaderTraceParent, Value: []byte(traceParent)})
		}
		for k, v := range m.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}

		kmsgs[i] = kafka.Message{
			Topic:   p.topic,
			Key:     []byte(m.Key),
			Value:   data,
			Headers: headers,
		}
	}
	return kmsgs, nil
}
