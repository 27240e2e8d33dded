package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/pkg/logger"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Notifier receives stock events after the write that produced them has
// committed. Implementations must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, event model.StockEvent)
}

// Fanout delivers each event to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event model.StockEvent) {
	for _, n := range f {
		n.Notify(ctx, event)
	}
}

// Publisher writes stock events to a Kafka topic.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects a synchronous Kafka producer.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer, topic), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Publish sends the event keyed by product id so that events of one product
// keep their order within a partition.
func (p *Publisher) Publish(ctx context.Context, event model.StockEvent) error {
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish."+event.Action,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("event.type", event.Type),
			attribute.String("event.action", event.Action),
			attribute.String("product.id", event.ProductID.String()),
			attribute.Int("product.new_stock", event.NewStock),
		),
	)
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("event_action"), Value: []byte(event.Action)},
	}
	for key, value := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(event.ProductID.String()),
		Value:   sarama.ByteEncoder(payload),
		Headers: headers,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "Event published")

	logger.Debug(ctx).
		Str("topic", p.topic).
		Str("action", event.Action).
		Str("product_id", event.ProductID.String()).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Stock event published")
	return nil
}

// Notify publishes and logs failures. The ledger write is already committed
// at this point.
func (p *Publisher) Notify(ctx context.Context, event model.StockEvent) {
	if err := p.Publish(ctx, event); err != nil {
		logger.Error(ctx).
			Err(err).
			Str("topic", p.topic).
			Str("action", event.Action).
			Str("product_id", event.ProductID.String()).
			Msg("Failed to publish stock event")
	}
}

func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
