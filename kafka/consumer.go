package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"transaction-svc/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PaymentApplier applies an external payment outcome to a transaction.
type PaymentApplier interface {
	ApplyPaymentEvent(ctx context.Context, transactionID int, success bool) error
}

func InitConsumer(broker string, logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer([]string{broker}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized")
	return consumer, nil
}

func StartConsumer(consumer sarama.Consumer, topic string, applier PaymentApplier, logger *zap.Logger) error {
	partitionConsumer, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	logger.Info("Kafka consumer started", zap.String("topic", topic))

	for {
		select {
		case message := <-partitionConsumer.Messages():
			if err := handleMessage(message, applier, logger); err != nil {
				logger.Error("Failed to handle message", zap.Error(err))
			}
		case err := <-partitionConsumer.Errors():
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

func handleMessage(message *sarama.ConsumerMessage, applier PaymentApplier, logger *zap.Logger) error {
	// Continue the trace started by whoever published the event.
	propagator := otel.GetTextMapPropagator()
	carrier := saramaHeaderCarrierConsumer(message.Headers)
	ctx := propagator.Extract(context.Background(), carrier)

	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "ProcessTransactionEvent")
	defer span.End()

	var event models.TransactionEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.Int("transaction.id", event.TransactionID),
	)

	logger.Info("Received event",
		zap.String("event_type", event.EventType),
		zap.Int("transaction_id", event.TransactionID),
	)

	switch event.EventType {
	case "payment_success":
		if err := applier.ApplyPaymentEvent(ctx, event.TransactionID, true); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to apply payment success: %w", err)
		}
	case "payment_failed":
		if err := applier.ApplyPaymentEvent(ctx, event.TransactionID, false); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to apply payment failure: %w", err)
		}
	}

	return nil
}

// saramaHeaderCarrierConsumer implements the TextMapCarrier interface for Kafka headers (for consumer)
type saramaHeaderCarrierConsumer []*sarama.RecordHeader

func (c saramaHeaderCarrierConsumer) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c saramaHeaderCarrierConsumer) Set(key, value string) {
	// Not needed for extraction
}

func (c saramaHeaderCarrierConsumer) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
