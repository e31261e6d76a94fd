package kafka_client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/instalens/config"
)

type ConsumerFunc func(context.Context, *kafka.Consumer)

// ConsumerRegistry maps a topic to the loop that consumes it.
type ConsumerRegistry struct {
	consumers map[string]ConsumerFunc
}

func NewConsumerRegistry() *ConsumerRegistry {
	return &ConsumerRegistry{consumers: make(map[string]ConsumerFunc)}
}

func (r *ConsumerRegistry) Register(topic string, fn ConsumerFunc) {
	r.consumers[topic] = fn
}

func (r *ConsumerRegistry) Lookup(topic string) (ConsumerFunc, bool) {
	fn, ok := r.consumers[topic]
	return fn, ok
}

// Start subscribes to topic and runs its registered loop until ctx ends.
func (r *ConsumerRegistry) Start(ctx context.Context, cfg config.KafkaConfig, topic string) error {
	consumerFunc, exists := r.Lookup(topic)
	if !exists {
		return fmt.Errorf("[ConsumerFactory] No consumer found for topic: %s", topic)
	}

	consumer, err := NewConsumer(cfg, topic)
	if err != nil {
		return fmt.Errorf("[ConsumerFactory] Failed to initialize Kafka consumer: %w", err)
	}
	defer consumer.Close()

	slog.Info("[ConsumerFactory] Starting consumer for topic...", slog.String("topic", topic))
	consumerFunc(ctx, consumer)

	return nil
}
