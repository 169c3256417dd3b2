package tracing

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	minervakafka "minerva/internal/adapters/kafka"
	"minerva/pkg/errors"
)

// KafkaSink publishes trace batches to a Kafka topic for external analytics
type KafkaSink struct {
	producer *minervakafka.Producer
	topic    string
}

// NewKafkaSink creates a new Kafka-backed trace sink
func NewKafkaSink(producer *minervakafka.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

// SendBatch publishes the batch keyed by root trace id, so all spans of one
// trace tree land in the same partition.
func (s *KafkaSink) SendBatch(ctx context.Context, records []Record) error {
	messages := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "marshal trace record")
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(rec.Context.RootTraceID),
			Value: data,
		})
	}

	return s.producer.PublishBatch(ctx, s.topic, messages)
}
