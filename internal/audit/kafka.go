package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vigorlog/internal/platform/kafka/producer"
)

// kafkaProducer is the producer surface the sink needs. Satisfied by both
// producer.Producer and producer.NoopProducer.
type kafkaProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes audit events to a Kafka topic, keyed by subject so a
// subject's trail lands in one partition in order. It implements Store;
// ListBySubject is not supported because Kafka is write-only from this side.
type KafkaSink struct {
	producer kafkaProducer
	topic    string
}

// NewKafkaSink constructs a Kafka-backed audit sink.
func NewKafkaSink(p kafkaProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

// eventJSON is the wire representation of an audit event.
type eventJSON struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	ActorID   string            `json:"actor_id,omitempty"`
	SubjectID string            `json:"subject_id"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(eventJSON{
		ID:        event.ID.String(),
		Action:    string(event.Action),
		ActorID:   event.ActorID,
		SubjectID: event.SubjectID,
		Timestamp: event.Timestamp,
		Metadata:  event.Metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.SubjectID),
		Value: payload,
		Headers: map[string]string{
			"action": string(event.Action),
		},
	})
}

// ListBySubject is unsupported on the Kafka sink; the trail is read from the
// durable store, not from the broker.
func (s *KafkaSink) ListBySubject(context.Context, string) ([]Event, error) {
	return nil, fmt.Errorf("kafka audit sink does not support listing")
}
