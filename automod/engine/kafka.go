package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guildwarden/warden/automod/casestore"

	"github.com/segmentio/kafka-go"
)

// Publishes every new case as a JSON event to a Kafka topic, keyed by subject user id so events for one user stay ordered.
type KafkaNotifier struct {
	writer *kafka.Writer
}

type CaseEvent struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	ModeratorID string    `json:"moderator_id"`
	Action      string    `json:"action"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (n *KafkaNotifier) Name() string {
	return "kafka"
}

func (n *KafkaNotifier) SendCase(ctx context.Context, c casestore.Case) error {
	evt := CaseEvent{
		ID:          c.ID,
		UserID:      c.SubjectID,
		ModeratorID: c.ActorID,
		Action:      c.Action,
		Reason:      c.Reason,
		Timestamp:   c.CreatedAt,
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(c.SubjectID),
		Value: b,
		Time:  c.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("publishing case %d: %w", c.ID, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
