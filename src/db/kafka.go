package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"wheelofmeals/src/types"
)

// MessageWriter is the subset of *kafka.Writer the sink needs, so tests can fake it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every pick as a JSON event keyed by user.
type KafkaSink struct {
	writer MessageWriter
}

func NewKafkaSink(broker, topic string) *KafkaSink {
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		// One pick per request; do not wait for a batch to fill.
		BatchTimeout:           10 * time.Millisecond,
	})
}

func NewKafkaSinkWithWriter(w MessageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

func (k *KafkaSink) SavePick(ctx context.Context, pick types.Pick) error {
	value, err := json.Marshal(pick)
	if err != nil {
		return fmt.Errorf("encode pick event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(pick.User),
		Value: value,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(pick.Reason)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish pick %s: %w", pick.ID, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
