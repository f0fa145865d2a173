// Package events publishes accepted votes to Kafka or the process log.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"pollpulse/internal/worker"
)

func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "pollpulse"

	return sarama.NewSyncProducer(brokers, config)
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish keys messages by room id so one room's votes stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, ev worker.VoteEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.RoomID),
		Value: sarama.ByteEncoder(raw),
	})
	return err
}

// Retryable reports whether a failed send may succeed on another attempt.
// Oversized or malformed messages and unknown topics never will.
func (p *KafkaPublisher) Retryable(err error) bool {
	var jsonErr *json.UnsupportedValueError
	switch {
	case errors.As(err, &jsonErr),
		errors.Is(err, sarama.ErrMessageSizeTooLarge),
		errors.Is(err, sarama.ErrInvalidMessage),
		errors.Is(err, sarama.ErrInvalidTopic),
		errors.Is(err, sarama.ErrTopicAuthorizationFailed):
		return false
	}
	return true
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, ev worker.VoteEvent) error {
	p.log.Info("vote event", "room_id", ev.RoomID, "option_index", ev.OptionIndex, "at", ev.At)
	return nil
}
