package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"fleet-analytics-service/internal/domain"
)

// KafkaPublisher publishes assignment events keyed by vehicle id, so events for
// one vehicle stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(brokers, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true // required by SyncProducer
	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 10 * time.Second
	cfg.Net.WriteTimeout = 10 * time.Second

	list := splitBrokers(brokers)
	if len(list) == 0 {
		return nil, errors.New("kafka publisher: no brokers configured")
	}

	producer, err := sarama.NewSyncProducer(list, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: create producer: %w", err)
	}

	if logger != nil {
		logger.Info("kafka producer ready", "brokers", list, "topic", topic)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (k *KafkaPublisher) PublishAssignment(ctx context.Context, event domain.AssignmentEvent) error {
	if k.producer == nil {
		return errors.New("publish assignment: producer is not initialized")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish assignment: encode: %w", err)
	}

	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.VehicleID),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return fmt.Errorf("publish assignment: vehicle %s: %w", event.VehicleID, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
