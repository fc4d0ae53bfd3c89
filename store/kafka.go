package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Envelope wraps every record published to Kafka.
type Envelope struct {
	Type string            `json:"type"` // always "record"
	TS   int64             `json:"ts"`   // unix milli at publish time
	Data map[string]string `json:"data"` // column name -> value
}

// keyColumn is the index in Columns used as the message key.
const keyColumn = 1

// KafkaAppender publishes each record as an Envelope, keyed by item_id.
type KafkaAppender struct {
	topic string
	p     sarama.SyncProducer
}

// NewKafkaAppender connects a SyncProducer to brokers.
func NewKafkaAppender(brokers []string, topic string, cfg *sarama.Config) (*KafkaAppender, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is empty")
	}
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newKafkaAppender(topic, p), nil
}

func newKafkaAppender(topic string, p sarama.SyncProducer) *KafkaAppender {
	return &KafkaAppender{topic: topic, p: p}
}

// Append publishes one record and waits for the broker acknowledgement.
func (a *KafkaAppender) Append(_ context.Context, fields []string) error {
	if err := checkFields(fields); err != nil {
		return err
	}

	env := Envelope{
		Type: "record",
		TS:   time.Now().UnixMilli(),
		Data: make(map[string]string, len(Columns)),
	}
	for i, c := range Columns {
		env.Data[c] = fields[i]
	}

	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: a.topic,
		Key:   sarama.StringEncoder(fields[keyColumn]),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := a.p.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka publish failed: %w", err)
	}
	return nil
}

// Close closes the producer.
func (a *KafkaAppender) Close() error {
	if a.p != nil {
		return a.p.Close()
	}
	return nil
}
