package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/roach88/scholar/internal/ir"
)

// Record header keys.
const (
	HeaderEventType = "event-type"
	HeaderEventID   = "event-id"
	HeaderBatch     = "batch"
)

// producer is the slice of *kgo.Client the forwarder needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaForwarder produces every event to one topic, keyed by aggregate id
// so a researcher's events stay ordered within a partition.
type KafkaForwarder struct {
	client producer
	topic  string
}

// NewKafkaForwarder creates a franz-go client for brokers. The client
// connects lazily on first produce.
func NewKafkaForwarder(brokers []string, topic string, opts ...kgo.Opt) (*KafkaForwarder, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka forwarder: at least one broker required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka forwarder: topic required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("kafka forwarder: %w", err)
	}
	return &KafkaForwarder{client: client, topic: topic}, nil
}

// Handle produces ev and waits for the broker acknowledgement.
func (f *KafkaForwarder) Handle(ctx context.Context, ev ir.Event) error {
	rec, err := NewRecord(f.topic, ev)
	if err != nil {
		return err
	}
	if err := f.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", ev.ID, err)
	}
	return nil
}

// Close closes the client.
func (f *KafkaForwarder) Close() {
	f.client.Close()
}

// NewRecord renders ev as a Kafka record: key = aggregate id, value = event
// JSON, headers = type, id and batch.
func NewRecord(topic string, ev ir.Event) (*kgo.Record, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.ID, err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(ev.AggregateID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderEventType, Value: []byte(ev.Type)},
			{Key: HeaderEventID, Value: []byte(ev.ID)},
			{Key: HeaderBatch, Value: []byte(ev.Metadata.Batch)},
		},
	}, nil
}
