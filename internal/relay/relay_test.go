package relay

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/roach88/scholar/internal/ir"
)

func testEvent() ir.Event {
	return ir.Event{
		ID:          ir.MustEventID("2-alice-smith", ir.ResearcherFound, 0),
		AggregateID: "2-alice-smith",
		Type:        ir.ResearcherFound,
		Payload:     ir.FoundPayload{Identifier: ir.Identifier{Type: ir.FieldGithub, Value: "alicedev"}},
		Metadata: ir.Metadata{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Sequence:  0,
			Batch:     "batch-1",
		},
	}
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (p *fakeProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var results kgo.ProduceResults
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func (p *fakeProducer) Close() { p.closed = true }

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNewRecord(t *testing.T) {
	ev := testEvent()
	rec, err := NewRecord("scholar.events", ev)
	require.NoError(t, err)

	assert.Equal(t, "scholar.events", rec.Topic)
	assert.Equal(t, "2-alice-smith", string(rec.Key))
	assert.Equal(t, "RESEARCHER_FOUND", header(rec, HeaderEventType))
	assert.Equal(t, ev.ID, header(rec, HeaderEventID))
	assert.Equal(t, "batch-1", header(rec, HeaderBatch))

	var decoded ir.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, ev.Payload, decoded.Payload)
}

func TestKafkaForwarderHandle(t *testing.T) {
	p := &fakeProducer{}
	f := &KafkaForwarder{client: p, topic: "scholar.events"}

	require.NoError(t, f.Handle(context.Background(), testEvent()))
	require.Len(t, p.records, 1)
	assert.Equal(t, "2-alice-smith", string(p.records[0].Key))

	f.Close()
	assert.True(t, p.closed)
}

func TestKafkaForwarderPropagatesProduceError(t *testing.T) {
	boom := errors.New("broker unavailable")
	f := &KafkaForwarder{client: &fakeProducer{err: boom}, topic: "t"}

	assert.ErrorIs(t, f.Handle(context.Background(), testEvent()), boom)
}

func TestNewKafkaForwarderValidates(t *testing.T) {
	_, err := NewKafkaForwarder(nil, "t")
	assert.Error(t, err)

	_, err = NewKafkaForwarder([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}

// Runs against a real broker when SCHOLAR_TEST_KAFKA_BROKERS is set.
func TestKafkaForwarderIntegration(t *testing.T) {
	brokers := os.Getenv("SCHOLAR_TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("SCHOLAR_TEST_KAFKA_BROKERS not set")
	}
	f, err := NewKafkaForwarder(strings.Split(brokers, ","), "scholar-test-events",
		kgo.AllowAutoTopicCreation(),
	)
	require.NoError(t, err)
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, f.Handle(ctx, testEvent()))
}

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (s *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	s.args = append(s.args, a)
	return redis.NewStringResult("1-0", s.err)
}

func TestRedisStreamForwarderHandle(t *testing.T) {
	s := &fakeStream{}
	f := newRedisStreamForwarder(s, "", 1000)

	require.NoError(t, f.Handle(context.Background(), testEvent()))
	require.Len(t, s.args, 1)

	args := s.args[0]
	assert.Equal(t, DefaultStream, args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]any)
	assert.ElementsMatch(t, []string{"id", "aggregate_id", "type", "sequence", "event"}, mapKeys(values))
	assert.Equal(t, ir.MustEventID("2-alice-smith", ir.ResearcherFound, 0), values["id"])
	assert.Equal(t, "2-alice-smith", values["aggregate_id"])
	assert.Equal(t, "RESEARCHER_FOUND", values["type"])
	assert.Equal(t, int64(0), values["sequence"])
	assert.Contains(t, values["event"], `"aggregateId":"2-alice-smith"`)

	assert.NoError(t, f.Close())
}

func TestRedisStreamForwarderCarriesSequence(t *testing.T) {
	s := &fakeStream{}
	f := newRedisStreamForwarder(s, "s", 0)

	ev := testEvent()
	ev.Metadata.Sequence = 7
	ev.ID = ir.MustEventID(ev.AggregateID, ev.Type, 7)
	require.NoError(t, f.Handle(context.Background(), ev))

	values := s.args[0].Values.(map[string]any)
	assert.Equal(t, int64(7), values["sequence"])
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestRedisStreamForwarderUncapped(t *testing.T) {
	s := &fakeStream{}
	f := newRedisStreamForwarder(s, "custom", 0)

	require.NoError(t, f.Handle(context.Background(), testEvent()))
	assert.Equal(t, "custom", s.args[0].Stream)
	assert.Zero(t, s.args[0].MaxLen)
	assert.False(t, s.args[0].Approx)
}

func TestRedisStreamForwarderPropagatesError(t *testing.T) {
	boom := errors.New("READONLY")
	f := newRedisStreamForwarder(&fakeStream{err: boom}, "s", 0)

	assert.ErrorIs(t, f.Handle(context.Background(), testEvent()), boom)
}

func TestNewRedisStreamForwarderBadURL(t *testing.T) {
	_, err := NewRedisStreamForwarder(context.Background(), "not-a-url", "", 0)
	assert.Error(t, err)
}
