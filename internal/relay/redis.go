package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/scholar/internal/ir"
)

// DefaultStream is the Redis stream events go to when none is configured.
const DefaultStream = "scholar:events"

// streamAdder is the slice of *redis.Client the forwarder needs.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamForwarder appends every event to a Redis stream.
type RedisStreamForwarder struct {
	client streamAdder
	closer func() error
	stream string
	maxLen int64
}

// NewRedisStreamForwarder connects to the Redis server at url and checks
// the connection. maxLen caps the stream approximately; 0 means no cap.
func NewRedisStreamForwarder(ctx context.Context, url, stream string, maxLen int64) (*RedisStreamForwarder, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	f := newRedisStreamForwarder(client, stream, maxLen)
	f.closer = client.Close
	return f, nil
}

func newRedisStreamForwarder(client streamAdder, stream string, maxLen int64) *RedisStreamForwarder {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamForwarder{client: client, stream: stream, maxLen: maxLen}
}

// Handle appends ev to the stream.
func (f *RedisStreamForwarder) Handle(ctx context.Context, ev ir.Event) error {
	values, err := streamValues(ev)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: f.stream,
		Values: values,
	}
	if f.maxLen > 0 {
		args.MaxLen = f.maxLen
		args.Approx = true
	}
	if err := f.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", ev.ID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (f *RedisStreamForwarder) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer()
}

func streamValues(ev ir.Event) (map[string]any, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.ID, err)
	}
	return map[string]any{
		"id":           ev.ID,
		"aggregate_id": ev.AggregateID,
		"type":         string(ev.Type),
		"sequence":     ev.Metadata.Sequence,
		"event":        string(data),
	}, nil
}
