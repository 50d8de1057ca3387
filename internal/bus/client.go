// Package bus implements the async consumer and event emitter from
// spec.md §4.13: consuming optimization.requested off a message bus,
// driving the engine, persisting the result, and publishing
// optimization.started/progress/completed/failed and
// plan.status.updated.
//
// Grounded on features/stream/pulse/clients/pulse.Client's layering: a
// thin wrapper around a Redis connection exposing only the Pulse stream
// operations a caller needs (Add, NewSink), trimmed from the teacher's
// generic multi-stream registry settings to the two streams this domain
// uses.
package bus

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"
)

// StreamRequests is the inbound stream carrying optimization.requested
// messages, per spec.md §6.
const StreamRequests = "optimization.requests"

// StreamEvents is the outbound stream carrying
// optimization.started/progress/completed/failed and
// plan.status.updated events.
const StreamEvents = "optimization.events"

// Stream exposes the Pulse operations the consumer and emitter need.
type Stream interface {
	Add(ctx context.Context, event string, payload []byte) (string, error)
	NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (Sink, error)
}

// Sink mirrors a Pulse consumer group.
type Sink interface {
	Subscribe() <-chan *streaming.Event
	Ack(ctx context.Context, evt *streaming.Event) error
	Close(ctx context.Context)
}

// Client opens named Pulse streams backed by a Redis connection.
type Client interface {
	Stream(name string, opts ...streamopts.Stream) (Stream, error)
}

type redisClient struct {
	redis *redis.Client
	opts  ClientOptions
}

// ClientOptions configures the Redis-backed Pulse client.
type ClientOptions struct {
	// StreamMaxLen bounds how many entries Pulse retains per stream. Zero
	// uses Pulse's own default.
	StreamMaxLen int
	// OperationTimeout bounds individual Add/NewSink calls. Zero means no
	// timeout beyond the caller's context.
	OperationTimeout time.Duration
}

// NewClient wraps a Redis connection as a bus Client.
func NewClient(rdb *redis.Client, opts ClientOptions) (Client, error) {
	if rdb == nil {
		return nil, errors.New("bus: redis client is required")
	}
	return &redisClient{redis: rdb, opts: opts}, nil
}

func (c *redisClient) Stream(name string, opts ...streamopts.Stream) (Stream, error) {
	if name == "" {
		return nil, errors.New("bus: stream name is required")
	}
	var streamOpts []streamopts.Stream
	if c.opts.StreamMaxLen > 0 {
		streamOpts = append(streamOpts, streamopts.WithStreamMaxLen(c.opts.StreamMaxLen))
	}
	streamOpts = append(streamOpts, opts...)
	str, err := streaming.NewStream(name, c.redis, streamOpts...)
	if err != nil {
		return nil, err
	}
	return &redisStream{stream: str, timeout: c.opts.OperationTimeout}, nil
}

type redisStream struct {
	stream  *streaming.Stream
	timeout time.Duration
}

func (s *redisStream) Add(ctx context.Context, event string, payload []byte) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.stream.Add(ctx, event, payload)
}

func (s *redisStream) NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (Sink, error) {
	sink, err := s.stream.NewSink(ctx, name, opts...)
	if err != nil {
		return nil, err
	}
	return &sinkAdapter{Sink: sink}, nil
}

// sinkAdapter adapts *streaming.Sink's Close(ctx) error to this package's
// Sink.Close(ctx) (no return value), since callers here always log-and-
// continue on a close failure rather than propagate it.
type sinkAdapter struct {
	*streaming.Sink
}

func (s sinkAdapter) Close(ctx context.Context) {
	s.Sink.Close(ctx)
}
