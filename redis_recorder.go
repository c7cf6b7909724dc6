package callmon

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultRedisPrefix = "callmon"

// RedisRecorder forwards events to Redis: counters as INCRBY on the metric
// key, timers and audit entries as stream entries. Writes are best-effort;
// failures are logged at debug level and never surfaced to the caller.
type RedisRecorder struct {
	client redis.UniversalClient
	prefix string
	logger zerolog.Logger
}

// RedisRecorderOption is a functional option for the RedisRecorder.
type RedisRecorderOption func(*RedisRecorder)

// WithRedisPrefix overrides the key prefix. Defaults to "callmon".
func WithRedisPrefix(prefix string) RedisRecorderOption {
	return func(r *RedisRecorder) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisLogger sets the logger for failed writes.
func WithRedisLogger(logger zerolog.Logger) RedisRecorderOption {
	return func(r *RedisRecorder) { r.logger = logger }
}

// NewRedisRecorder creates a RedisRecorder on the given client.
func NewRedisRecorder(client redis.UniversalClient, opts ...RedisRecorderOption) *RedisRecorder {
	r := &RedisRecorder{
		client: client,
		prefix: defaultRedisPrefix,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CounterKey returns the Redis key a counter metric increments.
func (r *RedisRecorder) CounterKey(metric string) string {
	return r.prefix + ":counter:" + metric
}

// TimingStream returns the stream timer events are appended to.
func (r *RedisRecorder) TimingStream() string { return r.prefix + ":timings" }

// AuditStream returns the stream audit events are appended to.
func (r *RedisRecorder) AuditStream() string { return r.prefix + ":audit" }

// Record implements EventRecorder.
func (r *RedisRecorder) Record(ctx context.Context, event Event) {
	var err error
	switch ev := event.(type) {
	case CounterEvent:
		err = r.client.IncrBy(ctx, r.CounterKey(ev.Metric), 1).Err()
	case TimerEvent:
		err = r.client.XAdd(ctx, &redis.XAddArgs{
			Stream: r.TimingStream(),
			Values: map[string]any{
				"source":      ev.Source,
				"metric":      ev.Metric,
				"duration_us": ev.Duration.Microseconds(),
			},
		}).Err()
	case AuditEvent:
		var payload []byte
		payload, err = sonic.Marshal(auditPayload{Tags: ev.Tags, Data: ev.Data})
		if err != nil {
			break
		}
		err = r.client.XAdd(ctx, &redis.XAddArgs{
			Stream: r.AuditStream(),
			Values: map[string]any{
				"source":    ev.Source,
				"component": ev.Component,
				"payload":   string(payload),
			},
		}).Err()
	}
	if err != nil {
		r.logger.Debug().Err(err).Msg("redis event write failed")
	}
}
