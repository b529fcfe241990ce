package remarketing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	registryKeyPrefix = "plena:remarketing:"
	registryTTL       = 30 * 24 * time.Hour
)

// RedisRegistry stores entries as JSON under one key per phone.
type RedisRegistry struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewRedisRegistry(client *redis.Client, tracer trace.Tracer) *RedisRegistry {
	if client == nil {
		panic("remarketing: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("plena.internal.remarketing.registry")
	}
	return &RedisRegistry{redis: client, tracer: tracer}
}

func (r *RedisRegistry) Put(ctx context.Context, e Entry) error {
	ctx, span := r.tracer.Start(ctx, "remarketing.put_entry")
	defer span.End()

	data, err := json.Marshal(e)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("remarketing: failed to marshal entry: %w", err)
	}
	if err := r.redis.Set(ctx, registryKey(e.Phone), data, registryTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("remarketing: failed to persist entry: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, phone string) (Entry, error) {
	ctx, span := r.tracer.Start(ctx, "remarketing.get_entry")
	defer span.End()
	return r.decode(span, r.redis.Get(ctx, registryKey(phone)))
}

func (r *RedisRegistry) Take(ctx context.Context, phone string) (Entry, error) {
	ctx, span := r.tracer.Start(ctx, "remarketing.take_entry")
	defer span.End()
	return r.decode(span, r.redis.GetDel(ctx, registryKey(phone)))
}

func (r *RedisRegistry) Delete(ctx context.Context, phone string) error {
	ctx, span := r.tracer.Start(ctx, "remarketing.delete_entry")
	defer span.End()

	if err := r.redis.Del(ctx, registryKey(phone)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("remarketing: failed to delete entry: %w", err)
	}
	return nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]Entry, error) {
	ctx, span := r.tracer.Start(ctx, "remarketing.list_entries")
	defer span.End()

	var out []Entry
	iter := r.redis.Scan(ctx, 0, registryKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		phone := strings.TrimPrefix(iter.Val(), registryKeyPrefix)
		e, err := r.decode(span, r.redis.Get(ctx, registryKey(phone)))
		if errors.Is(err, ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("remarketing: failed to scan entries: %w", err)
	}
	sortEntries(out)
	return out, nil
}

func (r *RedisRegistry) decode(span trace.Span, cmd *redis.StringCmd) (Entry, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, ErrEntryNotFound
		}
		span.RecordError(err)
		return Entry{}, fmt.Errorf("remarketing: failed to load entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		span.RecordError(err)
		return Entry{}, fmt.Errorf("remarketing: failed to decode entry: %w", err)
	}
	return e, nil
}

func registryKey(phone string) string {
	return registryKeyPrefix + phone
}
