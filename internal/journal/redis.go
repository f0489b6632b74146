package journal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"aurorachat/internal/redis"
)

const (
	EventsKey   = "aurora:relay:events"
	OutcomesKey = "aurora:relay:outcomes"
)

// Redis keeps the latest events in a capped list and per-outcome counters in a hash.
type Redis struct {
	client    *redis.Client
	maxEvents int
}

func NewRedis(client *redis.Client, maxEvents int) *Redis {
	return &Redis{client: client, maxEvents: maxEvents}
}

func (r *Redis) Record(ctx context.Context, ev Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := r.client.PushCapped(ctx, EventsKey, payload, r.maxEvents); err != nil {
		return fmt.Errorf("push relay event: %w", err)
	}
	if err := r.client.HIncrBy(ctx, OutcomesKey, ev.Outcome, 1); err != nil {
		return fmt.Errorf("count relay outcome: %w", err)
	}
	return nil
}

func (r *Redis) Counts(ctx context.Context) (map[string]int64, error) {
	fields, err := r.client.HGetAll(ctx, OutcomesKey)
	if err != nil {
		return nil, fmt.Errorf("read relay outcomes: %w", err)
	}
	counts := make(map[string]int64, len(fields))
	for outcome, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s count: %w", outcome, err)
		}
		counts[outcome] = n
	}
	return counts, nil
}

func (r *Redis) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := r.client.LRange(ctx, EventsKey, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("list relay events: %w", err)
	}
	events := make([]Event, 0, len(items))
	for _, item := range items {
		var ev Event
		if err := sonic.UnmarshalString(item, &ev); err != nil {
			return nil, fmt.Errorf("decode relay event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *Redis) Reset(ctx context.Context) error {
	return r.client.Del(ctx, EventsKey, OutcomesKey)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
