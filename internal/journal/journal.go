// Package journal records one line per relay call for operators. It never
// stores message text.
package journal

import (
	"context"
	"fmt"
	"time"

	"aurorachat/internal/config"
	"aurorachat/internal/redis"
	"aurorachat/internal/storage"
)

// Event describes how one relay call ended.
type Event struct {
	RequestID      string        `json:"request_id"`
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	Outcome        string        `json:"outcome"`
	UpstreamStatus int           `json:"upstream_status"`
	Latency        time.Duration `json:"latency_ns"`
	CreatedAt      time.Time     `json:"created_at"`
}

type Recorder interface {
	Record(ctx context.Context, ev Event) error
	Close() error
}

// Reader is the operator view of a journal.
type Reader interface {
	// Counts returns the number of recorded events per outcome.
	Counts(ctx context.Context) (map[string]int64, error)
	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)
	// Reset drops every recorded event.
	Reset(ctx context.Context) error
}

// RecorderReader is implemented by every recorder New returns.
type RecorderReader interface {
	Recorder
	Reader
}

// New builds the recorder selected by cfg.Journal.Driver. An empty driver
// disables the journal.
func New(cfg *config.Config) (RecorderReader, error) {
	switch cfg.Journal.Driver {
	case "":
		return Nop{}, nil
	case "sqlite", "sqlite3", "mysql":
		db, err := storage.Open(cfg.Journal)
		if err != nil {
			return nil, err
		}
		if err := storage.Migrate(db, cfg.Journal.Driver); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQL(db), nil
	case "redis":
		client, err := redis.NewRedisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("create redis client: %w", err)
		}
		return NewRedis(client, cfg.Journal.MaxEvents), nil
	default:
		return nil, fmt.Errorf("unsupported journal driver: %s", cfg.Journal.Driver)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error              { return nil }
func (Nop) Close() error                                     { return nil }
func (Nop) Counts(context.Context) (map[string]int64, error) { return map[string]int64{}, nil }
func (Nop) Recent(context.Context, int) ([]Event, error)     { return nil, nil }
func (Nop) Reset(context.Context) error                      { return nil }
