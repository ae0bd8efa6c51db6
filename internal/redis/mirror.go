package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deliverysim/internal/model"
	"deliverysim/internal/service/storage"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	EntityKeyPrefix  = "entity"
	CompanyKeyPrefix = "company"
)

// EntitySource is what the mirror drains
type EntitySource interface {
	Store() storage.Storage[string, model.Entity]
	Companies() []model.CompanyStats
}

// Mirror writes changed entities and all company rollups to Redis as msgpack
// values. It is write-only; nothing is read back.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewMirror creates a mirror whose keys expire after ttl unless refreshed.
// A zero ttl keeps keys forever.
func NewMirror(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{client: client, ttl: ttl, logger: logger}
}

func EntityKey(id string) string {
	return fmt.Sprintf("%s:%s", EntityKeyPrefix, id)
}

func CompanyKey(c model.Company) string {
	return fmt.Sprintf("%s:%s", CompanyKeyPrefix, c.String())
}

// Flush writes dirty entities, deletes purged ones and refreshes every
// rollup in one pipeline. Dirty flags are taken atomically; a failed write
// marks the taken keys dirty again, and anything changed during the flush
// stays dirty for the next one.
func (m *Mirror) Flush(ctx context.Context, src EntitySource) (int, error) {
	store := src.Store()
	updated, deleted := store.TakeDirty()
	if len(updated) == 0 && len(deleted) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(updated)+len(deleted))
	for id := range updated {
		keys = append(keys, id)
	}
	keys = append(keys, deleted...)

	if err := m.write(ctx, updated, deleted, src.Companies()); err != nil {
		store.MarkDirty(keys)
		return 0, err
	}

	m.logger.Debug("mirror flushed", "updated", len(updated), "deleted", len(deleted))
	return len(keys), nil
}

func (m *Mirror) write(ctx context.Context, updated map[string]model.Entity, deleted []string, companies []model.CompanyStats) error {
	pipe := m.client.Pipeline()

	for id, e := range updated {
		data, err := msgpack.Marshal(&e)
		if err != nil {
			return fmt.Errorf("encode entity %s: %w", id, err)
		}
		pipe.Set(ctx, EntityKey(id), data, m.ttl)
	}
	for _, id := range deleted {
		pipe.Del(ctx, EntityKey(id))
	}
	for _, c := range companies {
		data, err := msgpack.Marshal(&c)
		if err != nil {
			return fmt.Errorf("encode company %s: %w", c.Name, err)
		}
		pipe.Set(ctx, CompanyKey(c.Company), data, m.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("flush mirror: %w", err)
	}
	return nil
}
