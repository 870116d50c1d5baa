package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/wordace/internal/quiz"
)

const maxUpdateRetries = 5

// getter is satisfied by both *goredis.Client and *goredis.Tx
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// RedisStore shares sessions between processes through redis
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to addr and checks the connection
func NewRedisStore(ctx context.Context, opts *goredis.Options, prefix string, ttl time.Duration) (*RedisStore, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (r *RedisStore) key(id string) string {
	return r.prefix + "quiz:" + id
}

func (r *RedisStore) Save(ctx context.Context, s *quiz.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*quiz.Session, error) {
	return r.get(ctx, r.rdb, id)
}

// Update uses WATCH so a concurrent writer makes the transaction retry
// instead of silently overwriting it.
func (r *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*quiz.Session, error) {
	key := r.key(id)
	var updated *quiz.Session

	txf := func(tx *goredis.Tx) error {
		s, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err == nil {
			updated = s
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update session %s: too much contention", id)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Close releases the redis connection pool
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisStore) get(ctx context.Context, c getter, id string) (*quiz.Session, error) {
	raw, err := c.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	var s quiz.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}
