package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"papertrade/internal/ledger"
)

const snapshotKey = "papertrade:portfolio"

// Redis keeps a JSON snapshot of the portfolio for fast first-phase
// hydration. It is a cache, not the canonical store: the Postgres load in
// the second startup phase overwrites it when available.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client}, nil
}

// NewRedisWithClient wraps an existing client (used by tests).
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Load(ctx context.Context) (ledger.Portfolio, error) {
	var p ledger.Portfolio
	raw, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Redis) Save(ctx context.Context, p ledger.Portfolio) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, snapshotKey, raw, 0).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
