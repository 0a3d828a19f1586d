// Package redis stores session thresholds in Redis so they survive restarts
// and are shared between explorer replicas.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

const keyPrefix = "siting:session:"

// SessionStore keeps each session's thresholds in one hash, field = score
// column, value = minimum score. Every write refreshes the session's TTL.
// It implements pipeline.SessionStore.
type SessionStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewSessionStore wraps an existing client. A zero ttl keeps sessions forever.
func NewSessionStore(client goredis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func sessionKey(session string) string {
	return keyPrefix + session + ":thresholds"
}

func (s *SessionStore) Thresholds(ctx context.Context, session string) (domain.Thresholds, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(session)).Result()
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", session, err)
	}
	return decodeThresholds(fields)
}

func (s *SessionStore) SetThreshold(ctx context.Context, session, column string, minScore float64) error {
	key := sessionKey(session)
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, key, column, strconv.FormatFloat(minScore, 'g', -1, 64))
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write session %s: %w", session, err)
	}
	return nil
}

func decodeThresholds(fields map[string]string) (domain.Thresholds, error) {
	out := make(domain.Thresholds, len(fields))
	for col, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("decode threshold %q: %w", col, err)
		}
		out[col] = v
	}
	return out, nil
}
