// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package redis stores applicant access codes in Redis. Each email owns at
// most one key. Its value is the SHA-256 hash of the current code and its
// TTL is the code lifetime.
package redis

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/auth"
)

// DefaultKeyPrefix namespaces access code keys.
const DefaultKeyPrefix = "harborlight:access_code:"

// consumeScript deletes the key only when it still holds the presented hash,
// so a code is accepted at most once.
var consumeScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CodeStore implements auth.CodeStore on a Redis client.
type CodeStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewCodeStore creates a CodeStore. An empty prefix selects DefaultKeyPrefix.
func NewCodeStore(client goredis.UniversalClient, prefix string) (*CodeStore, error) {
	if client == nil {
		return nil, oops.Code(auth.CodeConfiguration).Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &CodeStore{client: client, prefix: prefix}, nil
}

func (s *CodeStore) key(email string) string {
	return s.prefix + strings.ToLower(email)
}

// Save replaces any code previously stored for email.
func (s *CodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if ttl <= 0 {
		return oops.Code("ACCESS_CODE_SAVE_FAILED").With("ttl", ttl).Errorf("ttl must be positive")
	}
	if err := s.client.Set(ctx, s.key(email), auth.HashToken(code), ttl).Err(); err != nil {
		return oops.Code("ACCESS_CODE_SAVE_FAILED").Wrap(err)
	}
	return nil
}

// Consume atomically deletes the code for email when it matches. Missing,
// expired and mismatched codes all report false.
func (s *CodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	deleted, err := consumeScript.Run(ctx, s.client, []string{s.key(email)}, auth.HashToken(code)).Int()
	if err != nil {
		return false, oops.Code("ACCESS_CODE_CONSUME_FAILED").Wrap(err)
	}
	return deleted == 1, nil
}

// Ping checks connectivity for readiness probes.
func (s *CodeStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return oops.Code("REDIS_UNAVAILABLE").Wrap(err)
	}
	return nil
}

var _ auth.CodeStore = (*CodeStore)(nil)
