// Copyright (c) 2026 SHIC AB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long Redis remembers a seen ID. Feishu stops
	// retrying a delivery well within a day.
	DefaultTTL = 24 * time.Hour

	eventKeyPrefix    = "relay:event:"
	instanceKeyPrefix = "relay:instance:"
)

// Redis is a Store backed by Redis SETNX with TTL. It survives restarts,
// which the in-memory store does not, but is still best effort rather than
// an exactly-once guarantee.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis creates a Redis-backed dedup store.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

// IsNewEvent implements Store.
func (r *Redis) IsNewEvent(ctx context.Context, eventID string) (bool, error) {
	return r.setNX(ctx, eventKeyPrefix+eventID)
}

// MarkInstance implements Store.
func (r *Redis) MarkInstance(ctx context.Context, instanceCode string) (bool, error) {
	return r.setNX(ctx, instanceKeyPrefix+instanceCode)
}

// setNX marks the key if absent. Returns true if the key was newly set.
func (r *Redis) setNX(ctx context.Context, key string) (bool, error) {
	set, err := r.rdb.SetNX(ctx, key, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.rdb.Ping(ctx).Err()
}
