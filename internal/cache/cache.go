// Copyright (c) 2026 John Earle
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

// Package cache provides the HTTP response cache used by the fetcher so
// that repeated fetches of an identical URL within a run do not re-hit the
// network. Caching is only safe because every cached request is an
// idempotent GET; nothing invalidates entries mid-run.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a cached response is served. Extraction
	// runs are short; a day covers reruns without serving stale data
	// across scheduled jobs.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces cache keys in Redis.
	keyPrefix = "migration:response:"
)

// ResponseCache stores raw response bodies keyed by request URL.
type ResponseCache interface {
	Get(ctx context.Context, url string) ([]byte, bool)
	Set(ctx context.Context, url string, body []byte)
}

// Redis is a Redis-backed response cache, shared across processes when
// multiple extraction jobs run against the same API.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis creates a Redis-backed response cache.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// Get returns the cached body for a URL. Redis errors are treated as a
// cache miss — the fetcher falls through to the network.
func (c *Redis) Get(ctx context.Context, url string) ([]byte, bool) {
	body, err := c.rdb.Get(ctx, keyPrefix+url).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

// Set stores a response body. Errors are ignored for the same reason.
func (c *Redis) Set(ctx context.Context, url string, body []byte) {
	c.rdb.Set(ctx, keyPrefix+url, body, c.ttl)
}

// Memory is an in-process response cache used when no Redis is configured.
// It lives for the duration of a single job, which is all the fetcher
// contract requires.
type Memory struct {
	mu     sync.RWMutex
	bodies map[string][]byte
}

// NewMemory creates an empty in-memory response cache.
func NewMemory() *Memory {
	return &Memory{bodies: make(map[string][]byte)}
}

// Get returns the cached body for a URL.
func (c *Memory) Get(_ context.Context, url string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	body, ok := c.bodies[url]
	return body, ok
}

// Set stores a response body.
func (c *Memory) Set(_ context.Context, url string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies[url] = body
}
