package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

// Session cache keys.
const lastToolKey = "last-tool"

func transformKey(tool models.ToolID) string { return "transform:" + string(tool) }
func toolDataKey(tool models.ToolID) string  { return "tool-data:" + string(tool) }
func uploadKey(id fmt.Stringer) string       { return "upload:" + id.String() }

// TransformCache holds per-session formatter state: the latest transformed dataset per
// tool, data handed off to tools, and upload metadata. Values are stored as JSON.
type TransformCache interface {
	// Get decodes the value into dest. Missing or expired keys yield apperrors.ErrNotFound.
	Get(ctx context.Context, sessionID, key string, dest any) error
	Set(ctx context.Context, sessionID, key string, value any) error
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

type memoryTransformCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ TransformCache = (*memoryTransformCache)(nil)

// NewMemoryTransformCache creates an in-process cache. Entries expire after ttl.
func NewMemoryTransformCache(ttl time.Duration) TransformCache {
	return &memoryTransformCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func memoryKey(sessionID, key string) string {
	return sessionID + "\x00" + key
}

func (c *memoryTransformCache) Get(_ context.Context, sessionID, key string, dest any) error {
	c.mu.Lock()
	entry, ok := c.entries[memoryKey(sessionID, key)]
	if ok && !c.now().Before(entry.expires) {
		delete(c.entries, memoryKey(sessionID, key))
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return apperrors.ErrNotFound
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return nil
}

func (c *memoryTransformCache) Set(_ context.Context, sessionID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// Sweep expired entries on write so abandoned sessions do not accumulate.
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[memoryKey(sessionID, key)] = memoryEntry{data: data, expires: now.Add(c.ttl)}
	return nil
}

type redisTransformCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ TransformCache = (*redisTransformCache)(nil)

// NewRedisTransformCache stores session state in Redis so it is shared across instances.
func NewRedisTransformCache(client *redis.Client, ttl time.Duration) TransformCache {
	return &redisTransformCache{client: client, ttl: ttl}
}

func redisKey(sessionID, key string) string {
	return "firegrid:session:" + sessionID + ":" + key
}

func (c *redisTransformCache) Get(ctx context.Context, sessionID, key string, dest any) error {
	data, err := c.client.Get(ctx, redisKey(sessionID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to read %s from cache: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return nil
}

func (c *redisTransformCache) Set(ctx context.Context, sessionID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, redisKey(sessionID, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s to cache: %w", key, err)
	}
	return nil
}
