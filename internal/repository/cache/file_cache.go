// Package cache adds a redis read-through cache in front of a repository.FileRepository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"filevault/internal/model"
	"filevault/internal/repository"
)

// FileCache caches single-record lookups. Listing always goes to the backing store.
// Any redis failure degrades to a direct store call.
//
// Delete leaves a tombstone (an empty value) for ttl. Read-through fills use SETNX, so a lookup
// that read the row before a concurrent delete cannot put the record back.
type FileCache struct {
	next   repository.FileRepository
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

var _ repository.FileRepository = (*FileCache)(nil)

// New wraps next with a cache whose entries live for ttl.
func New(next repository.FileRepository, client *redis.Client, ttl time.Duration, log *zap.Logger) *FileCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileCache{next: next, client: client, ttl: ttl, log: log.Named("file_cache")}
}

func buildKey(ownerID, fileID string) string {
	return "file:" + ownerID + ":" + fileID
}

func (c *FileCache) Get(ctx context.Context, ownerID, fileID string) (*model.FileRecord, error) {
	key := buildKey(ownerID, fileID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil && len(raw) == 0:
		return nil, repository.ErrNotFound
	case err == nil:
		var rec model.FileRecord
		if jerr := json.Unmarshal(raw, &rec); jerr == nil {
			return &rec, nil
		}
		c.log.Warn("discarding undecodable cache entry", zap.String("key", key))
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.log.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
		}
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	rec, err := c.next.Get(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, rec)
	return rec, nil
}

// Put writes to the store first, then refreshes the cache entry, replacing any tombstone.
func (c *FileCache) Put(ctx context.Context, rec *model.FileRecord) error {
	if err := c.next.Put(ctx, rec); err != nil {
		return err
	}
	c.store(ctx, rec)
	return nil
}

func (c *FileCache) ListByOwner(ctx context.Context, ownerID string) ([]model.FileRecord, error) {
	return c.next.ListByOwner(ctx, ownerID)
}

// Delete removes the record from the store and then replaces its cache entry with a tombstone.
func (c *FileCache) Delete(ctx context.Context, ownerID, fileID string) error {
	if err := c.next.Delete(ctx, ownerID, fileID); err != nil {
		return err
	}
	key := buildKey(ownerID, fileID)
	if err := c.client.Set(ctx, key, "", c.ttl).Err(); err != nil {
		c.log.Warn("cache tombstone failed", zap.String("key", key), zap.Error(err))
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.log.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func (c *FileCache) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

func (c *FileCache) encode(rec *model.FileRecord) (string, []byte, bool) {
	key := buildKey(rec.OwnerID, rec.FileID)
	b, err := json.Marshal(rec)
	if err != nil {
		c.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return key, nil, false
	}
	return key, b, true
}

// store overwrites the entry. Only writes that went to the backing store use it.
func (c *FileCache) store(ctx context.Context, rec *model.FileRecord) {
	key, b, ok := c.encode(rec)
	if !ok {
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// fill caches a record read from the store unless the key is already taken,
// by a tombstone or by a newer write-through.
func (c *FileCache) fill(ctx context.Context, rec *model.FileRecord) {
	key, b, ok := c.encode(rec)
	if !ok {
		return
	}
	if err := c.client.SetNX(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("cache fill failed", zap.String("key", key), zap.Error(err))
	}
}
