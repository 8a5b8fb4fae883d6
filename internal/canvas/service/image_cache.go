package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
)

const imageKeyPrefix = "tile:img:" // tile:img:{canvas}:{z}:{x}:{y}

// ImageCache is a shared read-through cache of encoded tile blobs in front of
// the blob store. Misses and redis failures are both treated as cache misses;
// the durable store stays authoritative.
type ImageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewImageCache wraps a redis client; ttl <= 0 defaults to one hour.
func NewImageCache(client *redis.Client, ttl time.Duration) *ImageCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ImageCache{client: client, ttl: ttl}
}

func imageKey(canvasID string, c domain.TileCoordinate) string {
	return fmt.Sprintf("%s%s:%d:%d:%d", imageKeyPrefix, canvasID, c.Z, c.X, c.Y)
}

// Get returns the cached blob, if any. A nil cache always misses.
func (ic *ImageCache) Get(ctx context.Context, canvasID string, c domain.TileCoordinate) ([]byte, bool) {
	if ic == nil || ic.client == nil {
		return nil, false
	}
	data, err := ic.client.Get(ctx, imageKey(canvasID, c)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[warn] operation=image_cache_get canvas=%s error=%v", canvasID, err)
		}
		return nil, false
	}
	return data, true
}

// Set stores a blob with the cache TTL.
func (ic *ImageCache) Set(ctx context.Context, canvasID string, c domain.TileCoordinate, data []byte) {
	if ic == nil || ic.client == nil {
		return
	}
	if err := ic.client.Set(ctx, imageKey(canvasID, c), data, ic.ttl).Err(); err != nil {
		log.Printf("[warn] operation=image_cache_set canvas=%s error=%v", canvasID, err)
	}
}

// Invalidate drops cached blobs for the given coordinates after a save or
// delete, pipelined in one round-trip.
func (ic *ImageCache) Invalidate(ctx context.Context, canvasID string, coords ...domain.TileCoordinate) {
	if ic == nil || ic.client == nil || len(coords) == 0 {
		return
	}
	pipe := ic.client.Pipeline()
	for _, c := range coords {
		pipe.Del(ctx, imageKey(canvasID, c))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[warn] operation=image_cache_invalidate canvas=%s error=%v", canvasID, err)
	}
}
