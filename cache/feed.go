package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/krishkalaria12/label-ledger/models"
	"github.com/redis/go-redis/v9"
)

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// Feed caches each viewer's open-images listing. Entries are keyed by a
// shared generation counter: a new upload bumps the generation, which
// orphans every cached listing at once without scanning keys. A completed
// labeling only evicts that one user's entry.
type Feed struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFeed(client *redis.Client, ttl time.Duration) *Feed {
	return &Feed{client: client, ttl: ttl}
}

const generationKey = "openfeed:gen"

func (f *Feed) entryKey(ctx context.Context, userID uint) (string, error) {
	gen, err := f.client.Get(ctx, generationKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("openfeed:%d:%d", gen, userID), nil
}

// Get returns the cached listing for userID, or ok=false on a miss. Cache
// errors degrade to a miss; the store remains the source of truth.
func (f *Feed) Get(ctx context.Context, userID uint) ([]models.Image, bool) {
	key, err := f.entryKey(ctx, userID)
	if err != nil {
		return nil, false
	}

	raw, err := f.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var images []models.Image
	if err := json.Unmarshal(raw, &images); err != nil {
		return nil, false
	}
	return images, true
}

// Set stores the listing for userID under the current generation.
func (f *Feed) Set(ctx context.Context, userID uint, images []models.Image) {
	key, err := f.entryKey(ctx, userID)
	if err != nil {
		return
	}

	raw, err := json.Marshal(images)
	if err != nil {
		return
	}
	f.client.Set(ctx, key, raw, f.ttl)
}

// InvalidateUser evicts one viewer's listing, called after that viewer
// completes a labeling.
func (f *Feed) InvalidateUser(ctx context.Context, userID uint) {
	key, err := f.entryKey(ctx, userID)
	if err != nil {
		return
	}
	f.client.Del(ctx, key)
}

// InvalidateAll bumps the generation so every cached listing goes stale,
// called after an upload admits new images.
func (f *Feed) InvalidateAll(ctx context.Context) {
	f.client.Incr(ctx, generationKey)
}
