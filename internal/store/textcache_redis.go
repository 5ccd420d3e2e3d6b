package store

import (
    "context"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// TextCache keeps recognized page text keyed by content hash so reruns over
// unchanged files skip the OCR pass entirely.
type TextCache struct {
    client *redis.Client
    ttl    time.Duration
}

func NewTextCache(redisURL string, ttl time.Duration) (*TextCache, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, err }
    c := redis.NewClient(opt)
    if err := c.Ping(context.Background()).Err(); err != nil { return nil, err }
    if ttl <= 0 { ttl = 24 * time.Hour }
    return &TextCache{client: c, ttl: ttl}, nil
}

func (c *TextCache) Close() error { return c.client.Close() }

func (c *TextCache) key(hash string) string { return "ocr:text:" + hash }

// Get returns the cached text for a content hash. ok is false on a miss.
func (c *TextCache) Get(ctx context.Context, hash string) (string, bool, error) {
    res, err := c.client.Get(ctx, c.key(hash)).Result()
    if err == redis.Nil { return "", false, nil }
    if err != nil { return "", false, err }
    return res, true, nil
}

// Set stores text under a content hash with the cache TTL.
func (c *TextCache) Set(ctx context.Context, hash, text string) error {
    return c.client.Set(ctx, c.key(hash), text, c.ttl).Err()
}
