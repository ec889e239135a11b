// Package redis caches feed URL validation results in Redis.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"rsswatch/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const validationPrefix = "validation:"

type ValidationCache struct {
	client *redis.Client
}

func NewValidationCache(client *redis.Client) *ValidationCache {
	return &ValidationCache{client: client}
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return validationPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached result for url. A miss is (zero, false, nil).
func (c *ValidationCache) Get(ctx context.Context, url string) (domain.ValidationResult, bool, error) {
	data, err := c.client.Get(ctx, key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ValidationResult{}, false, nil
	}
	if err != nil {
		return domain.ValidationResult{}, false, err
	}
	var res domain.ValidationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return domain.ValidationResult{}, false, fmt.Errorf("decode cached validation: %w", err)
	}
	return res, true, nil
}

func (c *ValidationCache) Put(ctx context.Context, url string, res domain.ValidationResult, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.client.SetEx(ctx, key(url), data, ttl).Err()
}
