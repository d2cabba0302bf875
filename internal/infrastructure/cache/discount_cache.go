// Package cache provides a Redis read-through cache for discount settings,
// invalidated by PostgreSQL LISTEN/NOTIFY.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"supplyhub/internal/core/id"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/pkg/logger"
)

const (
	keyPrefix  = "supply:discount:"
	DefaultTTL = 5 * time.Minute

	defaultScanBatchSize = 100
)

// cachedSetting distinguishes "not configured" from a cache miss.
type cachedSetting struct {
	Configured bool                    `json:"configured"`
	Setting    *supply.DiscountSetting `json:"setting,omitempty"`
}

// DiscountSettingsCache wraps a SettingsSource with Redis.
// Redis failures are logged and served from the source.
type DiscountSettingsCache struct {
	client *redis.Client
	source supply.SettingsSource
	ttl    time.Duration
}

var _ supply.SettingsSource = (*DiscountSettingsCache)(nil)

// NewDiscountSettingsCache creates the cache. The caller owns client.
func NewDiscountSettingsCache(client *redis.Client, source supply.SettingsSource, ttl time.Duration) *DiscountSettingsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DiscountSettingsCache{client: client, source: source, ttl: ttl}
}

func storeKey(storeID id.ID) string {
	return keyPrefix + "store:" + storeID.String()
}

func businessKey(storeID id.ID) string {
	return keyPrefix + "business:" + storeID.String()
}

// StoreDiscount implements supply.SettingsSource.
func (c *DiscountSettingsCache) StoreDiscount(ctx context.Context, storeID id.ID) (*supply.DiscountSetting, error) {
	return c.readThrough(ctx, storeKey(storeID), func() (*supply.DiscountSetting, error) {
		return c.source.StoreDiscount(ctx, storeID)
	})
}

// BusinessDiscount implements supply.SettingsSource.
// Entries are keyed by store, since the business is resolved through it.
func (c *DiscountSettingsCache) BusinessDiscount(ctx context.Context, storeID id.ID) (*supply.DiscountSetting, error) {
	return c.readThrough(ctx, businessKey(storeID), func() (*supply.DiscountSetting, error) {
		return c.source.BusinessDiscount(ctx, storeID)
	})
}

func (c *DiscountSettingsCache) readThrough(ctx context.Context, key string, load func() (*supply.DiscountSetting, error)) (*supply.DiscountSetting, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if entry, decodeErr := decode(data); decodeErr == nil {
			return entry.Setting, nil
		}
		logger.Warn(ctx, "corrupted discount cache entry", "key", key)
		_ = c.client.Del(ctx, key).Err()
	case errors.Is(err, redis.Nil):
		// miss
	default:
		logger.Warn(ctx, "discount cache unavailable", "key", key, "error", err)
	}

	setting, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := encode(setting); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Warn(ctx, "failed to cache discount settings", "key", key, "error", err)
		}
	}
	return setting, nil
}

// InvalidateStore drops both cached levels of one store.
func (c *DiscountSettingsCache) InvalidateStore(ctx context.Context, storeID id.ID) error {
	if err := c.client.Del(ctx, storeKey(storeID), businessKey(storeID)).Err(); err != nil {
		return fmt.Errorf("invalidate store %s: %w", storeID, err)
	}
	return nil
}

// InvalidateAll drops every cached discount setting.
func (c *DiscountSettingsCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", defaultScanBatchSize).Iterator()
	keys := make([]string, 0, defaultScanBatchSize)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == defaultScanBatchSize {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("invalidate discount cache: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan discount cache: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("invalidate discount cache: %w", err)
		}
	}
	return nil
}

func encode(setting *supply.DiscountSetting) ([]byte, error) {
	return json.Marshal(cachedSetting{Configured: setting != nil, Setting: setting})
}

func decode(data []byte) (cachedSetting, error) {
	var entry cachedSetting
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, err
	}
	if entry.Configured && entry.Setting == nil {
		return entry, errors.New("configured entry without setting")
	}
	return entry, nil
}
