package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/minerva/internal/model"
)

// SearchCacheConfig 检索缓存配置。
type SearchCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// SearchCache 语义检索结果缓存。
// 任何章节写操作都会整体失效，保证不返回过期结果。
type SearchCache struct {
	redis  *goredis.Client
	config *SearchCacheConfig
}

// NewSearchCache 创建检索缓存实例。
func NewSearchCache(redis *goredis.Client, config *SearchCacheConfig) *SearchCache {
	if config == nil {
		config = &SearchCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "kb:search:",
		}
	}
	return &SearchCache{
		redis:  redis,
		config: config,
	}
}

// generateCacheKey 基于查询内容与 topK 生成缓存键（SHA256 哈希）。
func (c *SearchCache) generateCacheKey(query string, topK int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", query, topK)))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 从缓存获取检索结果，未命中返回 (nil, nil)。
func (c *SearchCache) Get(ctx context.Context, query string, topK int) ([]model.SearchHit, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, nil
	}

	cacheKey := c.generateCacheKey(query, topK)

	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			// 缓存未命中
			logger.Debugw("search cache miss", "query", query, "key", cacheKey)
			return nil, nil
		}
		logger.Warnw("failed to get from search cache", "error", err.Error(), "key", cacheKey)
		return nil, err
	}

	var hits []model.SearchHit
	if err := json.Unmarshal(data, &hits); err != nil {
		logger.Warnw("failed to unmarshal cached hits", "error", err.Error(), "key", cacheKey)
		// 删除损坏的缓存
		_ = c.redis.Del(ctx, cacheKey).Err()
		return nil, err
	}

	logger.Infow("search cache hit", "query", query, "key", cacheKey, "hits", len(hits))
	return hits, nil
}

// Set 将检索结果写入缓存。
func (c *SearchCache) Set(ctx context.Context, query string, topK int, hits []model.SearchHit) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	cacheKey := c.generateCacheKey(query, topK)

	data, err := json.Marshal(hits)
	if err != nil {
		logger.Warnw("failed to marshal hits for caching", "error", err.Error())
		return err
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set search cache", "error", err.Error(), "key", cacheKey)
		return err
	}

	logger.Debugw("cached search result", "query", query, "key", cacheKey, "ttl", c.config.TTL)
	return nil
}

// Clear 清除所有检索缓存。章节变更后调用。
func (c *SearchCache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deletedCount := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deletedCount++
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared search cache", "deleted_count", deletedCount)
	return nil
}

// GetStats 获取缓存统计信息。
func (c *SearchCache) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]interface{}{
			"enabled": false,
		}, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}, nil
}
