package biz

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/minerva/internal/model"
)

// 辅助函数：创建测试用 Redis 客户端
func setupTestRedis(t *testing.T) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
		DB:   15, // 使用测试专用数据库
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis 不可用，跳过测试")
	}

	client.FlushDB(ctx)
	return client
}

func TestNewSearchCache_WithNilConfig(t *testing.T) {
	cache := NewSearchCache(nil, nil)
	require.NotNil(t, cache)
	assert.False(t, cache.config.Enabled) // 默认禁用
	assert.Equal(t, 1*time.Hour, cache.config.TTL)
	assert.Equal(t, "kb:search:", cache.config.KeyPrefix)
}

func TestSearchCache_Disabled(t *testing.T) {
	cache := NewSearchCache(nil, &SearchCacheConfig{Enabled: false})
	ctx := context.Background()

	// 禁用时所有操作均为空操作
	hits, err := cache.Get(ctx, "query", 5)
	require.NoError(t, err)
	assert.Nil(t, hits)

	assert.NoError(t, cache.Set(ctx, "query", 5, []model.SearchHit{{Score: 1.0}}))
	assert.NoError(t, cache.Clear(ctx))

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, stats["enabled"])
}

func TestSearchCache_GenerateCacheKey(t *testing.T) {
	cache := NewSearchCache(nil, &SearchCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:kb:",
	})

	key1 := cache.generateCacheKey("什么是知识库？", 5)
	key2 := cache.generateCacheKey("什么是知识库？", 5)
	key3 := cache.generateCacheKey("什么是知识库？", 10)
	key4 := cache.generateCacheKey("知识库是什么？", 5)

	// 相同查询与 topK 生成相同的键
	assert.Equal(t, key1, key2)
	// topK 不同生成不同的键
	assert.NotEqual(t, key1, key3)
	// 查询不同生成不同的键
	assert.NotEqual(t, key1, key4)
	assert.Contains(t, key1, "test:kb:")
}

func TestSearchCache_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewSearchCache(client, &SearchCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:kb:",
	})
	ctx := context.Background()

	hits := []model.SearchHit{
		{
			Section: &model.Section{ID: "sec-1", Header: "Vector Databases", Path: "1.2"},
			Score:   0.93,
			Snippet: "向量数据库用于存储和检索嵌入向量。",
		},
	}

	require.NoError(t, cache.Set(ctx, "什么是向量数据库？", 5, hits))

	got, err := cache.Get(ctx, "什么是向量数据库？", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sec-1", got[0].Section.ID)
	assert.Equal(t, float32(0.93), got[0].Score)

	// 未命中返回 (nil, nil)
	got, err = cache.Get(ctx, "其他问题", 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSearchCache_Clear(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewSearchCache(client, &SearchCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:kb:",
	})
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q1", 5, []model.SearchHit{{Score: 0.5}}))
	require.NoError(t, cache.Set(ctx, "q2", 5, []model.SearchHit{{Score: 0.6}}))

	require.NoError(t, cache.Clear(ctx))

	got, err := cache.Get(ctx, "q1", 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}
