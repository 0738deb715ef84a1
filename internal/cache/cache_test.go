package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisTest 设置一个miniredis实例用于测试
// 返回Redis地址和一个清理函数
func setupRedisTest(t *testing.T) (*miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	return mr, func() {
		mr.Close()
	}
}

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	config := Config{
		Type:            "memory",
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	}
	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	require.NotNil(t, cache)

	// 测试Set和Get
	err = cache.Set("tokens:doc1", `{"rocket":2}`, 0) // 使用默认TTL
	assert.NoError(t, err)

	val, found, err := cache.Get("tokens:doc1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"rocket":2}`, val)

	// 测试不存在的键
	val, found, err = cache.Get("tokens:missing")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试过期
	err = cache.Set("expire-soon", "temp-value", time.Millisecond*500)
	assert.NoError(t, err)

	time.Sleep(time.Second)

	val, found, err = cache.Get("expire-soon")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试删除
	err = cache.Set("to-delete", "delete-me", 0)
	assert.NoError(t, err)

	err = cache.Delete("to-delete")
	assert.NoError(t, err)

	_, found, err = cache.Get("to-delete")
	assert.NoError(t, err)
	assert.False(t, found)

	// 测试清空
	err = cache.Set("tokens:doc2", "value2", 0)
	assert.NoError(t, err)

	err = cache.Clear()
	assert.NoError(t, err)

	_, found, err = cache.Get("tokens:doc2")
	assert.NoError(t, err)
	assert.False(t, found)
}

// TestRedisCache 测试Redis缓存
// 使用miniredis，不需要本地Redis服务器
func TestRedisCache(t *testing.T) {
	mr, cleanup := setupRedisTest(t)
	defer cleanup()

	config := Config{
		Type:       "redis",
		RedisAddr:  mr.Addr(),
		DefaultTTL: time.Minute,
	}

	cache, err := NewRedisCache(config)
	require.NoError(t, err)
	require.NotNil(t, cache)

	// 测试Set和Get
	err = cache.Set("tokens:doc1", `{"orbit":1}`, 0)
	assert.NoError(t, err)

	val, found, err := cache.Get("tokens:doc1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"orbit":1}`, val)

	// 测试不存在的键
	val, found, err = cache.Get("tokens:missing")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试过期：miniredis用FastForward模拟时间流逝
	err = cache.Set("expire-soon", "temp-value", time.Second)
	assert.NoError(t, err)

	mr.FastForward(time.Second * 2)

	val, found, err = cache.Get("expire-soon")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试删除
	err = cache.Set("to-delete", "delete-me", 0)
	assert.NoError(t, err)

	err = cache.Delete("to-delete")
	assert.NoError(t, err)

	_, found, err = cache.Get("to-delete")
	assert.NoError(t, err)
	assert.False(t, found)
}

// TestRedisCacheClear 测试Redis缓存的命名空间清空
func TestRedisCacheClear(t *testing.T) {
	mr, cleanup := setupRedisTest(t)
	defer cleanup()

	cache, err := NewRedisCache(Config{
		Type:      "redis",
		RedisAddr: mr.Addr(),
	})
	require.NoError(t, err)

	// 命名空间外的键不应该被Clear删除
	mr.Set("other-service:key", "keep-me")

	require.NoError(t, cache.Set("tokens:doc1", "v1", 0))
	require.NoError(t, cache.Set("tokens:doc2", "v2", 0))

	err = cache.Clear()
	assert.NoError(t, err)

	_, found, err := cache.Get("tokens:doc1")
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.Get("tokens:doc2")
	assert.NoError(t, err)
	assert.False(t, found)

	// 其他服务的键还在
	assert.True(t, mr.Exists("other-service:key"))
}

// TestCacheFactory 测试缓存工厂函数
func TestCacheFactory(t *testing.T) {
	// 测试内存缓存创建
	memCache, err := NewCache(DefaultConfig())
	assert.NoError(t, err)
	assert.NotNil(t, memCache)

	// 测试Redis缓存创建
	mr, cleanup := setupRedisTest(t)
	defer cleanup()

	redisCache, err := NewCache(Config{
		Type:      "redis",
		RedisAddr: mr.Addr(),
	})
	assert.NoError(t, err)
	assert.NotNil(t, redisCache)

	err = redisCache.Set("factory-test", "value", 0)
	assert.NoError(t, err)
	redisCache.Delete("factory-test")

	// 测试未知缓存类型（应该返回默认内存缓存）
	unknownCache, err := NewCache(Config{Type: "unknown-type"})
	assert.NoError(t, err)
	assert.NotNil(t, unknownCache)
}

// TestGenerateCacheKey 测试缓存键生成
func TestGenerateCacheKey(t *testing.T) {
	// 测试没有部分
	key := GenerateCacheKey("tokens")
	assert.Equal(t, "tokens", key)

	// 测试单部分
	key = GenerateCacheKey("tokens", "lc=true")
	assert.Equal(t, "tokens:lc=true", key)

	// 测试多部分：分词签名+文档路径
	key = GenerateCacheKey("tokens", "lc=true:sa=false", "sci.space/0001")
	assert.Equal(t, "tokens:lc=true:sa=false:sci.space/0001", key)
}
