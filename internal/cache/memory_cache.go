package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 基于go-cache实现的内存缓存
// 单机预处理的默认选择，进程退出后缓存即失效
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache 创建一个新的内存缓存
func NewMemoryCache(config Config) (Cache, error) {
	defaults := DefaultConfig()

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = defaults.DefaultTTL
	}

	interval := config.CleanupInterval
	if interval == 0 {
		interval = defaults.CleanupInterval
	}

	return &MemoryCache{
		store: gocache.New(ttl, interval),
	}, nil
}

// Get 获取缓存内容
func (m *MemoryCache) Get(key string) (string, bool, error) {
	value, found := m.store.Get(key)
	if !found {
		return "", false, nil
	}

	str, ok := value.(string)
	if !ok {
		return "", false, nil
	}
	return str, true, nil
}

// Set 设置缓存内容
func (m *MemoryCache) Set(key string, value string, ttl time.Duration) error {
	// ttl为0时使用默认过期时间
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(key, value, ttl)
	return nil
}

// Delete 删除缓存项
func (m *MemoryCache) Delete(key string) error {
	m.store.Delete(key)
	return nil
}

// Clear 清空所有缓存
func (m *MemoryCache) Clear() error {
	m.store.Flush()
	return nil
}

// 在包初始化时注册内存缓存
func init() {
	RegisterCache("memory", NewMemoryCache)
}
