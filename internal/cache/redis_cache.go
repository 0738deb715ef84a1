package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyNamespace Redis键的命名空间前缀
// 语料缓存可能和其他服务共用一个Redis库，所有键都挂在这个前缀下
const keyNamespace = "newsgroup:"

// RedisCache 基于Redis实现的缓存
// 跨进程共享文档的分词计数，多次预处理运行之间不必重复解析语料
type RedisCache struct {
	client     *redis.Client
	ctx        context.Context
	defaultTTL time.Duration
}

// NewRedisCache 创建一个新的Redis缓存
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// 测试连接
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client:     client,
		ctx:        ctx,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// Get 获取缓存内容
func (r *RedisCache) Get(key string) (string, bool, error) {
	value, err := r.client.Get(r.ctx, keyNamespace+key).Result()
	if err == redis.Nil {
		// 键不存在
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Set 设置缓存内容
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(r.ctx, keyNamespace+key, value, ttl).Err()
}

// Delete 删除缓存项
func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, keyNamespace+key).Err()
}

// Clear 清空命名空间下的所有缓存
// 只删除本项目前缀下的键，不影响同一个库里的其他数据
func (r *RedisCache) Clear() error {
	iter := r.client.Scan(r.ctx, 0, keyNamespace+"*", 0).Iterator()
	for iter.Next(r.ctx) {
		if err := r.client.Del(r.ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// 在包初始化时注册Redis缓存
func init() {
	RegisterCache("redis", NewRedisCache)
}
