package database

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goback/backoffice/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Redis 客户端及其内存模式下的内嵌服务
type Redis struct {
	Client *redis.Client
	mini   *miniredis.Miniredis
}

// OpenRedis 初始化Redis连接，memory 模式使用进程内 miniredis
func OpenRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg.Mode == "memory" {
		mini, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start in-memory redis: %w", err)
		}
		return &Redis{
			Client: redis.NewClient(&redis.Options{Addr: mini.Addr()}),
			mini:   mini,
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr(), err)
	}
	return &Redis{Client: client}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	err := r.Client.Close()
	if r.mini != nil {
		r.mini.Close()
	}
	return err
}

// Cache Redis缓存操作封装
type Cache struct {
	client redis.Cmdable
	prefix string
}

// NewCache 创建缓存实例
func NewCache(client redis.Cmdable, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// key 生成带前缀的key
func (c *Cache) key(key string) string {
	return c.prefix + key
}

// Get 获取缓存，不存在时返回 redis.Nil
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.key(key)).Result()
}

// Del 删除缓存
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = c.key(k)
	}
	return c.client.Del(ctx, fullKeys...).Err()
}

// IncrWithTTL 自增计数，首次出现时设置过期时间
func (c *Cache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	full := c.key(key)
	n, err := c.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, full, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// TTL 剩余过期时间
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.client.TTL(ctx, c.key(key)).Result()
}
