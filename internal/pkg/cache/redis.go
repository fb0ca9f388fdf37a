// Package cache 封装 Redis：JSON 值读写与统一的 key 命名
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ambience/internal/config"
)

// ErrMiss key 不存在
var ErrMiss = errors.New("cache miss")

const pingTimeout = 5 * time.Second

// RedisCache Redis 客户端，值以 JSON 存储
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 连接 Redis，连通性检查失败时返回错误
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	c := &RedisCache{client: client}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// Ping 检查连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set 以 JSON 写入 value，ttl 为 0 时不过期
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get 读取 key 并解码到 dest，不存在时返回 ErrMiss
func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Delete 删除 keys
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Client 原始客户端，供分布式锁使用
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// 所有 key 带统一前缀，便于与其他服务共用实例
const (
	keyNamespace         = "ambience:"
	EnvTaskKeyPrefix     = keyNamespace + "envtask:"
	ProjectLockKeyPrefix = keyNamespace + "lock:project:"
)

// EnvTaskKey 环境音生成任务
func EnvTaskKey(taskID string) string {
	return EnvTaskKeyPrefix + taskID
}

// ProjectLockKey 项目合成锁
func ProjectLockKey(projectID string) string {
	return ProjectLockKeyPrefix + projectID
}
