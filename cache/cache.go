package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"fintrack/config"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init 初始化 Redis 连接。Redis 是可选依赖：
// 未启用或连接失败时只打日志降级，所有读写接口变为 no-op
func Init(cfg *config.Config) {
	if !cfg.Redis.Enabled {
		log.Println("Redis 未启用，缓存降级为直查数据库")
		return
	}

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("Redis 连接失败，缓存降级: %v", err)
		return
	}

	client = c
	log.Println("Redis 初始化成功")
}

// Enabled 缓存是否可用
func Enabled() bool {
	return client != nil
}

// GetJSON 读取缓存并反序列化到 dest，未命中或出错返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if client == nil {
		return false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("缓存数据解析失败 key=%s: %v", key, err)
		return false
	}
	return true
}

// SetJSON 序列化并写入缓存，失败只打日志
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("缓存序列化失败 key=%s: %v", key, err)
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("缓存写入失败 key=%s: %v", key, err)
	}
}

// Delete 删除指定 key
func Delete(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("缓存删除失败: %v", err)
	}
}

// ClearPattern 按模式清理缓存，使用 SCAN 避免阻塞
func ClearPattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("缓存扫描失败 pattern=%s: %v", pattern, err)
		return
	}
	if len(keys) > 0 {
		Delete(ctx, keys...)
	}
}

// InvalidateUser 清理某个用户的全部派生缓存，写路径提交后调用
func InvalidateUser(ctx context.Context, userID uint) {
	if client == nil {
		return
	}
	for _, prefix := range []string{"transactions", "budgets", "goals", "subscriptions", "analytics"} {
		ClearPattern(ctx, fmt.Sprintf("%s:%d:*", prefix, userID))
	}
}
