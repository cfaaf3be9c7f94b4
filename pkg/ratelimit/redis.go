package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fixit/backend/pkg/redis"
)

// RedisLimiter 基于 Redis 固定窗口计数的限流器。
// 多实例部署时共享计数；Redis 自身的 key 过期即窗口重置，无需清扫。
type RedisLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(client *redis.Client, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, logger: logger}
}

// Allow 实现 Limiter 接口
// Redis 出错时返回错误，由中间件决定降级策略（当前为降级放行）
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	count, ttl, err := l.client.FixedWindowIncr(ctx, "rate_limit:"+key, window)
	if err != nil {
		l.logger.Warn("限流计数失败", zap.String("key", key), zap.Error(err))
		return Result{}, err
	}

	resetAt := time.Now().Add(ttl)
	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{Allowed: true, Remaining: limit - int(count), ResetAt: resetAt}, nil
}
