package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fixit/backend/config"
)

// Client Redis 客户端封装
// 当前用于多实例部署下的共享限流计数；后续可扩展缓存、分布式锁等场景
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 固定窗口计数 ──

// FixedWindowIncr 对 key 执行固定窗口自增计数。
// 窗口内第一个请求创建计数并设置过期时间；返回自增后的计数值
// 与距窗口重置的剩余时间。key 过期后下一次调用自动开启新窗口。
func (c *Client) FixedWindowIncr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	count := incr.Val()
	remaining := ttl.Val()

	// 第一个请求（或 key 无过期时间的异常状态）：设置窗口过期
	if count == 1 || remaining < 0 {
		if err := c.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return count, window, err
		}
		remaining = window
	}

	return count, remaining, nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
