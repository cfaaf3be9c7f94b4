// Package ratelimit 提供固定窗口速率限制。
//
// 同一 key 在窗口内的请求计数达到上限后拒绝，窗口过期后自动重开。
// 提供内存实现（单实例）与 Redis 实现（多实例共享计数），
// 两者通过 Limiter 接口对调用方透明。
package ratelimit

import (
	"context"
	"time"
)

// Result 单次限流检查的结果
type Result struct {
	Allowed   bool      // 本次请求是否放行
	Remaining int       // 当前窗口剩余额度
	ResetAt   time.Time // 窗口重置时间
}

// Limiter 速率限制器接口
// Allow 对 key 执行一次"计数并判定"，increment-and-compare 必须原子完成，
// 保证并发请求不会同时挤过限额。
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}
