package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry 单个 key 的窗口计数
type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter 基于内存 map 的固定窗口限流器。
// 仅适用于单实例部署；多实例请使用 RedisLimiter。
// 过期条目由后台清扫协程定期回收，清扫周期与任何窗口时长无关。
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	now      func() time.Time
	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryLimiter 创建内存限流器并启动后台清扫。
// sweepInterval <= 0 时使用 1 分钟。调用方负责在进程退出前 Close。
func NewMemoryLimiter(sweepInterval time.Duration) *MemoryLimiter {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	l := &MemoryLimiter{
		entries: make(map[string]*entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweepLoop(sweepInterval)
	return l
}

// Allow 实现 Limiter 接口
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := l.now()

	// 额度为零或负数即无可用配额，直接拒绝，不为其开窗口
	// （与 RedisLimiter 在该参数下的行为一致）
	if limit <= 0 {
		return Result{Allowed: false, Remaining: 0, ResetAt: now.Add(window)}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !e.resetAt.After(now) {
		// 首个请求，或旧窗口已过期：开启新窗口
		e = &entry{count: 1, resetAt: now.Add(window)}
		l.entries[key] = e
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: e.resetAt}, nil
	}

	if e.count >= limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}, nil
	}

	e.count++
	return Result{Allowed: true, Remaining: limit - e.count, ResetAt: e.resetAt}, nil
}

// Reset 删除指定 key 的计数（测试与管理用途）
func (l *MemoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Close 停止后台清扫协程，可安全重复调用
func (l *MemoryLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *MemoryLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep 回收已过期的窗口条目，避免 map 无界增长
func (l *MemoryLimiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if !e.resetAt.After(now) {
			delete(l.entries, key)
		}
	}
}
