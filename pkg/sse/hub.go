package sse

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const shardCount = 16

// Channel 单个客户端连接的投递通道。
// 同一用户可持有多个 Channel（多标签页、多设备），
// 每个 Channel 由传输层在连接断开时 Unsubscribe。
type Channel struct {
	id     string
	userID string
	events chan Event

	closeOnce sync.Once
	done      chan struct{}
}

// ID 通道句柄标识
func (c *Channel) ID() string { return c.id }

// Events 传输层消费的事件流
func (c *Channel) Events() <-chan Event { return c.events }

// Done 通道被注销后关闭
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// shard 一组用户的通道注册表，持有独立锁
type shard struct {
	mu    sync.RWMutex
	users map[string]map[*Channel]struct{}
}

// Hub 进程内的按用户实时投递注册表。
// 用户按哈希分散到固定数量的分片上，各分片独立加锁，
// 避免单把全局锁串行化不相关用户的流量。
type Hub struct {
	shards [shardCount]*shard
	buffer int
}

// NewHub 创建通知 Hub
// buffer 为每个通道的事件缓冲大小，<=0 时取 16
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	h := &Hub{buffer: buffer}
	for i := range h.shards {
		h.shards[i] = &shard{users: make(map[string]map[*Channel]struct{})}
	}
	return h
}

func (h *Hub) shardFor(userID string) *shard {
	f := fnv.New32a()
	f.Write([]byte(userID))
	return h.shards[f.Sum32()%shardCount]
}

// Subscribe 为用户注册一个新的投递通道
func (h *Hub) Subscribe(userID string) *Channel {
	ch := &Channel{
		id:     uuid.New().String(),
		userID: userID,
		events: make(chan Event, h.buffer),
		done:   make(chan struct{}),
	}

	s := h.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[userID] == nil {
		s.users[userID] = make(map[*Channel]struct{})
	}
	s.users[userID][ch] = struct{}{}

	return ch
}

// Unsubscribe 移除指定通道；通道已移除时为 no-op，
// 支持正常结束与取消路径的双重清理。
func (h *Hub) Unsubscribe(userID string, ch *Channel) {
	if ch == nil {
		return
	}

	s := h.shardFor(userID)
	s.mu.Lock()
	if set, ok := s.users[userID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(s.users, userID)
		}
	}
	s.mu.Unlock()

	ch.close()
}

// Publish 向用户当前注册的所有通道投递事件。
// 无人订阅时事件直接丢弃（持久化的通知记录才是可靠凭证）。
// 投递为非阻塞：缓冲已满或通道已注销的连接视为失效，
// 发布方不等待，事后将其注销。
func (h *Hub) Publish(userID string, e Event) {
	s := h.shardFor(userID)

	s.mu.RLock()
	set, ok := s.users[userID]
	if !ok || len(set) == 0 {
		s.mu.RUnlock()
		return
	}

	var dead []*Channel
	for ch := range set {
		select {
		case <-ch.done:
			dead = append(dead, ch)
		case ch.events <- e:
		default:
			// 消费方长期不取事件，判定连接失效
			dead = append(dead, ch)
		}
	}
	s.mu.RUnlock()

	for _, ch := range dead {
		h.Unsubscribe(userID, ch)
	}
}

// Connections 返回连接统计（健康检查用）
func (h *Hub) Connections() (totalChannels, uniqueUsers int) {
	for _, s := range h.shards {
		s.mu.RLock()
		uniqueUsers += len(s.users)
		for _, set := range s.users {
			totalChannels += len(set)
		}
		s.mu.RUnlock()
	}
	return totalChannels, uniqueUsers
}

// IsConnected 用户当前是否有活跃连接
func (h *Hub) IsConnected(userID string) bool {
	s := h.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0
}
