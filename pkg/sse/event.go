package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Kind SSE 事件类型
type Kind string

const (
	KindInit         Kind = "init"         // 连接建立时的通知快照
	KindNotification Kind = "notification" // 新通知实时推送
	KindHeartbeat    Kind = "heartbeat"    // 保活帧（以 SSE 注释发送）
)

// Event 推送事件的封闭联合：变体仅限本包内定义，
// 消费方通过类型开关穷举处理每一种事件。
type Event interface {
	Kind() Kind
	sealed()
}

// NotificationPayload 推送帧中携带的通知内容
type NotificationPayload struct {
	ID        string    `json:"notification_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// InitEvent 连接建立时下发的最近通知快照
type InitEvent struct {
	Notifications []NotificationPayload `json:"notifications"`
}

func (InitEvent) Kind() Kind { return KindInit }
func (InitEvent) sealed()    {}

// NotificationEvent 单条新通知
type NotificationEvent struct {
	Notification NotificationPayload `json:"notification"`
}

func (NotificationEvent) Kind() Kind { return KindNotification }
func (NotificationEvent) sealed()    {}

// HeartbeatEvent 周期性保活，无业务负载
type HeartbeatEvent struct{}

func (HeartbeatEvent) Kind() Kind { return KindHeartbeat }
func (HeartbeatEvent) sealed()    {}

// Encode 将事件编码为 SSE 线上格式（event:/data: 帧，空行结束）
func Encode(e Event) ([]byte, error) {
	var buf bytes.Buffer

	switch v := e.(type) {
	case HeartbeatEvent:
		// 保活帧用 SSE 注释行，客户端 EventSource 自动忽略
		buf.WriteString(": heartbeat\n\n")
		return buf.Bytes(), nil
	case InitEvent, NotificationEvent:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("编码事件负载失败: %w", err)
		}
		fmt.Fprintf(&buf, "event: %s\n", e.Kind())
		// data 按行拆分，符合 SSE 规范的多行负载格式
		for _, line := range bytes.Split(data, []byte("\n")) {
			buf.WriteString("data: ")
			buf.Write(line)
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("未知事件类型: %T", e)
	}
}
