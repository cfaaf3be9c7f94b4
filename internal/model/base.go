package model

import "time"

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ── 工单优先级 ──

// Priority 工单优先级，决定 SLA 响应时限
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid 是否为合法优先级
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ── 工单状态 ──

// WorkOrderStatus 工单状态，流转顺序 open → in_progress → resolved → closed
type WorkOrderStatus string

const (
	StatusOpen       WorkOrderStatus = "open"
	StatusInProgress WorkOrderStatus = "in_progress"
	StatusResolved   WorkOrderStatus = "resolved"
	StatusClosed     WorkOrderStatus = "closed"
)

// CanTransitionTo 校验状态流转是否合法
func (s WorkOrderStatus) CanTransitionTo(next WorkOrderStatus) bool {
	switch s {
	case StatusOpen:
		return next == StatusInProgress || next == StatusResolved
	case StatusInProgress:
		return next == StatusResolved
	case StatusResolved:
		return next == StatusClosed
	default:
		return false
	}
}
