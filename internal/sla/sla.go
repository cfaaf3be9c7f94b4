// Package sla 提供工单响应时限的纯时间运算。
//
// 所有函数无副作用、不会失败；非法输入（未知优先级、负频率）
// 由调用方在入口校验，引擎假定收到的都是已校验的合法值。
package sla

import (
	"time"

	"fixit/backend/config"
	"fixit/backend/internal/model"
)

// UrgencyLevel 工单紧迫程度
type UrgencyLevel string

const (
	UrgencyNormal   UrgencyLevel = "normal"
	UrgencyWarning  UrgencyLevel = "warning"  // 剩余 ≤ 4 小时
	UrgencyCritical UrgencyLevel = "critical" // 剩余 ≤ 1 小时
	UrgencyOverdue  UrgencyLevel = "overdue"  // 已超期
)

const (
	warningThreshold  = 4 * time.Hour
	criticalThreshold = time.Hour
)

// Engine SLA 引擎：各优先级的响应时限来自系统配置
type Engine struct {
	hours map[model.Priority]int
}

// NewEngine 从配置构建 SLA 引擎
func NewEngine(cfg *config.SLAConfig) *Engine {
	return &Engine{hours: map[model.Priority]int{
		model.PriorityCritical: cfg.CriticalHours,
		model.PriorityHigh:     cfg.HighHours,
		model.PriorityMedium:   cfg.MediumHours,
		model.PriorityLow:      cfg.LowHours,
	}}
}

// SLAHours 指定优先级的响应时限（小时）
// 未知优先级按 medium 处理
func (e *Engine) SLAHours(p model.Priority) int {
	if h, ok := e.hours[p]; ok {
		return h
	}
	return e.hours[model.PriorityMedium]
}

// DueBy 由优先级与创建时间计算截止时间
func (e *Engine) DueBy(p model.Priority, createdAt time.Time) time.Time {
	return createdAt.Add(time.Duration(e.SLAHours(p)) * time.Hour)
}

// IsOverdue 截止时间是否已过；无截止时间永不超期
func (e *Engine) IsOverdue(dueBy *time.Time, now time.Time) bool {
	if dueBy == nil {
		return false
	}
	return now.After(*dueBy)
}

// TimeRemaining 距截止时间的剩余时长（可为负）
// 无截止时间返回 0，视为"无期限"，绝不紧急
func (e *Engine) TimeRemaining(dueBy *time.Time, now time.Time) time.Duration {
	if dueBy == nil {
		return 0
	}
	return dueBy.Sub(now)
}

// UrgencyLevel 按剩余时间划分紧迫程度
// 阈值单调不重叠：overdue < critical ≤ warning < normal
func (e *Engine) UrgencyLevel(dueBy *time.Time, now time.Time) UrgencyLevel {
	if dueBy == nil {
		return UrgencyNormal
	}

	remaining := dueBy.Sub(now)
	switch {
	case remaining < 0:
		return UrgencyOverdue
	case remaining <= criticalThreshold:
		return UrgencyCritical
	case remaining <= warningThreshold:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// EscalationTime SLA 窗口过去 75% 时升级：dueBy - 0.25 × 窗口
func (e *Engine) EscalationTime(p model.Priority, createdAt time.Time) time.Time {
	window := time.Duration(e.SLAHours(p)) * time.Hour
	return createdAt.Add(window - window/4)
}
