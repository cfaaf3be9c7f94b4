package dto

import "time"

// CreateWorkOrderRequest 创建工单请求
type CreateWorkOrderRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required,uuid"`
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=5000"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high critical"`
}

// AssignWorkOrderRequest 指派工单请求
type AssignWorkOrderRequest struct {
	AssigneeID string `json:"assignee_id" binding:"required,uuid"`
}

// WorkOrderListRequest 工单列表查询参数
type WorkOrderListRequest struct {
	Status       string `form:"status" binding:"omitempty,oneof=open in_progress resolved closed"`
	Priority     string `form:"priority" binding:"omitempty,oneof=low medium high critical"`
	AssignedToID string `form:"assigned_to_id" binding:"omitempty,uuid"`
	Page         int    `form:"page,default=1" binding:"min=1"`
	PageSize     int    `form:"page_size,default=20" binding:"min=1,max=100"`
}

// ChecklistItemResponse 工单检查项
type ChecklistItemResponse struct {
	ItemID           string     `json:"item_id"`
	StepNumber       int        `json:"step_number"`
	Description      string     `json:"description"`
	IsRequired       bool       `json:"is_required"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	IsCompleted      bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// WorkOrderResponse 工单详情
// Urgency 与 TimeRemaining 由 SLA 引擎按查询时刻实时计算，不落库
type WorkOrderResponse struct {
	WorkOrderID      string                  `json:"work_order_id"`
	EquipmentID      string                  `json:"equipment_id"`
	EquipmentName    string                  `json:"equipment_name,omitempty"`
	Title            string                  `json:"title"`
	Description      string                  `json:"description,omitempty"`
	Priority         string                  `json:"priority"`
	Status           string                  `json:"status"`
	DueBy            *time.Time              `json:"due_by,omitempty"`
	EscalateAt       *time.Time              `json:"escalate_at,omitempty"`
	ResolvedAt       *time.Time              `json:"resolved_at,omitempty"`
	AssignedToID     *string                 `json:"assigned_to_id,omitempty"`
	AssignedToName   string                  `json:"assigned_to_name,omitempty"`
	Urgency          string                  `json:"urgency"`
	TimeRemainingSec int64                   `json:"time_remaining_sec"`
	IsOverdue        bool                    `json:"is_overdue"`
	Checklist        []ChecklistItemResponse `json:"checklist,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}
