package model

import "time"

// WorkOrder 工单表 — 对应 work_orders
// 不变量：DueBy 非空时 DueBy >= CreatedAt；
// ResolvedAt 仅在 status ∈ {resolved, closed} 时有值；
// EscalatedAt 非空表示该工单已被调度器升级过，升级只发生一次
type WorkOrder struct {
	WorkOrderID  string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"work_order_id"`
	EquipmentID  string          `gorm:"type:uuid;not null"                             json:"equipment_id"`
	Title        string          `gorm:"type:varchar(200);not null"                     json:"title"`
	Description  string          `gorm:"type:text"                                      json:"description,omitempty"`
	Priority     Priority        `gorm:"type:varchar(10);not null;default:'medium'"     json:"priority"`
	Status       WorkOrderStatus `gorm:"type:varchar(20);not null;default:'open'"       json:"status"`
	DueBy        *time.Time      `json:"due_by,omitempty"`
	EscalateAt   *time.Time      `json:"escalate_at,omitempty"`
	EscalatedAt  *time.Time      `json:"escalated_at,omitempty"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
	AssignedToID *string         `gorm:"type:uuid" json:"assigned_to_id,omitempty"`
	ReportedByID *string         `gorm:"type:uuid" json:"reported_by_id,omitempty"`
	PlanID       *string         `gorm:"type:uuid" json:"plan_id,omitempty"` // 由保养计划生成时回指计划
	BaseModel

	// 关联
	Equipment  *Equipment      `gorm:"foreignKey:EquipmentID;references:EquipmentID" json:"equipment,omitempty"`
	AssignedTo *User           `gorm:"foreignKey:AssignedToID;references:UserID"     json:"assigned_to,omitempty"`
	Checklist  []ChecklistItem `gorm:"foreignKey:WorkOrderID"                        json:"checklist,omitempty"`
}

// TableName 指定表名
func (WorkOrder) TableName() string { return "work_orders" }

// ChecklistItem 工单检查项表 — 对应 checklist_items
// 生成工单时从计划模板复制，归属唯一工单，可独立勾选完成
type ChecklistItem struct {
	ItemID           string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"item_id"`
	WorkOrderID      string     `gorm:"type:uuid;not null"                             json:"work_order_id"`
	StepNumber       int        `gorm:"not null"                                       json:"step_number"`
	Description      string     `gorm:"type:varchar(500);not null"                     json:"description"`
	IsRequired       bool       `gorm:"not null;default:true"                          json:"is_required"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	IsCompleted      bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CompletedBy      *string    `gorm:"type:uuid" json:"completed_by,omitempty"`
}

// TableName 指定表名
func (ChecklistItem) TableName() string { return "checklist_items" }
