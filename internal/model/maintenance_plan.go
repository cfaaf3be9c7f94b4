package model

import "time"

// MaintenancePlan 保养计划表 — 对应 maintenance_plans
// 不变量：每次触发 NextDue 严格按 FrequencyDays 的整数倍前移；
// 同一到期周期绝不生成两张工单
type MaintenancePlan struct {
	PlanID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_id"`
	EquipmentID   string     `gorm:"type:uuid;not null"                             json:"equipment_id"`
	Title         string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description   string     `gorm:"type:text"                                      json:"description,omitempty"`
	Priority      Priority   `gorm:"type:varchar(10);not null;default:'medium'"     json:"priority"`
	FrequencyDays int        `gorm:"not null"                                       json:"frequency_days"`
	NextDue       time.Time  `gorm:"not null"                                       json:"next_due"`
	LastGenerated *time.Time `json:"last_generated,omitempty"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	AssigneeID    *string    `gorm:"type:uuid" json:"assignee_id,omitempty"` // 生成工单的默认指派人
	BaseModel

	// 关联
	Equipment *Equipment          `gorm:"foreignKey:EquipmentID;references:EquipmentID" json:"equipment,omitempty"`
	Templates []ChecklistTemplate `gorm:"foreignKey:PlanID"                             json:"templates,omitempty"`
}

// TableName 指定表名
func (MaintenancePlan) TableName() string { return "maintenance_plans" }

// ChecklistTemplate 检查项模板表 — 对应 checklist_templates
// 计划生成工单时按 StepNumber 顺序复制为 ChecklistItem
type ChecklistTemplate struct {
	TemplateID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_id"`
	PlanID           string `gorm:"type:uuid;not null"                             json:"plan_id"`
	StepNumber       int    `gorm:"not null"                                       json:"step_number"`
	Description      string `gorm:"type:varchar(500);not null"                     json:"description"`
	IsRequired       bool   `gorm:"not null;default:true"                          json:"is_required"`
	EstimatedMinutes *int   `json:"estimated_minutes,omitempty"`
}

// TableName 指定表名
func (ChecklistTemplate) TableName() string { return "checklist_templates" }
