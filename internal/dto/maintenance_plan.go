package dto

import "time"

// ChecklistTemplateInput 检查项模板
type ChecklistTemplateInput struct {
	StepNumber       int    `json:"step_number" binding:"required,min=1"`
	Description      string `json:"description" binding:"required,max=500"`
	IsRequired       *bool  `json:"is_required"`
	EstimatedMinutes *int   `json:"estimated_minutes" binding:"omitempty,min=1"`
}

// CreatePlanRequest 创建保养计划请求
// FrequencyDays 必须为正：非法频率在创建时拒绝，调度器运行时不再校验
type CreatePlanRequest struct {
	EquipmentID   string                   `json:"equipment_id" binding:"required,uuid"`
	Title         string                   `json:"title" binding:"required,max=200"`
	Description   string                   `json:"description" binding:"max=5000"`
	Priority      string                   `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	FrequencyDays int                      `json:"frequency_days" binding:"required,min=1"`
	NextDue       *time.Time               `json:"next_due"`
	AssigneeID    *string                  `json:"assignee_id" binding:"omitempty,uuid"`
	Templates     []ChecklistTemplateInput `json:"templates" binding:"dive"`
}

// UpdatePlanRequest 更新保养计划请求
type UpdatePlanRequest struct {
	Title         *string                  `json:"title" binding:"omitempty,max=200"`
	Description   *string                  `json:"description" binding:"omitempty,max=5000"`
	Priority      *string                  `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	FrequencyDays *int                     `json:"frequency_days" binding:"omitempty,min=1"`
	AssigneeID    *string                  `json:"assignee_id" binding:"omitempty,uuid"`
	Templates     []ChecklistTemplateInput `json:"templates" binding:"dive"`
}

// PlanListRequest 保养计划列表查询参数
type PlanListRequest struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}

// PlanResponse 保养计划详情
type PlanResponse struct {
	PlanID        string                    `json:"plan_id"`
	EquipmentID   string                    `json:"equipment_id"`
	EquipmentName string                    `json:"equipment_name,omitempty"`
	Title         string                    `json:"title"`
	Description   string                    `json:"description,omitempty"`
	Priority      string                    `json:"priority"`
	FrequencyDays int                       `json:"frequency_days"`
	NextDue       time.Time                 `json:"next_due"`
	LastGenerated *time.Time                `json:"last_generated,omitempty"`
	IsActive      bool                      `json:"is_active"`
	AssigneeID    *string                   `json:"assignee_id,omitempty"`
	Templates     []ChecklistTemplateOutput `json:"templates,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// ChecklistTemplateOutput 检查项模板响应
type ChecklistTemplateOutput struct {
	TemplateID       string `json:"template_id"`
	StepNumber       int    `json:"step_number"`
	Description      string `json:"description"`
	IsRequired       bool   `json:"is_required"`
	EstimatedMinutes *int   `json:"estimated_minutes,omitempty"`
}
