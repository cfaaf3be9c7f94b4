package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fixit/backend/internal/dto"
	"fixit/backend/internal/model"
	"fixit/backend/internal/repository"
)

// ── 保养计划模块业务错误 ──

var (
	ErrPlanNotFound        = errors.New("保养计划不存在")
	ErrInvalidFrequency    = errors.New("保养频率必须为正数")
	ErrDuplicateStepNumber = errors.New("检查项步骤序号重复")
)

// PlanService 保养计划业务接口
// 非法配置（非正频率、目标设备不存在）在创建/更新时拒绝，
// 调度器运行时不会遇到
type PlanService interface {
	Create(ctx context.Context, req *dto.CreatePlanRequest) (*dto.PlanResponse, error)
	GetByID(ctx context.Context, id string) (*dto.PlanResponse, error)
	List(ctx context.Context, page, pageSize int) ([]dto.PlanResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type planService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPlanService 创建 PlanService 实例
func NewPlanService(repo *repository.Repository, logger *zap.Logger) PlanService {
	return &planService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *planService) Create(ctx context.Context, req *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if req.FrequencyDays <= 0 {
		return nil, ErrInvalidFrequency
	}

	if _, err := s.repo.Equipment.GetByID(ctx, req.EquipmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}

	if req.AssigneeID != nil {
		if _, err := s.repo.User.GetByID(ctx, *req.AssigneeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssigneeNotFound
			}
			return nil, err
		}
	}

	templates, err := buildTemplates(req.Templates)
	if err != nil {
		return nil, err
	}

	priority := model.Priority(req.Priority)
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	// 未指定首个到期时间则从现在推一个周期
	nextDue := time.Now().AddDate(0, 0, req.FrequencyDays)
	if req.NextDue != nil {
		nextDue = *req.NextDue
	}

	plan := &model.MaintenancePlan{
		EquipmentID:   req.EquipmentID,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      priority,
		FrequencyDays: req.FrequencyDays,
		NextDue:       nextDue,
		IsActive:      true,
		AssigneeID:    req.AssigneeID,
		Templates:     templates,
	}

	if err := s.repo.Plan.Create(ctx, plan); err != nil {
		s.logger.Error("创建保养计划失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.Plan.GetByID(ctx, plan.PlanID)
	if err != nil {
		return nil, err
	}

	return toPlanResponse(created), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *planService) GetByID(ctx context.Context, id string) (*dto.PlanResponse, error) {
	plan, err := s.repo.Plan.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		s.logger.Error("查询保养计划失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toPlanResponse(plan), nil
}

func (s *planService) List(ctx context.Context, page, pageSize int) ([]dto.PlanResponse, int64, error) {
	offset := (page - 1) * pageSize
	plans, total, err := s.repo.Plan.List(ctx, offset, pageSize)
	if err != nil {
		s.logger.Error("查询保养计划列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		result = append(result, *toPlanResponse(&plans[i]))
	}

	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *planService) Update(ctx context.Context, id string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error) {
	plan, err := s.repo.Plan.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	if req.FrequencyDays != nil {
		if *req.FrequencyDays <= 0 {
			return nil, ErrInvalidFrequency
		}
		plan.FrequencyDays = *req.FrequencyDays
	}
	if req.Title != nil {
		plan.Title = *req.Title
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		if p.Valid() {
			plan.Priority = p
		}
	}
	if req.AssigneeID != nil {
		if _, err := s.repo.User.GetByID(ctx, *req.AssigneeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssigneeNotFound
			}
			return nil, err
		}
		plan.AssigneeID = req.AssigneeID
	}

	if err := s.repo.Plan.Update(ctx, plan); err != nil {
		s.logger.Error("更新保养计划失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 显式传入模板时整体替换
	if req.Templates != nil {
		templates, err := buildTemplates(req.Templates)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Plan.ReplaceTemplates(ctx, id, templates); err != nil {
			s.logger.Error("更新检查项模板失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
	}

	updated, err := s.repo.Plan.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toPlanResponse(updated), nil
}

// ────────────────────── SetActive ──────────────────────

// SetActive 启用/停用计划
// 停用期间 NextDue 保持不变，调度器整体跳过停用计划
func (s *planService) SetActive(ctx context.Context, id string, active bool) error {
	err := s.repo.Plan.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlanNotFound
		}
		s.logger.Error("切换计划状态失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 辅助 ──────────────────────

func buildTemplates(inputs []dto.ChecklistTemplateInput) ([]model.ChecklistTemplate, error) {
	seen := make(map[int]bool, len(inputs))
	templates := make([]model.ChecklistTemplate, 0, len(inputs))

	for _, in := range inputs {
		if seen[in.StepNumber] {
			return nil, ErrDuplicateStepNumber
		}
		seen[in.StepNumber] = true

		required := true
		if in.IsRequired != nil {
			required = *in.IsRequired
		}
		templates = append(templates, model.ChecklistTemplate{
			StepNumber:       in.StepNumber,
			Description:      in.Description,
			IsRequired:       required,
			EstimatedMinutes: in.EstimatedMinutes,
		})
	}

	return templates, nil
}

func toPlanResponse(plan *model.MaintenancePlan) *dto.PlanResponse {
	resp := &dto.PlanResponse{
		PlanID:        plan.PlanID,
		EquipmentID:   plan.EquipmentID,
		Title:         plan.Title,
		Description:   plan.Description,
		Priority:      string(plan.Priority),
		FrequencyDays: plan.FrequencyDays,
		NextDue:       plan.NextDue,
		LastGenerated: plan.LastGenerated,
		IsActive:      plan.IsActive,
		AssigneeID:    plan.AssigneeID,
		CreatedAt:     plan.CreatedAt,
	}

	if plan.Equipment != nil {
		resp.EquipmentName = plan.Equipment.Name
	}

	for i := range plan.Templates {
		t := &plan.Templates[i]
		resp.Templates = append(resp.Templates, dto.ChecklistTemplateOutput{
			TemplateID:       t.TemplateID,
			StepNumber:       t.StepNumber,
			Description:      t.Description,
			IsRequired:       t.IsRequired,
			EstimatedMinutes: t.EstimatedMinutes,
		})
	}

	return resp
}
