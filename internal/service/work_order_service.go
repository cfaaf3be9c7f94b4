package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fixit/backend/internal/dto"
	"fixit/backend/internal/model"
	"fixit/backend/internal/repository"
	"fixit/backend/internal/sla"
)

// ── 工单模块业务错误 ──

var (
	ErrWorkOrderNotFound     = errors.New("工单不存在")
	ErrEquipmentNotFound     = errors.New("设备不存在")
	ErrAssigneeNotFound      = errors.New("指派人不存在")
	ErrInvalidTransition     = errors.New("非法的工单状态流转")
	ErrChecklistItemNotFound = errors.New("检查项不存在")
)

// WorkOrderService 工单业务接口
type WorkOrderService interface {
	Create(ctx context.Context, req *dto.CreateWorkOrderRequest, callerID string) (*dto.WorkOrderResponse, error)
	GetByID(ctx context.Context, id string) (*dto.WorkOrderResponse, error)
	List(ctx context.Context, req *dto.WorkOrderListRequest) ([]dto.WorkOrderResponse, int64, error)
	Assign(ctx context.Context, id, assigneeID string) (*dto.WorkOrderResponse, error)
	Resolve(ctx context.Context, id string) (*dto.WorkOrderResponse, error)
	Close(ctx context.Context, id string) (*dto.WorkOrderResponse, error)
	CompleteChecklistItem(ctx context.Context, workOrderID, itemID, callerID string) error
}

type workOrderService struct {
	repo      *repository.Repository
	slaEngine *sla.Engine
	notifier  NotificationService
	logger    *zap.Logger
}

// NewWorkOrderService 创建 WorkOrderService 实例
func NewWorkOrderService(repo *repository.Repository, slaEngine *sla.Engine, notifier NotificationService, logger *zap.Logger) WorkOrderService {
	return &workOrderService{repo: repo, slaEngine: slaEngine, notifier: notifier, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *workOrderService) Create(ctx context.Context, req *dto.CreateWorkOrderRequest, callerID string) (*dto.WorkOrderResponse, error) {
	if _, err := s.repo.Equipment.GetByID(ctx, req.EquipmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}

	priority := model.Priority(req.Priority)
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	// 创建即按优先级钉死 SLA 截止与升级时间
	now := time.Now()
	dueBy := s.slaEngine.DueBy(priority, now)
	escalateAt := s.slaEngine.EscalationTime(priority, now)

	wo := &model.WorkOrder{
		EquipmentID:  req.EquipmentID,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     priority,
		Status:       model.StatusOpen,
		DueBy:        &dueBy,
		EscalateAt:   &escalateAt,
		ReportedByID: &callerID,
	}

	if err := s.repo.WorkOrder.Create(ctx, wo, nil); err != nil {
		s.logger.Error("创建工单失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.WorkOrder.GetByID(ctx, wo.WorkOrderID)
	if err != nil {
		return nil, err
	}

	return s.toWorkOrderResponse(created, now), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *workOrderService) GetByID(ctx context.Context, id string) (*dto.WorkOrderResponse, error) {
	wo, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		s.logger.Error("查询工单失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toWorkOrderResponse(wo, time.Now()), nil
}

func (s *workOrderService) List(ctx context.Context, req *dto.WorkOrderListRequest) ([]dto.WorkOrderResponse, int64, error) {
	filter := repository.WorkOrderFilter{
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedToID: req.AssignedToID,
	}
	offset := (req.Page - 1) * req.PageSize

	orders, total, err := s.repo.WorkOrder.List(ctx, filter, offset, req.PageSize)
	if err != nil {
		s.logger.Error("查询工单列表失败", zap.Error(err))
		return nil, 0, err
	}

	now := time.Now()
	result := make([]dto.WorkOrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, *s.toWorkOrderResponse(&orders[i], now))
	}

	return result, total, nil
}

// ────────────────────── Assign ──────────────────────

func (s *workOrderService) Assign(ctx context.Context, id, assigneeID string) (*dto.WorkOrderResponse, error) {
	wo, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, err
	}

	// 已完结的工单不可再指派
	if wo.Status == model.StatusResolved || wo.Status == model.StatusClosed {
		return nil, ErrInvalidTransition
	}

	if _, err := s.repo.User.GetByID(ctx, assigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, err
	}

	assigneeChanged := wo.AssignedToID == nil || *wo.AssignedToID != assigneeID

	wo.AssignedToID = &assigneeID
	if wo.Status == model.StatusOpen {
		wo.Status = model.StatusInProgress
	}

	if err := s.repo.WorkOrder.Update(ctx, wo); err != nil {
		s.logger.Error("指派工单失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 指派人变化时通知新指派人；推送失败不影响指派本身
	if assigneeChanged {
		if err := s.notifier.Notify(ctx, assigneeID,
			model.NotificationWorkOrderAssigned,
			"新工单指派",
			fmt.Sprintf("工单「%s」已指派给你", wo.Title),
			"/work-orders/"+wo.WorkOrderID,
		); err != nil {
			s.logger.Warn("指派通知发送失败", zap.String("work_order_id", id), zap.Error(err))
		}
	}

	return s.toWorkOrderResponse(wo, time.Now()), nil
}

// ────────────────────── Resolve / Close ──────────────────────

func (s *workOrderService) Resolve(ctx context.Context, id string) (*dto.WorkOrderResponse, error) {
	wo, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, err
	}

	if !wo.Status.CanTransitionTo(model.StatusResolved) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	wo.Status = model.StatusResolved
	wo.ResolvedAt = &now

	if err := s.repo.WorkOrder.Update(ctx, wo); err != nil {
		s.logger.Error("完成工单失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 通知报修人工单已处理
	if wo.ReportedByID != nil {
		if err := s.notifier.Notify(ctx, *wo.ReportedByID,
			model.NotificationWorkOrderResolved,
			"工单已完成",
			fmt.Sprintf("工单「%s」已处理完毕", wo.Title),
			"/work-orders/"+wo.WorkOrderID,
		); err != nil {
			s.logger.Warn("完成通知发送失败", zap.String("work_order_id", id), zap.Error(err))
		}
	}

	return s.toWorkOrderResponse(wo, now), nil
}

func (s *workOrderService) Close(ctx context.Context, id string) (*dto.WorkOrderResponse, error) {
	wo, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, err
	}

	if !wo.Status.CanTransitionTo(model.StatusClosed) {
		return nil, ErrInvalidTransition
	}

	wo.Status = model.StatusClosed

	if err := s.repo.WorkOrder.Update(ctx, wo); err != nil {
		s.logger.Error("关闭工单失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toWorkOrderResponse(wo, time.Now()), nil
}

// ────────────────────── CompleteChecklistItem ──────────────────────

func (s *workOrderService) CompleteChecklistItem(ctx context.Context, workOrderID, itemID, callerID string) error {
	item, err := s.repo.WorkOrder.GetChecklistItem(ctx, workOrderID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChecklistItemNotFound
		}
		return err
	}

	if item.IsCompleted {
		return nil // 幂等：重复勾选为 no-op
	}

	now := time.Now()
	item.IsCompleted = true
	item.CompletedAt = &now
	item.CompletedBy = &callerID

	if err := s.repo.WorkOrder.UpdateChecklistItem(ctx, item); err != nil {
		s.logger.Error("勾选检查项失败", zap.String("item_id", itemID), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── 转换 ──────────────────────

func (s *workOrderService) toWorkOrderResponse(wo *model.WorkOrder, now time.Time) *dto.WorkOrderResponse {
	resp := &dto.WorkOrderResponse{
		WorkOrderID:      wo.WorkOrderID,
		EquipmentID:      wo.EquipmentID,
		Title:            wo.Title,
		Description:      wo.Description,
		Priority:         string(wo.Priority),
		Status:           string(wo.Status),
		DueBy:            wo.DueBy,
		EscalateAt:       wo.EscalateAt,
		ResolvedAt:       wo.ResolvedAt,
		AssignedToID:     wo.AssignedToID,
		Urgency:          string(s.slaEngine.UrgencyLevel(wo.DueBy, now)),
		TimeRemainingSec: int64(s.slaEngine.TimeRemaining(wo.DueBy, now).Seconds()),
		IsOverdue:        s.slaEngine.IsOverdue(wo.DueBy, now),
		CreatedAt:        wo.CreatedAt,
	}

	if wo.Equipment != nil {
		resp.EquipmentName = wo.Equipment.Name
	}
	if wo.AssignedTo != nil {
		resp.AssignedToName = wo.AssignedTo.Name
	}

	for i := range wo.Checklist {
		item := &wo.Checklist[i]
		resp.Checklist = append(resp.Checklist, dto.ChecklistItemResponse{
			ItemID:           item.ItemID,
			StepNumber:       item.StepNumber,
			Description:      item.Description,
			IsRequired:       item.IsRequired,
			EstimatedMinutes: item.EstimatedMinutes,
			IsCompleted:      item.IsCompleted,
			CompletedAt:      item.CompletedAt,
		})
	}

	return resp
}
