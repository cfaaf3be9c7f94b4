package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fixit/backend/internal/model"
	"fixit/backend/internal/repository"
	"fixit/backend/internal/sla"
	apperrors "fixit/backend/pkg/errors"
)

// ScheduleService 保养计划调度器
// 把到期的周期性计划物化为具体工单：每个到期周期恰好生成一次，
// 已生成过的周期生成零次。随后对升级时点已过的未完结工单做
// SLA 升级（每单一次）。可重复、可并发触发。
type ScheduleService interface {
	RunOnce(ctx context.Context, now time.Time) (generated, escalated int, err error)
}

type scheduleService struct {
	repo      *repository.Repository
	slaEngine *sla.Engine
	notifier  NotificationService
	logger    *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, slaEngine *sla.Engine, notifier NotificationService, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, slaEngine: slaEngine, notifier: notifier, logger: logger}
}

// RunOnce 执行一次调度：
//  1. 加载所有 next_due <= now 的启用计划
//  2. 逐计划以旧 next_due 为守卫原子认领（并发触发只有一个成功）
//  3. 认领成功则创建工单 + 按序复制检查项，并前移 next_due
//  4. 有默认指派人时推送 maintenance_due 通知
//  5. 升级轮：escalate_at 已过且未升级的未完结工单打升级标记，
//     通知所有启用的管理员与指派人
//
// 单个计划出错只跳过该计划，不影响整轮；事务回滚保证
// next_due 不会半前移，下轮自动重试。升级轮同理逐单隔离。
func (s *scheduleService) RunOnce(ctx context.Context, now time.Time) (int, int, error) {
	plans, err := s.repo.Plan.ListDue(ctx, now)
	if err != nil {
		s.logger.Error("加载到期计划失败", zap.Error(err))
		return 0, 0, err
	}

	generated := 0
	for i := range plans {
		plan := &plans[i]

		if err := s.generateForPlan(ctx, plan, now); err != nil {
			if errors.Is(err, apperrors.ErrOptimisticLock) {
				// 另一个并发触发已处理该计划，幂等跳过
				s.logger.Debug("计划已被并发触发认领",
					zap.String("plan_id", plan.PlanID))
				continue
			}
			s.logger.Error("计划生成工单失败",
				zap.String("plan_id", plan.PlanID),
				zap.Error(err))
			continue
		}

		generated++
	}

	escalated := s.escalateOverdue(ctx, now)

	if generated > 0 || escalated > 0 {
		s.logger.Info("调度完成",
			zap.Int("generated", generated),
			zap.Int("escalated", escalated))
	}

	return generated, escalated, nil
}

// escalateOverdue SLA 升级轮：升级时点已过的 open/in_progress 工单
// 打上 escalated_at 标记并通知管理员与指派人。标记以
// escalated_at IS NULL 为守卫，并发轮次下每单只升级一次。
func (s *scheduleService) escalateOverdue(ctx context.Context, now time.Time) int {
	orders, err := s.repo.WorkOrder.ListEscalatable(ctx, now)
	if err != nil {
		s.logger.Error("加载待升级工单失败", zap.Error(err))
		return 0
	}
	if len(orders) == 0 {
		return 0
	}

	admins, err := s.repo.User.ListActiveAdmins(ctx)
	if err != nil {
		s.logger.Error("加载管理员列表失败", zap.Error(err))
		return 0
	}

	escalated := 0
	for i := range orders {
		wo := &orders[i]

		if err := s.repo.WorkOrder.MarkEscalated(ctx, wo.WorkOrderID, now); err != nil {
			if errors.Is(err, apperrors.ErrOptimisticLock) {
				// 另一个并发轮次已升级该工单
				continue
			}
			s.logger.Error("工单升级标记失败",
				zap.String("work_order_id", wo.WorkOrderID),
				zap.Error(err))
			continue
		}

		equipmentName := "未知设备"
		if wo.Equipment != nil {
			equipmentName = wo.Equipment.Name
		}
		link := "/work-orders/" + wo.WorkOrderID

		for _, admin := range admins {
			if err := s.notifier.Notify(ctx, admin.UserID,
				model.NotificationWorkOrderEscalated,
				"工单升级 - SLA 违约",
				fmt.Sprintf("「%s」(%s) 已超过处理时限", wo.Title, equipmentName),
				link,
			); err != nil {
				s.logger.Warn("升级通知发送失败",
					zap.String("work_order_id", wo.WorkOrderID),
					zap.String("user_id", admin.UserID),
					zap.Error(err))
			}
		}

		if wo.AssignedToID != nil {
			if err := s.notifier.Notify(ctx, *wo.AssignedToID,
				model.NotificationWorkOrderEscalated,
				"你的工单已被升级",
				fmt.Sprintf("「%s」已临近或超过 SLA 时限，请优先处理", wo.Title),
				link,
			); err != nil {
				s.logger.Warn("升级通知发送失败",
					zap.String("work_order_id", wo.WorkOrderID),
					zap.String("user_id", *wo.AssignedToID),
					zap.Error(err))
			}
		}

		escalated++
	}

	return escalated
}

func (s *scheduleService) generateForPlan(ctx context.Context, plan *model.MaintenancePlan, now time.Time) error {
	priority := plan.Priority
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	dueBy := s.slaEngine.DueBy(priority, now)
	escalateAt := s.slaEngine.EscalationTime(priority, now)

	wo := &model.WorkOrder{
		EquipmentID: plan.EquipmentID,
		Title:       fmt.Sprintf("定期保养: %s", plan.Title),
		Description: fmt.Sprintf("由保养计划「%s」自动生成", plan.Title),
		Priority:    priority,
		Status:      model.StatusOpen,
		DueBy:       &dueBy,
		EscalateAt:  &escalateAt,
		PlanID:      &plan.PlanID,
		BaseModel: model.BaseModel{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if plan.AssigneeID != nil {
		wo.AssignedToID = plan.AssigneeID
	}

	// 模板按步骤顺序复制为工单检查项
	items := make([]model.ChecklistItem, 0, len(plan.Templates))
	for _, t := range plan.Templates {
		items = append(items, model.ChecklistItem{
			StepNumber:       t.StepNumber,
			Description:      t.Description,
			IsRequired:       t.IsRequired,
			EstimatedMinutes: t.EstimatedMinutes,
		})
	}

	newNextDue := advanceNextDue(plan.NextDue, plan.FrequencyDays, now)

	if err := s.repo.Plan.Generate(ctx, plan, newNextDue, now, wo, items); err != nil {
		return err
	}

	if plan.AssigneeID != nil {
		if err := s.notifier.Notify(ctx, *plan.AssigneeID,
			model.NotificationMaintenanceDue,
			"定期保养到期",
			fmt.Sprintf("保养计划「%s」已生成新工单", plan.Title),
			"/work-orders/"+wo.WorkOrderID,
		); err != nil {
			// 通知失败不回滚已生成的工单
			s.logger.Warn("保养通知发送失败",
				zap.String("plan_id", plan.PlanID),
				zap.Error(err))
		}
	}

	return nil
}

// advanceNextDue 把 nextDue 至少前移一个周期，取不早于 now 的最小整周期值。
// 错过多个周期时不逐周期补生成，而是折叠错过的周期、
// 本轮只生成一张工单（避免积压期的工单风暴）。
//
// 边界：前移后允许恰好等于 now。此时该周期尚未生成过，
// 对后续触发仍视为到期——下一轮再生成它，而不是跳过；
// 这保证折叠补齐时每轮至多一张、且不会吞掉仍欠着的周期。
func advanceNextDue(nextDue time.Time, frequencyDays int, now time.Time) time.Time {
	next := nextDue.AddDate(0, 0, frequencyDays)
	for next.Before(now) {
		next = next.AddDate(0, 0, frequencyDays)
	}
	return next
}
