package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fixit/backend/internal/model"
	apperrors "fixit/backend/pkg/errors"
)

// WorkOrderFilter 工单列表过滤条件
type WorkOrderFilter struct {
	Status       string
	Priority     string
	AssignedToID string
}

// WorkOrderRepository 工单数据访问接口
type WorkOrderRepository interface {
	Create(ctx context.Context, wo *model.WorkOrder, items []model.ChecklistItem) error
	GetByID(ctx context.Context, id string) (*model.WorkOrder, error)
	List(ctx context.Context, filter WorkOrderFilter, offset, limit int) ([]model.WorkOrder, int64, error)
	Update(ctx context.Context, wo *model.WorkOrder) error
	ListEscalatable(ctx context.Context, now time.Time) ([]model.WorkOrder, error)
	MarkEscalated(ctx context.Context, id string, now time.Time) error
	GetChecklistItem(ctx context.Context, workOrderID, itemID string) (*model.ChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, item *model.ChecklistItem) error
}

// workOrderRepo WorkOrderRepository 的 GORM 实现
type workOrderRepo struct {
	db *gorm.DB
}

// NewWorkOrderRepo 创建 WorkOrderRepository 实例
func NewWorkOrderRepo(db *gorm.DB) WorkOrderRepository {
	return &workOrderRepo{db: db}
}

// Create 创建工单及其检查项（同一事务）
func (r *workOrderRepo) Create(ctx context.Context, wo *model.WorkOrder, items []model.ChecklistItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(wo).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].WorkOrderID = wo.WorkOrderID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *workOrderRepo) GetByID(ctx context.Context, id string) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Equipment").
		Preload("AssignedTo").
		Preload("Checklist", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_number ASC")
		}).
		Where("work_order_id = ?", id).
		First(&wo).Error
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *workOrderRepo) List(ctx context.Context, filter WorkOrderFilter, offset, limit int) ([]model.WorkOrder, int64, error) {
	var orders []model.WorkOrder
	var total int64

	db := r.db.WithContext(ctx).Model(&model.WorkOrder{})

	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		db = db.Where("priority = ?", filter.Priority)
	}
	if filter.AssignedToID != "" {
		db = db.Where("assigned_to_id = ?", filter.AssignedToID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Equipment").Preload("AssignedTo").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *workOrderRepo) Update(ctx context.Context, wo *model.WorkOrder) error {
	return r.db.WithContext(ctx).Save(wo).Error
}

// ListEscalatable 列出升级时点已过且尚未升级的未完结工单
func (r *workOrderRepo) ListEscalatable(ctx context.Context, now time.Time) ([]model.WorkOrder, error) {
	var orders []model.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Equipment").
		Where("status IN ?", []model.WorkOrderStatus{model.StatusOpen, model.StatusInProgress}).
		Where("escalate_at IS NOT NULL AND escalate_at <= ?", now).
		Where("escalated_at IS NULL").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkEscalated 打升级标记，escalated_at IS NULL 为守卫保证只升级一次；
// 已被并发轮次标记时返回 ErrOptimisticLock
func (r *workOrderRepo) MarkEscalated(ctx context.Context, id string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.WorkOrder{}).
		Where("work_order_id = ? AND escalated_at IS NULL", id).
		Updates(map[string]interface{}{
			"escalated_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}
	return nil
}

func (r *workOrderRepo) GetChecklistItem(ctx context.Context, workOrderID, itemID string) (*model.ChecklistItem, error) {
	var item model.ChecklistItem
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND work_order_id = ?", itemID, workOrderID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *workOrderRepo) UpdateChecklistItem(ctx context.Context, item *model.ChecklistItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}
