package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Equipment    EquipmentRepository
	WorkOrder    WorkOrderRepository
	Plan         MaintenancePlanRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Equipment:    NewEquipmentRepo(db),
		WorkOrder:    NewWorkOrderRepo(db),
		Plan:         NewMaintenancePlanRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
