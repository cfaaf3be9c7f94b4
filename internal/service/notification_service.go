package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fixit/backend/internal/dto"
	"fixit/backend/internal/model"
	"fixit/backend/internal/repository"
	"fixit/backend/pkg/sse"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = errors.New("通知不存在")
)

// NotificationService 通知业务接口
// Notify 先落库（可靠凭证），再向当前在线连接尽力投递；
// 实时投递失败不影响原始业务操作。
type NotificationService interface {
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
	Notify(ctx context.Context, userID, notifType, title, message, link string) error
	Snapshot(ctx context.Context, userID string, limit int) (sse.InitEvent, error)
}

type notificationService struct {
	repo   *repository.Repository
	hub    *sse.Hub
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, hub *sse.Hub, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, hub: hub, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	offset := (req.Page - 1) * req.PageSize
	items, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, offset, req.PageSize)
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		result = append(result, toNotificationResponse(&items[i]))
	}

	return result, total, nil
}

// ────────────────────── UnreadCount ──────────────────────

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return count, nil
}

// ────────────────────── MarkRead / MarkAllRead ──────────────────────

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	err := s.repo.Notification.MarkRead(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("notification_id", notificationID), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.Notification.MarkAllRead(ctx, userID); err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Notify ──────────────────────

// Notify 持久化通知并实时推送给属主的所有在线连接。
// 无在线连接时事件直接丢弃，落库记录在重连快照中补发。
func (s *notificationService) Notify(ctx context.Context, userID, notifType, title, message, link string) error {
	n := &model.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("持久化通知失败",
			zap.String("user_id", userID),
			zap.String("type", notifType),
			zap.Error(err))
		return err
	}

	s.hub.Publish(userID, sse.NotificationEvent{
		Notification: toNotificationPayload(n),
	})

	return nil
}

// ────────────────────── Snapshot ──────────────────────

// Snapshot 连接建立时的最近通知快照
func (s *notificationService) Snapshot(ctx context.Context, userID string, limit int) (sse.InitEvent, error) {
	items, err := s.repo.Notification.ListRecent(ctx, userID, limit)
	if err != nil {
		s.logger.Error("查询通知快照失败", zap.String("user_id", userID), zap.Error(err))
		return sse.InitEvent{}, err
	}

	payloads := make([]sse.NotificationPayload, 0, len(items))
	for i := range items {
		payloads = append(payloads, toNotificationPayload(&items[i]))
	}

	return sse.InitEvent{Notifications: payloads}, nil
}

// ────────────────────── 转换 ──────────────────────

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		NotificationID: n.NotificationID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Link:           n.Link,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt,
	}
}

func toNotificationPayload(n *model.Notification) sse.NotificationPayload {
	return sse.NotificationPayload{
		ID:        n.NotificationID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
