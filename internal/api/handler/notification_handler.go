package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"fixit/backend/config"
	"fixit/backend/internal/dto"
	"fixit/backend/internal/service"
	"fixit/backend/pkg/response"
	"fixit/backend/pkg/sse"
)

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
	hub             *sse.Hub
	cfg             *config.SSEConfig
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService, hub *sse.Hub, cfg *config.SSEConfig) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc, hub: hub, cfg: cfg}
}

// List 通知列表
// GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// UnreadCount 未读数量
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationSvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, dto.UnreadCountResponse{Count: count})
}

// MarkRead 标记单条已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "通知ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.NotFound(c, 14001, "通知不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

// MarkAllRead 全部标记已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkAllRead(c.Request.Context(), userID); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

// Stream 实时通知流（SSE）
// GET /api/v1/notifications/stream
//
// 连接建立后先下发最近通知快照（init 帧），之后持续推送新通知；
// 空闲期间按配置间隔发送保活注释帧。客户端断开或服务端
// 主动关闭时退出循环并注销连接。
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	// 先订阅再查快照：查询期间发布的事件会缓冲在通道里，不丢
	ch := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(userID, ch)

	// 快照帧：断线期间落库的通知在这里补发。
	// 失败时流式头尚未设置，可以干净地回 JSON 错误
	snapshot, err := h.notificationSvc.Snapshot(c.Request.Context(), userID, h.cfg.SnapshotSize)
	if err != nil {
		response.InternalError(c)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if !h.writeEvent(c, snapshot) {
		return
	}

	heartbeat := time.NewTicker(h.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case e, open := <-ch.Events():
			if !open {
				return
			}
			if !h.writeEvent(c, e) {
				return
			}
		case <-heartbeat.C:
			if !h.writeEvent(c, sse.HeartbeatEvent{}) {
				return
			}
		case <-ch.Done():
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// writeEvent 编码并写出一帧，返回 false 表示连接已不可写
func (h *NotificationHandler) writeEvent(c *gin.Context, e sse.Event) bool {
	frame, err := sse.Encode(e)
	if err != nil {
		return false
	}
	if _, err := c.Writer.Write(frame); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}
