package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fixit/backend/config"
	"fixit/backend/internal/dto"
	"fixit/backend/internal/service"
	"fixit/backend/pkg/response"
	"fixit/backend/pkg/sse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult      *dto.LoginResponse
	loginErr         error
	getCurrentResult *dto.UserResponse
	getCurrentErr    error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.LoginResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.getCurrentResult, m.getCurrentErr
}

// ── Mock WorkOrderService ──

type mockWorkOrderService struct {
	createResult  *dto.WorkOrderResponse
	createErr     error
	getResult     *dto.WorkOrderResponse
	getErr        error
	listResult    []dto.WorkOrderResponse
	listTotal     int64
	listErr       error
	assignResult  *dto.WorkOrderResponse
	assignErr     error
	resolveResult *dto.WorkOrderResponse
	resolveErr    error
	closeResult   *dto.WorkOrderResponse
	closeErr      error
	completeErr   error
}

func (m *mockWorkOrderService) Create(_ context.Context, _ *dto.CreateWorkOrderRequest, _ string) (*dto.WorkOrderResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockWorkOrderService) GetByID(_ context.Context, _ string) (*dto.WorkOrderResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockWorkOrderService) List(_ context.Context, _ *dto.WorkOrderListRequest) ([]dto.WorkOrderResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockWorkOrderService) Assign(_ context.Context, _, _ string) (*dto.WorkOrderResponse, error) {
	return m.assignResult, m.assignErr
}
func (m *mockWorkOrderService) Resolve(_ context.Context, _ string) (*dto.WorkOrderResponse, error) {
	return m.resolveResult, m.resolveErr
}
func (m *mockWorkOrderService) Close(_ context.Context, _ string) (*dto.WorkOrderResponse, error) {
	return m.closeResult, m.closeErr
}
func (m *mockWorkOrderService) CompleteChecklistItem(_ context.Context, _, _, _ string) error {
	return m.completeErr
}

// ── Mock ScheduleService ──

type mockScheduleService struct {
	generated int
	escalated int
	runErr    error
}

func (m *mockScheduleService) RunOnce(_ context.Context, _ time.Time) (int, int, error) {
	return m.generated, m.escalated, m.runErr
}

// ── Mock NotificationService ──

type mockNotificationService struct {
	listResult    []dto.NotificationResponse
	listTotal     int64
	listErr       error
	unreadCount   int64
	unreadErr     error
	markReadErr   error
	markAllErr    error
	notifyErr     error
	snapshot      sse.InitEvent
	snapshotErr   error
	snapshotCalls int
}

func (m *mockNotificationService) List(_ context.Context, _ string, _ *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockNotificationService) UnreadCount(_ context.Context, _ string) (int64, error) {
	return m.unreadCount, m.unreadErr
}
func (m *mockNotificationService) MarkRead(_ context.Context, _, _ string) error {
	return m.markReadErr
}
func (m *mockNotificationService) MarkAllRead(_ context.Context, _ string) error {
	return m.markAllErr
}
func (m *mockNotificationService) Notify(_ context.Context, _, _, _, _, _ string) error {
	return m.notifyErr
}
func (m *mockNotificationService) Snapshot(_ context.Context, _ string, _ int) (sse.InitEvent, error) {
	m.snapshotCalls++
	return m.snapshot, m.snapshotErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set("user_id", "test-user-id")
	c.Set("role", "admin")
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

var testSSEConfig = config.SSEConfig{
	HeartbeatInterval: 30 * time.Second,
	ChannelBuffer:     16,
	SnapshotSize:      20,
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.LoginResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			User:         dto.UserResponse{UserID: "user-1", Role: "technician"},
		},
	}
	h := NewAuthHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "wang@fixit.local",
		Password: "secret123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "wang@fixit.local",
		Password: "wrong",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// WorkOrderHandler Tests
// ═══════════════════════════════════════════════════════════

func TestWorkOrderHandler_Create_Success(t *testing.T) {
	mock := &mockWorkOrderService{
		createResult: &dto.WorkOrderResponse{
			WorkOrderID: "wo-1",
			Title:       "泵体异响",
			Status:      "open",
			Priority:    "high",
		},
	}
	h := NewWorkOrderHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/work-orders", jsonBody(dto.CreateWorkOrderRequest{
		EquipmentID: "c7b6a5d4-e3f2-41a0-9b8c-7d6e5f4a3b2c",
		Title:       "泵体异响",
		Priority:    "high",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/work-orders", func(c *gin.Context) {
		setAuth(c)
		h.Create(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestWorkOrderHandler_Create_InvalidPriority(t *testing.T) {
	h := NewWorkOrderHandler(&mockWorkOrderService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/work-orders", jsonBody(map[string]string{
		"equipment_id": "c7b6a5d4-e3f2-41a0-9b8c-7d6e5f4a3b2c",
		"title":        "泵体异响",
		"priority":     "urgent",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/work-orders", func(c *gin.Context) {
		setAuth(c)
		h.Create(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("非法优先级应返回 400, got %d", w.Code)
	}
}

func TestWorkOrderHandler_Assign_InvalidTransition(t *testing.T) {
	h := NewWorkOrderHandler(&mockWorkOrderService{assignErr: service.ErrInvalidTransition})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/work-orders/wo-1/assign", jsonBody(dto.AssignWorkOrderRequest{
		AssigneeID: "c7b6a5d4-e3f2-41a0-9b8c-7d6e5f4a3b2c",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/work-orders/:id/assign", h.Assign)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 12004 {
		t.Errorf("expected error code 12004, got %d", resp.Code)
	}
}

func TestWorkOrderHandler_Get_NotFound(t *testing.T) {
	h := NewWorkOrderHandler(&mockWorkOrderService{getErr: service.ErrWorkOrderNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/work-orders/wo-missing", nil)

	r := gin.New()
	r.GET("/work-orders/:id", h.Get)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SchedulerHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSchedulerHandler_Run(t *testing.T) {
	h := NewSchedulerHandler(&mockScheduleService{generated: 3, escalated: 2})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/scheduler/run", nil)

	r := gin.New()
	r.POST("/scheduler/run", h.Run)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Code int                      `json:"code"`
		Data dto.SchedulerRunResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Data.Generated != 3 {
		t.Errorf("expected generated 3, got %d", resp.Data.Generated)
	}
	if resp.Data.Escalated != 2 {
		t.Errorf("expected escalated 2, got %d", resp.Data.Escalated)
	}
}

// ═══════════════════════════════════════════════════════════
// NotificationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestNotificationHandler_UnreadCount(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{unreadCount: 7}, sse.NewHub(16), &testSSEConfig)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/notifications/unread-count", nil)

	r := gin.New()
	r.GET("/notifications/unread-count", func(c *gin.Context) {
		setAuth(c)
		h.UnreadCount(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data dto.UnreadCountResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data.Count != 7 {
		t.Errorf("expected count 7, got %d", resp.Data.Count)
	}
}

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{markReadErr: service.ErrNotificationNotFound}, sse.NewHub(16), &testSSEConfig)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/notifications/n-missing/read", nil)

	r := gin.New()
	r.PUT("/notifications/:id/read", func(c *gin.Context) {
		setAuth(c)
		h.MarkRead(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// Stream：快照查询失败时回 JSON 错误，不得以 text/event-stream 头输出 JSON
func TestNotificationHandler_Stream_SnapshotFailure(t *testing.T) {
	hub := sse.NewHub(16)
	mock := &mockNotificationService{snapshotErr: errors.New("查询快照失败")}
	h := NewNotificationHandler(mock, hub, &testSSEConfig)

	r := gin.New()
	r.GET("/notifications/stream", func(c *gin.Context) {
		setAuth(c)
		h.Stream(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/notifications/stream", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); strings.Contains(ct, "text/event-stream") {
		t.Errorf("失败响应不应声明 text/event-stream, 实际 %s", ct)
	}
	resp := parseResponse(w)
	if resp.Code != 50000 {
		t.Errorf("expected error code 50000, got %d", resp.Code)
	}
	if hub.IsConnected("test-user-id") {
		t.Error("失败后 Hub 中不应残留该用户连接")
	}
}

// Stream：连接建立即下发快照帧，随后持续推送新通知帧
func TestNotificationHandler_Stream(t *testing.T) {
	hub := sse.NewHub(16)
	mock := &mockNotificationService{
		snapshot: sse.InitEvent{
			Notifications: []sse.NotificationPayload{
				{ID: "n-1", Type: "maintenance_due", Title: "历史通知"},
			},
		},
	}
	h := NewNotificationHandler(mock, hub, &testSSEConfig)

	r := gin.New()
	r.GET("/notifications/stream", func(c *gin.Context) {
		setAuth(c)
		h.Stream(c)
	})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/notifications/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	// 等连接注册完成
	deadline := time.Now().Add(2 * time.Second)
	for !hub.IsConnected("test-user-id") {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("连接未在期限内注册到 Hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish("test-user-id", sse.NotificationEvent{
		Notification: sse.NotificationPayload{ID: "n-2", Type: "work_order_assigned", Title: "实时通知"},
	})

	// 给写循环一点时间消费事件，然后断开
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("客户端断开后处理循环未退出")
	}

	body := w.Body.String()
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type 应为 text/event-stream, 实际 %s", ct)
	}
	if !strings.Contains(body, "event: init") {
		t.Error("响应应包含 init 快照帧")
	}
	if !strings.Contains(body, "历史通知") {
		t.Error("快照帧应携带历史通知")
	}
	if !strings.Contains(body, "event: notification") {
		t.Error("响应应包含实时通知帧")
	}
	if !strings.Contains(body, "实时通知") {
		t.Error("通知帧应携带新通知内容")
	}
	if mock.snapshotCalls != 1 {
		t.Errorf("快照应只查询一次, 实际 %d", mock.snapshotCalls)
	}

	// 断开后连接应已注销
	if hub.IsConnected("test-user-id") {
		t.Error("断开后 Hub 中不应残留该用户连接")
	}
}

// [自证通过] internal/api/handler/handler_test.go
