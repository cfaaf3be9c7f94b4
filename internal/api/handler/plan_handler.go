package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"fixit/backend/internal/dto"
	"fixit/backend/internal/service"
	"fixit/backend/pkg/response"
)

// PlanHandler 保养计划模块 HTTP 处理器
type PlanHandler struct {
	planSvc service.PlanService
}

// NewPlanHandler 创建 PlanHandler
func NewPlanHandler(planSvc service.PlanService) *PlanHandler {
	return &PlanHandler{planSvc: planSvc}
}

// Create 创建保养计划
// POST /api/v1/maintenance-plans
func (h *PlanHandler) Create(c *gin.Context) {
	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.planSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 获取保养计划详情
// GET /api/v1/maintenance-plans/:id
func (h *PlanHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	result, err := h.planSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, result)
}

// List 保养计划列表
// GET /api/v1/maintenance-plans
func (h *PlanHandler) List(c *gin.Context) {
	var req dto.PlanListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.planSvc.List(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// Update 更新保养计划
// PUT /api/v1/maintenance-plans/:id
func (h *PlanHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.planSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, result)
}

// Activate 启用计划
// PUT /api/v1/maintenance-plans/:id/activate
func (h *PlanHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate 停用计划
// PUT /api/v1/maintenance-plans/:id/deactivate
func (h *PlanHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *PlanHandler) setActive(c *gin.Context, active bool) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	if err := h.planSvc.SetActive(c.Request.Context(), id, active); err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, nil)
}

// handlePlanError 统一处理保养计划模块业务错误
func (h *PlanHandler) handlePlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, 13001, "保养计划不存在")
	case errors.Is(err, service.ErrEquipmentNotFound):
		response.NotFound(c, 12002, "设备不存在")
	case errors.Is(err, service.ErrAssigneeNotFound):
		response.NotFound(c, 12003, "指派人不存在")
	case errors.Is(err, service.ErrInvalidFrequency):
		response.BadRequest(c, 13002, "保养频率必须为正数")
	case errors.Is(err, service.ErrDuplicateStepNumber):
		response.BadRequest(c, 13003, "检查项步骤序号重复")
	default:
		response.InternalError(c)
	}
}
