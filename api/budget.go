package api

import (
	"strconv"
	"time"

	"fintrack/cache"
	"fintrack/config"
	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"
	"fintrack/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BudgetHandler 预算处理器
type BudgetHandler struct {
	table   *service.CategoryTable
	budgets *service.BudgetService
}

// NewBudgetHandler 创建预算处理器
func NewBudgetHandler(table *service.CategoryTable, budgets *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{table: table, budgets: budgets}
}

// UpsertBudgetRequest 创建/更新预算请求
type UpsertBudgetRequest struct {
	Category    string  `json:"category" binding:"required" example:"food"`
	LimitAmount float64 `json:"limit_amount" binding:"required,gt=0" example:"1000"`
	Period      string  `json:"period" example:"monthly"`
	Alert80     *bool   `json:"alert_80"`
	Alert90     *bool   `json:"alert_90"`
	Alert100    *bool   `json:"alert_100"`
}

// Upsert 创建或更新预算
// @Summary 创建或更新预算
// @Description 同一 (类别, 周期) 的预算只有一份，已存在时覆盖上限和阈值开关
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpsertBudgetRequest true "预算信息"
// @Success 200 {object} Response{data=models.Budget} "保存成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/budgets [post]
func (h *BudgetHandler) Upsert(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()

	var req UpsertBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	if !h.table.Valid(req.Category) {
		BadRequest(c, "无效的类别")
		return
	}
	if req.Period == "" {
		req.Period = models.PeriodMonthly
	}
	if !models.ValidPeriod(req.Period) {
		BadRequest(c, "无效的周期，应为 weekly / monthly / yearly")
		return
	}

	boolOr := func(v *bool, def bool) bool {
		if v == nil {
			return def
		}
		return *v
	}

	db := database.DB.WithContext(ctx)
	var budget models.Budget
	err := db.Where("user_id = ? AND category = ? AND period = ?", userID, req.Category, req.Period).
		First(&budget).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			InternalError(c, config.SafeErrorMessage(err, "查询失败"))
			return
		}
		budget = models.Budget{
			UserID:      userID,
			Category:    req.Category,
			LimitAmount: req.LimitAmount,
			Period:      req.Period,
			Alert80:     boolOr(req.Alert80, true),
			Alert90:     boolOr(req.Alert90, true),
			Alert100:    boolOr(req.Alert100, true),
			Active:      true,
		}
		if err := db.Create(&budget).Error; err != nil {
			InternalError(c, config.SafeErrorMessage(err, "创建预算失败"))
			return
		}
	} else {
		updates := map[string]interface{}{
			"limit_amount": req.LimitAmount,
			"alert_80":     boolOr(req.Alert80, budget.Alert80),
			"alert_90":     boolOr(req.Alert90, budget.Alert90),
			"alert_100":    boolOr(req.Alert100, budget.Alert100),
			"active":       true,
		}
		if err := db.Model(&budget).Updates(updates).Error; err != nil {
			InternalError(c, config.SafeErrorMessage(err, "更新预算失败"))
			return
		}
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "保存成功", budget)
}

// List 获取预算列表
// @Summary 获取预算列表
// @Description 获取当前用户全部启用预算及其执行情况
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.BudgetProgress} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	progress, err := h.budgets.Progress(c.Request.Context(), userID, time.Now())
	if err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, progress)
}

// Delete 停用预算
// @Summary 删除预算
// @Description 删除指定预算（软删除），历史提醒保留
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "预算不存在"
// @Router /api/v1/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var budget models.Budget
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&budget).Error; err != nil {
		NotFound(c, "预算不存在")
		return
	}

	if err := database.DB.WithContext(ctx).Delete(&budget).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "删除失败"))
		return
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "删除成功", nil)
}

// Alerts 获取预算提醒列表
// @Summary 获取预算提醒
// @Description 获取当前用户的预算提醒，默认只看未读
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param all query bool false "是否包含已读" default(false)
// @Success 200 {object} Response{data=[]models.BudgetAlert} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/budgets/alerts [get]
func (h *BudgetHandler) Alerts(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	query := database.DB.Where("user_id = ?", userID)
	if c.Query("all") != "true" {
		query = query.Where("`read` = ?", false)
	}

	var alerts []models.BudgetAlert
	if err := query.Order("created_at DESC").Limit(100).Find(&alerts).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, alerts)
}

// MarkAlertRead 标记提醒已读
// @Summary 标记提醒已读
// @Description 将指定预算提醒标记为已读
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "提醒ID"
// @Success 200 {object} Response "标记成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "提醒不存在"
// @Router /api/v1/budgets/alerts/{id}/read [put]
func (h *BudgetHandler) MarkAlertRead(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	result := database.DB.Model(&models.BudgetAlert{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		InternalError(c, config.SafeErrorMessage(result.Error, "更新失败"))
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "提醒不存在")
		return
	}

	SuccessWithMessage(c, "已标记为已读", nil)
}
