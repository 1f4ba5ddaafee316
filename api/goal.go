package api

import (
	"errors"
	"strconv"
	"time"

	"fintrack/cache"
	"fintrack/config"
	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"
	"fintrack/service"

	"github.com/gin-gonic/gin"
)

// GoalHandler 储蓄目标处理器
type GoalHandler struct {
	goals *service.GoalService
}

// NewGoalHandler 创建目标处理器
func NewGoalHandler(goals *service.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// CreateGoalRequest 创建目标请求
type CreateGoalRequest struct {
	Name             string  `json:"name" binding:"required,max=100" example:"旅行基金"`
	TargetAmount     float64 `json:"target_amount" binding:"required,gt=0" example:"10000"`
	SeedAmount       float64 `json:"seed_amount" binding:"omitempty,gte=0" example:"500"`
	Deadline         string  `json:"deadline" example:"2024-12-31"`
	Priority         string  `json:"priority" example:"medium"`
	AutoRoundEnabled bool    `json:"auto_round_enabled" example:"true"`
}

// UpdateGoalRequest 更新目标请求
type UpdateGoalRequest struct {
	Name             string  `json:"name" binding:"omitempty,max=100" example:"旅行基金"`
	TargetAmount     float64 `json:"target_amount" binding:"omitempty,gt=0" example:"10000"`
	Deadline         string  `json:"deadline" example:"2024-12-31"`
	Priority         string  `json:"priority" example:"high"`
	AutoRoundEnabled *bool   `json:"auto_round_enabled"`
	Status           string  `json:"status" example:"cancelled"`
}

// ContributeRequest 贡献请求
type ContributeRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0" example:"200"`
	Source string  `json:"source" example:"manual"`
	Notes  string  `json:"notes" example:"月度储蓄"`
}

// Create 创建储蓄目标
// @Summary 创建储蓄目标
// @Description 创建一个新的储蓄目标，可设置种子金额和截止日期
// @Tags 储蓄目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateGoalRequest true "目标信息"
// @Success 200 {object} Response{data=models.Goal} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(req.Priority) {
		BadRequest(c, "无效的优先级，应为 high / medium / low")
		return
	}

	var deadline *time.Time
	if req.Deadline != "" {
		d, err := time.ParseInLocation("2006-01-02", req.Deadline, time.Local)
		if err != nil {
			BadRequest(c, "截止日期格式错误，应为: 2006-01-02")
			return
		}
		if d.Before(time.Now()) {
			BadRequest(c, "截止日期不能早于今天")
			return
		}
		deadline = &d
	}

	goal := models.Goal{
		UserID:           userID,
		Name:             req.Name,
		TargetAmount:     req.TargetAmount,
		CurrentAmount:    req.SeedAmount,
		SeedAmount:       req.SeedAmount,
		Deadline:         deadline,
		Priority:         req.Priority,
		AutoRoundEnabled: req.AutoRoundEnabled,
		Status:           models.GoalActive,
	}

	if err := database.DB.WithContext(ctx).Create(&goal).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "创建目标失败"))
		return
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "创建成功", goal)
}

// List 获取目标列表
// @Summary 获取目标列表
// @Description 获取当前用户的储蓄目标及进度
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态筛选 active/completed/cancelled"
// @Success 200 {object} Response{data=[]service.GoalProgress} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/goals [get]
func (h *GoalHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	query := database.DB.Where("user_id = ?", userID)
	if status := c.Query("status"); status != "" {
		if !models.ValidGoalStatus(status) {
			BadRequest(c, "无效的状态")
			return
		}
		query = query.Where("status = ?", status)
	}

	var goals []models.Goal
	if err := query.Order("FIELD(priority, 'high', 'medium', 'low'), created_at").Find(&goals).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	now := time.Now()
	out := make([]service.GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, service.ComputeProgress(g, now))
	}
	Success(c, out)
}

// Get 获取单个目标
// @Summary 获取单个目标
// @Description 根据ID获取目标详情与进度
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Success 200 {object} Response{data=service.GoalProgress} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id} [get]
func (h *GoalHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var goal models.Goal
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&goal).Error; err != nil {
		NotFound(c, "目标不存在")
		return
	}

	Success(c, service.ComputeProgress(goal, time.Now()))
}

// Update 更新目标
// @Summary 更新目标
// @Description 更新目标信息。已完成/已取消的目标只允许改回 active（重新开启）
// @Tags 储蓄目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Param request body UpdateGoalRequest true "目标信息"
// @Success 200 {object} Response{data=models.Goal} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id} [put]
func (h *GoalHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	var goal models.Goal
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&goal).Error; err != nil {
		NotFound(c, "目标不存在")
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.TargetAmount > 0 {
		updates["target_amount"] = req.TargetAmount
	}
	if req.Deadline != "" {
		d, err := time.ParseInLocation("2006-01-02", req.Deadline, time.Local)
		if err != nil {
			BadRequest(c, "截止日期格式错误，应为: 2006-01-02")
			return
		}
		updates["deadline"] = d
	}
	if req.Priority != "" {
		if !models.ValidPriority(req.Priority) {
			BadRequest(c, "无效的优先级")
			return
		}
		updates["priority"] = req.Priority
	}
	if req.AutoRoundEnabled != nil {
		updates["auto_round_enabled"] = *req.AutoRoundEnabled
	}
	if req.Status != "" && req.Status != goal.Status {
		if !models.ValidGoalStatus(req.Status) {
			BadRequest(c, "无效的状态")
			return
		}
		// 终态目标只能重新开启，不能互转
		if goal.Status != models.GoalActive && req.Status != models.GoalActive {
			BadRequest(c, "目标已结束，只能重新开启")
			return
		}
		updates["status"] = req.Status
	}

	if len(updates) > 0 {
		if err := database.DB.WithContext(ctx).Model(&goal).Updates(updates).Error; err != nil {
			InternalError(c, config.SafeErrorMessage(err, "更新失败"))
			return
		}
		cache.InvalidateUser(ctx, userID)
	}

	SuccessWithMessage(c, "更新成功", goal)
}

// Delete 删除目标
// @Summary 删除目标
// @Description 删除指定目标（软删除），贡献流水保留
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id} [delete]
func (h *GoalHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var goal models.Goal
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&goal).Error; err != nil {
		NotFound(c, "目标不存在")
		return
	}

	if err := database.DB.WithContext(ctx).Delete(&goal).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "删除失败"))
		return
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "删除成功", nil)
}

// Contribute 向目标追加贡献
// @Summary 向目标追加贡献
// @Description 记录一笔贡献并更新目标余额，跨过里程碑时在响应中返回
// @Tags 储蓄目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Param request body ContributeRequest true "贡献信息"
// @Success 200 {object} Response{data=service.ContributeResult} "贡献成功"
// @Failure 400 {object} Response "目标不在进行中"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id}/contribute [post]
func (h *GoalHandler) Contribute(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	result, err := h.goals.Contribute(ctx, userID, uint(id), req.Amount, req.Source, nil, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGoalNotFound):
			NotFound(c, "目标不存在")
		case errors.Is(err, service.ErrGoalNotActive):
			BadRequest(c, "目标不在进行中，无法贡献")
		default:
			InternalError(c, config.SafeErrorMessage(err, "贡献失败"))
		}
		return
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "贡献成功", result)
}

// Contributions 获取贡献流水
// @Summary 获取贡献流水
// @Description 获取指定目标的贡献记录，时间倒序
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Success 200 {object} Response{data=[]models.GoalContribution} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id}/contributions [get]
func (h *GoalHandler) Contributions(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var goal models.Goal
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&goal).Error; err != nil {
		NotFound(c, "目标不存在")
		return
	}

	var contributions []models.GoalContribution
	if err := database.DB.Where("goal_id = ?", goal.ID).
		Order("created_at DESC").
		Find(&contributions).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, contributions)
}

// Reconcile 余额对账
// @Summary 目标余额对账
// @Description 校验目标余额是否等于种子金额加全部贡献之和
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Success 200 {object} Response{data=service.ReconcileResult} "对账完成"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id}/reconcile [get]
func (h *GoalHandler) Reconcile(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	result, err := h.goals.Reconcile(c.Request.Context(), userID, uint(id))
	if err != nil {
		if errors.Is(err, service.ErrGoalNotFound) {
			NotFound(c, "目标不存在")
			return
		}
		InternalError(c, config.SafeErrorMessage(err, "对账失败"))
		return
	}

	Success(c, result)
}

// Summary 目标汇总
// @Summary 目标汇总
// @Description 汇总当前用户目标的总体情况
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/goals/summary [get]
func (h *GoalHandler) Summary(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var goals []models.Goal
	if err := database.DB.Where("user_id = ?", userID).Find(&goals).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	var totalTarget, totalSaved float64
	var active, completed int
	for _, g := range goals {
		switch g.Status {
		case models.GoalActive:
			active++
			totalTarget += g.TargetAmount
			totalSaved += g.CurrentAmount
		case models.GoalCompleted:
			completed++
		}
	}

	Success(c, gin.H{
		"total_goals":     len(goals),
		"active_goals":    active,
		"completed_goals": completed,
		"total_target":    totalTarget,
		"total_saved":     totalSaved,
	})
}
