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
)

// SubscriptionHandler 订阅处理器
type SubscriptionHandler struct {
	table     *service.CategoryTable
	recurring *service.RecurringService
}

// NewSubscriptionHandler 创建订阅处理器
func NewSubscriptionHandler(table *service.CategoryTable, recurring *service.RecurringService) *SubscriptionHandler {
	return &SubscriptionHandler{table: table, recurring: recurring}
}

// CreateSubscriptionRequest 创建订阅请求
type CreateSubscriptionRequest struct {
	Name            string  `json:"name" binding:"required,max=100" example:"Netflix"`
	Amount          float64 `json:"amount" binding:"required,gt=0" example:"29.9"`
	Frequency       string  `json:"frequency" example:"monthly"`
	Category        string  `json:"category" example:"entertainment"`
	NextPaymentDate string  `json:"next_payment_date" binding:"required" example:"2024-02-01"`
	AutoDetected    bool    `json:"auto_detected"`
	ReminderDays    int     `json:"reminder_days" binding:"omitempty,gte=0,lte=30" example:"3"`
	Notes           string  `json:"notes" example:"家庭套餐"`
}

// UpdateSubscriptionRequest 更新订阅请求
type UpdateSubscriptionRequest struct {
	Name            string  `json:"name" binding:"omitempty,max=100"`
	Amount          float64 `json:"amount" binding:"omitempty,gt=0"`
	Frequency       string  `json:"frequency"`
	Category        string  `json:"category"`
	NextPaymentDate string  `json:"next_payment_date"`
	Status          string  `json:"status" example:"paused"`
	ReminderDays    *int    `json:"reminder_days" binding:"omitempty,gte=0,lte=30"`
	Notes           string  `json:"notes"`
}

func validFrequency(f string) bool {
	return f == service.FrequencyWeekly || f == service.FrequencyMonthly || f == service.FrequencyYearly
}

// Create 创建订阅
// @Summary 创建订阅
// @Description 手工录入一个周期性支出
// @Tags 订阅
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateSubscriptionRequest true "订阅信息"
// @Success 200 {object} Response{data=models.Subscription} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/subscriptions [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	if req.Frequency == "" {
		req.Frequency = service.FrequencyMonthly
	}
	if !validFrequency(req.Frequency) {
		BadRequest(c, "无效的周期，应为 weekly / monthly / yearly")
		return
	}
	if req.Category == "" {
		req.Category = "entertainment"
	}
	if !h.table.Valid(req.Category) {
		BadRequest(c, "无效的类别")
		return
	}

	nextDate, err := time.ParseInLocation("2006-01-02", req.NextPaymentDate, time.Local)
	if err != nil {
		BadRequest(c, "日期格式错误，应为: 2006-01-02")
		return
	}

	if req.ReminderDays == 0 {
		req.ReminderDays = 3
	}

	sub := models.Subscription{
		UserID:          userID,
		Name:            req.Name,
		Amount:          req.Amount,
		Frequency:       req.Frequency,
		Category:        req.Category,
		NextPaymentDate: nextDate,
		Status:          models.SubscriptionActive,
		AutoDetected:    req.AutoDetected,
		ReminderDays:    req.ReminderDays,
		Notes:           req.Notes,
	}

	if err := database.DB.WithContext(ctx).Create(&sub).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "创建订阅失败"))
		return
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "创建成功", sub)
}

// List 获取订阅列表
// @Summary 获取订阅列表
// @Description 获取当前用户的订阅，可按状态筛选
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态筛选 active/paused/cancelled"
// @Success 200 {object} Response{data=[]models.Subscription} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	query := database.DB.Where("user_id = ?", userID)
	if status := c.Query("status"); status != "" {
		if !models.ValidSubscriptionStatus(status) {
			BadRequest(c, "无效的状态")
			return
		}
		query = query.Where("status = ?", status)
	}

	var subs []models.Subscription
	if err := query.Order("next_payment_date").Find(&subs).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, subs)
}

// Update 更新订阅
// @Summary 更新订阅
// @Description 更新订阅信息或变更状态（暂停/取消/恢复）
// @Tags 订阅
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订阅ID"
// @Param request body UpdateSubscriptionRequest true "订阅信息"
// @Success 200 {object} Response{data=models.Subscription} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "订阅不存在"
// @Router /api/v1/subscriptions/{id} [put]
func (h *SubscriptionHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	var sub models.Subscription
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&sub).Error; err != nil {
		NotFound(c, "订阅不存在")
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Amount > 0 {
		updates["amount"] = req.Amount
	}
	if req.Frequency != "" {
		if !validFrequency(req.Frequency) {
			BadRequest(c, "无效的周期")
			return
		}
		updates["frequency"] = req.Frequency
	}
	if req.Category != "" {
		if !h.table.Valid(req.Category) {
			BadRequest(c, "无效的类别")
			return
		}
		updates["category"] = req.Category
	}
	if req.NextPaymentDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.NextPaymentDate, time.Local)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return
		}
		updates["next_payment_date"] = d
	}
	if req.Status != "" {
		if !models.ValidSubscriptionStatus(req.Status) {
			BadRequest(c, "无效的状态")
			return
		}
		updates["status"] = req.Status
	}
	if req.ReminderDays != nil {
		updates["reminder_days"] = *req.ReminderDays
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	if len(updates) > 0 {
		if err := database.DB.WithContext(ctx).Model(&sub).Updates(updates).Error; err != nil {
			InternalError(c, config.SafeErrorMessage(err, "更新失败"))
			return
		}
		cache.InvalidateUser(ctx, userID)
	}

	SuccessWithMessage(c, "更新成功", sub)
}

// Delete 删除订阅
// @Summary 删除订阅
// @Description 删除指定订阅（软删除）
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Param id path int true "订阅ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "订阅不存在"
// @Router /api/v1/subscriptions/{id} [delete]
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var sub models.Subscription
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&sub).Error; err != nil {
		NotFound(c, "订阅不存在")
		return
	}

	if err := database.DB.WithContext(ctx).Delete(&sub).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "删除失败"))
		return
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "删除成功", nil)
}

// Detect 检测周期性支出
// @Summary 检测周期性支出
// @Description 扫描近几个月的交易，找出疑似订阅的周期性扣费
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.SubscriptionCandidate} "检测完成"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/subscriptions/detect [post]
func (h *SubscriptionHandler) Detect(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	candidates, err := h.recurring.DetectRecurring(c.Request.Context(), userID, time.Now())
	if err != nil {
		InternalError(c, config.SafeErrorMessage(err, "检测失败"))
		return
	}

	Success(c, candidates)
}

// Summary 订阅汇总
// @Summary 订阅成本汇总
// @Description 汇总活跃订阅的月度/年度成本
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/subscriptions/summary [get]
func (h *SubscriptionHandler) Summary(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var subs []models.Subscription
	if err := database.DB.Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Find(&subs).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	var monthly float64
	byCategory := make(map[string]float64)
	for _, sub := range subs {
		cost := service.MonthlyCost(sub.Amount, sub.Frequency)
		monthly += cost
		byCategory[sub.Category] += cost
	}

	Success(c, gin.H{
		"active_count": len(subs),
		"monthly_cost": monthly,
		"yearly_cost":  monthly * 12,
		"by_category":  byCategory,
	})
}

// Reminders 即将扣费提醒
// @Summary 即将扣费提醒
// @Description 列出 reminder_days 天内将要扣费的活跃订阅
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Subscription} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/subscriptions/reminders [get]
func (h *SubscriptionHandler) Reminders(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var subs []models.Subscription
	err := database.DB.
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Where("next_payment_date <= DATE_ADD(CURDATE(), INTERVAL reminder_days DAY)").
		Order("next_payment_date").
		Find(&subs).Error
	if err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, subs)
}

// Recommendations 订阅优化建议
// @Summary 订阅优化建议
// @Description 找出近三个月没有对应扣费交易的活跃订阅，建议检查是否还在使用
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/subscriptions/recommendations [get]
func (h *SubscriptionHandler) Recommendations(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()

	var subs []models.Subscription
	if err := database.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Find(&subs).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	since := time.Now().AddDate(0, -3, 0)
	type recommendation struct {
		Subscription models.Subscription `json:"subscription"`
		Reason       string              `json:"reason"`
		MonthlyCost  float64             `json:"monthly_cost"`
	}
	var out []recommendation
	for _, sub := range subs {
		var count int64
		err := database.DB.WithContext(ctx).Model(&models.Transaction{}).
			Where("user_id = ? AND kind = ? AND merchant_name LIKE ? AND transaction_time >= ?",
				userID, models.KindExpense, "%"+sub.Name+"%", since).
			Count(&count).Error
		if err != nil {
			InternalError(c, config.SafeErrorMessage(err, "查询失败"))
			return
		}
		if count == 0 {
			out = append(out, recommendation{
				Subscription: sub,
				Reason:       "近三个月没有检测到该订阅的扣费记录，建议确认是否还在使用",
				MonthlyCost:  service.MonthlyCost(sub.Amount, sub.Frequency),
			})
		}
	}

	Success(c, out)
}
