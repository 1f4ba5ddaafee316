package api

import (
	"log"
	"strconv"
	"strings"
	"time"

	"fintrack/cache"
	"fintrack/config"
	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"
	"fintrack/service"

	"github.com/gin-gonic/gin"
)

// TransactionHandler 交易记录处理器
type TransactionHandler struct {
	table      *service.CategoryTable
	classifier *service.ClassifierService
	budgets    *service.BudgetService
	goals      *service.GoalService
	email      *service.EmailService
}

// NewTransactionHandler 创建交易记录处理器
func NewTransactionHandler(
	table *service.CategoryTable,
	classifier *service.ClassifierService,
	budgets *service.BudgetService,
	goals *service.GoalService,
	email *service.EmailService,
) *TransactionHandler {
	return &TransactionHandler{
		table:      table,
		classifier: classifier,
		budgets:    budgets,
		goals:      goals,
		email:      email,
	}
}

// CreateTransactionRequest 创建交易请求
type CreateTransactionRequest struct {
	Amount          float64 `json:"amount" binding:"required,gt=0" example:"38.50"`
	Kind            string  `json:"kind" binding:"required" example:"expense"`
	Category        string  `json:"category" example:"food"` // 留空则自动分类
	MerchantName    string  `json:"merchant_name" example:"Starbucks Coffee"`
	Description     string  `json:"description" example:"早餐咖啡"`
	TransactionTime string  `json:"transaction_time" binding:"required" example:"2024-01-15 12:30:00"`
}

// UpdateTransactionRequest 更新交易请求
type UpdateTransactionRequest struct {
	Amount          float64 `json:"amount" binding:"omitempty,gt=0" example:"38.50"`
	Category        string  `json:"category" example:"food"`
	MerchantName    string  `json:"merchant_name" example:"Starbucks Coffee"`
	Description     string  `json:"description" example:"早餐咖啡"`
	TransactionTime string  `json:"transaction_time" example:"2024-01-15 12:30:00"`
}

// TransactionListRequest 交易列表请求
type TransactionListRequest struct {
	Page      int    `form:"page" example:"1"`
	PageSize  int    `form:"page_size" example:"10"`
	Kind      string `form:"kind" example:"expense"`
	Category  string `form:"category" example:"food"`
	StartTime string `form:"start_time" example:"2024-01-01"`
	EndTime   string `form:"end_time" example:"2024-12-31"`
}

// CreateTransactionResponse 创建交易的响应，附带入账触发的事件
type CreateTransactionResponse struct {
	Transaction    models.Transaction        `json:"transaction"`
	Classification *service.ClassifyResult   `json:"classification,omitempty"`
	BudgetAlert    *service.AlertEvent       `json:"budget_alert,omitempty"`
	AutoRound      *service.ContributeResult `json:"auto_round,omitempty"`
}

// Create 创建交易记录
// @Summary 创建交易记录
// @Description 创建一条交易。类别留空时按商户名自动分类；支出入账后会触发预算检查和自动凑整
// @Tags 交易记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "交易信息"
// @Success 200 {object} Response{data=CreateTransactionResponse} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	if !models.ValidKind(req.Kind) {
		BadRequest(c, "无效的交易类型，应为 income / expense / transfer")
		return
	}

	// 解析时间
	txTime, err := time.ParseInLocation("2006-01-02 15:04:05", req.TransactionTime, time.Local)
	if err != nil {
		BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
		return
	}

	// 类别：用户指定则校验，留空或未分类则自动分类
	var classification *service.ClassifyResult
	category := strings.TrimSpace(req.Category)
	autoCategorized := false
	if category == "" || category == service.DefaultCategory {
		r := h.classifier.Classify(ctx, userID, req.MerchantName)
		classification = &r
		category = r.Category
		autoCategorized = r.Method != service.MethodDefault
	} else if !h.table.Valid(category) {
		BadRequest(c, "无效的类别")
		return
	}

	tx := models.Transaction{
		UserID:          userID,
		Amount:          req.Amount,
		Kind:            req.Kind,
		Category:        category,
		MerchantName:    req.MerchantName,
		Description:     req.Description,
		TransactionTime: txTime,
		AutoCategorized: autoCategorized,
	}

	if err := database.DB.WithContext(ctx).Create(&tx).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "创建交易失败"))
		return
	}

	cache.InvalidateUser(ctx, userID)

	resp := CreateTransactionResponse{
		Transaction:    tx,
		Classification: classification,
	}

	// 支出入账后的联动：预算检查、自动凑整。
	// 两者失败都不影响交易本身，只打日志
	if tx.Kind == models.KindExpense {
		alert, err := h.budgets.CheckBudgetAlert(ctx, userID, tx.Category, txTime, time.Now())
		if err != nil {
			log.Printf("预算检查失败 user=%d category=%s: %v", userID, tx.Category, err)
		} else if alert != nil {
			resp.BudgetAlert = alert
			h.notifyBudgetAlert(userID, *alert)
		}

		round, err := h.goals.ProcessAutoRound(ctx, userID, tx.Amount, &tx.ID)
		if err != nil {
			log.Printf("自动凑整失败 user=%d tx=%d: %v", userID, tx.ID, err)
		} else if round != nil {
			resp.AutoRound = round
		}
	}

	SuccessWithMessage(c, "创建成功", resp)
}

// notifyBudgetAlert 预算提醒触发后的邮件通知，失败只打日志
func (h *TransactionHandler) notifyBudgetAlert(userID uint, alert service.AlertEvent) {
	if h.email == nil || !h.email.Enabled() {
		return
	}
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil || user.Email == "" {
		return
	}
	if err := h.email.SendBudgetAlertEmail(user.Email, user.Username, alert); err != nil {
		log.Printf("预算提醒邮件发送失败 user=%d: %v", userID, err)
	}
}

// List 获取交易列表
// @Summary 获取交易列表
// @Description 获取当前用户的交易列表，支持分页和筛选
// @Tags 交易记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param kind query string false "类型筛选 income/expense/transfer"
// @Param category query string false "类别筛选"
// @Param start_time query string false "开始时间 (2024-01-01)"
// @Param end_time query string false "结束时间 (2024-12-31)"
// @Success 200 {object} Response{data=PageResponse{list=[]models.Transaction}} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req TransactionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	// 默认分页参数
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	query := database.DB.Model(&models.Transaction{}).Where("user_id = ?", userID)

	if req.Kind != "" {
		query = query.Where("kind = ?", req.Kind)
	}
	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.StartTime != "" {
		startTime, err := time.ParseInLocation("2006-01-02", req.StartTime, time.Local)
		if err == nil {
			query = query.Where("transaction_time >= ?", startTime)
		}
	}
	if req.EndTime != "" {
		endTime, err := time.ParseInLocation("2006-01-02", req.EndTime, time.Local)
		if err == nil {
			// 包含结束日期当天
			endTime = endTime.Add(24*time.Hour - time.Second)
			query = query.Where("transaction_time <= ?", endTime)
		}
	}

	// 获取总数
	var total int64
	query.Count(&total)

	// 获取列表
	var txs []models.Transaction
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("transaction_time DESC").Offset(offset).Limit(req.PageSize).Find(&txs).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		List:     txs,
	})
}

// Get 获取单条交易
// @Summary 获取单条交易
// @Description 根据ID获取交易详情
// @Tags 交易记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response{data=models.Transaction} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	Success(c, tx)
}

// Update 更新交易记录
// @Summary 更新交易记录
// @Description 更新指定交易。人工改动类别时会记入个性化映射，供后续自动分类学习
// @Tags 交易记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Param request body UpdateTransactionRequest true "交易信息"
// @Success 200 {object} Response{data=models.Transaction} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, config.SafeErrorMessage(err, "参数错误"))
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	updates := make(map[string]interface{})
	if req.Amount > 0 {
		updates["amount"] = req.Amount
	}
	if req.MerchantName != "" {
		updates["merchant_name"] = req.MerchantName
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.TransactionTime != "" {
		txTime, err := time.ParseInLocation("2006-01-02 15:04:05", req.TransactionTime, time.Local)
		if err != nil {
			BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
			return
		}
		updates["transaction_time"] = txTime
	}

	// 人工改类别：记入个性化映射，并冻结自动分类
	if req.Category != "" && req.Category != tx.Category {
		if !h.table.Valid(req.Category) {
			BadRequest(c, "无效的类别")
			return
		}
		updates["category"] = req.Category
		updates["auto_categorized"] = false
		updates["user_overrode_category"] = true
		if tx.MerchantName != "" {
			if err := h.classifier.SaveUserCorrection(ctx, userID, tx.MerchantName, req.Category); err != nil {
				log.Printf("保存分类修正失败 user=%d: %v", userID, err)
			}
		}
	}

	if len(updates) == 0 {
		Success(c, tx)
		return
	}

	if err := database.DB.WithContext(ctx).Model(&tx).Updates(updates).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "更新失败"))
		return
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "更新成功", tx)
}

// Delete 删除交易记录
// @Summary 删除交易记录
// @Description 删除指定的交易记录（软删除）
// @Tags 交易记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	if err := database.DB.WithContext(ctx).Delete(&tx).Error; err != nil {
		InternalError(c, config.SafeErrorMessage(err, "删除失败"))
		return
	}

	cache.InvalidateUser(ctx, userID)
	SuccessWithMessage(c, "删除成功", nil)
}

// GetCategories 获取类别列表
// @Summary 获取类别列表
// @Description 获取系统内置的交易类别
// @Tags 交易记录
// @Produce json
// @Success 200 {object} Response{data=[]service.CategoryInfo} "获取成功"
// @Router /api/v1/categories [get]
func (h *TransactionHandler) GetCategories(c *gin.Context) {
	Success(c, h.table.Categories())
}

// SuggestCategoriesRequest 分类建议请求
type SuggestCategoriesRequest struct {
	MerchantName string `form:"merchant_name" binding:"required" example:"Starbucks Coffee"`
	Limit        int    `form:"limit" example:"3"`
}

// SuggestCategories 获取分类建议
// @Summary 获取分类建议
// @Description 根据商户名给出候选类别，置信度降序
// @Tags 交易记录
// @Produce json
// @Security BearerAuth
// @Param merchant_name query string true "商户名"
// @Param limit query int false "最多返回数量" default(3)
// @Success 200 {object} Response{data=[]service.CategorySuggestion} "获取成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/transactions/suggest-categories [get]
func (h *TransactionHandler) SuggestCategories(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req SuggestCategoriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, "商户名不能为空")
		return
	}

	Success(c, h.classifier.SuggestCategories(c.Request.Context(), userID, req.MerchantName, req.Limit))
}

// CategorySummary 类别汇总
// @Summary 类别支出汇总
// @Description 统计指定月份各类别支出总额
// @Tags 交易记录
// @Produce json
// @Security BearerAuth
// @Param month query string false "月份 (2024-01)，默认当月"
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/transactions/summary [get]
func (h *TransactionHandler) CategorySummary(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	monthStr := c.Query("month")
	var start time.Time
	if monthStr == "" {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	} else {
		var err error
		start, err = time.ParseInLocation("2006-01", monthStr, time.Local)
		if err != nil {
			BadRequest(c, "月份格式错误，应为: 2006-01")
			return
		}
	}
	end := start.AddDate(0, 1, 0)

	type row struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
		Count    int64   `json:"count"`
	}
	var rows []row
	err := database.DB.Model(&models.Transaction{}).
		Select("category, COALESCE(SUM(amount), 0) as total, COUNT(*) as count").
		Where("user_id = ? AND kind = ? AND transaction_time >= ? AND transaction_time < ?",
			userID, models.KindExpense, start, end).
		Group("category").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, gin.H{
		"month":      start.Format("2006-01"),
		"categories": rows,
	})
}
