package api

import (
	"strconv"
	"time"

	"fintrack/config"
	"fintrack/middleware"
	"fintrack/service"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 分析统计处理器
type AnalyticsHandler struct {
	health *service.HealthService
	trends *service.TrendsService
}

// NewAnalyticsHandler 创建分析统计处理器
func NewAnalyticsHandler(health *service.HealthService, trends *service.TrendsService) *AnalyticsHandler {
	return &AnalyticsHandler{health: health, trends: trends}
}

// HealthScore 获取财务健康分
// @Summary 获取财务健康分
// @Description 基于本月储蓄率、预算执行、目标进度和订阅负担计算 0-100 的健康分
// @Tags 分析统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.HealthScoreResult} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/analytics/health-score [get]
func (h *AnalyticsHandler) HealthScore(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	result, err := h.health.HealthScore(c.Request.Context(), userID, time.Now())
	if err != nil {
		InternalError(c, config.SafeErrorMessage(err, "计算失败"))
		return
	}

	Success(c, result)
}

// Trends 获取消费趋势
// @Summary 获取消费趋势
// @Description 本月与上月各类别支出的环比变化
// @Tags 分析统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.CategoryTrend} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/analytics/trends [get]
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	trends, err := h.trends.SpendingTrends(c.Request.Context(), userID, time.Now())
	if err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, trends)
}

// History 获取收支历史
// @Summary 获取收支历史
// @Description 最近几个月的收入与支出汇总，按月份升序
// @Tags 分析统计
// @Produce json
// @Security BearerAuth
// @Param months query int false "月数 (1-24)" default(6)
// @Success 200 {object} Response{data=[]service.MonthTotal} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/analytics/history [get]
func (h *AnalyticsHandler) History(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	months, _ := strconv.Atoi(c.DefaultQuery("months", "6"))
	history, err := h.trends.SpendingHistory(c.Request.Context(), userID, months, time.Now())
	if err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, history)
}
