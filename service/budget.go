package service

import (
	"context"
	"fmt"
	"time"

	"fintrack/database"
	"fintrack/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertEvent 预算阈值触发事件
type AlertEvent struct {
	AlertID     uint      `json:"alert_id,omitempty"`
	BudgetID    uint      `json:"budget_id"`
	Category    string    `json:"category"`
	Threshold   int       `json:"threshold"`
	AlertDate   time.Time `json:"alert_date"`
	PercentUsed float64   `json:"percent_used"`
	Spent       float64   `json:"spent"`
	Limit       float64   `json:"limit"`
	Message     string    `json:"message"`
}

// BudgetService 预算阈值监控
type BudgetService struct{}

// NewBudgetService 创建预算服务
func NewBudgetService() *BudgetService {
	return &BudgetService{}
}

// PeriodStart 预算周期的起点：
// weekly 为本周一零点，monthly 为本月一号零点，yearly 为本年一月一号零点
func PeriodStart(period string, now time.Time) time.Time {
	now = now.In(time.Local)
	switch period {
	case models.PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // 周日算上周第七天
		}
		day := now.AddDate(0, 0, -(weekday - 1))
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	case models.PeriodYearly:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.Local)
	default: // monthly
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	}
}

// PeriodSpend 统计用户某类别自 start 以来的支出总额
func (s *BudgetService) PeriodSpend(ctx context.Context, userID uint, category string, start time.Time) (float64, error) {
	var total float64
	err := database.DB.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND category = ? AND kind = ? AND transaction_time >= ?",
			userID, category, models.KindExpense, start).
		Scan(&total).Error
	return total, err
}

// EvaluateThreshold 判断当前使用率触发哪个阈值。
// 从高到低评估，只触发最高的那一个；关闭的阈值跳过，返回 0 表示不触发
func EvaluateThreshold(budget models.Budget, percentUsed float64) (int, string) {
	type rule struct {
		threshold int
		message   func() string
	}
	rules := []rule{
		{100, func() string {
			return fmt.Sprintf("【%s】预算已超支！已用 %.1f%%（上限 %.2f）",
				budget.Category, percentUsed, budget.LimitAmount)
		}},
		{90, func() string {
			return fmt.Sprintf("【%s】预算仅剩 10%%，已用 %.1f%%，请注意控制支出",
				budget.Category, percentUsed)
		}},
		{80, func() string {
			return fmt.Sprintf("【%s】预算已用 80%%，当前 %.1f%%", budget.Category, percentUsed)
		}},
	}
	for _, r := range rules {
		if percentUsed >= float64(r.threshold) && budget.ThresholdEnabled(r.threshold) {
			return r.threshold, r.message()
		}
	}
	return 0, ""
}

// CheckBudgetAlert 交易入账后的预算检查。
// txTime 决定交易落在哪个预算周期，now 决定提醒记在哪一天：
// 补录历史交易时提醒仍按当天去重，而不是按历史日期。
// 没有对应预算、未触发阈值、或当天同阈值已提醒过时返回 (nil, nil)。
// 去重靠 (budget_id, threshold, alert_date) 唯一索引 + insert-ignore，
// 并发插入时只有一条成功
func (s *BudgetService) CheckBudgetAlert(ctx context.Context, userID uint, category string, txTime, now time.Time) (*AlertEvent, error) {
	db := database.DB.WithContext(ctx)

	var budget models.Budget
	err := db.Where("user_id = ? AND category = ? AND active = ?", userID, category, true).
		First(&budget).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	if budget.LimitAmount <= 0 {
		return nil, nil
	}

	spent, err := s.PeriodSpend(ctx, userID, category, PeriodStart(budget.Period, txTime))
	if err != nil {
		return nil, err
	}

	percentUsed := round2(spent / budget.LimitAmount * 100)
	threshold, message := EvaluateThreshold(budget, percentUsed)
	if threshold == 0 {
		return nil, nil
	}

	alert := models.BudgetAlert{
		UserID:      userID,
		BudgetID:    budget.ID,
		Threshold:   threshold,
		AlertDate:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local),
		PercentUsed: percentUsed,
		SpentAmount: round2(spent),
		LimitAmount: budget.LimitAmount,
		Message:     message,
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&alert)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// 当天该阈值已提醒过
		return nil, nil
	}

	return &AlertEvent{
		AlertID:     alert.ID,
		BudgetID:    budget.ID,
		Category:    budget.Category,
		Threshold:   threshold,
		AlertDate:   alert.AlertDate,
		PercentUsed: percentUsed,
		Spent:       round2(spent),
		Limit:       budget.LimitAmount,
		Message:     message,
	}, nil
}

// BudgetProgress 单个预算的执行情况
type BudgetProgress struct {
	Budget      models.Budget `json:"budget"`
	Spent       float64       `json:"spent"`
	Remaining   float64       `json:"remaining"`
	PercentUsed float64       `json:"percent_used"`
	Status      string        `json:"status"` // healthy / warning / critical / exceeded
}

// progressStatus 使用率对应的状态标签
func progressStatus(percentUsed float64) string {
	switch {
	case percentUsed >= 100:
		return "exceeded"
	case percentUsed >= 90:
		return "critical"
	case percentUsed >= 80:
		return "warning"
	}
	return "healthy"
}

// Progress 计算用户全部启用预算的执行情况
func (s *BudgetService) Progress(ctx context.Context, userID uint, now time.Time) ([]BudgetProgress, error) {
	var budgets []models.Budget
	err := database.DB.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("category").
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}

	out := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		spent, err := s.PeriodSpend(ctx, userID, b.Category, PeriodStart(b.Period, now))
		if err != nil {
			return nil, err
		}
		percent := 0.0
		if b.LimitAmount > 0 {
			percent = round2(spent / b.LimitAmount * 100)
		}
		out = append(out, BudgetProgress{
			Budget:      b,
			Spent:       round2(spent),
			Remaining:   round2(b.LimitAmount - spent),
			PercentUsed: percent,
			Status:      progressStatus(percent),
		})
	}
	return out, nil
}
