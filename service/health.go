package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"fintrack/cache"
	"fintrack/database"
	"fintrack/models"
)

// ScorePart 健康分的单项得分
type ScorePart struct {
	Score int `json:"score"`
	Max   int `json:"max"`
}

// HealthMetrics 健康分计算的输入指标，均取当前自然月
type HealthMetrics struct {
	MonthIncome      float64 // 本月收入
	MonthExpense     float64 // 本月支出
	BudgetCount      int     // 启用的预算数
	BudgetsWithin    int     // 未超支的预算数
	RecurringMonthly float64 // 活跃订阅折算月成本
}

// HealthScoreResult 财务健康分
type HealthScoreResult struct {
	Score       int                  `json:"score"`
	Status      string               `json:"status"`
	Color       string               `json:"color"`
	Parts       map[string]ScorePart `json:"parts"`
	Suggestions []string             `json:"suggestions"`
}

// ComputeHealthScore 纯计算：四个子项加权求和。
// 收支比 40 分、预算执行 30 分、储蓄率 20 分、订阅负担 10 分
func ComputeHealthScore(m HealthMetrics) HealthScoreResult {
	parts := make(map[string]ScorePart, 4)
	var suggestions []string

	// 储蓄率（百分比）：(收入-支出)/收入；无收入按 0% 计
	savingsRate := 0.0
	if m.MonthIncome > 0 {
		savingsRate = (m.MonthIncome - m.MonthExpense) / m.MonthIncome * 100
	}

	// 收支比：储蓄率 ≥20% 得 40，≥10% 得 30，>0% 得 20，入不敷出得 0
	incomeExpenseScore := 0
	switch {
	case savingsRate >= 20:
		incomeExpenseScore = 40
	case savingsRate >= 10:
		incomeExpenseScore = 30
	case savingsRate > 0:
		incomeExpenseScore = 20
	}
	parts["income_expense_ratio"] = ScorePart{Score: incomeExpenseScore, Max: 40}
	if savingsRate < 20 {
		suggestions = append(suggestions, "本月储蓄率偏低，建议把储蓄率提升到收入的 20% 以上")
	}

	// 预算执行：未超支预算占比；没有设置预算时给满分
	budgetScore := 30
	if m.BudgetCount > 0 {
		budgetScore = int(math.Round(float64(m.BudgetsWithin) / float64(m.BudgetCount) * 30))
		if m.BudgetsWithin < m.BudgetCount {
			suggestions = append(suggestions,
				fmt.Sprintf("有 %d 个预算已超支，建议调整支出或上调预算", m.BudgetCount-m.BudgetsWithin))
		}
	} else {
		suggestions = append(suggestions, "尚未设置任何预算，建议为主要支出类别设置预算")
	}
	parts["budget_compliance"] = ScorePart{Score: budgetScore, Max: 30}

	// 储蓄率：每个百分点 1 分，封顶 20
	savingsScore := int(math.Round(savingsRate))
	if savingsScore > 20 {
		savingsScore = 20
	}
	if savingsScore < 0 {
		savingsScore = 0
	}
	parts["savings_rate"] = ScorePart{Score: savingsScore, Max: 20}

	// 订阅负担：订阅月成本占收入比 ≤30% 得满分，每超 3 个百分点扣 1 分
	recurringScore := 10
	if m.MonthIncome > 0 {
		ratio := m.RecurringMonthly / m.MonthIncome * 100
		if ratio > 30 {
			recurringScore = 10 - int(math.Round((ratio-30)/3))
			if recurringScore < 0 {
				recurringScore = 0
			}
			suggestions = append(suggestions, "订阅支出占收入比例过高，建议清理不常用的订阅")
		}
	}
	parts["recurring_load"] = ScorePart{Score: recurringScore, Max: 10}

	total := incomeExpenseScore + budgetScore + savingsScore + recurringScore
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	status, color := healthLabel(total)
	return HealthScoreResult{
		Score:       total,
		Status:      status,
		Color:       color,
		Parts:       parts,
		Suggestions: suggestions,
	}
}

// healthLabel 总分对应的状态标签与颜色
func healthLabel(score int) (string, string) {
	switch {
	case score >= 80:
		return "Excellent", "#10b981"
	case score >= 60:
		return "Good", "#3b82f6"
	case score >= 40:
		return "Fair", "#f59e0b"
	}
	return "Needs Improvement", "#ef4444"
}

// HealthService 财务健康分
type HealthService struct {
	budgets *BudgetService
}

// NewHealthService 创建健康分服务
func NewHealthService(budgets *BudgetService) *HealthService {
	return &HealthService{budgets: budgets}
}

// HealthScore 汇总用户本月指标并计算健康分，结果缓存 5 分钟
func (s *HealthService) HealthScore(ctx context.Context, userID uint, now time.Time) (*HealthScoreResult, error) {
	cacheKey := fmt.Sprintf("analytics:%d:health:%s", userID, now.Format("2006-01-02"))
	var cached HealthScoreResult
	if cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	metrics, err := s.collectMetrics(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	result := ComputeHealthScore(*metrics)
	cache.SetJSON(ctx, cacheKey, result, 5*time.Minute)
	return &result, nil
}

// collectMetrics 汇总本月收支、预算执行、订阅负担
func (s *HealthService) collectMetrics(ctx context.Context, userID uint, now time.Time) (*HealthMetrics, error) {
	db := database.DB.WithContext(ctx)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)

	var m HealthMetrics

	err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND kind = ? AND transaction_time >= ?", userID, models.KindIncome, monthStart).
		Scan(&m.MonthIncome).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND kind = ? AND transaction_time >= ?", userID, models.KindExpense, monthStart).
		Scan(&m.MonthExpense).Error
	if err != nil {
		return nil, err
	}

	progress, err := s.budgets.Progress(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	m.BudgetCount = len(progress)
	for _, p := range progress {
		if p.PercentUsed < 100 {
			m.BudgetsWithin++
		}
	}

	var subs []models.Subscription
	if err := db.Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).Find(&subs).Error; err != nil {
		return nil, err
	}
	for _, sub := range subs {
		m.RecurringMonthly += MonthlyCost(sub.Amount, sub.Frequency)
	}

	return &m, nil
}
