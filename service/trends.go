package service

import (
	"context"
	"time"

	"fintrack/database"
	"fintrack/models"
)

// CategoryTrend 单个类别的环比变化
type CategoryTrend struct {
	Category      string  `json:"category"`
	CurrentMonth  float64 `json:"current_month"`
	PreviousMonth float64 `json:"previous_month"`
	ChangePercent float64 `json:"change_percent"`
}

// MonthTotal 单月汇总
type MonthTotal struct {
	Month   string  `json:"month"` // 2006-01 格式
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// TrendsService 消费趋势分析
type TrendsService struct{}

// NewTrendsService 创建趋势分析服务
func NewTrendsService() *TrendsService {
	return &TrendsService{}
}

type categorySum struct {
	Category string
	Total    float64
}

// SpendingTrends 本月与上月各类别支出的环比
func (s *TrendsService) SpendingTrends(ctx context.Context, userID uint, now time.Time) ([]CategoryTrend, error) {
	currentStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	previousStart := currentStart.AddDate(0, -1, 0)

	current, err := s.categorySums(ctx, userID, currentStart, now)
	if err != nil {
		return nil, err
	}
	previous, err := s.categorySums(ctx, userID, previousStart, currentStart)
	if err != nil {
		return nil, err
	}

	prevMap := make(map[string]float64, len(previous))
	for _, p := range previous {
		prevMap[p.Category] = p.Total
	}
	seen := make(map[string]bool, len(current))

	var out []CategoryTrend
	for _, c := range current {
		seen[c.Category] = true
		t := CategoryTrend{
			Category:      c.Category,
			CurrentMonth:  round2(c.Total),
			PreviousMonth: round2(prevMap[c.Category]),
		}
		if t.PreviousMonth > 0 {
			t.ChangePercent = round2((t.CurrentMonth - t.PreviousMonth) / t.PreviousMonth * 100)
		} else if t.CurrentMonth > 0 {
			t.ChangePercent = 100
		}
		out = append(out, t)
	}
	// 上月有、本月没有的类别也要体现出来（降为 0）
	for _, p := range previous {
		if !seen[p.Category] {
			out = append(out, CategoryTrend{
				Category:      p.Category,
				PreviousMonth: round2(p.Total),
				ChangePercent: -100,
			})
		}
	}
	return out, nil
}

// categorySums 指定时间段内各类别支出汇总
func (s *TrendsService) categorySums(ctx context.Context, userID uint, start, end time.Time) ([]categorySum, error) {
	var sums []categorySum
	err := database.DB.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("category, COALESCE(SUM(amount), 0) as total").
		Where("user_id = ? AND kind = ? AND transaction_time >= ? AND transaction_time < ?",
			userID, models.KindExpense, start, end).
		Group("category").
		Order("total DESC").
		Scan(&sums).Error
	return sums, err
}

// SpendingHistory 最近 months 个月的收支汇总，按月份升序
func (s *TrendsService) SpendingHistory(ctx context.Context, userID uint, months int, now time.Time) ([]MonthTotal, error) {
	if months <= 0 || months > 24 {
		months = 6
	}
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, -(months - 1), 0)

	type row struct {
		Month string
		Kind  string
		Total float64
	}
	var rows []row
	err := database.DB.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("DATE_FORMAT(transaction_time, '%Y-%m') as month, kind, COALESCE(SUM(amount), 0) as total").
		Where("user_id = ? AND transaction_time >= ? AND kind IN ?",
			userID, since, []string{models.KindIncome, models.KindExpense}).
		Group("month, kind").
		Order("month").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*MonthTotal, months)
	out := make([]MonthTotal, 0, months)
	// 没有交易的月份也补零，保证前端图表连续
	for i := 0; i < months; i++ {
		month := since.AddDate(0, i, 0).Format("2006-01")
		out = append(out, MonthTotal{Month: month})
		totals[month] = &out[len(out)-1]
	}
	for _, r := range rows {
		mt, ok := totals[r.Month]
		if !ok {
			continue
		}
		if r.Kind == models.KindIncome {
			mt.Income = round2(r.Total)
		} else {
			mt.Expense = round2(r.Total)
		}
	}
	return out, nil
}
