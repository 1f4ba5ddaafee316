package service

import (
	"context"
	"testing"
	"time"

	"fintrack/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodStart(t *testing.T) {
	// 2024-01-17 是周三
	now := time.Date(2024, 1, 17, 15, 30, 0, 0, time.Local)

	weekly := PeriodStart(models.PeriodWeekly, now)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local), weekly) // 周一

	monthly := PeriodStart(models.PeriodMonthly, now)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), monthly)

	yearly := PeriodStart(models.PeriodYearly, now)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), yearly)

	// 周日算上周第七天
	sunday := time.Date(2024, 1, 21, 10, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local), PeriodStart(models.PeriodWeekly, sunday))
}

func TestEvaluateThreshold(t *testing.T) {
	budget := models.Budget{
		Category:    "food",
		LimitAmount: 1000,
		Alert80:     true,
		Alert90:     true,
		Alert100:    true,
	}

	tests := []struct {
		percent float64
		want    int
	}{
		{50, 0},
		{79.99, 0},
		{80, 80},
		{85, 80},
		{90, 90},
		{99.9, 90},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		got, msg := EvaluateThreshold(budget, tt.percent)
		assert.Equal(t, tt.want, got, "percent=%v", tt.percent)
		if tt.want != 0 {
			assert.NotEmpty(t, msg)
		}
	}
}

func TestEvaluateThreshold_DisabledFallsThrough(t *testing.T) {
	// 100 关闭时 105% 落到下一个开启的阈值
	budget := models.Budget{Category: "food", LimitAmount: 1000, Alert80: true, Alert90: true, Alert100: false}
	got, _ := EvaluateThreshold(budget, 105)
	assert.Equal(t, 90, got)

	// 全部关闭则不触发
	budget = models.Budget{Category: "food", LimitAmount: 1000}
	got, _ = EvaluateThreshold(budget, 105)
	assert.Equal(t, 0, got)
}

func TestCheckBudgetAlert_NoBudget(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := NewBudgetService()

	mock.ExpectQuery("SELECT .* FROM `budgets`").
		WillReturnRows(sqlmock.NewRows([]string{}))

	alert, err := s.CheckBudgetAlert(context.Background(), 1, "food", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, alert)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckBudgetAlert_Triggers(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := NewBudgetService()
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.Local)

	// 预算 1000，已花 850 → 85% 触发 80 阈值
	mock.ExpectQuery("SELECT .* FROM `budgets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category", "limit_amount", "period", "alert80", "alert90", "alert100", "active", "created_at", "updated_at", "deleted_at"}).
			AddRow(3, 1, "food", 1000.0, "monthly", true, true, true, true, now, now, nil))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(850.0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT (IGNORE )?INTO `budget_alerts`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	alert, err := s.CheckBudgetAlert(context.Background(), 1, "food", now, now)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, 80, alert.Threshold)
	assert.Equal(t, 85.0, alert.PercentUsed)
	assert.Equal(t, 850.0, alert.Spent)
	assert.Equal(t, 1000.0, alert.Limit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckBudgetAlert_BackdatedTransaction(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := NewBudgetService()
	txTime := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.Local)

	// 补录 1 月 10 日的支出：周期按交易时间算（1 月），提醒记在今天
	mock.ExpectQuery("SELECT .* FROM `budgets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category", "limit_amount", "period", "alert80", "alert90", "alert100", "active", "created_at", "updated_at", "deleted_at"}).
			AddRow(3, 1, "food", 1000.0, "monthly", true, true, true, true, now, now, nil))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(850.0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT (IGNORE )?INTO `budget_alerts`").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	alert, err := s.CheckBudgetAlert(context.Background(), 1, "food", txTime, now)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, time.Date(2024, 1, 20, 0, 0, 0, 0, time.Local), alert.AlertDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckBudgetAlert_DedupSameDay(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := NewBudgetService()
	now := time.Date(2024, 1, 20, 18, 0, 0, 0, time.Local)

	// 当天已提醒过：insert-ignore 影响 0 行，不再返回事件
	mock.ExpectQuery("SELECT .* FROM `budgets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category", "limit_amount", "period", "alert80", "alert90", "alert100", "active", "created_at", "updated_at", "deleted_at"}).
			AddRow(3, 1, "food", 1000.0, "monthly", true, true, true, true, now, now, nil))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(920.0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT (IGNORE )?INTO `budget_alerts`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	alert, err := s.CheckBudgetAlert(context.Background(), 1, "food", now, now)
	require.NoError(t, err)
	assert.Nil(t, alert)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckBudgetAlert_BelowThreshold(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := NewBudgetService()
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM `budgets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category", "limit_amount", "period", "alert80", "alert90", "alert100", "active", "created_at", "updated_at", "deleted_at"}).
			AddRow(3, 1, "food", 1000.0, "monthly", true, true, true, true, now, now, nil))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(500.0))

	alert, err := s.CheckBudgetAlert(context.Background(), 1, "food", now, now)
	require.NoError(t, err)
	assert.Nil(t, alert)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressStatus(t *testing.T) {
	assert.Equal(t, "healthy", progressStatus(50))
	assert.Equal(t, "warning", progressStatus(80))
	assert.Equal(t, "critical", progressStatus(95))
	assert.Equal(t, "exceeded", progressStatus(100))
	assert.Equal(t, "exceeded", progressStatus(130))
}
