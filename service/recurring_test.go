package service

import (
	"testing"
	"time"

	"fintrack/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expenseAt(merchant string, amount float64, day time.Time) models.Transaction {
	return models.Transaction{
		UserID:          1,
		Amount:          amount,
		Kind:            models.KindExpense,
		Category:        "entertainment",
		MerchantName:    merchant,
		TransactionTime: day,
	}
}

func TestDetectCandidates_MonthlySubscription(t *testing.T) {
	base := time.Date(2024, 1, 5, 10, 0, 0, 0, time.Local)
	// Spotify 每月扣费，金额小幅波动，间隔 30/31/29 天
	txs := []models.Transaction{
		expenseAt("Spotify", 59.99, base),
		expenseAt("Spotify", 59.99, base.AddDate(0, 0, 30)),
		expenseAt("Spotify", 60.49, base.AddDate(0, 0, 61)),
		expenseAt("Spotify", 60.00, base.AddDate(0, 0, 90)),
	}

	candidates := DetectCandidates(txs)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "Spotify", c.Name)
	assert.Equal(t, FrequencyMonthly, c.Frequency)
	assert.Equal(t, 4, c.Occurrences)
	assert.InDelta(t, 60.12, c.Amount, 0.01) // 均值
	assert.Equal(t, base.AddDate(0, 0, 90), c.LastDate)
	assert.Equal(t, base.AddDate(0, 0, 90).AddDate(0, 1, 0), c.SuggestedNextDate)
}

func TestDetectCandidates_UnstableAmountRejected(t *testing.T) {
	base := time.Date(2024, 1, 5, 10, 0, 0, 0, time.Local)
	// 金额波动超过 10%，不算订阅
	txs := []models.Transaction{
		expenseAt("Grocery Store", 50, base),
		expenseAt("Grocery Store", 120, base.AddDate(0, 0, 30)),
		expenseAt("Grocery Store", 80, base.AddDate(0, 0, 60)),
	}
	assert.Empty(t, DetectCandidates(txs))
}

func TestDetectCandidates_IrregularGapRejected(t *testing.T) {
	base := time.Date(2024, 1, 5, 10, 0, 0, 0, time.Local)
	// 金额稳定但间隔 15 天，不落在任何周期窗口
	txs := []models.Transaction{
		expenseAt("Random Shop", 30, base),
		expenseAt("Random Shop", 30, base.AddDate(0, 0, 15)),
		expenseAt("Random Shop", 30, base.AddDate(0, 0, 30)),
	}
	assert.Empty(t, DetectCandidates(txs))
}

func TestDetectCandidates_SingleOccurrenceRejected(t *testing.T) {
	txs := []models.Transaction{
		expenseAt("One Off", 99, time.Now()),
	}
	assert.Empty(t, DetectCandidates(txs))
}

func TestDetectCandidates_WeeklySubscription(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local)
	txs := []models.Transaction{
		expenseAt("Gym Class", 25, base),
		expenseAt("Gym Class", 25, base.AddDate(0, 0, 7)),
		expenseAt("Gym Class", 25, base.AddDate(0, 0, 14)),
	}
	candidates := DetectCandidates(txs)
	require.Len(t, candidates, 1)
	assert.Equal(t, FrequencyWeekly, candidates[0].Frequency)
}

func TestClassifyInterval(t *testing.T) {
	tests := []struct {
		days float64
		want string
	}{
		{6, FrequencyWeekly},
		{7, FrequencyWeekly},
		{8, FrequencyWeekly},
		{5.9, ""},
		{28, FrequencyMonthly},
		{30, FrequencyMonthly},
		{32, FrequencyMonthly},
		{33, ""},
		{360, FrequencyYearly},
		{365, FrequencyYearly},
		{370, FrequencyYearly},
		{371, ""},
		{15, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyInterval(tt.days), "days=%v", tt.days)
	}
}

func TestNextPaymentDate(t *testing.T) {
	last := time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local)
	assert.Equal(t, last.AddDate(0, 0, 7), NextPaymentDate(last, FrequencyWeekly))
	assert.Equal(t, last.AddDate(0, 1, 0), NextPaymentDate(last, FrequencyMonthly))
	assert.Equal(t, last.AddDate(1, 0, 0), NextPaymentDate(last, FrequencyYearly))
}

func TestMonthlyCost(t *testing.T) {
	assert.InDelta(t, 43.3, MonthlyCost(10, FrequencyWeekly), 0.01)
	assert.Equal(t, 29.9, MonthlyCost(29.9, FrequencyMonthly))
	assert.Equal(t, 10.0, MonthlyCost(120, FrequencyYearly))
}
