package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"fintrack/database"
	"fintrack/models"
)

// 订阅周期常量
const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// 检测参数
const (
	lookbackMonthsDefault = 6    // 回看窗口
	minOccurrences        = 2    // 最少出现次数
	maxAmountDeviation    = 0.10 // 金额相对均值的最大偏差
)

// SubscriptionCandidate 周期性支出候选
type SubscriptionCandidate struct {
	Name              string    `json:"name"`
	Amount            float64   `json:"amount"`
	Frequency         string    `json:"frequency"`
	Category          string    `json:"category"`
	Occurrences       int       `json:"occurrences"`
	LastDate          time.Time `json:"last_date"`
	SuggestedNextDate time.Time `json:"suggested_next_date"`
}

// RecurringService 周期性支出检测
type RecurringService struct {
	lookbackMonths int
}

// NewRecurringService 创建检测服务
func NewRecurringService(lookbackMonths int) *RecurringService {
	if lookbackMonths <= 0 {
		lookbackMonths = lookbackMonthsDefault
	}
	return &RecurringService{lookbackMonths: lookbackMonths}
}

// DetectRecurring 扫描用户近几个月的支出，找出疑似周期性扣费。
// 已存在同名订阅的商户不再重复建议
func (s *RecurringService) DetectRecurring(ctx context.Context, userID uint, now time.Time) ([]SubscriptionCandidate, error) {
	db := database.DB.WithContext(ctx)
	since := now.AddDate(0, -s.lookbackMonths, 0)

	var txs []models.Transaction
	err := db.Where("user_id = ? AND kind = ? AND merchant_name <> '' AND transaction_time >= ?",
		userID, models.KindExpense, since).
		Order("transaction_time").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}

	var existing []models.Subscription
	if err := db.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, sub := range existing {
		known[strings.ToLower(sub.Name)] = true
	}

	candidates := DetectCandidates(txs)
	out := candidates[:0]
	for _, c := range candidates {
		if !known[strings.ToLower(c.Name)] {
			out = append(out, c)
		}
	}
	return out, nil
}

// DetectCandidates 纯检测逻辑：按商户分组后检查金额稳定性与间隔规律。
// 入参需按交易时间升序
func DetectCandidates(txs []models.Transaction) []SubscriptionCandidate {
	groups := make(map[string][]models.Transaction)
	var order []string
	for _, tx := range txs {
		key := strings.ToLower(strings.TrimSpace(tx.MerchantName))
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], tx)
	}

	var out []SubscriptionCandidate
	for _, key := range order {
		group := groups[key]
		if len(group) < minOccurrences {
			continue
		}

		// 金额稳定性：所有金额与均值的偏差不超过 10%
		var sum float64
		for _, tx := range group {
			sum += tx.Amount
		}
		mean := sum / float64(len(group))
		if mean <= 0 {
			continue
		}
		stable := true
		for _, tx := range group {
			dev := tx.Amount - mean
			if dev < 0 {
				dev = -dev
			}
			if dev/mean > maxAmountDeviation {
				stable = false
				break
			}
		}
		if !stable {
			continue
		}

		// 间隔规律：平均间隔落在周/月/年窗口内
		gapDays := make([]float64, 0, len(group)-1)
		for i := 1; i < len(group); i++ {
			gapDays = append(gapDays, group[i].TransactionTime.Sub(group[i-1].TransactionTime).Hours()/24)
		}
		var gapSum float64
		for _, g := range gapDays {
			gapSum += g
		}
		frequency := ClassifyInterval(gapSum / float64(len(gapDays)))
		if frequency == "" {
			continue
		}

		last := group[len(group)-1]
		out = append(out, SubscriptionCandidate{
			Name:              last.MerchantName,
			Amount:            round2(mean),
			Frequency:         frequency,
			Category:          last.Category,
			Occurrences:       len(group),
			LastDate:          last.TransactionTime,
			SuggestedNextDate: NextPaymentDate(last.TransactionTime, frequency),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Amount > out[j].Amount
	})
	return out
}

// ClassifyInterval 平均间隔天数归类到计费周期，不符合任何窗口返回空串
func ClassifyInterval(meanGapDays float64) string {
	switch {
	case meanGapDays >= 6 && meanGapDays <= 8:
		return FrequencyWeekly
	case meanGapDays >= 28 && meanGapDays <= 32:
		return FrequencyMonthly
	case meanGapDays >= 360 && meanGapDays <= 370:
		return FrequencyYearly
	}
	return ""
}

// NextPaymentDate 根据计费周期推算下次扣费日
func NextPaymentDate(last time.Time, frequency string) time.Time {
	switch frequency {
	case FrequencyWeekly:
		return last.AddDate(0, 0, 7)
	case FrequencyYearly:
		return last.AddDate(1, 0, 0)
	default:
		return last.AddDate(0, 1, 0)
	}
}

// MonthlyCost 订阅折算到每月的成本
func MonthlyCost(amount float64, frequency string) float64 {
	switch frequency {
	case FrequencyWeekly:
		return round2(amount * 4.33)
	case FrequencyYearly:
		return round2(amount / 12)
	default:
		return round2(amount)
	}
}
