package models

import "time"

// BudgetAlert 预算提醒，追加写入
// (budget_id, threshold, alert_date) 唯一索引保证同一天同一阈值只提醒一次，
// 并发下的去重依赖该索引 + insert-ignore，而非先查后写
type BudgetAlert struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	BudgetID    uint      `json:"budget_id" gorm:"not null;uniqueIndex:uniq_budget_threshold_day"`
	Threshold   int       `json:"threshold" gorm:"not null;uniqueIndex:uniq_budget_threshold_day"`
	AlertDate   time.Time `json:"alert_date" gorm:"type:date;not null;uniqueIndex:uniq_budget_threshold_day"`
	PercentUsed float64   `json:"percent_used" gorm:"type:decimal(6,2)"`
	SpentAmount float64   `json:"spent_amount" gorm:"type:decimal(10,2)"`
	LimitAmount float64   `json:"limit_amount" gorm:"type:decimal(10,2)"`
	Message     string    `json:"message" gorm:"size:255"`
	Read        bool      `json:"read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 设置表名
func (BudgetAlert) TableName() string {
	return "budget_alerts"
}
