package models

import "time"

// 贡献来源常量
const (
	SourceManual    = "manual"
	SourceAutoRound = "auto_round"
	SourceScheduled = "scheduled"
	SourceBonus     = "bonus"
)

// ValidSource 校验贡献来源
func ValidSource(source string) bool {
	switch source {
	case SourceManual, SourceAutoRound, SourceScheduled, SourceBonus:
		return true
	}
	return false
}

// GoalContribution 目标贡献流水，追加写入，不允许更新和删除
type GoalContribution struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	GoalID        uint      `json:"goal_id" gorm:"index;not null"`
	Amount        float64   `json:"amount" gorm:"type:decimal(10,2);not null"`
	Source        string    `json:"source" gorm:"size:20;not null;default:manual"`
	TransactionID *uint     `json:"transaction_id"`
	Notes         string    `json:"notes" gorm:"size:255"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 设置表名
func (GoalContribution) TableName() string {
	return "goal_contributions"
}
