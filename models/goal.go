package models

import (
	"time"

	"gorm.io/gorm"
)

// 目标状态常量
const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalCancelled = "cancelled"
)

// 目标优先级常量
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ValidGoalStatus 校验目标状态
func ValidGoalStatus(status string) bool {
	return status == GoalActive || status == GoalCompleted || status == GoalCancelled
}

// ValidPriority 校验优先级
func ValidPriority(priority string) bool {
	return priority == PriorityHigh || priority == PriorityMedium || priority == PriorityLow
}

// Goal 储蓄目标模型
// CurrentAmount 只能在事务内随贡献流水一起变更，
// 任何时刻都应满足 CurrentAmount == SeedAmount + SUM(contributions)
type Goal struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	UserID           uint           `json:"user_id" gorm:"index;not null"`
	Name             string         `json:"name" gorm:"size:100;not null"`
	TargetAmount     float64        `json:"target_amount" gorm:"type:decimal(10,2);not null"`
	CurrentAmount    float64        `json:"current_amount" gorm:"type:decimal(10,2);default:0"`
	SeedAmount       float64        `json:"seed_amount" gorm:"type:decimal(10,2);default:0"`
	Deadline         *time.Time     `json:"deadline"`
	Priority         string         `json:"priority" gorm:"size:20;default:medium"`
	AutoRoundEnabled bool           `json:"auto_round_enabled" gorm:"default:false;index"`
	Status           string         `json:"status" gorm:"size:20;default:active;index"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
	User             User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Goal) TableName() string {
	return "goals"
}
