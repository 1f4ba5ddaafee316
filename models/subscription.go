package models

import (
	"time"

	"gorm.io/gorm"
)

// 订阅状态常量
const (
	SubscriptionActive    = "active"
	SubscriptionPaused    = "paused"
	SubscriptionCancelled = "cancelled"
)

// ValidSubscriptionStatus 校验订阅状态
func ValidSubscriptionStatus(status string) bool {
	return status == SubscriptionActive || status == SubscriptionPaused || status == SubscriptionCancelled
}

// Subscription 订阅/周期性支出模型
// AutoDetected 标记由检测算法建议而来，而非用户手工录入
type Subscription struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	UserID          uint           `json:"user_id" gorm:"index;not null"`
	Name            string         `json:"name" gorm:"size:100;not null"`
	Amount          float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	Frequency       string         `json:"frequency" gorm:"size:20;not null;default:monthly"`
	Category        string         `json:"category" gorm:"size:50;default:entertainment"`
	NextPaymentDate time.Time      `json:"next_payment_date" gorm:"not null;index"`
	Status          string         `json:"status" gorm:"size:20;default:active;index"`
	AutoDetected    bool           `json:"auto_detected" gorm:"default:false"`
	ReminderDays    int            `json:"reminder_days" gorm:"default:3"`
	Notes           string         `json:"notes" gorm:"size:255"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
	User            User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Subscription) TableName() string {
	return "subscriptions"
}
