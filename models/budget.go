package models

import (
	"time"

	"gorm.io/gorm"
)

// 预算周期常量
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// ValidPeriod 校验预算周期
func ValidPeriod(period string) bool {
	return period == PeriodWeekly || period == PeriodMonthly || period == PeriodYearly
}

// Budget 预算模型，(user_id, category, period) 唯一
// spent/percent_used 为派生值，查询时计算，不落库
type Budget struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null;uniqueIndex:uniq_user_category_period"`
	Category    string         `json:"category" gorm:"size:50;not null;uniqueIndex:uniq_user_category_period"`
	LimitAmount float64        `json:"limit_amount" gorm:"type:decimal(10,2);not null"`
	Period      string         `json:"period" gorm:"size:20;not null;default:monthly;uniqueIndex:uniq_user_category_period"`
	Alert80     bool           `json:"alert_80" gorm:"default:true"`
	Alert90     bool           `json:"alert_90" gorm:"default:true"`
	Alert100    bool           `json:"alert_100" gorm:"default:true"`
	Active      bool           `json:"active" gorm:"default:true;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	User        User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Budget) TableName() string {
	return "budgets"
}

// ThresholdEnabled 指定阈值开关是否开启
func (b Budget) ThresholdEnabled(threshold int) bool {
	switch threshold {
	case 100:
		return b.Alert100
	case 90:
		return b.Alert90
	case 80:
		return b.Alert80
	}
	return false
}
