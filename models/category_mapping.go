package models

import "time"

// CategoryMapping 用户个性化的商户关键词→类别映射
// 每次用户做同样的修正，UsageCount 加一、Confidence 加 0.1（封顶 1.0）
type CategoryMapping struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:uniq_user_keyword"`
	Keyword    string    `json:"keyword" gorm:"size:100;not null;uniqueIndex:uniq_user_keyword"`
	Category   string    `json:"category" gorm:"size:50;not null"`
	Confidence float64   `json:"confidence" gorm:"type:decimal(3,2);default:0.5"`
	UsageCount int       `json:"usage_count" gorm:"default:1"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 设置表名
func (CategoryMapping) TableName() string {
	return "category_mappings"
}
