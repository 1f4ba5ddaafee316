package models

import (
	"time"

	"gorm.io/gorm"
)

// 交易类型常量
const (
	KindIncome   = "income"
	KindExpense  = "expense"
	KindTransfer = "transfer"
)

// ValidKind 校验交易类型
func ValidKind(kind string) bool {
	return kind == KindIncome || kind == KindExpense || kind == KindTransfer
}

// Transaction 交易记录模型
// 一旦人工修正过类别，AutoCategorized 必须为 false（不可再被算法改写）
type Transaction struct {
	ID                   uint           `json:"id" gorm:"primaryKey"`
	UserID               uint           `json:"user_id" gorm:"index;not null"`
	Amount               float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	Kind                 string         `json:"kind" gorm:"size:20;not null;index"`
	Category             string         `json:"category" gorm:"size:50;not null;default:uncategorized;index"`
	MerchantName         string         `json:"merchant_name" gorm:"size:255"`
	Description          string         `json:"description" gorm:"size:255"`
	TransactionTime      time.Time      `json:"transaction_time" gorm:"not null;index"`
	AutoCategorized      bool           `json:"auto_categorized" gorm:"default:false"`
	UserOverrodeCategory bool           `json:"user_overrode_category" gorm:"default:false"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`
	User                 User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}
