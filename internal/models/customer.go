package models

import (
	"time"
)

// Customer 客户表：礼品卡归属与连表展示用的精简档案
type Customer struct {
	ID        uint      `gorm:"primarykey" json:"id"`              // 主键
	Email     string    `gorm:"uniqueIndex;not null" json:"email"` // 邮箱
	Name      string    `gorm:"default:''" json:"name"`            // 姓名
	Status    string    `gorm:"default:'active'" json:"status"`    // 账号状态
	CreatedAt time.Time `gorm:"index" json:"created_at"`           // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`           // 更新时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
