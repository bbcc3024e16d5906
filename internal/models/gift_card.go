package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/giftcard-next/internal/constants"
)

// GiftCard 礼品卡主档：面额一经发放不再变化，余额随流水账变动
type GiftCard struct {
	ID                 uint      `gorm:"primarykey" json:"id"`                                           // 主键
	AssignedCustomerID uint      `gorm:"index;not null;default:0" json:"assigned_customer_id"`           // 归属客户ID（0=未分配）
	Code               string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"code"`              // 卡号（对外查询凭证）
	Status             string    `gorm:"type:varchar(24);index;not null;default:'active'" json:"status"` // 状态
	InitialValue       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"initial_value"`     // 初始面额
	CurrentValue       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"current_value"`     // 当前余额
	RecipientEmail     string    `gorm:"type:varchar(191);index;default:''" json:"recipient_email"`      // 收卡人邮箱
	RecipientName      string    `gorm:"type:varchar(120);default:''" json:"recipient_name"`             // 收卡人姓名
	CreatedAt          time.Time `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt          time.Time `gorm:"index" json:"updated_at"`                                        // 更新时间
	Customer           *Customer `gorm:"foreignKey:AssignedCustomerID" json:"customer,omitempty"`        // 归属客户信息
}

// TableName 指定表名
func (GiftCard) TableName() string {
	return "gift_cards"
}

// IsActive 是否处于可用状态
func (g *GiftCard) IsActive() bool {
	return g.Status == constants.GiftCardStatusActive
}

// HasBalance 是否仍有可用余额
func (g *GiftCard) HasBalance() bool {
	return g.CurrentValue.Decimal.GreaterThan(decimal.Zero)
}

// Balance 返回当前余额
func (g *GiftCard) Balance() Money {
	return g.CurrentValue
}

// IsAssigned 是否已分配给客户
func (g *GiftCard) IsAssigned() bool {
	return g.AssignedCustomerID != 0
}
