package models

import (
	"time"

	"github.com/giftcard-next/internal/constants"

	"github.com/shopspring/decimal"
)

// GiftCardUsage 礼品卡流水账：只追加，不修改、不删除
// value_change 带符号：负数为消费扣减，正数为退款返还
type GiftCardUsage struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                      // 主键
	GiftCardID  uint      `gorm:"index;not null" json:"gift_card_id"`                        // 礼品卡ID
	OrderID     uint      `gorm:"index;not null" json:"order_id"`                            // 订单ID
	ValueChange Money     `gorm:"type:decimal(20,2);not null;default:0" json:"value_change"` // 余额变动（带符号）
	Notes       string    `gorm:"type:varchar(255);not null" json:"notes"`                   // 审计备注
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                   // 发生时间（入库时定格）
}

// TableName 指定表名
func (GiftCardUsage) TableName() string {
	return "gift_card_usages"
}

// IsDebit 是否为扣减流水
func (u *GiftCardUsage) IsDebit() bool {
	return u.ValueChange.Decimal.LessThan(decimal.Zero)
}

// IsCredit 是否为返还流水
func (u *GiftCardUsage) IsCredit() bool {
	return u.ValueChange.Decimal.GreaterThanOrEqual(decimal.Zero)
}

// AbsoluteValue 返回变动金额的绝对值
func (u *GiftCardUsage) AbsoluteValue() Money {
	return NewMoneyFromDecimal(u.ValueChange.Decimal.Abs())
}

// Direction 返回流水方向标识
func (u *GiftCardUsage) Direction() string {
	if u.IsDebit() {
		return constants.UsageDirectionDebit
	}
	return constants.UsageDirectionCredit
}
