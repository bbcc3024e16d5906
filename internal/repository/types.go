package repository

import "time"

// GiftCardListFilter 查询礼品卡列表的过滤条件
type GiftCardListFilter struct {
	Page           int
	PageSize       int
	CustomerID     uint
	Code           string
	Status         string
	RecipientEmail string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	WithCustomer   bool
}

// GiftCardUsageListFilter 查询礼品卡流水列表的过滤条件
type GiftCardUsageListFilter struct {
	Page       int
	PageSize   int
	GiftCardID uint
	OrderID    uint
	From       *time.Time
	To         *time.Time
}
