package repository

import (
	"time"

	"github.com/giftcard-next/internal/constants"
	"github.com/giftcard-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GiftCardQuery 礼品卡组合查询规格。
// 值语义：所有筛选方法返回新副本，原规格不受影响，
// 同一基础规格可安全派生多个互不干扰的变体。
type GiftCardQuery struct {
	db *gorm.DB

	customerID        *uint
	statuses          []string
	code              string
	recipientEmail    string
	valueMin          *decimal.Decimal
	valueMax          *decimal.Decimal
	createdFrom       *time.Time
	createdTo         *time.Time
	activeWithBalance bool
	expiringWithin    *int
	orderings         []string
	withCustomer      bool
	page              int
	pageSize          int
}

// GiftCardQueryStatistics 查询结果集统计，单趟 SQL 计算
type GiftCardQueryStatistics struct {
	TotalCount          int64        `json:"total_count"`
	ActiveCount         int64        `json:"active_count"`
	UsedCount           int64        `json:"used_count"`
	ExpiredCount        int64        `json:"expired_count"`
	CancelledCount      int64        `json:"cancelled_count"`
	TotalInitialValue   models.Money `json:"total_initial_value"`
	TotalCurrentValue   models.Money `json:"total_current_value"`
	AverageInitialValue models.Money `json:"average_initial_value"`
	AverageCurrentValue models.Money `json:"average_current_value"`
}

// NewGiftCardQuery 创建礼品卡查询规格
func NewGiftCardQuery(db *gorm.DB) GiftCardQuery {
	return GiftCardQuery{db: db}
}

// ForCustomer 限定归属客户
func (q GiftCardQuery) ForCustomer(customerID uint) GiftCardQuery {
	q.customerID = &customerID
	return q
}

// WithStatus 限定状态集合（多次调用以最后一次为准）
func (q GiftCardQuery) WithStatus(statuses ...string) GiftCardQuery {
	copied := make([]string, len(statuses))
	copy(copied, statuses)
	q.statuses = copied
	return q
}

// WithCode 精确匹配卡号
func (q GiftCardQuery) WithCode(code string) GiftCardQuery {
	q.code = code
	return q
}

// WithRecipientEmail 精确匹配收卡人邮箱
func (q GiftCardQuery) WithRecipientEmail(email string) GiftCardQuery {
	q.recipientEmail = email
	return q
}

// ValueBetween 限定当前余额区间（闭区间）
func (q GiftCardQuery) ValueBetween(min, max decimal.Decimal) GiftCardQuery {
	q.valueMin = &min
	q.valueMax = &max
	return q
}

// CreatedBetween 限定创建时间窗 [from, to)
func (q GiftCardQuery) CreatedBetween(from, to time.Time) GiftCardQuery {
	q.createdFrom = &from
	q.createdTo = &to
	return q
}

// CreatedBefore 限定创建时间上界（不含）
func (q GiftCardQuery) CreatedBefore(t time.Time) GiftCardQuery {
	q.createdTo = &t
	return q
}

// ActiveWithBalance 仅保留可用且有余额的卡
func (q GiftCardQuery) ActiveWithBalance() GiftCardQuery {
	q.activeWithBalance = true
	return q
}

// ExpiringWithin 仅保留 N 天内将进入过期窗口的可用卡
// （按创建时间推算，days <= 0 时使用默认窗口）
func (q GiftCardQuery) ExpiringWithin(days int) GiftCardQuery {
	if days <= 0 {
		days = constants.GiftCardExpiringSoonDays
	}
	q.expiringWithin = &days
	return q
}

// OrderByCreated 按创建时间排序
func (q GiftCardQuery) OrderByCreated(desc bool) GiftCardQuery {
	return q.withOrdering(orderingExpr("created_at", desc))
}

// OrderByCurrentValue 按当前余额排序
func (q GiftCardQuery) OrderByCurrentValue(desc bool) GiftCardQuery {
	return q.withOrdering(orderingExpr("current_value", desc))
}

// WithCustomer 连带加载归属客户信息
func (q GiftCardQuery) WithCustomer() GiftCardQuery {
	q.withCustomer = true
	return q
}

// Paginate 设置分页窗口
func (q GiftCardQuery) Paginate(page, pageSize int) GiftCardQuery {
	q.page = page
	q.pageSize = pageSize
	return q
}

func (q GiftCardQuery) withOrdering(expr string) GiftCardQuery {
	orderings := make([]string, len(q.orderings), len(q.orderings)+1)
	copy(orderings, q.orderings)
	q.orderings = append(orderings, expr)
	return q
}

func orderingExpr(column string, desc bool) string {
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// apply 将规格落到 gorm 查询上
func (q GiftCardQuery) apply(query *gorm.DB) *gorm.DB {
	if q.customerID != nil {
		query = query.Where("assigned_customer_id = ?", *q.customerID)
	}
	if len(q.statuses) == 1 {
		query = query.Where("status = ?", q.statuses[0])
	} else if len(q.statuses) > 1 {
		query = query.Where("status IN ?", q.statuses)
	}
	if q.code != "" {
		query = query.Where("code = ?", q.code)
	}
	if q.recipientEmail != "" {
		query = query.Where("recipient_email = ?", q.recipientEmail)
	}
	if q.valueMin != nil {
		query = query.Where("current_value >= ?", *q.valueMin)
	}
	if q.valueMax != nil {
		query = query.Where("current_value <= ?", *q.valueMax)
	}
	if q.createdFrom != nil {
		query = query.Where("created_at >= ?", *q.createdFrom)
	}
	if q.createdTo != nil {
		query = query.Where("created_at < ?", *q.createdTo)
	}
	if q.activeWithBalance {
		query = query.Where("status = ? AND current_value > 0", constants.GiftCardStatusActive)
	}
	if q.expiringWithin != nil {
		threshold := time.Now().AddDate(0, 0, *q.expiringWithin)
		query = query.Where("status = ? AND created_at < ?", constants.GiftCardStatusActive, threshold)
	}
	return query
}

// Find 执行查询并返回结果集
func (q GiftCardQuery) Find() ([]models.GiftCard, error) {
	query := q.apply(q.db.Model(&models.GiftCard{}))
	if q.withCustomer {
		query = query.Preload("Customer")
	}
	for _, ordering := range q.orderings {
		query = query.Order(ordering)
	}
	if len(q.orderings) == 0 {
		query = query.Order("id ASC")
	}
	cards := make([]models.GiftCard, 0)
	if err := applyPagination(query, q.page, q.pageSize).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// Count 统计命中数量（不受分页窗口影响）
func (q GiftCardQuery) Count() (int64, error) {
	var total int64
	err := q.apply(q.db.Model(&models.GiftCard{})).Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Statistics 单趟 SQL 计算命中集合的状态分布与金额统计
func (q GiftCardQuery) Statistics() (GiftCardQueryStatistics, error) {
	result := GiftCardQueryStatistics{}

	var row struct {
		TotalCount          int64
		ActiveCount         int64
		UsedCount           int64
		ExpiredCount        int64
		CancelledCount      int64
		TotalInitialValue   models.Money
		TotalCurrentValue   models.Money
		AverageInitialValue models.Money
		AverageCurrentValue models.Money
	}
	err := q.apply(q.db.Model(&models.GiftCard{})).
		Select(
			"COUNT(*) as total_count, " +
				"COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0) as active_count, " +
				"COALESCE(SUM(CASE WHEN status = 'used' THEN 1 ELSE 0 END), 0) as used_count, " +
				"COALESCE(SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END), 0) as expired_count, " +
				"COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0) as cancelled_count, " +
				"COALESCE(SUM(initial_value), 0) as total_initial_value, " +
				"COALESCE(SUM(current_value), 0) as total_current_value, " +
				"COALESCE(AVG(initial_value), 0) as average_initial_value, " +
				"COALESCE(AVG(current_value), 0) as average_current_value").
		Scan(&row).Error
	if err != nil {
		return result, err
	}
	result.TotalCount = row.TotalCount
	result.ActiveCount = row.ActiveCount
	result.UsedCount = row.UsedCount
	result.ExpiredCount = row.ExpiredCount
	result.CancelledCount = row.CancelledCount
	result.TotalInitialValue = row.TotalInitialValue
	result.TotalCurrentValue = row.TotalCurrentValue
	result.AverageInitialValue = row.AverageInitialValue
	result.AverageCurrentValue = row.AverageCurrentValue
	return result, nil
}
