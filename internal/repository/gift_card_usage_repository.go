package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/giftcard-next/internal/models"

	"gorm.io/gorm"
)

// GiftCardUsageStatistics 单卡流水统计（金额统计中扣减取绝对值）
type GiftCardUsageStatistics struct {
	UsageCount  int64        `json:"usage_count"`
	DebitCount  int64        `json:"debit_count"`
	CreditCount int64        `json:"credit_count"`
	DebitTotal  models.Money `json:"debit_total"`
	CreditTotal models.Money `json:"credit_total"`
	NetChange   models.Money `json:"net_change"`
	FirstUsage  *time.Time   `json:"first_usage"`
	LastUsage   *time.Time   `json:"last_usage"`
}

// OverallUsageStatistics 全量流水统计（全部按变动绝对值口径）
type OverallUsageStatistics struct {
	TransactionCount int64        `json:"transaction_count"`
	UniqueCards      int64        `json:"unique_cards"`
	UniqueOrders     int64        `json:"unique_orders"`
	TotalAmount      models.Money `json:"total_amount"`
	AverageAmount    models.Money `json:"average_amount"`
	MaxAmount        models.Money `json:"max_amount"`
	MinAmount        models.Money `json:"min_amount"`
}

// DailyUsageSummary 按自然日汇总的流水行，没有流水的日期不产生行
type DailyUsageSummary struct {
	Day              string       `json:"day"`
	TransactionCount int64        `json:"transaction_count"`
	UniqueCards      int64        `json:"unique_cards"`
	UniqueOrders     int64        `json:"unique_orders"`
	TotalAmount      models.Money `json:"total_amount"`
	NetChange        models.Money `json:"net_change"`
}

// MonthlyUsageSummary 按自然月汇总的流水行，带扣减/返还分解
type MonthlyUsageSummary struct {
	Month            string       `json:"month"`
	TransactionCount int64        `json:"transaction_count"`
	DebitCount       int64        `json:"debit_count"`
	CreditCount      int64        `json:"credit_count"`
	UniqueCards      int64        `json:"unique_cards"`
	UniqueOrders     int64        `json:"unique_orders"`
	TotalAmount      models.Money `json:"total_amount"`
	DebitAmount      models.Money `json:"debit_amount"`
	CreditAmount     models.Money `json:"credit_amount"`
}

// GiftCardUsageRepository 礼品卡流水仓储接口：只追加，不更新、不删除
type GiftCardUsageRepository interface {
	Insert(usage *models.GiftCardUsage) error
	GetByID(id uint) (*models.GiftCardUsage, error)
	HistoryByCard(cardID uint, limit int) ([]models.GiftCardUsage, error)
	HistoryByOrder(orderID uint) ([]models.GiftCardUsage, error)
	ListByDateRange(filter GiftCardUsageListFilter) ([]models.GiftCardUsage, int64, error)
	TotalByCard(cardID uint) (models.Money, error)
	CardStatistics(cardID uint) (GiftCardUsageStatistics, error)
	OverallStatistics(from, to *time.Time) (OverallUsageStatistics, error)
	DailySummary(from, to time.Time) ([]DailyUsageSummary, error)
	MonthlySummary(from, to time.Time) ([]MonthlyUsageSummary, error)
	HasUsageInOrder(cardID, orderID uint) (bool, error)
	WithTx(tx *gorm.DB) *GormGiftCardUsageRepository
}

// GormGiftCardUsageRepository GORM 礼品卡流水仓储实现
type GormGiftCardUsageRepository struct {
	db *gorm.DB
}

// NewGiftCardUsageRepository 创建礼品卡流水仓储
func NewGiftCardUsageRepository(db *gorm.DB) *GormGiftCardUsageRepository {
	return &GormGiftCardUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormGiftCardUsageRepository) WithTx(tx *gorm.DB) *GormGiftCardUsageRepository {
	if tx == nil {
		return r
	}
	return &GormGiftCardUsageRepository{db: tx}
}

// Insert 追加一条流水。发生时间在首次入库时定格，此后不再变化。
func (r *GormGiftCardUsageRepository) Insert(usage *models.GiftCardUsage) error {
	if usage == nil {
		return saveError("gift card usage", 0, errors.New("nil usage"))
	}
	if usage.ID != 0 {
		return saveError("gift card usage", usage.ID, errors.New("usage records are append-only"))
	}
	if usage.GiftCardID == 0 {
		return saveError("gift card usage", 0, errors.New("gift_card_id is required"))
	}
	if usage.OrderID == 0 {
		return saveError("gift card usage", 0, errors.New("order_id is required"))
	}
	if strings.TrimSpace(usage.Notes) == "" {
		return saveError("gift card usage", 0, errors.New("notes are required for audit"))
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now()
	}
	if err := r.db.Create(usage).Error; err != nil {
		return saveError("gift card usage", 0, err)
	}
	return nil
}

// GetByID 根据 ID 查询流水
func (r *GormGiftCardUsageRepository) GetByID(id uint) (*models.GiftCardUsage, error) {
	if id == 0 {
		return nil, notFoundError("gift card usage", id)
	}
	var usage models.GiftCardUsage
	if err := r.db.First(&usage, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("gift card usage", id)
		}
		return nil, err
	}
	return &usage, nil
}

// HistoryByCard 查询单卡流水，最新在前；limit <= 0 表示不限制
func (r *GormGiftCardUsageRepository) HistoryByCard(cardID uint, limit int) ([]models.GiftCardUsage, error) {
	usages := make([]models.GiftCardUsage, 0)
	query := r.db.Where("gift_card_id = ?", cardID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

// HistoryByOrder 查询订单关联流水，按发生顺序排列
func (r *GormGiftCardUsageRepository) HistoryByOrder(orderID uint) ([]models.GiftCardUsage, error) {
	usages := make([]models.GiftCardUsage, 0)
	err := r.db.Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&usages).Error
	if err != nil {
		return nil, err
	}
	return usages, nil
}

// ListByDateRange 按条件分页查询流水
func (r *GormGiftCardUsageRepository) ListByDateRange(filter GiftCardUsageListFilter) ([]models.GiftCardUsage, int64, error) {
	query := r.db.Model(&models.GiftCardUsage{})
	if filter.GiftCardID != 0 {
		query = query.Where("gift_card_id = ?", filter.GiftCardID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	usages := make([]models.GiftCardUsage, 0)
	err := applyPagination(query, filter.Page, filter.PageSize).
		Order("created_at DESC, id DESC").
		Find(&usages).Error
	if err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}

// TotalByCard 计算单卡流水净和（带符号），无流水时为 0
func (r *GormGiftCardUsageRepository) TotalByCard(cardID uint) (models.Money, error) {
	var total models.Money
	err := r.db.Model(&models.GiftCardUsage{}).
		Where("gift_card_id = ?", cardID).
		Select("COALESCE(SUM(value_change), 0)").
		Scan(&total).Error
	if err != nil {
		return models.Money{}, err
	}
	return total, nil
}

// CardStatistics 单卡流水统计，聚合全部由数据库完成
func (r *GormGiftCardUsageRepository) CardStatistics(cardID uint) (GiftCardUsageStatistics, error) {
	result := GiftCardUsageStatistics{}

	var row struct {
		UsageCount  int64
		DebitCount  int64
		CreditCount int64
		DebitTotal  models.Money
		CreditTotal models.Money
		NetChange   models.Money
	}
	err := r.db.Model(&models.GiftCardUsage{}).
		Where("gift_card_id = ?", cardID).
		Select(
			"COUNT(*) as usage_count, " +
				"COALESCE(SUM(CASE WHEN value_change < 0 THEN 1 ELSE 0 END), 0) as debit_count, " +
				"COALESCE(SUM(CASE WHEN value_change >= 0 THEN 1 ELSE 0 END), 0) as credit_count, " +
				"COALESCE(SUM(CASE WHEN value_change < 0 THEN ABS(value_change) ELSE 0 END), 0) as debit_total, " +
				"COALESCE(SUM(CASE WHEN value_change >= 0 THEN value_change ELSE 0 END), 0) as credit_total, " +
				"COALESCE(SUM(value_change), 0) as net_change").
		Scan(&row).Error
	if err != nil {
		return result, err
	}
	result.UsageCount = row.UsageCount
	result.DebitCount = row.DebitCount
	result.CreditCount = row.CreditCount
	result.DebitTotal = row.DebitTotal
	result.CreditTotal = row.CreditTotal
	result.NetChange = row.NetChange

	if result.UsageCount > 0 {
		var first models.GiftCardUsage
		if err := r.db.Where("gift_card_id = ?", cardID).
			Order("created_at ASC, id ASC").
			First(&first).Error; err != nil {
			return result, err
		}
		var last models.GiftCardUsage
		if err := r.db.Where("gift_card_id = ?", cardID).
			Order("created_at DESC, id DESC").
			First(&last).Error; err != nil {
			return result, err
		}
		result.FirstUsage = &first.CreatedAt
		result.LastUsage = &last.CreatedAt
	}
	return result, nil
}

// OverallStatistics 全量流水统计，金额口径为变动绝对值；
// from/to 为可选的半开时间窗 [from, to)
func (r *GormGiftCardUsageRepository) OverallStatistics(from, to *time.Time) (OverallUsageStatistics, error) {
	result := OverallUsageStatistics{}

	query := r.db.Model(&models.GiftCardUsage{})
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}

	abs := absExpr("value_change")
	var row struct {
		TransactionCount int64
		UniqueCards      int64
		UniqueOrders     int64
		TotalAmount      models.Money
		AverageAmount    models.Money
		MaxAmount        models.Money
		MinAmount        models.Money
	}
	err := query.Select(fmt.Sprintf(
		"COUNT(*) as transaction_count, "+
			"COUNT(DISTINCT gift_card_id) as unique_cards, "+
			"COUNT(DISTINCT order_id) as unique_orders, "+
			"COALESCE(SUM(%[1]s), 0) as total_amount, "+
			"COALESCE(AVG(%[1]s), 0) as average_amount, "+
			"COALESCE(MAX(%[1]s), 0) as max_amount, "+
			"COALESCE(MIN(%[1]s), 0) as min_amount", abs)).
		Scan(&row).Error
	if err != nil {
		return result, err
	}
	result.TransactionCount = row.TransactionCount
	result.UniqueCards = row.UniqueCards
	result.UniqueOrders = row.UniqueOrders
	result.TotalAmount = row.TotalAmount
	result.AverageAmount = row.AverageAmount
	result.MaxAmount = row.MaxAmount
	result.MinAmount = row.MinAmount
	return result, nil
}

// DailySummary 按自然日汇总 [from, to) 内的流水
func (r *GormGiftCardUsageRepository) DailySummary(from, to time.Time) ([]DailyUsageSummary, error) {
	day := dayExpr(r.db, "created_at")
	abs := absExpr("value_change")

	rows := make([]DailyUsageSummary, 0)
	err := r.db.Model(&models.GiftCardUsage{}).
		Select(fmt.Sprintf(
			"%s as day, "+
				"COUNT(*) as transaction_count, "+
				"COUNT(DISTINCT gift_card_id) as unique_cards, "+
				"COUNT(DISTINCT order_id) as unique_orders, "+
				"COALESCE(SUM(%s), 0) as total_amount, "+
				"COALESCE(SUM(value_change), 0) as net_change", day, abs)).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group(day).
		Order("day asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MonthlySummary 按自然月汇总 [from, to) 内的流水，
// 金额总量取绝对值口径，扣减/返还分列
func (r *GormGiftCardUsageRepository) MonthlySummary(from, to time.Time) ([]MonthlyUsageSummary, error) {
	month := monthExpr(r.db, "created_at")
	abs := absExpr("value_change")

	rows := make([]MonthlyUsageSummary, 0)
	err := r.db.Model(&models.GiftCardUsage{}).
		Select(fmt.Sprintf(
			"%[1]s as month, "+
				"COUNT(*) as transaction_count, "+
				"COALESCE(SUM(CASE WHEN value_change < 0 THEN 1 ELSE 0 END), 0) as debit_count, "+
				"COALESCE(SUM(CASE WHEN value_change > 0 THEN 1 ELSE 0 END), 0) as credit_count, "+
				"COUNT(DISTINCT gift_card_id) as unique_cards, "+
				"COUNT(DISTINCT order_id) as unique_orders, "+
				"COALESCE(SUM(%[2]s), 0) as total_amount, "+
				"COALESCE(SUM(CASE WHEN value_change < 0 THEN %[2]s ELSE 0 END), 0) as debit_amount, "+
				"COALESCE(SUM(CASE WHEN value_change > 0 THEN value_change ELSE 0 END), 0) as credit_amount",
			month, abs)).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group(month).
		Order("month asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// HasUsageInOrder 判断指定礼品卡是否已在订单中产生过流水
func (r *GormGiftCardUsageRepository) HasUsageInOrder(cardID, orderID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.GiftCardUsage{}).
		Where("gift_card_id = ? AND order_id = ?", cardID, orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
