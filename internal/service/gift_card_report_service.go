package service

import (
	"time"

	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/repository"
)

// GiftCardReportService 礼品卡报表服务：聚合统计的只读门面
type GiftCardReportService struct {
	usageRepo repository.GiftCardUsageRepository
}

// NewGiftCardReportService 创建报表服务
func NewGiftCardReportService(usageRepo repository.GiftCardUsageRepository) *GiftCardReportService {
	return &GiftCardReportService{usageRepo: usageRepo}
}

// CardHistory 单卡流水历史，最新在前
func (s *GiftCardReportService) CardHistory(cardID uint, limit int) ([]models.GiftCardUsage, error) {
	if cardID == 0 {
		return nil, ErrUsageInvalid
	}
	usages, err := s.usageRepo.HistoryByCard(cardID, limit)
	if err != nil {
		return nil, ErrUsageFetchFailed
	}
	return usages, nil
}

// OrderHistory 订单关联流水，按发生顺序
func (s *GiftCardReportService) OrderHistory(orderID uint) ([]models.GiftCardUsage, error) {
	if orderID == 0 {
		return nil, ErrUsageInvalid
	}
	usages, err := s.usageRepo.HistoryByOrder(orderID)
	if err != nil {
		return nil, ErrUsageFetchFailed
	}
	return usages, nil
}

// CardStatistics 单卡流水统计
func (s *GiftCardReportService) CardStatistics(cardID uint) (repository.GiftCardUsageStatistics, error) {
	if cardID == 0 {
		return repository.GiftCardUsageStatistics{}, ErrUsageInvalid
	}
	stats, err := s.usageRepo.CardStatistics(cardID)
	if err != nil {
		return repository.GiftCardUsageStatistics{}, ErrUsageFetchFailed
	}
	return stats, nil
}

// OverallStatistics 全量流水统计，时间窗可选
func (s *GiftCardReportService) OverallStatistics(from, to *time.Time) (repository.OverallUsageStatistics, error) {
	stats, err := s.usageRepo.OverallStatistics(from, to)
	if err != nil {
		return repository.OverallUsageStatistics{}, ErrUsageFetchFailed
	}
	return stats, nil
}

// DailySummary 按自然日汇总流水
func (s *GiftCardReportService) DailySummary(from, to time.Time) ([]repository.DailyUsageSummary, error) {
	if !from.Before(to) {
		return nil, ErrUsageInvalid
	}
	rows, err := s.usageRepo.DailySummary(from, to)
	if err != nil {
		return nil, ErrUsageFetchFailed
	}
	return rows, nil
}

// MonthlySummary 按自然月汇总流水，含扣减/返还分解
func (s *GiftCardReportService) MonthlySummary(from, to time.Time) ([]repository.MonthlyUsageSummary, error) {
	if !from.Before(to) {
		return nil, ErrUsageInvalid
	}
	rows, err := s.usageRepo.MonthlySummary(from, to)
	if err != nil {
		return nil, ErrUsageFetchFailed
	}
	return rows, nil
}

// CardPortfolio 按查询规格统计在册卡片分布
func (s *GiftCardReportService) CardPortfolio(query repository.GiftCardQuery) (repository.GiftCardQueryStatistics, error) {
	stats, err := query.Statistics()
	if err != nil {
		return repository.GiftCardQueryStatistics{}, ErrUsageFetchFailed
	}
	return stats, nil
}
