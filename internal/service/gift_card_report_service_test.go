package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupReportServiceTest(t *testing.T) (*GiftCardReportService, *GiftCardService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:gift_card_report_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Customer{}, &models.GiftCard{}, &models.GiftCardUsage{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cardRepo := repository.NewGiftCardRepository(db)
	usageRepo := repository.NewGiftCardUsageRepository(db)
	return NewGiftCardReportService(usageRepo), NewGiftCardService(cardRepo, usageRepo, "GC", 365), db
}

func TestReportServiceCardHistoryAndStatistics(t *testing.T) {
	report, svc, _ := setupReportServiceTest(t)
	card := issueTestCard(t, svc, 100)
	if _, _, err := svc.Debit(card.ID, 1, models.NewMoneyFromDecimal(decimal.NewFromInt(10)), "扣减"); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if _, _, err := svc.Debit(card.ID, 2, models.NewMoneyFromDecimal(decimal.NewFromInt(5)), "扣减"); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if _, _, err := svc.Credit(card.ID, 3, models.NewMoneyFromDecimal(decimal.NewFromInt(2)), "退款"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	history, err := report.CardHistory(card.ID, 10)
	if err != nil {
		t.Fatalf("card history failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 usages, got %d", len(history))
	}

	if _, err := report.CardHistory(0, 10); !errors.Is(err, ErrUsageInvalid) {
		t.Fatalf("expected ErrUsageInvalid for zero card id, got %v", err)
	}

	orderRows, err := report.OrderHistory(2)
	if err != nil {
		t.Fatalf("order history failed: %v", err)
	}
	if len(orderRows) != 1 || !orderRows[0].ValueChange.Decimal.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("unexpected order history: %d rows", len(orderRows))
	}

	stats, err := report.CardStatistics(card.ID)
	if err != nil {
		t.Fatalf("card statistics failed: %v", err)
	}
	if stats.UsageCount != 3 || stats.DebitCount != 2 || stats.CreditCount != 1 {
		t.Fatalf("unexpected card statistics: %+v", stats)
	}
	if !stats.NetChange.Decimal.Equal(decimal.NewFromInt(-13)) {
		t.Fatalf("expected net change -13, got %s", stats.NetChange.String())
	}
}

func TestReportServiceOverallAndDaily(t *testing.T) {
	report, svc, _ := setupReportServiceTest(t)
	card := issueTestCard(t, svc, 100)
	if _, _, err := svc.Debit(card.ID, 1, models.NewMoneyFromDecimal(decimal.NewFromInt(10)), "扣减"); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if _, _, err := svc.Credit(card.ID, 2, models.NewMoneyFromDecimal(decimal.NewFromInt(2)), "退款"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	overall, err := report.OverallStatistics(nil, nil)
	if err != nil {
		t.Fatalf("overall statistics failed: %v", err)
	}
	if overall.TransactionCount != 2 || overall.UniqueCards != 1 {
		t.Fatalf("unexpected overall statistics: %+v", overall)
	}
	if !overall.TotalAmount.Decimal.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected total amount 12, got %s", overall.TotalAmount.String())
	}

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	daily, err := report.DailySummary(from, to)
	if err != nil {
		t.Fatalf("daily summary failed: %v", err)
	}
	if len(daily) != 1 || daily[0].TransactionCount != 2 {
		t.Fatalf("unexpected daily summary: %d rows", len(daily))
	}

	// 起止倒置直接拒绝
	if _, err := report.DailySummary(to, from); !errors.Is(err, ErrUsageInvalid) {
		t.Fatalf("expected ErrUsageInvalid for inverted window, got %v", err)
	}
}

func TestReportServiceMonthlySummary(t *testing.T) {
	report, svc, _ := setupReportServiceTest(t)
	card := issueTestCard(t, svc, 100)
	if _, _, err := svc.Debit(card.ID, 1, models.NewMoneyFromDecimal(decimal.NewFromInt(10)), "扣减"); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if _, _, err := svc.Credit(card.ID, 2, models.NewMoneyFromDecimal(decimal.NewFromInt(2)), "退款"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	from := time.Now().AddDate(0, 0, -40)
	to := time.Now().Add(time.Hour)
	rows, err := report.MonthlySummary(from, to)
	if err != nil {
		t.Fatalf("monthly summary failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 month bucket, got %d", len(rows))
	}
	month := rows[0]
	if month.TransactionCount != 2 || month.DebitCount != 1 || month.CreditCount != 1 {
		t.Fatalf("unexpected monthly counts: %+v", month)
	}
	if month.UniqueOrders != 2 {
		t.Fatalf("expected 2 unique orders, got %d", month.UniqueOrders)
	}
	if !month.TotalAmount.Decimal.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected monthly total 12, got %s", month.TotalAmount.String())
	}

	if _, err := report.MonthlySummary(to, from); !errors.Is(err, ErrUsageInvalid) {
		t.Fatalf("expected ErrUsageInvalid for inverted window, got %v", err)
	}
}

func TestReportServiceCardPortfolio(t *testing.T) {
	report, svc, db := setupReportServiceTest(t)
	issueTestCard(t, svc, 100)
	used := issueTestCard(t, svc, 20)
	if _, _, err := svc.Debit(used.ID, 1, models.NewMoneyFromDecimal(decimal.NewFromInt(20)), "用完"); err != nil {
		t.Fatalf("drain debit failed: %v", err)
	}

	portfolio, err := report.CardPortfolio(repository.NewGiftCardQuery(db))
	if err != nil {
		t.Fatalf("card portfolio failed: %v", err)
	}
	if portfolio.TotalCount != 2 || portfolio.ActiveCount != 1 || portfolio.UsedCount != 1 {
		t.Fatalf("unexpected portfolio: %+v", portfolio)
	}
	if !portfolio.TotalCurrentValue.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected remaining value 100, got %s", portfolio.TotalCurrentValue.String())
	}
}
