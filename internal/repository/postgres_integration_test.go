//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/giftcard-next/internal/constants"
	"github.com/giftcard-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.GiftCardUsage{},
		&models.GiftCard{},
		&models.Customer{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Customer{},
		&models.GiftCard{},
		&models.GiftCardUsage{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresGiftCardAggregations(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	cardRepo := NewGiftCardRepository(db)
	card := &models.GiftCard{
		Code:         "PG-CARD-001",
		Status:       constants.GiftCardStatusActive,
		InitialValue: models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		CurrentValue: models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
	}
	if err := cardRepo.Create(card); err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}

	usageRepo := NewGiftCardUsageRepository(db)
	usages := []models.GiftCardUsage{
		{GiftCardID: card.ID, OrderID: 1, ValueChange: models.NewMoneyFromDecimal(decimal.NewFromInt(-10)), Notes: "purchase", CreatedAt: now},
		{GiftCardID: card.ID, OrderID: 2, ValueChange: models.NewMoneyFromDecimal(decimal.NewFromInt(-5)), Notes: "purchase", CreatedAt: now},
		{GiftCardID: card.ID, OrderID: 3, ValueChange: models.NewMoneyFromDecimal(decimal.NewFromInt(2)), Notes: "refund", CreatedAt: now},
	}
	for i := range usages {
		if err := usageRepo.Insert(&usages[i]); err != nil {
			t.Fatalf("insert usage failed: %v", err)
		}
	}

	total, err := usageRepo.TotalByCard(card.ID)
	if err != nil {
		t.Fatalf("total by card failed: %v", err)
	}
	if !total.Decimal.Equal(decimal.NewFromInt(-13)) {
		t.Fatalf("total want -13 got %s", total.Decimal.String())
	}

	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)
	overall, err := usageRepo.OverallStatistics(&from, &to)
	if err != nil {
		t.Fatalf("overall statistics failed: %v", err)
	}
	if overall.TransactionCount != 3 {
		t.Fatalf("transaction count want 3 got %d", overall.TransactionCount)
	}
	if overall.UniqueCards != 1 {
		t.Fatalf("unique cards want 1 got %d", overall.UniqueCards)
	}
	if !overall.TotalAmount.Decimal.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("abs total want 17 got %s", overall.TotalAmount.Decimal.String())
	}

	daily, err := usageRepo.DailySummary(from, to)
	if err != nil {
		t.Fatalf("daily summary failed: %v", err)
	}
	if len(daily) != 1 {
		t.Fatalf("daily summary len want 1 got %d", len(daily))
	}
	if strings.TrimSpace(daily[0].Day) == "" {
		t.Fatalf("daily summary day should not be empty")
	}
	if daily[0].TransactionCount != 3 {
		t.Fatalf("daily transaction count want 3 got %d", daily[0].TransactionCount)
	}
	if daily[0].UniqueOrders != 3 {
		t.Fatalf("daily unique orders want 3 got %d", daily[0].UniqueOrders)
	}

	monthly, err := usageRepo.MonthlySummary(from, to)
	if err != nil {
		t.Fatalf("monthly summary failed: %v", err)
	}
	if len(monthly) != 1 {
		t.Fatalf("monthly summary len want 1 got %d", len(monthly))
	}
	if strings.TrimSpace(monthly[0].Month) == "" {
		t.Fatalf("monthly summary month should not be empty")
	}
	if monthly[0].DebitCount != 2 || monthly[0].CreditCount != 1 {
		t.Fatalf("monthly debit/credit counts want 2/1 got %d/%d", monthly[0].DebitCount, monthly[0].CreditCount)
	}
}
