package main

import (
	"fmt"

	"github.com/giftcard-next/internal/config"
	"github.com/giftcard-next/internal/logger"
	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/repository"
	"github.com/giftcard-next/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加演示客户
	customers := []models.Customer{
		{Email: "alice@example.com", Name: "Alice Zhang"},
		{Email: "bob@example.com", Name: "Bob Lee"},
		{Email: "carol@example.com", Name: "Carol Wang"},
	}
	customerIDs := map[string]uint{}
	for _, customer := range customers {
		var existing models.Customer
		if err := models.DB.Where("email = ?", customer.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&customer).Error; err != nil {
				stdLog.Printf("Failed to create customer %s: %v", customer.Email, err)
				continue
			}
			stdLog.Printf("Created customer: %s", customer.Email)
			customerIDs[customer.Email] = customer.ID
		} else {
			stdLog.Printf("Customer already exists: %s", customer.Email)
			customerIDs[customer.Email] = existing.ID
		}
	}

	cardRepo := repository.NewGiftCardRepository(models.DB)
	usageRepo := repository.NewGiftCardUsageRepository(models.DB)
	giftCardService := service.NewGiftCardService(cardRepo, usageRepo, cfg.Card.CodePrefix, cfg.Card.ExpireAfterDays)

	// 发放演示礼品卡
	seedCards := []struct {
		Email string
		Value float64
	}{
		{Email: "alice@example.com", Value: 50.00},
		{Email: "alice@example.com", Value: 100.00},
		{Email: "bob@example.com", Value: 25.00},
		{Email: "carol@example.com", Value: 200.00},
	}

	var issued []models.GiftCard
	for _, plan := range seedCards {
		customerID := customerIDs[plan.Email]
		if customerID == 0 {
			stdLog.Printf("Skip gift card for %s: customer missing", plan.Email)
			continue
		}
		card, err := giftCardService.IssueGiftCard(service.IssueGiftCardInput{
			InitialValue:       models.NewMoneyFromDecimal(decimal.NewFromFloat(plan.Value)),
			AssignedCustomerID: customerID,
			RecipientEmail:     plan.Email,
		})
		if err != nil {
			stdLog.Printf("Failed to issue gift card for %s: %v", plan.Email, err)
			continue
		}
		stdLog.Printf("Issued gift card %s (%.2f) for %s", card.Code, plan.Value, plan.Email)
		issued = append(issued, *card)
	}

	// 在第一张卡上演示一笔扣款与一笔冲正
	if len(issued) > 0 {
		target := issued[0]
		if _, _, err := giftCardService.Debit(target.ID, 1001, models.NewMoneyFromDecimal(decimal.NewFromFloat(10.00)), "seed order debit"); err != nil {
			stdLog.Printf("Failed to debit gift card %s: %v", target.Code, err)
		} else {
			stdLog.Printf("Debited 10.00 from %s (order 1001)", target.Code)
		}
		if _, _, err := giftCardService.Credit(target.ID, 1002, models.NewMoneyFromDecimal(decimal.NewFromFloat(2.50)), "seed order refund"); err != nil {
			stdLog.Printf("Failed to credit gift card %s: %v", target.Code, err)
		} else {
			stdLog.Printf("Credited 2.50 to %s (order 1002)", target.Code)
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Printf("- %d Customers\n", len(customerIDs))
	fmt.Printf("- %d Gift cards\n", len(issued))
	fmt.Println("- 1 Debit + 1 credit usage on the first card")
}
