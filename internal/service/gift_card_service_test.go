package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/giftcard-next/internal/constants"
	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupGiftCardServiceTest(t *testing.T) (*GiftCardService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:gift_card_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return NewGiftCardService(cardRepo, usageRepo, "GC", 365), db
}

func issueTestCard(t *testing.T, svc *GiftCardService, amount int64) *models.GiftCard {
	t.Helper()
	card, err := svc.IssueGiftCard(IssueGiftCardInput{
		InitialValue: models.NewMoneyFromDecimal(decimal.NewFromInt(amount)),
	})
	if err != nil {
		t.Fatalf("issue gift card failed: %v", err)
	}
	return card
}

func TestGiftCardServiceIssue(t *testing.T) {
	svc, _ := setupGiftCardServiceTest(t)

	card := issueTestCard(t, svc, 50)
	if card.Status != constants.GiftCardStatusActive {
		t.Fatalf("expected issued card active, got %s", card.Status)
	}
	if !card.CurrentValue.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance 50, got %s", card.CurrentValue.String())
	}
	if len(card.Code) < 10 || card.Code[:2] != "GC" {
		t.Fatalf("expected prefixed code, got %q", card.Code)
	}

	if _, err := svc.IssueGiftCard(IssueGiftCardInput{
		InitialValue: models.NewMoneyFromDecimal(decimal.Zero),
	}); !errors.Is(err, ErrGiftCardInvalid) {
		t.Fatalf("expected ErrGiftCardInvalid for zero value, got %v", err)
	}
	if _, err := svc.IssueGiftCard(IssueGiftCardInput{
		InitialValue: models.NewMoneyFromDecimal(decimal.NewFromInt(-5)),
	}); !errors.Is(err, ErrGiftCardInvalid) {
		t.Fatalf("expected ErrGiftCardInvalid for negative value, got %v", err)
	}
}

func TestGiftCardServiceIssueBatch(t *testing.T) {
	svc, _ := setupGiftCardServiceTest(t)

	cards, err := svc.IssueBatch(3, IssueGiftCardInput{
		InitialValue: models.NewMoneyFromDecimal(decimal.NewFromInt(25)),
	})
	if err != nil {
		t.Fatalf("issue batch failed: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	seen := map[string]bool{}
	for _, card := range cards {
		if seen[card.Code] {
			t.Fatalf("duplicate code in batch: %s", card.Code)
		}
		seen[card.Code] = true
	}

	if _, err := svc.IssueBatch(0, IssueGiftCardInput{}); !errors.Is(err, ErrGiftCardInvalid) {
		t.Fatalf("expected ErrGiftCardInvalid for zero quantity, got %v", err)
	}
}

func TestGiftCardServiceDebitAndBalance(t *testing.T) {
	svc, _ := setupGiftCardServiceTest(t)
	card := issueTestCard(t, svc, 50)

	updated, usage, err := svc.Debit(card.ID, 1001, models.NewMoneyFromDecimal(decimal.NewFromInt(20)), "订单抵扣")
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if !updated.CurrentValue.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected balance 30 after debit, got %s", updated.CurrentValue.String())
	}
	if !usage.ValueChange.Decimal.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected signed value change -20, got %s", usage.ValueChange.String())
	}
	if updated.Status != constants.GiftCardStatusActive {
		t.Fatalf("expected card still active, got %s", updated.Status)
	}

	// 同一订单不允许重复记账
	if _, _, err := svc.Debit(card.ID, 1001, models.NewMoneyFromDecimal(decimal.NewFromInt(5)), "重复"); !errors.Is(err, ErrGiftCardDuplicateOrder) {
		t.Fatalf("expected ErrGiftCardDuplicateOrder, got %v", err)
	}

	// 超出余额拒绝
	if _, _, err := svc.Debit(card.ID, 1002, models.NewMoneyFromDecimal(decimal.NewFromInt(31)), "超额"); !errors.Is(err, ErrGiftCardInsufficientBalance) {
		t.Fatalf("expected ErrGiftCardInsufficientBalance, got %v", err)
	}

	// 无效入参
	if _, _, err := svc.Debit(card.ID, 0, models.NewMoneyFromDecimal(decimal.NewFromInt(5)), "缺订单"); !errors.Is(err, ErrUsageInvalid) {
		t.Fatalf("expected ErrUsageInvalid for missing order, got %v", err)
	}
	if _, _, err := svc.Debit(card.ID, 1003, models.NewMoneyFromDecimal(decimal.Zero), "零"); !errors.Is(err, ErrUsageInvalid) {
		t.Fatalf("expected ErrUsageInvalid for zero amount, got %v", err)
	}
}

func TestGiftCardServiceExhaustAndReactivate(t *testing.T) {
	svc, _ := setupGiftCardServiceTest(t)
	card := issueTestCard(t, svc, 50)

	// 余额清零时自动置为已用完
	drained, _, err := svc.Debit(card.ID, 2001, models.NewMoneyFromDecimal(decimal.NewFromInt(50)), "全额抵扣")
	if err != nil {
		t.Fatalf("drain debit failed: %v", err)
	}
	if drained.Status != constants.GiftCardStatusUsed {
		t.Fatalf("expected status used at zero balance, got %s", drained.Status)
	}

	// 已用完的卡不可再扣减
	if _, _, err := svc.Debit(card.ID, 2002, models.NewMoneyFromDecimal(decimal.NewFromInt(1)), "再扣"); !errors.Is(err, ErrGiftCardInactive) {
		t.Fatalf("expected ErrGiftCardInactive on used card, got %v", err)
	}

	// 返还允许写到已用完的卡上，并恢复为可用
	restored, _, err := svc.Credit(card.ID, 2003, models.NewMoneyFromDecimal(decimal.NewFromInt(10)), "部分退款")
	if err != nil {
		t.Fatalf("credit on used card failed: %v", err)
	}
	if restored.Status != constants.GiftCardStatusActive {
		t.Fatalf("expected card reactivated, got %s", restored.Status)
	}
	if !restored.CurrentValue.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected balance 10 after credit, got %s", restored.CurrentValue.String())
	}
}

func TestGiftCardServiceApplyUsageByCode(t *testing.T) {
	svc, _ := setupGiftCardServiceTest(t)
	card := issueTestCard(t, svc, 40)

	// 卡号大小写与首尾空白不敏感
	updated, _, err := svc.ApplyUsage(ApplyUsageInput{
		Code:        "  " + card.Code + " ",
		OrderID:     3001,
		ValueChange: models.NewMoneyFromDecimal(decimal.NewFromInt(-15)),
		Notes:       "按卡号扣减",
	})
	if err != nil {
		t.Fatalf("apply usage by code failed: %v", err)
	}
	if !updated.CurrentValue.Decimal.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected balance 25, got %s", updated.CurrentValue.String())
	}

	if _, _, err := svc.ApplyUsage(ApplyUsageInput{
		Code:        "GC-NOT-EXIST",
		OrderID:     3002,
		ValueChange: models.NewMoneyFromDecimal(decimal.NewFromInt(-1)),
		Notes:       "未知卡",
	}); !errors.Is(err, ErrGiftCardNotFound) {
		t.Fatalf("expected ErrGiftCardNotFound, got %v", err)
	}
}

func TestGiftCardServiceCancel(t *testing.T) {
	svc, _ := setupGiftCardServiceTest(t)
	card := issueTestCard(t, svc, 50)

	cancelled, err := svc.CancelGiftCard(card.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.GiftCardStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// 已作废的卡不可扣减
	if _, _, err := svc.Debit(card.ID, 4001, models.NewMoneyFromDecimal(decimal.NewFromInt(1)), "作废后扣减"); !errors.Is(err, ErrGiftCardInactive) {
		t.Fatalf("expected ErrGiftCardInactive on cancelled card, got %v", err)
	}

	// 已用完的卡不允许作废
	used := issueTestCard(t, svc, 10)
	if _, _, err := svc.Debit(used.ID, 4002, models.NewMoneyFromDecimal(decimal.NewFromInt(10)), "用完"); err != nil {
		t.Fatalf("drain debit failed: %v", err)
	}
	if _, err := svc.CancelGiftCard(used.ID); !errors.Is(err, ErrGiftCardInvalid) {
		t.Fatalf("expected ErrGiftCardInvalid cancelling used card, got %v", err)
	}

	if _, err := svc.CancelGiftCard(99999); !errors.Is(err, ErrGiftCardNotFound) {
		t.Fatalf("expected ErrGiftCardNotFound, got %v", err)
	}
}

func TestGiftCardServiceGetByCode(t *testing.T) {
	svc, _ := setupGiftCardServiceTest(t)
	card := issueTestCard(t, svc, 50)

	found, err := svc.GetGiftCardByCode(card.Code)
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if found.ID != card.ID {
		t.Fatalf("expected card %d, got %d", card.ID, found.ID)
	}

	if _, err := svc.GetGiftCardByCode("GC-MISSING"); !errors.Is(err, ErrGiftCardNotFound) {
		t.Fatalf("expected ErrGiftCardNotFound, got %v", err)
	}
}

func TestGiftCardServiceSyncBalanceFromLedger(t *testing.T) {
	svc, db := setupGiftCardServiceTest(t)
	card := issueTestCard(t, svc, 50)
	if _, _, err := svc.Debit(card.ID, 5001, models.NewMoneyFromDecimal(decimal.NewFromInt(20)), "扣减"); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	// 投影一致时不触发修正
	synced, drifted, err := svc.SyncBalanceFromLedger(card.ID)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if drifted {
		t.Fatalf("expected no drift on consistent card")
	}
	if !synced.CurrentValue.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected balance 30, got %s", synced.CurrentValue.String())
	}

	// 人为制造投影漂移后按流水账修复
	if err := db.Model(&models.GiftCard{}).Where("id = ?", card.ID).
		Update("current_value", decimal.NewFromInt(99)).Error; err != nil {
		t.Fatalf("corrupt balance failed: %v", err)
	}
	repaired, drifted, err := svc.SyncBalanceFromLedger(card.ID)
	if err != nil {
		t.Fatalf("sync after corruption failed: %v", err)
	}
	if !drifted {
		t.Fatalf("expected drift detected")
	}
	if !repaired.CurrentValue.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected repaired balance 30, got %s", repaired.CurrentValue.String())
	}

	if _, _, err := svc.SyncBalanceFromLedger(88888); !errors.Is(err, ErrGiftCardNotFound) {
		t.Fatalf("expected ErrGiftCardNotFound, got %v", err)
	}
}

func TestGiftCardServiceExpireDormantCards(t *testing.T) {
	svc, db := setupGiftCardServiceTest(t)
	dormant := issueTestCard(t, svc, 50)
	fresh := issueTestCard(t, svc, 50)

	if err := db.Model(&models.GiftCard{}).Where("id = ?", dormant.ID).
		Update("created_at", time.Now().AddDate(-2, 0, 0)).Error; err != nil {
		t.Fatalf("backdate card failed: %v", err)
	}

	expired, err := svc.ExpireDormantCards(time.Now())
	if err != nil {
		t.Fatalf("expire sweep failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 card expired, got %d", expired)
	}

	reloaded, err := svc.GetGiftCard(dormant.ID)
	if err != nil {
		t.Fatalf("reload dormant card failed: %v", err)
	}
	if reloaded.Status != constants.GiftCardStatusExpired {
		t.Fatalf("expected dormant card expired, got %s", reloaded.Status)
	}

	untouched, err := svc.GetGiftCard(fresh.ID)
	if err != nil {
		t.Fatalf("reload fresh card failed: %v", err)
	}
	if untouched.Status != constants.GiftCardStatusActive {
		t.Fatalf("expected fresh card untouched, got %s", untouched.Status)
	}
}
