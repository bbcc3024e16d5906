package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/giftcard-next/internal/constants"
	"github.com/giftcard-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupGiftCardRepoTest(t *testing.T) (*GormGiftCardRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:gift_card_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Customer{}, &models.GiftCard{}, &models.GiftCardUsage{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewGiftCardRepository(db), db
}

func createRepoTestCard(t *testing.T, repo *GormGiftCardRepository, code string, initial int64) *models.GiftCard {
	t.Helper()
	card := &models.GiftCard{
		Code:         code,
		InitialValue: models.NewMoneyFromDecimal(decimal.NewFromInt(initial)),
	}
	if err := repo.Create(card); err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}
	return card
}

func TestGiftCardRepositoryCreateDefaults(t *testing.T) {
	repo, _ := setupGiftCardRepoTest(t)
	card := createRepoTestCard(t, repo, "RT-CREATE-001", 50)

	if card.Status != constants.GiftCardStatusActive {
		t.Fatalf("expected default status active, got %s", card.Status)
	}
	if !card.CurrentValue.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected current value seeded from initial, got %s", card.CurrentValue.String())
	}
}

func TestGiftCardRepositoryIdentityCache(t *testing.T) {
	repo, _ := setupGiftCardRepoTest(t)
	card := createRepoTestCard(t, repo, "RT-CACHE-001", 50)

	first, err := repo.GetByID(card.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	second, err := repo.GetByID(card.ID)
	if err != nil {
		t.Fatalf("second get by id failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected repeated GetByID to return the same pointer")
	}
	// Create 已将对象放入缓存
	if first != card {
		t.Fatalf("expected cached pointer from create")
	}

	// 按卡号查询穿透数据库，不复用缓存对象
	byCode, err := repo.GetByCode(card.Code)
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if byCode == first {
		t.Fatalf("expected GetByCode to bypass the identity cache")
	}

	// 事务副本共享同一缓存
	txRepo := repo.WithTx(models.DB)
	fromTx, err := txRepo.GetByID(card.ID)
	if err != nil {
		t.Fatalf("get by id via tx repo failed: %v", err)
	}
	if fromTx != first {
		t.Fatalf("expected WithTx repository to share the identity cache")
	}
}

func TestGiftCardRepositoryGetByIDNotFound(t *testing.T) {
	repo, _ := setupGiftCardRepoTest(t)

	if _, err := repo.GetByID(424242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero id, got %v", err)
	}
	if _, err := repo.GetByCode("NO-SUCH-CODE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}
}

func TestGiftCardRepositoryUpdatePatch(t *testing.T) {
	repo, _ := setupGiftCardRepoTest(t)
	card := createRepoTestCard(t, repo, "RT-PATCH-001", 50)
	card.RecipientEmail = "keep@example.com"
	if err := models.DB.Save(card).Error; err != nil {
		t.Fatalf("prepare card failed: %v", err)
	}
	repo.Evict(card.ID)

	status := constants.GiftCardStatusCancelled
	updated, err := repo.Update(card.ID, GiftCardPatch{Status: &status})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != constants.GiftCardStatusCancelled {
		t.Fatalf("expected patched status, got %s", updated.Status)
	}
	// 未出现在补丁里的字段保持不变
	if updated.RecipientEmail != "keep@example.com" {
		t.Fatalf("expected untouched email, got %q", updated.RecipientEmail)
	}
	if !updated.CurrentValue.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected untouched balance, got %s", updated.CurrentValue.String())
	}

	// 更新后缓存失效，重新读取回源并反映新状态
	fresh, err := repo.GetByID(card.ID)
	if err != nil {
		t.Fatalf("get after update failed: %v", err)
	}
	if fresh == card {
		t.Fatalf("expected cache entry evicted after update")
	}
	if fresh.Status != constants.GiftCardStatusCancelled {
		t.Fatalf("expected reloaded status cancelled, got %s", fresh.Status)
	}

	if _, err := repo.Update(99999, GiftCardPatch{Status: &status}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on missing card, got %v", err)
	}
}

func TestGiftCardRepositoryDelete(t *testing.T) {
	repo, _ := setupGiftCardRepoTest(t)
	card := createRepoTestCard(t, repo, "RT-DEL-001", 50)

	if err := repo.DeleteByID(card.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.GetByID(card.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteByID(card.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
	if err := repo.Delete(nil); !errors.Is(err, ErrCouldNotDelete) {
		t.Fatalf("expected ErrCouldNotDelete for nil card, got %v", err)
	}
}

func TestGiftCardRepositoryList(t *testing.T) {
	repo, _ := setupGiftCardRepoTest(t)
	for i := 0; i < 5; i++ {
		card := createRepoTestCard(t, repo, fmt.Sprintf("RT-LIST-%03d", i), 10)
		if i%2 == 0 {
			status := constants.GiftCardStatusUsed
			if _, err := repo.Update(card.ID, GiftCardPatch{Status: &status}); err != nil {
				t.Fatalf("mark used failed: %v", err)
			}
		}
	}

	cards, total, err := repo.List(GiftCardListFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5 regardless of page size, got %d", total)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 rows on page, got %d", len(cards))
	}

	used, totalUsed, err := repo.List(GiftCardListFilter{Page: 1, PageSize: 10, Status: constants.GiftCardStatusUsed})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if totalUsed != 3 || len(used) != 3 {
		t.Fatalf("expected 3 used cards, got total=%d rows=%d", totalUsed, len(used))
	}

	byCode, totalByCode, err := repo.List(GiftCardListFilter{Page: 1, PageSize: 10, Code: "RT-LIST-001"})
	if err != nil {
		t.Fatalf("list by code failed: %v", err)
	}
	if totalByCode != 1 || len(byCode) != 1 || byCode[0].Code != "RT-LIST-001" {
		t.Fatalf("unexpected list by code result: total=%d rows=%d", totalByCode, len(byCode))
	}
}
