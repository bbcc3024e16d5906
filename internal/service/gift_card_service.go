package service

import (
	crand "crypto/rand"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/giftcard-next/internal/constants"
	"github.com/giftcard-next/internal/logger"
	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GiftCardService 礼品卡服务：发放、流水记账与生命周期管理
type GiftCardService struct {
	repo       repository.GiftCardRepository
	usageRepo  repository.GiftCardUsageRepository
	codePrefix string
	expireDays int
}

// NewGiftCardService 创建礼品卡服务
func NewGiftCardService(repo repository.GiftCardRepository, usageRepo repository.GiftCardUsageRepository, codePrefix string, expireDays int) *GiftCardService {
	prefix := strings.ToUpper(strings.TrimSpace(codePrefix))
	if prefix == "" {
		prefix = constants.GiftCardCodePrefixDefault
	}
	if expireDays <= 0 {
		expireDays = constants.GiftCardExpireAfterDaysDefault
	}
	return &GiftCardService{
		repo:       repo,
		usageRepo:  usageRepo,
		codePrefix: prefix,
		expireDays: expireDays,
	}
}

// IssueGiftCardInput 发放礼品卡输入
type IssueGiftCardInput struct {
	InitialValue       models.Money
	AssignedCustomerID uint
	RecipientEmail     string
	RecipientName      string
}

// ApplyUsageInput 记账输入：CardID 与 Code 二选一，ValueChange 带符号
type ApplyUsageInput struct {
	CardID      uint
	Code        string
	OrderID     uint
	ValueChange models.Money
	Notes       string
}

// UpdateGiftCardInput 礼品卡更新输入
type UpdateGiftCardInput struct {
	AssignedCustomerID *uint
	RecipientEmail     *string
	RecipientName      *string
}

// GiftCardListInput 礼品卡列表输入
type GiftCardListInput struct {
	CustomerID     uint
	Code           string
	Status         string
	RecipientEmail string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	WithCustomer   bool
	Page           int
	PageSize       int
}

// IssueGiftCard 发放礼品卡：生成唯一卡号，余额等于面额
func (s *GiftCardService) IssueGiftCard(input IssueGiftCardInput) (*models.GiftCard, error) {
	if s == nil || s.repo == nil {
		return nil, ErrGiftCardCreateFailed
	}
	amount := input.InitialValue.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrGiftCardInvalid
	}

	now := time.Now()
	card := &models.GiftCard{
		AssignedCustomerID: input.AssignedCustomerID,
		Code:               s.generateCode(now),
		Status:             constants.GiftCardStatusActive,
		InitialValue:       models.NewMoneyFromDecimal(amount),
		CurrentValue:       models.NewMoneyFromDecimal(amount),
		RecipientEmail:     strings.ToLower(strings.TrimSpace(input.RecipientEmail)),
		RecipientName:      strings.TrimSpace(input.RecipientName),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(card); err != nil {
		logger.Errorw("gift_card_issue_failed", "error", err)
		return nil, ErrGiftCardCreateFailed
	}
	logger.Infow("gift_card_issued", "gift_card_id", card.ID, "code", card.Code, "initial_value", card.InitialValue.String())
	return card, nil
}

// IssueBatch 批量发放同面额礼品卡
func (s *GiftCardService) IssueBatch(quantity int, input IssueGiftCardInput) ([]models.GiftCard, error) {
	if quantity <= 0 || quantity > 10000 {
		return nil, ErrGiftCardInvalid
	}
	cards := make([]models.GiftCard, 0, quantity)
	for i := 0; i < quantity; i++ {
		card, err := s.IssueGiftCard(input)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, nil
}

// ApplyUsage 在单个事务内记一笔流水并维护余额投影：
// 锁定卡行，校验状态、订单重复与余额充足性，插入流水后
// 按流水账重算余额并在余额归零时置为已用完。
func (s *GiftCardService) ApplyUsage(input ApplyUsageInput) (*models.GiftCard, *models.GiftCardUsage, error) {
	if s == nil || s.repo == nil || s.usageRepo == nil {
		return nil, nil, ErrUsageInvalid
	}
	if input.OrderID == 0 || strings.TrimSpace(input.Notes) == "" {
		return nil, nil, ErrUsageInvalid
	}
	change := input.ValueChange.Decimal.Round(2)
	if change.IsZero() {
		return nil, nil, ErrUsageInvalid
	}

	var card *models.GiftCard
	var usage *models.GiftCardUsage
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)

		var lockErr error
		if input.CardID != 0 {
			card, lockErr = repo.GetByIDForUpdate(input.CardID)
		} else {
			card, lockErr = repo.GetByCodeForUpdate(strings.ToUpper(strings.TrimSpace(input.Code)))
		}
		if lockErr != nil {
			if errors.Is(lockErr, repository.ErrNotFound) {
				return ErrGiftCardNotFound
			}
			return lockErr
		}

		// 扣减要求卡可用；返还允许写到已用完的卡上
		if change.IsNegative() && card.Status != constants.GiftCardStatusActive {
			return ErrGiftCardInactive
		}
		if !change.IsNegative() &&
			card.Status != constants.GiftCardStatusActive &&
			card.Status != constants.GiftCardStatusUsed {
			return ErrGiftCardInactive
		}

		duplicated, err := usageRepo.HasUsageInOrder(card.ID, input.OrderID)
		if err != nil {
			return err
		}
		if duplicated {
			return ErrGiftCardDuplicateOrder
		}

		if change.IsNegative() && change.Abs().GreaterThan(card.CurrentValue.Decimal) {
			return ErrGiftCardInsufficientBalance
		}

		usage = &models.GiftCardUsage{
			GiftCardID:  card.ID,
			OrderID:     input.OrderID,
			ValueChange: models.NewMoneyFromDecimal(change),
			Notes:       strings.TrimSpace(input.Notes),
		}
		if err := usageRepo.Insert(usage); err != nil {
			return err
		}

		// 余额投影始终从流水账重算，保证两者在同一事务内一致
		total, err := usageRepo.TotalByCard(card.ID)
		if err != nil {
			return err
		}
		balance := card.InitialValue.Decimal.Add(total.Decimal).Round(2)
		if balance.IsNegative() {
			return ErrGiftCardInsufficientBalance
		}

		card.CurrentValue = models.NewMoneyFromDecimal(balance)
		switch {
		case balance.IsZero():
			card.Status = constants.GiftCardStatusUsed
		case card.Status == constants.GiftCardStatusUsed:
			card.Status = constants.GiftCardStatusActive
		}
		card.UpdatedAt = time.Now()
		if err := tx.Save(card).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.repo.Evict(card.ID)

	logger.Infow("gift_card_usage_applied",
		"gift_card_id", card.ID,
		"order_id", input.OrderID,
		"direction", usage.Direction(),
		"value_change", usage.ValueChange.String(),
		"balance", card.CurrentValue.String(),
		"status", card.Status,
	)
	return card, usage, nil
}

// Debit 消费扣减便捷入口，amount 取正数
func (s *GiftCardService) Debit(cardID, orderID uint, amount models.Money, notes string) (*models.GiftCard, *models.GiftCardUsage, error) {
	value := amount.Decimal.Round(2)
	if value.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrUsageInvalid
	}
	return s.ApplyUsage(ApplyUsageInput{
		CardID:      cardID,
		OrderID:     orderID,
		ValueChange: models.NewMoneyFromDecimal(value.Neg()),
		Notes:       notes,
	})
}

// Credit 退款返还便捷入口，amount 取正数
func (s *GiftCardService) Credit(cardID, orderID uint, amount models.Money, notes string) (*models.GiftCard, *models.GiftCardUsage, error) {
	value := amount.Decimal.Round(2)
	if value.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrUsageInvalid
	}
	return s.ApplyUsage(ApplyUsageInput{
		CardID:      cardID,
		OrderID:     orderID,
		ValueChange: models.NewMoneyFromDecimal(value),
		Notes:       notes,
	})
}

// GetGiftCard 根据 ID 获取礼品卡
func (s *GiftCardService) GetGiftCard(id uint) (*models.GiftCard, error) {
	card, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGiftCardNotFound
		}
		return nil, ErrGiftCardFetchFailed
	}
	return card, nil
}

// GetGiftCardByCode 根据卡号获取礼品卡
func (s *GiftCardService) GetGiftCardByCode(code string) (*models.GiftCard, error) {
	card, err := s.repo.GetByCode(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGiftCardNotFound
		}
		return nil, ErrGiftCardFetchFailed
	}
	return card, nil
}

// ListGiftCards 获取礼品卡列表
func (s *GiftCardService) ListGiftCards(input GiftCardListInput) ([]models.GiftCard, int64, error) {
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status != "" && !isValidGiftCardStatus(status) {
		return nil, 0, ErrGiftCardInvalid
	}
	filter := repository.GiftCardListFilter{
		Page:           input.Page,
		PageSize:       input.PageSize,
		CustomerID:     input.CustomerID,
		Code:           strings.ToUpper(strings.TrimSpace(input.Code)),
		Status:         status,
		RecipientEmail: strings.ToLower(strings.TrimSpace(input.RecipientEmail)),
		CreatedFrom:    input.CreatedFrom,
		CreatedTo:      input.CreatedTo,
		WithCustomer:   input.WithCustomer,
	}
	cards, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, ErrGiftCardFetchFailed
	}
	return cards, total, nil
}

// UpdateGiftCard 更新礼品卡可变字段（归属与收卡人信息）
func (s *GiftCardService) UpdateGiftCard(id uint, input UpdateGiftCardInput) (*models.GiftCard, error) {
	if id == 0 {
		return nil, ErrGiftCardInvalid
	}
	patch := repository.GiftCardPatch{
		AssignedCustomerID: input.AssignedCustomerID,
	}
	if input.RecipientEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*input.RecipientEmail))
		patch.RecipientEmail = &email
	}
	if input.RecipientName != nil {
		name := strings.TrimSpace(*input.RecipientName)
		patch.RecipientName = &name
	}
	card, err := s.repo.Update(id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGiftCardNotFound
		}
		return nil, ErrGiftCardUpdateFailed
	}
	return card, nil
}

// CancelGiftCard 作废礼品卡（管理动作，已用完的卡不可作废）
func (s *GiftCardService) CancelGiftCard(id uint) (*models.GiftCard, error) {
	card, err := s.GetGiftCard(id)
	if err != nil {
		return nil, err
	}
	if card.Status == constants.GiftCardStatusUsed {
		return nil, ErrGiftCardInvalid
	}
	status := constants.GiftCardStatusCancelled
	updated, err := s.repo.Update(id, repository.GiftCardPatch{Status: &status})
	if err != nil {
		return nil, ErrGiftCardUpdateFailed
	}
	logger.Infow("gift_card_cancelled", "gift_card_id", id)
	return updated, nil
}

// DeleteGiftCard 删除礼品卡（硬删除，仅限误发卡等例外场景）
func (s *GiftCardService) DeleteGiftCard(id uint) error {
	if err := s.repo.DeleteByID(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGiftCardNotFound
		}
		return ErrGiftCardDeleteFailed
	}
	logger.Warnw("gift_card_deleted", "gift_card_id", id)
	return nil
}

// ExpireDormantCards 将创建时间早于过期窗口的可用卡置为过期，
// 返回处理条数。由后台任务周期触发。
func (s *GiftCardService) ExpireDormantCards(now time.Time) (int, error) {
	threshold := now.AddDate(0, 0, -s.expireDays)
	cards, err := repository.NewGiftCardQuery(models.DB).
		WithStatus(constants.GiftCardStatusActive).
		CreatedBefore(threshold).
		Find()
	if err != nil {
		return 0, ErrGiftCardFetchFailed
	}

	expired := 0
	status := constants.GiftCardStatusExpired
	for i := range cards {
		if _, err := s.repo.Update(cards[i].ID, repository.GiftCardPatch{Status: &status}); err != nil {
			logger.Errorw("gift_card_expire_failed", "gift_card_id", cards[i].ID, "error", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		logger.Infow("gift_card_expire_sweep_done", "expired", expired, "threshold", threshold)
	}
	return expired, nil
}

// SyncBalanceFromLedger 以流水账为准修复余额投影，返回是否发生修正
func (s *GiftCardService) SyncBalanceFromLedger(id uint) (*models.GiftCard, bool, error) {
	var card *models.GiftCard
	drifted := false
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)

		var lockErr error
		card, lockErr = repo.GetByIDForUpdate(id)
		if lockErr != nil {
			if errors.Is(lockErr, repository.ErrNotFound) {
				return ErrGiftCardNotFound
			}
			return lockErr
		}

		total, err := usageRepo.TotalByCard(card.ID)
		if err != nil {
			return err
		}
		expected := card.InitialValue.Decimal.Add(total.Decimal).Round(2)
		if expected.IsNegative() {
			expected = decimal.Zero
		}
		if card.CurrentValue.Decimal.Equal(expected) {
			return nil
		}

		drifted = true
		card.CurrentValue = models.NewMoneyFromDecimal(expected)
		if expected.IsZero() && card.Status == constants.GiftCardStatusActive {
			card.Status = constants.GiftCardStatusUsed
		}
		card.UpdatedAt = time.Now()
		return tx.Save(card).Error
	})
	if err != nil {
		return nil, false, err
	}
	if drifted {
		s.repo.Evict(card.ID)
		logger.Warnw("gift_card_balance_repaired", "gift_card_id", card.ID, "balance", card.CurrentValue.String())
	}
	return card, drifted, nil
}

// ExportGiftCardsCSV 导出礼品卡列表为 CSV
func (s *GiftCardService) ExportGiftCardsCSV(input GiftCardListInput, writer *csv.Writer) error {
	input.Page = 0
	input.PageSize = 0
	cards, _, err := s.ListGiftCards(input)
	if err != nil {
		return err
	}
	header := []string{"id", "code", "status", "initial_value", "current_value", "assigned_customer_id", "recipient_email", "recipient_name", "created_at"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for i := range cards {
		card := &cards[i]
		row := []string{
			strconv.FormatUint(uint64(card.ID), 10),
			card.Code,
			card.Status,
			card.InitialValue.String(),
			card.CurrentValue.String(),
			strconv.FormatUint(uint64(card.AssignedCustomerID), 10),
			card.RecipientEmail,
			card.RecipientName,
			card.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// generateCode 生成唯一卡号：前缀 + 时间戳 + 随机串
func (s *GiftCardService) generateCode(now time.Time) string {
	random := randomHex(constants.GiftCardCodeRandomLength / 2)
	return strings.ToUpper(fmt.Sprintf("%s%s%s", s.codePrefix, now.Format("060102150405"), random))
}

func isValidGiftCardStatus(status string) bool {
	for _, known := range constants.GiftCardStatuses {
		if status == known {
			return true
		}
	}
	return false
}

func randomHex(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := crand.Read(buf); err != nil {
		fallback := make([]byte, n)
		for i := range fallback {
			fallback[i] = byte('A' + (i % 26))
		}
		return hex.EncodeToString(fallback)
	}
	return hex.EncodeToString(buf)
}
