package repository

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/giftcard-next/internal/constants"
	"github.com/giftcard-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GiftCardPatch 礼品卡部分更新：仅非 nil 字段会落库。
// Code 与 InitialValue 一经发放不可变，不提供补丁入口；
// CurrentValue 只随流水账在事务内重算，同样不走补丁。
type GiftCardPatch struct {
	AssignedCustomerID *uint
	Status             *string
	RecipientEmail     *string
	RecipientName      *string
}

// GiftCardRepository 礼品卡仓储接口
type GiftCardRepository interface {
	GetByID(id uint) (*models.GiftCard, error)
	GetByIDForUpdate(id uint) (*models.GiftCard, error)
	GetByCode(code string) (*models.GiftCard, error)
	GetByCodeForUpdate(code string) (*models.GiftCard, error)
	Create(card *models.GiftCard) error
	Update(id uint, patch GiftCardPatch) (*models.GiftCard, error)
	Delete(card *models.GiftCard) error
	DeleteByID(id uint) error
	List(filter GiftCardListFilter) ([]models.GiftCard, int64, error)
	Evict(id uint)
	WithTx(tx *gorm.DB) *GormGiftCardRepository
}

// giftCardCache 进程内身份缓存：同一仓储实例对相同 ID 的重复读取
// 返回同一个对象指针。仅按 ID 键控，按卡号查询始终穿透到数据库。
type giftCardCache struct {
	mu    sync.RWMutex
	items map[uint]*models.GiftCard
}

func newGiftCardCache() *giftCardCache {
	return &giftCardCache{items: make(map[uint]*models.GiftCard)}
}

func (c *giftCardCache) get(id uint) (*models.GiftCard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.items[id]
	return card, ok
}

func (c *giftCardCache) put(card *models.GiftCard) {
	if card == nil || card.ID == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[card.ID] = card
}

func (c *giftCardCache) evict(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// GormGiftCardRepository GORM 礼品卡仓储实现
type GormGiftCardRepository struct {
	db    *gorm.DB
	cache *giftCardCache
}

// NewGiftCardRepository 创建礼品卡仓储
func NewGiftCardRepository(db *gorm.DB) *GormGiftCardRepository {
	return &GormGiftCardRepository{db: db, cache: newGiftCardCache()}
}

// WithTx 绑定事务，身份缓存与原仓储共享
func (r *GormGiftCardRepository) WithTx(tx *gorm.DB) *GormGiftCardRepository {
	if tx == nil {
		return r
	}
	return &GormGiftCardRepository{db: tx, cache: r.cache}
}

// Evict 移除指定 ID 的缓存条目
func (r *GormGiftCardRepository) Evict(id uint) {
	r.cache.evict(id)
}

// GetByID 根据 ID 查询礼品卡，命中缓存时返回同一对象指针
func (r *GormGiftCardRepository) GetByID(id uint) (*models.GiftCard, error) {
	if id == 0 {
		return nil, notFoundError("gift card", id)
	}
	if card, ok := r.cache.get(id); ok {
		return card, nil
	}
	var card models.GiftCard
	if err := r.db.First(&card, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("gift card", id)
		}
		return nil, err
	}
	r.cache.put(&card)
	return &card, nil
}

// GetByIDForUpdate 根据 ID 加行锁查询（绕过缓存，仅事务内使用）
func (r *GormGiftCardRepository) GetByIDForUpdate(id uint) (*models.GiftCard, error) {
	if id == 0 {
		return nil, notFoundError("gift card", id)
	}
	var card models.GiftCard
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&card, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("gift card", id)
		}
		return nil, err
	}
	return &card, nil
}

// GetByCode 根据卡号查询礼品卡（始终穿透到数据库）
func (r *GormGiftCardRepository) GetByCode(code string) (*models.GiftCard, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, notFoundError("gift card", code)
	}
	var card models.GiftCard
	if err := r.db.Where("code = ?", code).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("gift card", code)
		}
		return nil, err
	}
	return &card, nil
}

// GetByCodeForUpdate 根据卡号加行锁查询（仅事务内使用）
func (r *GormGiftCardRepository) GetByCodeForUpdate(code string) (*models.GiftCard, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, notFoundError("gift card", code)
	}
	var card models.GiftCard
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("gift card", code)
		}
		return nil, err
	}
	return &card, nil
}

// Create 创建礼品卡，补齐默认状态与初始余额
func (r *GormGiftCardRepository) Create(card *models.GiftCard) error {
	if card == nil {
		return saveError("gift card", 0, errors.New("nil gift card"))
	}
	if card.Status == "" {
		card.Status = constants.GiftCardStatusActive
	}
	if card.CurrentValue.Decimal.IsZero() && !card.InitialValue.Decimal.IsZero() {
		card.CurrentValue = card.InitialValue
	}
	if err := r.db.Create(card).Error; err != nil {
		return saveError("gift card", 0, err)
	}
	r.cache.put(card)
	return nil
}

// Update 部分更新：先加载权威状态，只覆盖补丁中给定的字段。
// 成功后使对应缓存条目失效，下一次读取回源数据库。
func (r *GormGiftCardRepository) Update(id uint, patch GiftCardPatch) (*models.GiftCard, error) {
	if id == 0 {
		return nil, notFoundError("gift card", id)
	}
	var card models.GiftCard
	if err := r.db.First(&card, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("gift card", id)
		}
		return nil, err
	}
	if patch.AssignedCustomerID != nil {
		card.AssignedCustomerID = *patch.AssignedCustomerID
	}
	if patch.Status != nil {
		card.Status = *patch.Status
	}
	if patch.RecipientEmail != nil {
		card.RecipientEmail = *patch.RecipientEmail
	}
	if patch.RecipientName != nil {
		card.RecipientName = *patch.RecipientName
	}
	card.UpdatedAt = time.Now()
	if err := r.db.Save(&card).Error; err != nil {
		return nil, saveError("gift card", id, err)
	}
	r.cache.evict(id)
	return &card, nil
}

// Delete 删除礼品卡（硬删除），并清理缓存条目
func (r *GormGiftCardRepository) Delete(card *models.GiftCard) error {
	if card == nil || card.ID == 0 {
		return deleteError("gift card", 0, errors.New("nil gift card"))
	}
	if err := r.db.Delete(&models.GiftCard{}, card.ID).Error; err != nil {
		return deleteError("gift card", card.ID, err)
	}
	r.cache.evict(card.ID)
	return nil
}

// DeleteByID 按 ID 删除：先加载确认存在，再执行删除
func (r *GormGiftCardRepository) DeleteByID(id uint) error {
	card, err := r.GetByID(id)
	if err != nil {
		return err
	}
	return r.Delete(card)
}

// List 查询礼品卡列表，总数不受分页窗口影响
func (r *GormGiftCardRepository) List(filter GiftCardListFilter) ([]models.GiftCard, int64, error) {
	query := r.db.Model(&models.GiftCard{})

	if filter.CustomerID != 0 {
		query = query.Where("assigned_customer_id = ?", filter.CustomerID)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("code = ?", code)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if email := strings.TrimSpace(filter.RecipientEmail); email != "" {
		query = query.Where("recipient_email = ?", email)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.WithCustomer {
		query = query.Preload("Customer")
	}

	cards := make([]models.GiftCard, 0)
	err := applyPagination(query, filter.Page, filter.PageSize).
		Order("created_at DESC, id DESC").
		Find(&cards).Error
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}
