package constants

// 礼品卡状态常量
const (
	GiftCardStatusActive    = "active"
	GiftCardStatusUsed      = "used"
	GiftCardStatusExpired   = "expired"
	GiftCardStatusCancelled = "cancelled"
)

// GiftCardStatuses 礼品卡全部合法状态（校验与统计遍历用）
var GiftCardStatuses = []string{
	GiftCardStatusActive,
	GiftCardStatusUsed,
	GiftCardStatusExpired,
	GiftCardStatusCancelled,
}

// 礼品卡流水方向常量
const (
	UsageDirectionDebit  = "debit"
	UsageDirectionCredit = "credit"
)

// 商品目录集成常量：礼品卡商品类型编码（属性集由外部安装流程维护）
const (
	ProductTypeGiftCard = "giftcard"
)

// 卡号生成常量
const (
	GiftCardCodePrefixDefault = "GC"
	GiftCardCodeRandomLength  = 16
)

// 过期策略常量
const (
	GiftCardExpireAfterDaysDefault = 365
	GiftCardExpiringSoonDays       = 30
)

// 客户状态常量
const (
	CustomerStatusActive   = "active"
	CustomerStatusDisabled = "disabled"
)

// 队列常量
const (
	QueueDefault            = "default"
	TaskGiftCardExpireSweep = "gift_card:expire_sweep"
	TaskGiftCardBalanceSync = "gift_card:balance_sync"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "gcn"
)
