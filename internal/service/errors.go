package service

import "errors"

// 服务层业务错误：handler 层据此映射响应码
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("password does not meet policy")

	ErrGiftCardInvalid             = errors.New("invalid gift card input")
	ErrGiftCardNotFound            = errors.New("gift card not found")
	ErrGiftCardInactive            = errors.New("gift card is not active")
	ErrGiftCardInsufficientBalance = errors.New("gift card balance is insufficient")
	ErrGiftCardDuplicateOrder      = errors.New("gift card already applied to this order")
	ErrGiftCardCreateFailed        = errors.New("failed to create gift card")
	ErrGiftCardUpdateFailed        = errors.New("failed to update gift card")
	ErrGiftCardDeleteFailed        = errors.New("failed to delete gift card")
	ErrGiftCardFetchFailed         = errors.New("failed to fetch gift card")

	ErrUsageInvalid     = errors.New("invalid usage input")
	ErrUsageFetchFailed = errors.New("failed to fetch usage records")
)
