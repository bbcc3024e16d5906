package queue

import (
	"encoding/json"
	"time"

	"github.com/giftcard-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskGiftCardExpireSweep 过期礼品卡清扫任务
	TaskGiftCardExpireSweep = constants.TaskGiftCardExpireSweep
	// TaskGiftCardBalanceSync 余额对账任务
	TaskGiftCardBalanceSync = constants.TaskGiftCardBalanceSync
)

// ExpireSweepPayload 过期清扫任务载荷
type ExpireSweepPayload struct {
	Now time.Time `json:"now"`
}

// BalanceSyncPayload 余额对账任务载荷
type BalanceSyncPayload struct {
	GiftCardID uint `json:"gift_card_id"`
}

// NewExpireSweepTask 创建过期清扫任务
func NewExpireSweepTask(payload ExpireSweepPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGiftCardExpireSweep, body), nil
}

// NewBalanceSyncTask 创建余额对账任务
func NewBalanceSyncTask(payload BalanceSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGiftCardBalanceSync, body), nil
}
