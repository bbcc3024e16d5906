package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/giftcard-next/internal/logger"
	"github.com/giftcard-next/internal/provider"
	"github.com/giftcard-next/internal/queue"
	"github.com/giftcard-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskGiftCardExpireSweep, c.handleExpireSweep)
	mux.HandleFunc(queue.TaskGiftCardBalanceSync, c.handleBalanceSync)
}

func (c *Consumer) handleExpireSweep(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_expire_sweep_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ExpireSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_expire_sweep_unmarshal_failed", "error", err)
		return err
	}
	if c.GiftCardService == nil {
		logger.Warnw("worker_expire_sweep_skip_service_nil")
		return nil
	}
	now := payload.Now
	if now.IsZero() {
		now = time.Now()
	}
	expired, err := c.GiftCardService.ExpireDormantCards(now)
	if err != nil {
		logger.Warnw("worker_expire_sweep_failed", "error", err)
		return err
	}
	if expired > 0 {
		logger.Infow("worker_expire_sweep_done", "expired", expired)
	}
	return nil
}

func (c *Consumer) handleBalanceSync(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_balance_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BalanceSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_balance_sync_unmarshal_failed", "error", err)
		return err
	}
	if payload.GiftCardID == 0 {
		logger.Debugw("worker_balance_sync_skip_invalid_payload", "gift_card_id", payload.GiftCardID)
		return nil
	}
	if c.GiftCardService == nil {
		logger.Warnw("worker_balance_sync_skip_service_nil", "gift_card_id", payload.GiftCardID)
		return nil
	}
	_, drifted, err := c.GiftCardService.SyncBalanceFromLedger(payload.GiftCardID)
	if err != nil {
		if errors.Is(err, service.ErrGiftCardNotFound) {
			logger.Debugw("worker_balance_sync_skip_card_not_found", "gift_card_id", payload.GiftCardID)
			return nil
		}
		logger.Warnw("worker_balance_sync_failed", "gift_card_id", payload.GiftCardID, "error", err)
		return err
	}
	if drifted {
		logger.Infow("worker_balance_sync_repaired", "gift_card_id", payload.GiftCardID)
	}
	return nil
}
