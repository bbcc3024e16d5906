package worker

import (
	"context"
	"testing"

	"github.com/giftcard-next/internal/provider"
	"github.com/giftcard-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleBalanceSyncBadPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskGiftCardBalanceSync, []byte("{not json"))
	if err := consumer.handleBalanceSync(context.Background(), task); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestHandleBalanceSyncSkipZeroCardID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewBalanceSyncTask(queue.BalanceSyncPayload{GiftCardID: 0})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleBalanceSync(context.Background(), task); err != nil {
		t.Fatalf("zero card id should be skipped, got %v", err)
	}
}

func TestHandleExpireSweepSkipNilService(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewExpireSweepTask(queue.ExpireSweepPayload{})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleExpireSweep(context.Background(), task); err != nil {
		t.Fatalf("nil service should be skipped, got %v", err)
	}
}
