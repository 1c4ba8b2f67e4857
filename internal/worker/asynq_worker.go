package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pinmart/pinmart/internal/logger"
	"github.com/pinmart/pinmart/internal/provider"
	"github.com/pinmart/pinmart/internal/queue"
	"github.com/pinmart/pinmart/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer handles queued tasks.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register wires task handlers onto the mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderExpire, c.handleOrderExpire)
}

func (c *Consumer) handleOrderExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads never succeed on retry; drop them.
		logger.Warnw("worker_order_expire_unmarshal_failed", "error", err)
		return nil
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_expire_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_order_expire_skip_payment_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.PaymentService.ExpireOrder(ctx, payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_expire_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderFetchFailed):
			logger.Warnw("worker_order_expire_fetch_failed", "order_id", payload.OrderID, "error", err)
			return nil
		default:
			logger.Warnw("worker_order_expire_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}
