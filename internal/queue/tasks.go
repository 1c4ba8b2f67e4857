package queue

import (
	"encoding/json"

	"github.com/pinmart/pinmart/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderExpire releases a checkout whose intent TTL has lapsed.
	TaskOrderExpire = constants.TaskOrderExpire
)

// OrderExpirePayload is the expiry task payload.
type OrderExpirePayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderExpireTask creates an expiry task.
func NewOrderExpireTask(payload OrderExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderExpire, body), nil
}
