package service

import (
	"context"
	"strings"
	"time"

	"github.com/pinmart/pinmart/internal/cache"
	"github.com/pinmart/pinmart/internal/config"
	"github.com/pinmart/pinmart/internal/constants"
	"github.com/pinmart/pinmart/internal/gateway/paystack"
	"github.com/pinmart/pinmart/internal/logger"
	"github.com/pinmart/pinmart/internal/models"
	"github.com/pinmart/pinmart/internal/repository"

	"gorm.io/gorm"
)

// sweepBatchSize caps how many stale orders one sweep pass touches.
const sweepBatchSize = 100

// PaymentService reconciles gateway outcomes into terminal order states and
// sweeps abandoned checkouts.
type PaymentService struct {
	cfg        *config.Config
	db         *gorm.DB
	allocation *AllocationService
	orderRepo  repository.OrderRepository
	cardRepo   repository.CardRepository
	txnRepo    repository.TransactionRepository
	intents    cache.IntentStore
	gateway    PaymentGateway
}

// NewPaymentService creates the payment service.
func NewPaymentService(
	cfg *config.Config,
	db *gorm.DB,
	allocation *AllocationService,
	orderRepo repository.OrderRepository,
	cardRepo repository.CardRepository,
	txnRepo repository.TransactionRepository,
	intents cache.IntentStore,
	gateway PaymentGateway,
) *PaymentService {
	return &PaymentService{
		cfg:        cfg,
		db:         db,
		allocation: allocation,
		orderRepo:  orderRepo,
		cardRepo:   cardRepo,
		txnRepo:    txnRepo,
		intents:    intents,
		gateway:    gateway,
	}
}

// ReconcileResult reports the terminal state a callback converged on.
type ReconcileResult struct {
	OrderID       uint   `json:"order_id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// HandleCallback drives a payment reference to a terminal order state. The
// callback payload itself is never trusted: the gateway is re-queried and its
// verify response decides the outcome. Duplicate and concurrent callbacks
// converge on the same result because the pending->terminal update is
// conditional; whoever loses that race just reads the stored state back.
func (s *PaymentService) HandleCallback(ctx context.Context, reference string) (*ReconcileResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrOrderNotFound
	}

	order, err := s.orderRepo.GetByReference(reference)
	if err != nil {
		logger.Errorw("callback_order_fetch_failed", "reference", reference, "error", err)
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if order.Status != constants.OrderStatusPending {
		// Replay of an already reconciled payment. A crash between commit
		// and intent delete can leave the intent behind; clear it now.
		s.deleteIntent(ctx, reference)
		return resultFromOrder(order), nil
	}

	_, ok, err := s.intents.Get(ctx, reference)
	if err != nil {
		logger.Errorw("callback_intent_fetch_failed", "reference", reference, "error", err)
		return nil, ErrIntentStoreFailed
	}
	if !ok {
		// TTL lapsed before the gateway confirmed; the sweep owns this order.
		logger.Warnw("callback_intent_expired", "reference", reference, "order_id", order.ID)
		return nil, ErrIntentExpired
	}

	if s.gateway == nil {
		return nil, ErrGatewayUnavailable
	}
	verify, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		// An unverifiable payment is a failed payment. Holding stock on a
		// maybe is worse than asking the buyer to retry.
		logger.Errorw("callback_verify_failed",
			"reference", reference,
			"order_id", order.ID,
			"error", err,
		)
		return s.finalizeFailure(ctx, order, constants.FailureReasonVerifyFailed)
	}

	if verify.Status != paystack.StatusSuccess {
		logger.Infow("callback_payment_not_successful",
			"reference", reference,
			"order_id", order.ID,
			"gateway_status", verify.Status,
		)
		return s.finalizeFailure(ctx, order, constants.FailureReasonVerifyFailed)
	}

	if verify.AmountMinor != order.TotalAmount.MinorUnits() {
		logger.Errorw("callback_amount_mismatch",
			"reference", reference,
			"order_id", order.ID,
			"expected_minor", order.TotalAmount.MinorUnits(),
			"got_minor", verify.AmountMinor,
		)
		return s.finalizeFailure(ctx, order, constants.FailureReasonAmountMismatch)
	}

	return s.finalizeSuccess(ctx, order)
}

// finalizeSuccess marks the order completed, its cards used, and writes the
// audit record, all in one transaction.
func (s *PaymentService) finalizeSuccess(ctx context.Context, order *models.Order) (*ReconcileResult, error) {
	now := time.Now()
	var alreadyFinalized bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		cardRepo := s.cardRepo.WithTx(tx)
		txnRepo := s.txnRepo.WithTx(tx)

		affected, err := orderRepo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusCompleted, map[string]interface{}{
			"paid_at":   now,
			"closed_at": now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			alreadyFinalized = true
			return nil
		}

		used, err := cardRepo.MarkUsedByOrder(order.ID, now)
		if err != nil {
			return err
		}
		if int(used) != order.Quantity {
			logger.Errorw("callback_card_count_mismatch",
				"order_id", order.ID,
				"expected", order.Quantity,
				"marked_used", used,
			)
		}

		return txnRepo.Create(&models.Transaction{
			OrderID:    order.ID,
			Reference:  order.Reference,
			BuyerEmail: order.BuyerEmail,
			Amount:     order.TotalAmount,
			Type:       constants.TransactionTypePurchase,
			Status:     constants.TransactionStatusSuccess,
			CreatedAt:  now,
		})
	})
	if err != nil {
		logger.Errorw("callback_finalize_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}

	s.deleteIntent(ctx, order.Reference)

	if alreadyFinalized {
		return s.storedResult(order.ID)
	}
	logger.Infow("payment_reconciled",
		"order_id", order.ID,
		"reference", order.Reference,
		"status", constants.OrderStatusCompleted,
		"amount", order.TotalAmount.String(),
	)
	return &ReconcileResult{
		OrderID:   order.ID,
		Reference: order.Reference,
		Status:    constants.OrderStatusCompleted,
	}, nil
}

// finalizeFailure marks the order failed and returns its cards to the pool
// in one transaction.
func (s *PaymentService) finalizeFailure(ctx context.Context, order *models.Order, reason string) (*ReconcileResult, error) {
	now := time.Now()
	var alreadyFinalized bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		cardRepo := s.cardRepo.WithTx(tx)

		affected, err := orderRepo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusFailed, map[string]interface{}{
			"failure_reason": reason,
			"closed_at":      now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			alreadyFinalized = true
			return nil
		}

		_, err = cardRepo.ReleaseByOrder(order.ID)
		return err
	})
	if err != nil {
		logger.Errorw("callback_fail_finalize_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}

	s.deleteIntent(ctx, order.Reference)

	if alreadyFinalized {
		return s.storedResult(order.ID)
	}
	logger.Infow("payment_reconciled",
		"order_id", order.ID,
		"reference", order.Reference,
		"status", constants.OrderStatusFailed,
		"failure_reason", reason,
	)
	return &ReconcileResult{
		OrderID:       order.ID,
		Reference:     order.Reference,
		Status:        constants.OrderStatusFailed,
		FailureReason: reason,
	}, nil
}

// ExpireOrder closes one pending order whose intent TTL has lapsed. Called
// by the delayed expiry task and the periodic sweep. Idempotent: an order
// already terminal, or one whose intent is unexpectedly still live, is left
// alone.
func (s *PaymentService) ExpireOrder(ctx context.Context, orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		logger.Errorw("expire_order_fetch_failed", "order_id", orderID, "error", err)
		return ErrOrderFetchFailed
	}
	if order == nil || order.Status != constants.OrderStatusPending {
		return nil
	}

	if _, ok, err := s.intents.Get(ctx, order.Reference); err != nil {
		logger.Errorw("expire_intent_fetch_failed", "order_id", orderID, "error", err)
		return ErrIntentStoreFailed
	} else if ok {
		// Intent still live: the checkout window has not actually closed.
		return nil
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		cardRepo := s.cardRepo.WithTx(tx)

		affected, err := orderRepo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusFailed, map[string]interface{}{
			"failure_reason": constants.FailureReasonExpired,
			"closed_at":      now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		_, err = cardRepo.ReleaseByOrder(order.ID)
		return err
	})
	if err != nil {
		logger.Errorw("expire_order_failed", "order_id", orderID, "error", err)
		return ErrOrderUpdateFailed
	}

	logger.Infow("order_expired",
		"order_id", order.ID,
		"reference", order.Reference,
		"card_type", order.CardType,
		"quantity", order.Quantity,
	)
	return nil
}

// SweepExpired expires pending orders older than the intent TTL. The
// periodic scan is the backstop for lost or never-enqueued expiry tasks.
func (s *PaymentService) SweepExpired(ctx context.Context) (int, error) {
	ttl := time.Duration(s.cfg.Order.IntentTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	cutoff := time.Now().Add(-ttl)

	orders, err := s.orderRepo.ListPendingCreatedBefore(cutoff, sweepBatchSize)
	if err != nil {
		logger.Errorw("sweep_list_failed", "error", err)
		return 0, ErrOrderFetchFailed
	}

	expired := 0
	for _, order := range orders {
		if err := s.ExpireOrder(ctx, order.ID); err != nil {
			logger.Warnw("sweep_expire_failed", "order_id", order.ID, "error", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		logger.Infow("sweep_completed", "scanned", len(orders), "expired", expired)
	}
	return expired, nil
}

func (s *PaymentService) deleteIntent(ctx context.Context, reference string) {
	if err := s.intents.Delete(ctx, reference); err != nil {
		logger.Warnw("intent_delete_failed", "reference", reference, "error", err)
	}
}

// storedResult re-reads an order that a racing caller finalized first.
func (s *PaymentService) storedResult(orderID uint) (*ReconcileResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil || order == nil {
		return nil, ErrOrderFetchFailed
	}
	return resultFromOrder(order), nil
}

func resultFromOrder(order *models.Order) *ReconcileResult {
	return &ReconcileResult{
		OrderID:       order.ID,
		Reference:     order.Reference,
		Status:        order.Status,
		FailureReason: order.FailureReason,
	}
}
