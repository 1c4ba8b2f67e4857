package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/pinmart/pinmart/internal/cache"
	"github.com/pinmart/pinmart/internal/config"
	"github.com/pinmart/pinmart/internal/constants"
	"github.com/pinmart/pinmart/internal/gateway/paystack"
	"github.com/pinmart/pinmart/internal/logger"
	"github.com/pinmart/pinmart/internal/models"
	"github.com/pinmart/pinmart/internal/queue"
	"github.com/pinmart/pinmart/internal/repository"
)

// expireTaskGrace pads the delayed expiry task past the intent TTL so the
// intent is already gone by the time the task fires.
const expireTaskGrace = 30 * time.Second

// PaymentGateway is the slice of the gateway client the services need.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, input paystack.InitializeInput) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// OrderService drives the checkout flow and buyer-facing order reads.
type OrderService struct {
	cfg        *config.Config
	allocation *AllocationService
	orderRepo  repository.OrderRepository
	cardRepo   repository.CardRepository
	intents    cache.IntentStore
	gateway    PaymentGateway
	queue      *queue.Client
}

// NewOrderService creates the order service.
func NewOrderService(
	cfg *config.Config,
	allocation *AllocationService,
	orderRepo repository.OrderRepository,
	cardRepo repository.CardRepository,
	intents cache.IntentStore,
	gateway PaymentGateway,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		cfg:        cfg,
		allocation: allocation,
		orderRepo:  orderRepo,
		cardRepo:   cardRepo,
		intents:    intents,
		gateway:    gateway,
		queue:      queueClient,
	}
}

// CheckoutInput is the buyer's checkout request.
type CheckoutInput struct {
	CardType   string
	Quantity   int
	BuyerEmail string
	ClientIP   string
}

// CheckoutResult is what the buyer needs to proceed to payment.
type CheckoutResult struct {
	Reference        string       `json:"reference"`
	AuthorizationURL string       `json:"authorization_url"`
	AccessCode       string       `json:"access_code"`
	TotalAmount      models.Money `json:"total_amount"`
	ExpiresAt        time.Time    `json:"expires_at"`
}

// Checkout reserves stock, records a payment intent and opens a gateway
// transaction. If the gateway call fails, the reservation is rolled back
// immediately instead of waiting for the sweep: the order goes to failed and
// its cards return to the pool.
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	input.CardType = strings.TrimSpace(input.CardType)
	input.BuyerEmail = strings.TrimSpace(input.BuyerEmail)
	if input.CardType == "" || input.Quantity <= 0 {
		return nil, ErrInvalidCheckoutInput
	}
	if maxQty := s.cfg.Order.MaxQuantity; maxQty > 0 && input.Quantity > maxQty {
		return nil, ErrInvalidCheckoutInput
	}
	if _, err := mail.ParseAddress(input.BuyerEmail); err != nil {
		return nil, ErrBuyerEmailInvalid
	}
	if s.gateway == nil {
		return nil, ErrGatewayUnavailable
	}

	order, err := s.allocation.Reserve(ReserveInput{
		CardType:   input.CardType,
		Quantity:   input.Quantity,
		BuyerEmail: input.BuyerEmail,
		ClientIP:   input.ClientIP,
	})
	if err != nil {
		return nil, err
	}

	ttl := s.intentTTL()
	intent := cache.PaymentIntent{
		Reference:  order.Reference,
		OrderID:    order.ID,
		Amount:     order.TotalAmount.String(),
		BuyerEmail: order.BuyerEmail,
		CreatedAt:  time.Now(),
	}
	if err := s.intents.Put(ctx, intent, ttl); err != nil {
		logger.Errorw("checkout_intent_store_failed", "order_id", order.ID, "error", err)
		s.abortCheckout(ctx, order, constants.FailureReasonGatewayInit)
		return nil, ErrIntentStoreFailed
	}

	initResult, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeInput{
		Email:       order.BuyerEmail,
		AmountMinor: order.TotalAmount.MinorUnits(),
		Reference:   order.Reference,
		Metadata: map[string]interface{}{
			"order_id":  order.ID,
			"card_type": order.CardType,
			"quantity":  order.Quantity,
		},
	})
	if err != nil {
		logger.Errorw("checkout_gateway_init_failed",
			"order_id", order.ID,
			"reference", order.Reference,
			"error", err,
		)
		if delErr := s.intents.Delete(ctx, order.Reference); delErr != nil {
			logger.Warnw("checkout_intent_delete_failed", "reference", order.Reference, "error", delErr)
		}
		s.abortCheckout(ctx, order, constants.FailureReasonGatewayInit)
		return nil, ErrGatewayUnavailable
	}

	if s.queue.Enabled() {
		delay := ttl + expireTaskGrace
		if err := s.queue.EnqueueOrderExpire(queue.OrderExpirePayload{OrderID: order.ID}, delay); err != nil {
			// Not fatal; the periodic sweep covers the order.
			logger.Warnw("checkout_expire_enqueue_failed", "order_id", order.ID, "error", err)
		}
	}

	logger.Infow("checkout_opened",
		"order_id", order.ID,
		"reference", order.Reference,
		"card_type", order.CardType,
		"quantity", order.Quantity,
		"amount", order.TotalAmount.String(),
	)
	return &CheckoutResult{
		Reference:        order.Reference,
		AuthorizationURL: initResult.AuthorizationURL,
		AccessCode:       initResult.AccessCode,
		TotalAmount:      order.TotalAmount,
		ExpiresAt:        intent.CreatedAt.Add(ttl),
	}, nil
}

// abortCheckout fails a just-created pending order and frees its cards.
func (s *OrderService) abortCheckout(_ context.Context, order *models.Order, reason string) {
	now := time.Now()
	affected, err := s.orderRepo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusFailed, map[string]interface{}{
		"failure_reason": reason,
		"closed_at":      now,
	})
	if err != nil {
		logger.Errorw("checkout_abort_failed", "order_id", order.ID, "error", err)
		return
	}
	if affected == 0 {
		// Something else already finalized the order; leave its cards alone.
		return
	}
	if err := s.allocation.Release(order.ID); err != nil {
		logger.Errorw("checkout_abort_release_failed", "order_id", order.ID, "error", err)
	}
}

// OrderView is the buyer-facing order representation. PINs appear only on
// completed orders.
type OrderView struct {
	Reference     string       `json:"reference"`
	CardType      string       `json:"card_type"`
	Quantity      int          `json:"quantity"`
	TotalAmount   models.Money `json:"total_amount"`
	Status        string       `json:"status"`
	FailureReason string       `json:"failure_reason,omitempty"`
	PaidAt        *time.Time   `json:"paid_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	Cards         []CardView   `json:"cards,omitempty"`
}

// CardView is a delivered voucher.
type CardView struct {
	CardType  string       `json:"card_type"`
	PIN       string       `json:"pin"`
	Serial    string       `json:"serial,omitempty"`
	FaceValue models.Money `json:"face_value"`
}

// GetOrderByReference returns the buyer view of an order. The reference is
// an unguessable uuid, which is the access control for this read.
func (s *OrderService) GetOrderByReference(reference string) (*OrderView, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByReference(reference)
	if err != nil {
		logger.Errorw("order_fetch_failed", "reference", reference, "error", err)
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	view := &OrderView{
		Reference:     order.Reference,
		CardType:      order.CardType,
		Quantity:      order.Quantity,
		TotalAmount:   order.TotalAmount,
		Status:        order.Status,
		FailureReason: order.FailureReason,
		PaidAt:        order.PaidAt,
		CreatedAt:     order.CreatedAt,
	}
	if order.Status == constants.OrderStatusCompleted {
		for _, card := range order.Cards {
			view.Cards = append(view.Cards, CardView{
				CardType:  card.CardType,
				PIN:       card.PIN,
				Serial:    card.Serial,
				FaceValue: card.FaceValue,
			})
		}
	}
	return view, nil
}

func (s *OrderService) intentTTL() time.Duration {
	seconds := s.cfg.Order.IntentTTLSeconds
	if seconds <= 0 {
		seconds = 3600
	}
	return time.Duration(seconds) * time.Second
}
