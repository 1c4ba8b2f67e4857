package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pinmart/pinmart/internal/constants"
	"github.com/pinmart/pinmart/internal/gateway/paystack"
	"github.com/pinmart/pinmart/internal/models"
)

func checkoutForCallback(t *testing.T, env *serviceTestEnv, quantity int) string {
	t.Helper()
	result, err := env.orders.Checkout(context.Background(), CheckoutInput{
		CardType:   "WAEC",
		Quantity:   quantity,
		BuyerEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return result.Reference
}

func TestHandleCallbackSuccessCompletesOrder(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 4, "3600.00")
	reference := checkoutForCallback(t, env, 2)

	result, err := env.payments.HandleCallback(context.Background(), reference)
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if result.Status != constants.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if env.gateway.verifyCalls != 1 || env.gateway.lastVerify != reference {
		t.Fatalf("gateway not verified: calls=%d ref=%s", env.gateway.verifyCalls, env.gateway.lastVerify)
	}

	counts := env.cardStatusCounts(t, "WAEC")
	if counts[models.CardStatusUsed] != 2 || counts[models.CardStatusAvailable] != 2 {
		t.Fatalf("unexpected card counts: %+v", counts)
	}

	var txnCount int64
	if err := env.db.Model(&models.Transaction{}).Count(&txnCount).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if txnCount != 1 {
		t.Fatalf("expected 1 transaction row, got %d", txnCount)
	}

	if _, ok, _ := env.intents.Get(context.Background(), reference); ok {
		t.Fatalf("intent not deleted after reconciliation")
	}
}

func TestHandleCallbackIsIdempotent(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 4, "3600.00")
	reference := checkoutForCallback(t, env, 2)

	first, err := env.payments.HandleCallback(context.Background(), reference)
	if err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	second, err := env.payments.HandleCallback(context.Background(), reference)
	if err != nil {
		t.Fatalf("replayed callback failed: %v", err)
	}
	if first.Status != second.Status || second.Status != constants.OrderStatusCompleted {
		t.Fatalf("replay diverged: %s vs %s", first.Status, second.Status)
	}
	// The replay must not re-verify or double-write the audit trail.
	if env.gateway.verifyCalls != 1 {
		t.Fatalf("expected 1 verify call, got %d", env.gateway.verifyCalls)
	}
	var txnCount int64
	if err := env.db.Model(&models.Transaction{}).Count(&txnCount).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if txnCount != 1 {
		t.Fatalf("expected exactly 1 transaction row, got %d", txnCount)
	}
}

func TestHandleCallbackAmountMismatchFailsOrder(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 3, "3600.00")
	reference := checkoutForCallback(t, env, 2)

	// A forged or partial payment: the gateway reports less than the order
	// total.
	env.gateway.verifyResult = &paystack.VerifyResult{
		Status:      paystack.StatusSuccess,
		AmountMinor: 100,
	}

	result, err := env.payments.HandleCallback(context.Background(), reference)
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if result.Status != constants.OrderStatusFailed || result.FailureReason != constants.FailureReasonAmountMismatch {
		t.Fatalf("unexpected result: %+v", result)
	}

	counts := env.cardStatusCounts(t, "WAEC")
	if counts[models.CardStatusAvailable] != 3 {
		t.Fatalf("cards not released: %+v", counts)
	}
	var txnCount int64
	if err := env.db.Model(&models.Transaction{}).Count(&txnCount).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if txnCount != 0 {
		t.Fatalf("transaction written for failed payment")
	}
}

func TestHandleCallbackGatewayFailureStatusFailsOrder(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 3, "3600.00")
	reference := checkoutForCallback(t, env, 1)

	env.gateway.verifyResult = &paystack.VerifyResult{Status: paystack.StatusAbandoned}

	result, err := env.payments.HandleCallback(context.Background(), reference)
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if result.Status != constants.OrderStatusFailed || result.FailureReason != constants.FailureReasonVerifyFailed {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestHandleCallbackVerifyErrorFailsOrder(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 3, "3600.00")
	reference := checkoutForCallback(t, env, 1)

	env.gateway.verifyErr = errors.New("gateway timeout")

	result, err := env.payments.HandleCallback(context.Background(), reference)
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if result.Status != constants.OrderStatusFailed || result.FailureReason != constants.FailureReasonVerifyFailed {
		t.Fatalf("unexpected result: %+v", result)
	}
	counts := env.cardStatusCounts(t, "WAEC")
	if counts[models.CardStatusAvailable] != 3 {
		t.Fatalf("cards not released: %+v", counts)
	}
}

func TestHandleCallbackExpiredIntent(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 3, "3600.00")
	reference := checkoutForCallback(t, env, 1)

	// The intent TTL lapses before the callback arrives.
	env.intents.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	_, err := env.payments.HandleCallback(context.Background(), reference)
	if !errors.Is(err, ErrIntentExpired) {
		t.Fatalf("expected ErrIntentExpired, got %v", err)
	}
	if env.gateway.verifyCalls != 0 {
		t.Fatalf("gateway verified an expired checkout")
	}
}

func TestHandleCallbackUnknownReference(t *testing.T) {
	env := setupServiceTest(t)
	if _, err := env.payments.HandleCallback(context.Background(), "no-such-ref"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestExpireOrderReleasesAbandonedCheckout(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 3, "3600.00")
	reference := checkoutForCallback(t, env, 2)

	order, err := env.orderRepo.GetByReference(reference)
	if err != nil || order == nil {
		t.Fatalf("fetch order failed: %v", err)
	}

	// With the intent still live, expiry is a no-op.
	if err := env.payments.ExpireOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	got, _ := env.orderRepo.GetByID(order.ID)
	if got.Status != constants.OrderStatusPending {
		t.Fatalf("live checkout expired early: %s", got.Status)
	}

	// After TTL the intent is gone and expiry closes the order.
	env.intents.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	if err := env.payments.ExpireOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	got, _ = env.orderRepo.GetByID(order.ID)
	if got.Status != constants.OrderStatusFailed || got.FailureReason != constants.FailureReasonExpired {
		t.Fatalf("unexpected order state: status=%s reason=%s", got.Status, got.FailureReason)
	}
	counts := env.cardStatusCounts(t, "WAEC")
	if counts[models.CardStatusAvailable] != 3 {
		t.Fatalf("cards not released: %+v", counts)
	}

	// Replay is harmless.
	if err := env.payments.ExpireOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("expire replay failed: %v", err)
	}
}

func TestSweepExpiredClosesStalePendingOrders(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 4, "3600.00")
	reference := checkoutForCallback(t, env, 2)

	order, err := env.orderRepo.GetByReference(reference)
	if err != nil || order == nil {
		t.Fatalf("fetch order failed: %v", err)
	}
	// Backdate the order past the TTL and let the intent lapse.
	stale := time.Now().Add(-2 * time.Hour)
	if err := env.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_at", stale).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}
	env.intents.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	expired, err := env.payments.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired order, got %d", expired)
	}
	got, _ := env.orderRepo.GetByID(order.ID)
	if got.Status != constants.OrderStatusFailed || got.FailureReason != constants.FailureReasonExpired {
		t.Fatalf("unexpected order state: status=%s reason=%s", got.Status, got.FailureReason)
	}
	counts := env.cardStatusCounts(t, "WAEC")
	if counts[models.CardStatusAvailable] != 4 {
		t.Fatalf("cards not released: %+v", counts)
	}
}

func TestSweepExpiredSkipsFreshOrders(t *testing.T) {
	env := setupServiceTest(t)
	env.seedCards(t, "WAEC", 2, "3600.00")
	checkoutForCallback(t, env, 1)

	expired, err := env.payments.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if expired != 0 {
		t.Fatalf("fresh order swept: %d", expired)
	}
}
