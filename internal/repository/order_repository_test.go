package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/pinmart/pinmart/internal/constants"
	"github.com/pinmart/pinmart/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderRepositoryTest(t *testing.T) (*GormOrderRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Card{}, &models.Order{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewOrderRepository(db), db
}

func makePendingOrder(t *testing.T, repo *GormOrderRepository, reference string) *models.Order {
	t.Helper()
	order := &models.Order{
		Reference:   reference,
		BuyerEmail:  "buyer@example.com",
		CardType:    "WAEC",
		Quantity:    2,
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(7200)),
		Status:      constants.OrderStatusPending,
	}
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestOrderRepositoryTransitionStatusIsGuarded(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)
	order := makePendingOrder(t, repo, "ref-transition-1")

	now := time.Now()
	affected, err := repo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusCompleted, map[string]interface{}{
		"paid_at": now,
	})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected row, got %d", affected)
	}

	// Terminal states are sticky: a replayed transition matches zero rows.
	affected, err = repo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusFailed, map[string]interface{}{
		"failure_reason": constants.FailureReasonExpired,
	})
	if err != nil {
		t.Fatalf("replay transition failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 affected rows on replay, got %d", affected)
	}

	got, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got.Status != constants.OrderStatusCompleted {
		t.Fatalf("terminal state overwritten: %s", got.Status)
	}
}

func TestOrderRepositoryGetByReference(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)
	order := makePendingOrder(t, repo, "ref-lookup-1")

	got, err := repo.GetByReference("ref-lookup-1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got == nil || got.ID != order.ID {
		t.Fatalf("unexpected order: %+v", got)
	}

	missing, err := repo.GetByReference("no-such-reference")
	if err != nil {
		t.Fatalf("fetch missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing reference, got %+v", missing)
	}
}

func TestOrderRepositoryListPendingCreatedBefore(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)

	old := makePendingOrder(t, repo, "ref-old")
	stale := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", old.ID).Update("created_at", stale).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}
	makePendingOrder(t, repo, "ref-fresh")

	done := makePendingOrder(t, repo, "ref-done")
	if err := db.Model(&models.Order{}).Where("id = ?", done.ID).Updates(map[string]interface{}{
		"status":     constants.OrderStatusCompleted,
		"created_at": stale,
	}).Error; err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	orders, err := repo.ListPendingCreatedBefore(time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 stale pending order, got %d", len(orders))
	}
	if orders[0].Reference != "ref-old" {
		t.Fatalf("unexpected order: %s", orders[0].Reference)
	}
}
