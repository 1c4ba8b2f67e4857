package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pinmart/pinmart/internal/cache"
	"github.com/pinmart/pinmart/internal/config"
	"github.com/pinmart/pinmart/internal/gateway/paystack"
	"github.com/pinmart/pinmart/internal/models"
	"github.com/pinmart/pinmart/internal/queue"
	"github.com/pinmart/pinmart/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeGateway struct {
	initResult   *paystack.InitializeResult
	initErr      error
	verifyResult *paystack.VerifyResult
	verifyErr    error

	initCalls   int
	verifyCalls int
	lastInit    paystack.InitializeInput
	lastVerify  string
}

func (g *fakeGateway) InitializeTransaction(_ context.Context, input paystack.InitializeInput) (*paystack.InitializeResult, error) {
	g.initCalls++
	g.lastInit = input
	if g.initErr != nil {
		return nil, g.initErr
	}
	if g.initResult != nil {
		return g.initResult, nil
	}
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.example/" + input.Reference,
		AccessCode:       "access-" + input.Reference,
		Reference:        input.Reference,
	}, nil
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, reference string) (*paystack.VerifyResult, error) {
	g.verifyCalls++
	g.lastVerify = reference
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verifyResult != nil {
		return g.verifyResult, nil
	}
	// Default: the payment succeeded for exactly the initialized amount.
	return &paystack.VerifyResult{Status: paystack.StatusSuccess, AmountMinor: g.lastInit.AmountMinor}, nil
}

type serviceTestEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	cardRepo   *repository.GormCardRepository
	orderRepo  *repository.GormOrderRepository
	txnRepo    *repository.GormTransactionRepository
	intents    *cache.MemoryIntentStore
	gateway    *fakeGateway
	allocation *AllocationService
	orders     *OrderService
	payments   *PaymentService
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Card{}, &models.Order{}, &models.Transaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		Order: config.OrderConfig{
			IntentTTLSeconds:     3600,
			SweepIntervalSeconds: 120,
			MaxQuantity:          50,
		},
	}
	cardRepo := repository.NewCardRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	intents := cache.NewMemoryIntentStore()
	gw := &fakeGateway{}
	queueClient, _ := queue.NewClient(nil)

	allocation := NewAllocationService(db, cardRepo, orderRepo)
	orders := NewOrderService(cfg, allocation, orderRepo, cardRepo, intents, gw, queueClient)
	payments := NewPaymentService(cfg, db, allocation, orderRepo, cardRepo, txnRepo, intents, gw)

	return &serviceTestEnv{
		db:         db,
		cfg:        cfg,
		cardRepo:   cardRepo,
		orderRepo:  orderRepo,
		txnRepo:    txnRepo,
		intents:    intents,
		gateway:    gw,
		allocation: allocation,
		orders:     orders,
		payments:   payments,
	}
}

func (env *serviceTestEnv) seedCards(t *testing.T, cardType string, count int, unitPrice string) {
	t.Helper()
	price, err := decimal.NewFromString(unitPrice)
	if err != nil {
		t.Fatalf("parse price failed: %v", err)
	}
	cards := make([]models.Card, 0, count)
	for i := 0; i < count; i++ {
		cards = append(cards, models.Card{
			CardType:  cardType,
			PIN:       fmt.Sprintf("%s-pin-%d-%d", cardType, time.Now().UnixNano(), i),
			Serial:    fmt.Sprintf("%s-%04d", cardType, i),
			FaceValue: models.NewMoneyFromDecimal(price),
			UnitPrice: models.NewMoneyFromDecimal(price),
			Status:    models.CardStatusAvailable,
		})
	}
	if err := env.cardRepo.CreateBatch(cards); err != nil {
		t.Fatalf("seed cards failed: %v", err)
	}
}

func (env *serviceTestEnv) cardStatusCounts(t *testing.T, cardType string) map[string]int64 {
	t.Helper()
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := env.db.Model(&models.Card{}).
		Select("status, COUNT(*) as total").
		Where("card_type = ?", cardType).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		t.Fatalf("count statuses failed: %v", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts
}
