package service

import (
	"errors"
	"time"

	"github.com/pinmart/pinmart/internal/constants"
	"github.com/pinmart/pinmart/internal/logger"
	"github.com/pinmart/pinmart/internal/models"
	"github.com/pinmart/pinmart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AllocationService owns the reserve and release transitions on card rows.
// Nothing else in the codebase moves a card between available and reserved.
type AllocationService struct {
	db        *gorm.DB
	cardRepo  repository.CardRepository
	orderRepo repository.OrderRepository
}

// NewAllocationService creates the allocation engine.
func NewAllocationService(db *gorm.DB, cardRepo repository.CardRepository, orderRepo repository.OrderRepository) *AllocationService {
	return &AllocationService{
		db:        db,
		cardRepo:  cardRepo,
		orderRepo: orderRepo,
	}
}

// ReserveInput describes one reservation request.
type ReserveInput struct {
	CardType   string
	Quantity   int
	BuyerEmail string
	ClientIP   string
}

// Reserve claims exactly Quantity available cards of the requested type and
// creates the pending order that owns them, in one all-or-nothing
// transaction. The select locks candidate rows and the claim update is
// guarded by status, so two racing calls can never both take the same card:
// the loser's update affects fewer rows than requested and its whole
// transaction rolls back with an InsufficientStockError.
func (s *AllocationService) Reserve(input ReserveInput) (*models.Order, error) {
	if input.CardType == "" || input.Quantity <= 0 {
		return nil, ErrInvalidCheckoutInput
	}

	now := time.Now()
	order := &models.Order{
		Reference:  uuid.NewString(),
		BuyerEmail: input.BuyerEmail,
		CardType:   input.CardType,
		Quantity:   input.Quantity,
		Status:     constants.OrderStatusPending,
		ClientIP:   input.ClientIP,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cardRepo := s.cardRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		rows, err := cardRepo.SelectAvailableForUpdate(input.CardType, input.Quantity)
		if err != nil {
			return err
		}
		if len(rows) < input.Quantity {
			return &InsufficientStockError{
				CardType:  input.CardType,
				Requested: input.Quantity,
				Available: len(rows),
			}
		}

		total := decimal.Zero
		ids := make([]uint, 0, len(rows))
		for _, row := range rows {
			total = total.Add(row.UnitPrice.Decimal)
			ids = append(ids, row.ID)
		}
		order.TotalAmount = models.NewMoneyFromDecimal(total)

		if err := orderRepo.Create(order); err != nil {
			return err
		}

		affected, err := cardRepo.Reserve(ids, order.ID, now)
		if err != nil {
			return err
		}
		if int(affected) != len(ids) {
			// A racing claim took some of the locked rows between select and
			// update. All-or-nothing: surface it as plain shortage.
			available, countErr := cardRepo.CountAvailable(input.CardType)
			if countErr != nil {
				available = affected
			}
			return &InsufficientStockError{
				CardType:  input.CardType,
				Requested: input.Quantity,
				Available: int(available),
			}
		}
		return nil
	})
	if err != nil {
		if stockErr, ok := asInsufficientStock(err); ok {
			logger.Infow("allocation_reserve_insufficient",
				"card_type", input.CardType,
				"requested", input.Quantity,
				"available", stockErr.Available,
			)
			return nil, stockErr
		}
		logger.Errorw("allocation_reserve_failed",
			"card_type", input.CardType,
			"quantity", input.Quantity,
			"error", err,
		)
		return nil, ErrOrderCreateFailed
	}

	logger.Infow("allocation_reserved",
		"order_id", order.ID,
		"reference", order.Reference,
		"card_type", input.CardType,
		"quantity", input.Quantity,
		"total_amount", order.TotalAmount.String(),
	)
	return order, nil
}

// Release returns an order's reserved cards to the pool without touching
// used ones. Idempotent.
func (s *AllocationService) Release(orderID uint) error {
	if orderID == 0 {
		return ErrOrderNotFound
	}
	affected, err := s.cardRepo.ReleaseByOrder(orderID)
	if err != nil {
		logger.Errorw("allocation_release_failed", "order_id", orderID, "error", err)
		return ErrOrderUpdateFailed
	}
	logger.Infow("allocation_released", "order_id", orderID, "cards", affected)
	return nil
}

func asInsufficientStock(err error) (*InsufficientStockError, bool) {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr, true
	}
	return nil, false
}
