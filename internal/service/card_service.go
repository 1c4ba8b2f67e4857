package service

import (
	"errors"
	"strings"
	"time"

	"github.com/pinmart/pinmart/internal/logger"
	"github.com/pinmart/pinmart/internal/models"
	"github.com/pinmart/pinmart/internal/repository"

	"github.com/shopspring/decimal"
)

// CardService serves the buyer-facing catalog and the provisioning import.
type CardService struct {
	cardRepo repository.CardRepository
}

// NewCardService creates the card service.
func NewCardService(cardRepo repository.CardRepository) *CardService {
	return &CardService{cardRepo: cardRepo}
}

// TypeSummaries returns the catalog: available count, unit price and face
// value per card type. Types with zero available stock still appear when any
// row of that type exists in another status, so sold-out types read as
// available: 0 rather than vanishing.
func (s *CardService) TypeSummaries() ([]repository.CardTypeSummary, error) {
	summaries, err := s.cardRepo.TypeSummaries()
	if err != nil {
		logger.Errorw("card_type_summaries_failed", "error", err)
		return nil, err
	}
	return summaries, nil
}

// ImportCardInput is one voucher in a provisioning batch.
type ImportCardInput struct {
	CardType  string
	PIN       string
	Serial    string
	FaceValue string
	UnitPrice string
}

// ImportBatch loads pre-minted vouchers into the inventory. Rows enter as
// available; the batch is all-or-nothing.
func (s *CardService) ImportBatch(inputs []ImportCardInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}

	now := time.Now()
	cards := make([]models.Card, 0, len(inputs))
	for i, input := range inputs {
		cardType := strings.TrimSpace(input.CardType)
		pin := strings.TrimSpace(input.PIN)
		if cardType == "" || pin == "" {
			return 0, errors.New("card_type and pin are required")
		}
		faceValue, err := decimal.NewFromString(strings.TrimSpace(input.FaceValue))
		if err != nil {
			logger.Errorw("card_import_bad_face_value", "row", i, "value", input.FaceValue)
			return 0, err
		}
		unitPrice, err := decimal.NewFromString(strings.TrimSpace(input.UnitPrice))
		if err != nil {
			logger.Errorw("card_import_bad_unit_price", "row", i, "value", input.UnitPrice)
			return 0, err
		}
		if unitPrice.IsNegative() || faceValue.IsNegative() {
			return 0, errors.New("amounts must not be negative")
		}
		cards = append(cards, models.Card{
			CardType:  cardType,
			PIN:       pin,
			Serial:    strings.TrimSpace(input.Serial),
			FaceValue: models.NewMoneyFromDecimal(faceValue),
			UnitPrice: models.NewMoneyFromDecimal(unitPrice),
			Status:    models.CardStatusAvailable,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.cardRepo.CreateBatch(cards); err != nil {
		logger.Errorw("card_import_failed", "count", len(cards), "error", err)
		return 0, err
	}
	logger.Infow("card_import_completed", "count", len(cards))
	return len(cards), nil
}
