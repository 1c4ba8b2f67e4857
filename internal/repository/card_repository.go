package repository

import (
	"errors"
	"time"

	"github.com/pinmart/pinmart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CardRepository is the voucher inventory data access interface.
type CardRepository interface {
	CreateBatch(cards []models.Card) error
	SelectAvailableForUpdate(cardType string, limit int) ([]models.Card, error)
	Reserve(ids []uint, orderID uint, reservedAt time.Time) (int64, error)
	ReleaseByOrder(orderID uint) (int64, error)
	MarkUsedByOrder(orderID uint, usedAt time.Time) (int64, error)
	ListByOrder(orderID uint) ([]models.Card, error)
	CountAvailable(cardType string) (int64, error)
	CountAvailableByType() (map[string]int64, error)
	TypeSummaries() ([]CardTypeSummary, error)
	WithTx(tx *gorm.DB) *GormCardRepository
}

// CardTypeSummary is one row of the per-type catalog view.
type CardTypeSummary struct {
	CardType  string       `json:"card_type"`
	Available int64        `json:"available"`
	UnitPrice models.Money `json:"unit_price"`
	FaceValue models.Money `json:"face_value"`
}

// GormCardRepository is the GORM implementation.
type GormCardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates the card repository.
func NewCardRepository(db *gorm.DB) *GormCardRepository {
	return &GormCardRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormCardRepository) WithTx(tx *gorm.DB) *GormCardRepository {
	if tx == nil {
		return r
	}
	return &GormCardRepository{db: tx}
}

// CreateBatch inserts provisioned cards.
func (r *GormCardRepository) CreateBatch(cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	return r.db.Create(&cards).Error
}

// SelectAvailableForUpdate picks up to limit available cards of a type,
// locking the rows for the duration of the enclosing transaction. Must be
// called on a repository bound to a transaction via WithTx. SQLite has no
// row locks and rejects FOR UPDATE; its single-writer model makes the
// clause unnecessary there.
func (r *GormCardRepository) SelectAvailableForUpdate(cardType string, limit int) ([]models.Card, error) {
	if cardType == "" || limit <= 0 {
		return nil, errors.New("invalid claim arguments")
	}
	query := r.db
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.Card
	err := query.
		Where("card_type = ? AND status = ?", cardType, models.CardStatusAvailable).
		Order("id asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Reserve claims cards for an order. The status guard makes the update
// conditional: rows already taken by a racing claim are not touched, so the
// caller must compare RowsAffected against the requested quantity and roll
// back on a shortfall.
func (r *GormCardRepository) Reserve(ids []uint, orderID uint, reservedAt time.Time) (int64, error) {
	if len(ids) == 0 || orderID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Card{}).
		Where("id IN ? AND status = ?", ids, models.CardStatusAvailable).
		Updates(map[string]interface{}{
			"status":      models.CardStatusReserved,
			"order_id":    orderID,
			"reserved_at": reservedAt,
			"updated_at":  reservedAt,
		})
	return result.RowsAffected, result.Error
}

// ReleaseByOrder returns an order's reserved cards to the pool. Used cards
// are left alone, which makes release idempotent and safe to call on an
// already finalized order.
func (r *GormCardRepository) ReleaseByOrder(orderID uint) (int64, error) {
	if orderID == 0 {
		return 0, nil
	}
	now := time.Now()
	result := r.db.Model(&models.Card{}).
		Where("order_id = ? AND status = ?", orderID, models.CardStatusReserved).
		Updates(map[string]interface{}{
			"status":      models.CardStatusAvailable,
			"order_id":    nil,
			"reserved_at": nil,
			"updated_at":  now,
		})
	return result.RowsAffected, result.Error
}

// MarkUsedByOrder finalizes an order's reserved cards, keeping the order
// link.
func (r *GormCardRepository) MarkUsedByOrder(orderID uint, usedAt time.Time) (int64, error) {
	if orderID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Card{}).
		Where("order_id = ? AND status = ?", orderID, models.CardStatusReserved).
		Updates(map[string]interface{}{
			"status":      models.CardStatusUsed,
			"used_at":     usedAt,
			"reserved_at": nil,
			"updated_at":  usedAt,
		})
	return result.RowsAffected, result.Error
}

// ListByOrder returns the cards linked to an order.
func (r *GormCardRepository) ListByOrder(orderID uint) ([]models.Card, error) {
	if orderID == 0 {
		return nil, errors.New("invalid order id")
	}
	var rows []models.Card
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountAvailable counts unclaimed stock of one type.
func (r *GormCardRepository) CountAvailable(cardType string) (int64, error) {
	if cardType == "" {
		return 0, errors.New("invalid card type")
	}
	var count int64
	err := r.db.Model(&models.Card{}).
		Where("card_type = ? AND status = ?", cardType, models.CardStatusAvailable).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountAvailableByType counts unclaimed stock grouped by type.
func (r *GormCardRepository) CountAvailableByType() (map[string]int64, error) {
	type countRow struct {
		CardType string
		Total    int64
	}
	var rows []countRow
	err := r.db.Model(&models.Card{}).
		Select("card_type, COUNT(*) as total").
		Where("status = ?", models.CardStatusAvailable).
		Group("card_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.CardType] = row.Total
	}
	return result, nil
}

// TypeSummaries returns the buyer-facing catalog: available count and price
// per type. Sold-out types keep their row with available = 0. Price and face
// value come from the highest-priced row of each type so a mixed batch never
// undercharges.
func (r *GormCardRepository) TypeSummaries() ([]CardTypeSummary, error) {
	var rows []CardTypeSummary
	err := r.db.Model(&models.Card{}).
		Select("card_type, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) as available, MAX(unit_price) as unit_price, MAX(face_value) as face_value", models.CardStatusAvailable).
		Group("card_type").
		Order("card_type asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
