package repository

import (
	"errors"
	"time"

	"github.com/pinmart/pinmart/internal/constants"
	"github.com/pinmart/pinmart/internal/models"

	"gorm.io/gorm"
)

// OrderRepository is the order ledger data access interface.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByReference(reference string) (*models.Order, error)
	TransitionStatus(id uint, from, to string, updates map[string]interface{}) (int64, error)
	ListPendingCreatedBefore(cutoff time.Time, limit int) ([]models.Order, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository is the GORM implementation.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates the order repository.
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create inserts an order.
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID fetches an order with its cards.
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Cards").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByReference fetches an order by payment reference.
func (r *GormOrderRepository) GetByReference(reference string) (*models.Order, error) {
	if reference == "" {
		return nil, errors.New("invalid reference")
	}
	var order models.Order
	if err := r.db.Preload("Cards").Where("reference = ?", reference).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// TransitionStatus performs a guarded status transition. The `from` guard in
// the WHERE clause is what makes terminal states sticky: a second caller
// racing on the same order affects zero rows and can tell from the count.
func (r *GormOrderRepository) TransitionStatus(id uint, from, to string, updates map[string]interface{}) (int64, error) {
	if id == 0 || from == "" || to == "" {
		return 0, errors.New("invalid transition arguments")
	}
	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	return result.RowsAffected, result.Error
}

// ListPendingCreatedBefore returns pending orders older than the cutoff,
// oldest first. Used by the sweep.
func (r *GormOrderRepository) ListPendingCreatedBefore(cutoff time.Time, limit int) ([]models.Order, error) {
	query := r.db.Model(&models.Order{}).
		Where("status = ? AND created_at < ?", constants.OrderStatusPending, cutoff).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
