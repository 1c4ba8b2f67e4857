package repository

import (
	"errors"

	"github.com/pinmart/pinmart/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository is the audit trail data access interface. Records
// are insert-only.
type TransactionRepository interface {
	Create(txn *models.Transaction) error
	GetByOrderID(orderID uint) (*models.Transaction, error)
	CountByOrderID(orderID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormTransactionRepository
}

// GormTransactionRepository is the GORM implementation.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates the transaction repository.
func NewTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormTransactionRepository) WithTx(tx *gorm.DB) *GormTransactionRepository {
	if tx == nil {
		return r
	}
	return &GormTransactionRepository{db: tx}
}

// Create inserts an audit record.
func (r *GormTransactionRepository) Create(txn *models.Transaction) error {
	return r.db.Create(txn).Error
}

// GetByOrderID fetches the audit record for an order.
func (r *GormTransactionRepository) GetByOrderID(orderID uint) (*models.Transaction, error) {
	if orderID == 0 {
		return nil, errors.New("invalid order id")
	}
	var txn models.Transaction
	if err := r.db.Where("order_id = ?", orderID).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// CountByOrderID counts audit records for an order.
func (r *GormTransactionRepository) CountByOrderID(orderID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}
