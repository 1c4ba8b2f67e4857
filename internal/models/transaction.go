package models

import (
	"time"
)

// Transaction is the immutable audit record written once per completed
// order. Rows are only inserted, never updated.
type Transaction struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	OrderID    uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	Reference  string    `gorm:"index;not null" json:"reference"`
	BuyerEmail string    `gorm:"index;not null" json:"buyer_email"`
	Amount     Money     `gorm:"type:decimal(20,2);not null" json:"amount"`
	Type       string    `gorm:"not null" json:"type"`
	Status     string    `gorm:"not null" json:"status"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the table name.
func (Transaction) TableName() string {
	return "transactions"
}
