package models

import (
	"time"
)

// Order is one purchase attempt. Status moves pending -> completed or
// pending -> failed, never back.
type Order struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	Reference     string     `gorm:"uniqueIndex;not null" json:"reference"`
	BuyerEmail    string     `gorm:"index;not null" json:"buyer_email"`
	CardType      string     `gorm:"index;not null" json:"card_type"`
	Quantity      int        `gorm:"not null" json:"quantity"`
	TotalAmount   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	Status        string     `gorm:"index;not null" json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	ClientIP      string     `gorm:"type:varchar(64)" json:"client_ip,omitempty"`
	PaidAt        *time.Time `gorm:"index" json:"paid_at,omitempty"`
	ClosedAt      *time.Time `gorm:"index" json:"closed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"index" json:"updated_at"`

	Cards []Card `gorm:"foreignKey:OrderID" json:"cards,omitempty"`
}

// TableName sets the table name.
func (Order) TableName() string {
	return "orders"
}
