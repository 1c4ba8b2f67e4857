package models

import (
	"time"
)

const (
	CardStatusAvailable = "available"
	CardStatusReserved  = "reserved"
	CardStatusUsed      = "used"
)

// Card is one pre-minted voucher PIN. Rows are inserted by the provisioning
// seeder and only ever transition between the three statuses; they are never
// deleted.
type Card struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	CardType   string     `gorm:"index;not null" json:"card_type"`
	PIN        string     `gorm:"column:pin;type:text;not null" json:"-"`
	Serial     string     `gorm:"index" json:"serial,omitempty"`
	FaceValue  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"face_value"`
	UnitPrice  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	Status     string     `gorm:"index;not null" json:"status"`
	OrderID    *uint      `gorm:"index" json:"order_id,omitempty"`
	ReservedAt *time.Time `gorm:"index" json:"reserved_at,omitempty"`
	UsedAt     *time.Time `gorm:"index" json:"used_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"index" json:"updated_at"`
}

// TableName sets the table name.
func (Card) TableName() string {
	return "cards"
}
