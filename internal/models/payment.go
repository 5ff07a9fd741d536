package models

import "time"

// Payment is an append-only ledger entry reducing a customer's pending
// debt. Payments are not allocated to specific items.
type Payment struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	CustomerID uint `gorm:"not null;index" json:"customer_id"`

	// Rounded to the whole currency unit.
	Amount int `gorm:"not null" json:"amount"`

	Method    string `gorm:"size:32" json:"method,omitempty"`
	Reference string `gorm:"size:120" json:"reference,omitempty"`

	Customer Customer `gorm:"foreignKey:CustomerID" json:"-"`

	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}
