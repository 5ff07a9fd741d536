package models

import "time"

// Purchase is an immutable record of a bulk buy. The optional conversion
// pair expresses "Qty purchase-units equal ConversionQty billing-units".
type Purchase struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProductID uint `gorm:"not null;index" json:"product_id"`

	Qty  float64 `gorm:"not null" json:"qty"`
	Unit string  `gorm:"size:16;not null;default:'kg'" json:"unit"`

	PriceTotal   float64 `gorm:"not null" json:"price_total"`
	PricePerUnit float64 `gorm:"not null" json:"price_per_unit"`

	ConversionQty  *float64 `json:"conversion_qty"`
	ConversionUnit string   `gorm:"size:16" json:"conversion_unit,omitempty"`

	// Conversion factor in force after this purchase was applied. Kept on
	// the row so historical factors survive later catalog updates.
	UnitsPerKG *float64 `gorm:"column:units_per_kg" json:"units_per_kg"`

	Product Product `gorm:"foreignKey:ProductID" json:"-"`

	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceHistory is an append-only audit trail of purchase price changes.
type PriceHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProductID     uint      `gorm:"not null;index" json:"product_id"`
	PurchasePrice float64   `gorm:"not null" json:"purchase_price"`
	Date          time.Time `json:"date"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`
}

func (PriceHistory) TableName() string { return "price_history" }
