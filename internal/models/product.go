package models

import "time"

// Unit values accepted across the system. Gram inputs are converted to kg
// by the parser, so no "g" unit is ever stored.
const (
	UnitKG   = "kg"
	UnitUnit = "unit"
)

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:80;not null;unique" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a catalog entry. PurchasePrice and AvgUnitsPerKG are maintained
// by the purchase pipeline, not by catalog edits alone.
type Product struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	Name       string   `gorm:"size:120;not null;unique" json:"name"`
	CategoryID uint     `gorm:"not null;index" json:"category_id"`
	Category   Category `gorm:"foreignKey:CategoryID" json:"-"`

	// Last registered purchase price, in the product's billing unit.
	PurchasePrice *float64 `json:"purchase_price"`
	SalePrice     float64  `json:"sale_price"`

	Unit string `gorm:"size:16;not null;default:'kg'" json:"unit"`

	// Conversion factor between count and weight ("X units weigh 1 kg").
	// Refreshed on every purchase that carries a conversion pair.
	AvgUnitsPerKG *float64 `gorm:"column:avg_units_per_kg" json:"avg_units_per_kg"`

	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
