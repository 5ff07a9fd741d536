package models

import "time"

// WeeklyOffer overrides a product's sale price while its validity window
// [StartDate, EndDate] is open.
type WeeklyOffer struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProductID uint `gorm:"not null;index" json:"product_id"`

	SpecialPrice int `gorm:"not null" json:"special_price"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`

	Active bool `gorm:"default:true" json:"active"`

	Product Product `gorm:"foreignKey:ProductID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Covers reports whether the offer applies at the given instant.
func (o WeeklyOffer) Covers(at time.Time) bool {
	return o.Active && !at.Before(o.StartDate) && !at.After(o.EndDate)
}
