package models

import "time"

// Seller mirrors Customer; orders may be attributed to a seller for
// revenue and return-rate reporting.
type Seller struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Phone     string    `gorm:"size:32;index" json:"phone,omitempty"`
	Email     string    `gorm:"size:120" json:"email,omitempty"`
	Address   string    `gorm:"type:text" json:"address,omitempty"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
