package models

import "time"

type Customer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Phone       string    `gorm:"size:32;index" json:"phone,omitempty"`
	Email       string    `gorm:"size:120" json:"email,omitempty"`
	Address     string    `gorm:"type:text" json:"address,omitempty"`
	Preferences string    `gorm:"type:text" json:"preferences,omitempty"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
