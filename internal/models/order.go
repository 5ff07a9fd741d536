package models

import "time"

// OrderStatus is a closed enumeration. Transitions go draft -> emitted ->
// completed; anything else is rejected by CanTransitionTo.
type OrderStatus string

const (
	StatusDraft     OrderStatus = "draft"
	StatusEmitted   OrderStatus = "emitted"
	StatusCompleted OrderStatus = "completed"

	// statusFinalized is a legacy value present in old rows. It is folded
	// into StatusCompleted on read and never written.
	statusFinalized OrderStatus = "finalized"
)

// Normalized maps legacy status values onto the closed set.
func (s OrderStatus) Normalized() OrderStatus {
	if s == statusFinalized {
		return StatusCompleted
	}
	return s
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s.Normalized() {
	case StatusDraft:
		return next == StatusEmitted
	case StatusEmitted:
		return next == StatusCompleted
	default:
		return false
	}
}

// Billable reports whether orders in this status count toward customer debt.
func (s OrderStatus) Billable() bool {
	n := s.Normalized()
	return n == StatusEmitted || n == StatusCompleted
}

// Order groups items from one or more customers plus ad-hoc expenses.
type Order struct {
	ID     uint        `gorm:"primaryKey" json:"id"`
	Status OrderStatus `gorm:"size:20;not null;default:'draft'" json:"status"`

	Source       string `gorm:"size:20;not null;default:'manual'" json:"source"`
	ShippingType string `gorm:"size:20;not null;default:'normal'" json:"shipping_type"`

	SellerID *uint   `gorm:"index" json:"seller_id"`
	Seller   *Seller `gorm:"foreignKey:SellerID" json:"-"`

	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"-"`
	Expenses []Expense   `gorm:"foreignKey:OrderID" json:"-"`

	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	EmittedAt   *time.Time `json:"emitted_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// OrderItem is one product for one customer inside an order. ChargedQty,
// ChargedUnit and Cost are filled in by the purchase pipeline; once an order
// is completed they are settled history and must not drift.
type OrderItem struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	OrderID    uint `gorm:"not null;index" json:"order_id"`
	CustomerID uint `gorm:"not null;index" json:"customer_id"`
	ProductID  uint `gorm:"not null;index" json:"product_id"`

	Qty  float64 `gorm:"not null" json:"qty"`
	Unit string  `gorm:"size:16;not null;default:'kg'" json:"unit"`

	// Effective sale price captured at creation (explicit > weekly offer >
	// catalog sale price). Zero means "resolve at settlement time".
	UnitPrice float64 `json:"unit_price"`

	ChargedQty  *float64 `json:"charged_qty"`
	ChargedUnit string   `gorm:"size:16" json:"charged_unit,omitempty"`

	// Unit cost in the charged unit, captured when the purchase was applied.
	Cost *float64 `json:"cost"`

	// Deprecated: superseded by the customer-level payment ledger.
	Paid bool `gorm:"default:false" json:"paid"`

	Order    Order    `gorm:"foreignKey:OrderID" json:"-"`
	Customer Customer `gorm:"foreignKey:CustomerID" json:"-"`
	Product  Product  `gorm:"foreignKey:ProductID" json:"-"`

	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Expense is an extra amount attached to an order (bags, commissions, ...).
// Amounts are whole currency units.
type Expense struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	Category     string    `gorm:"size:50;not null" json:"category"`
	Amount       int       `gorm:"not null" json:"amount"`
	IsSellerCost bool      `gorm:"default:false;not null" json:"is_seller_cost"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
