package services

import (
	"math"
	"time"

	"gorm.io/gorm"

	"pedidos-app/internal/models"
)

// Flat shipping rule in force: small orders pay a fixed surcharge, larger
// ones ship free.
const (
	shippingFreeThreshold = 30000
	shippingFlatSurcharge = 3000
)

// CalculateShipping returns the shipping adjustment for an order subtotal.
// The shippingType parameter is kept for wire compatibility; the flat rule
// does not differentiate by type.
func CalculateShipping(shippingType string, subtotal float64) int {
	_ = shippingType
	if subtotal < shippingFreeThreshold {
		return shippingFlatSurcharge
	}
	return 0
}

// Deprecated: legacyShippingPercent is the older percentage-based rule
// (fast +10%, cheap -10%, normal 0). Retained for reference only; the flat
// rule above is the one applied to settlement.
func legacyShippingPercent(shippingType string, subtotal float64) int {
	switch shippingType {
	case "fast", "fastest":
		return int(math.Round(subtotal * 0.10))
	case "cheap", "cheapest", "economico":
		return -int(math.Round(subtotal * 0.10))
	default:
		return 0
	}
}

// SettlementService derives authoritative monetary figures (order totals,
// customer debt, utility) from items, purchases and payments. All methods
// are read-only.
type SettlementService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{DB: db, Now: time.Now}
}

// ItemTotal is the billing breakdown of one order item.
type ItemTotal struct {
	ItemID      uint     `json:"item_id"`
	ProductID   uint     `json:"product_id"`
	ProductName string   `json:"product_name"`
	Qty         float64  `json:"qty"`
	Unit        string   `json:"unit"`
	ChargedQty  *float64 `json:"charged_qty"`
	ChargedUnit string   `json:"charged_unit,omitempty"`
	UnitPrice   float64  `json:"unit_price"`
	Total       int      `json:"total"`
}

// OrderTotals aggregates one order: item revenue is rounded per item and
// then summed, never re-rounded at the aggregate level.
type OrderTotals struct {
	OrderID        uint        `json:"order_id"`
	Subtotal       int         `json:"subtotal"`
	Shipping       int         `json:"shipping_amount"`
	Total          int         `json:"total"`
	ExpensesTotal  int         `json:"expenses_total"`
	Cost           float64     `json:"cost"`
	HasCostData    bool        `json:"has_cost_data"`
	UtilityAmount  float64     `json:"utility_amount"`
	UtilityPercent float64     `json:"utility_percent"`
	Items          []ItemTotal `json:"items"`
}

// qtyToCharge prefers the converted quantity whenever present.
func qtyToCharge(item *models.OrderItem) float64 {
	if item.ChargedQty != nil {
		return *item.ChargedQty
	}
	return item.Qty
}

// effectivePrice resolves the price for billing: captured item price, then
// an offer open at the order date, then the catalog sale price, then zero.
func effectivePrice(item *models.OrderItem, offerPrices map[uint]float64) float64 {
	if item.UnitPrice > 0 {
		return item.UnitPrice
	}
	if price, ok := offerPrices[item.ProductID]; ok {
		return price
	}
	return item.Product.SalePrice
}

// itemRevenue rounds to the nearest whole currency unit at the item level.
func itemRevenue(item *models.OrderItem, offerPrices map[uint]float64) int {
	return int(math.Round(qtyToCharge(item) * effectivePrice(item, offerPrices)))
}

// OrderTotals computes the settlement breakdown of one order. Items and
// their products must be preloaded.
func (s *SettlementService) OrderTotals(order *models.Order) (OrderTotals, error) {
	offerPrices, err := offerPricesAt(s.DB, order.CreatedAt)
	if err != nil {
		return OrderTotals{}, err
	}

	totals := OrderTotals{OrderID: order.ID, Items: []ItemTotal{}}
	for i := range order.Items {
		item := &order.Items[i]
		revenue := itemRevenue(item, offerPrices)
		totals.Subtotal += revenue
		totals.Items = append(totals.Items, ItemTotal{
			ItemID:      item.ID,
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Qty:         item.Qty,
			Unit:        item.Unit,
			ChargedQty:  item.ChargedQty,
			ChargedUnit: item.ChargedUnit,
			UnitPrice:   effectivePrice(item, offerPrices),
			Total:       revenue,
		})
		// Partial-cost orders still count as having cost data.
		if item.Cost != nil {
			totals.Cost += qtyToCharge(item) * *item.Cost
			totals.HasCostData = true
		}
	}

	totals.Shipping = CalculateShipping(order.ShippingType, float64(totals.Subtotal))
	totals.Total = totals.Subtotal + totals.Shipping
	for _, e := range order.Expenses {
		totals.ExpensesTotal += e.Amount
	}

	if totals.HasCostData && totals.Total > 0 {
		totals.UtilityAmount = float64(totals.Total) - totals.Cost
		totals.UtilityPercent = totals.UtilityAmount / float64(totals.Total) * 100
	}
	return totals, nil
}

// OrderDebt is one order's contribution to a customer's debt, restricted to
// that customer's items.
type OrderDebt struct {
	OrderID      uint               `json:"order_id"`
	OrderDate    time.Time          `json:"order_date"`
	OrderStatus  models.OrderStatus `json:"order_status"`
	ShippingType string             `json:"shipping_type"`
	Subtotal     int                `json:"subtotal"`
	Shipping     int                `json:"shipping_amount"`
	Total        int                `json:"total"`
	Items        []ItemTotal        `json:"items"`
}

// DebtSummary is the authoritative balance for one customer.
type DebtSummary struct {
	TotalDebt   int         `json:"total_debt"`
	TotalPaid   int         `json:"total_paid"`
	PendingDebt int         `json:"pending_debt"`
	Orders      []OrderDebt `json:"orders"`
}

// CustomerDebt sums order totals over billable orders containing the
// customer's items, then subtracts the flat payment ledger.
func (s *SettlementService) CustomerDebt(customerID uint) (DebtSummary, error) {
	summary := DebtSummary{Orders: []OrderDebt{}}

	var orders []models.Order
	err := s.DB.
		Preload("Items").Preload("Items.Product").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("order_items.customer_id = ?", customerID).
		Where("orders.status IN ?", []models.OrderStatus{models.StatusCompleted, models.StatusEmitted, "finalized"}).
		Group("orders.id").
		Find(&orders).Error
	if err != nil {
		return summary, err
	}

	for i := range orders {
		order := &orders[i]
		offerPrices, err := offerPricesAt(s.DB, order.CreatedAt)
		if err != nil {
			return summary, err
		}

		debt := OrderDebt{
			OrderID:      order.ID,
			OrderDate:    order.CreatedAt,
			OrderStatus:  order.Status.Normalized(),
			ShippingType: order.ShippingType,
			Items:        []ItemTotal{},
		}
		for j := range order.Items {
			item := &order.Items[j]
			if item.CustomerID != customerID {
				continue
			}
			revenue := itemRevenue(item, offerPrices)
			debt.Subtotal += revenue
			debt.Items = append(debt.Items, ItemTotal{
				ItemID:      item.ID,
				ProductID:   item.ProductID,
				ProductName: item.Product.Name,
				Qty:         item.Qty,
				Unit:        item.Unit,
				ChargedQty:  item.ChargedQty,
				ChargedUnit: item.ChargedUnit,
				UnitPrice:   effectivePrice(item, offerPrices),
				Total:       revenue,
			})
		}
		if len(debt.Items) == 0 {
			continue
		}
		debt.Shipping = CalculateShipping(order.ShippingType, float64(debt.Subtotal))
		debt.Total = debt.Subtotal + debt.Shipping
		summary.TotalDebt += debt.Total
		summary.Orders = append(summary.Orders, debt)
	}

	var payments []models.Payment
	if err := s.DB.Where("customer_id = ?", customerID).Find(&payments).Error; err != nil {
		return summary, err
	}
	for _, p := range payments {
		summary.TotalPaid += p.Amount
	}
	summary.PendingDebt = summary.TotalDebt - summary.TotalPaid
	return summary, nil
}
