package services

import (
	"testing"
	"time"

	"pedidos-app/internal/models"
)

func TestCalculateShipping(t *testing.T) {
	cases := []struct {
		subtotal float64
		want     int
	}{
		{0, 3000},
		{25000, 3000},
		{29999, 3000},
		{30000, 0},
		{45000, 0},
	}
	for _, tc := range cases {
		if got := CalculateShipping("normal", tc.subtotal); got != tc.want {
			t.Errorf("CalculateShipping(%v) = %d, want %d", tc.subtotal, got, tc.want)
		}
	}
	// The flat rule ignores the shipping type.
	if got := CalculateShipping("fast", 25000); got != 3000 {
		t.Errorf("fast shipping = %d, want 3000", got)
	}
}

func TestOrderTotalsItemLevelRounding(t *testing.T) {
	gdb := setupDB(t)
	svc := NewSettlementService(gdb)

	product := createProduct(t, gdb, "Tomate", models.UnitKG, 900)
	order, item := createOrderWithItem(t, gdb, models.StatusEmitted, product.ID, 1.5, models.UnitKG)

	item.UnitPrice = 333.33
	if err := gdb.Save(&item).Error; err != nil {
		t.Fatal(err)
	}
	charged := 0.333
	second := models.OrderItem{
		OrderID: order.ID, CustomerID: item.CustomerID, ProductID: product.ID,
		Qty: 1, Unit: models.UnitKG, UnitPrice: 1000,
		ChargedQty: &charged, ChargedUnit: models.UnitKG,
	}
	if err := gdb.Create(&second).Error; err != nil {
		t.Fatal(err)
	}

	var loaded models.Order
	if err := gdb.Preload("Items").Preload("Items.Product").Preload("Expenses").
		First(&loaded, order.ID).Error; err != nil {
		t.Fatal(err)
	}
	totals, err := svc.OrderTotals(&loaded)
	if err != nil {
		t.Fatal(err)
	}

	// round(1.5*333.33)=500 and round(0.333*1000)=333, rounded per item
	// before summing.
	if totals.Subtotal != 833 {
		t.Fatalf("subtotal = %d, want 833", totals.Subtotal)
	}
	if totals.Shipping != 3000 {
		t.Fatalf("shipping = %d, want 3000", totals.Shipping)
	}
	if totals.Total != 3833 {
		t.Fatalf("total = %d, want 3833", totals.Total)
	}
}

func TestOrderTotalsOfferPrecedence(t *testing.T) {
	gdb := setupDB(t)
	svc := NewSettlementService(gdb)

	product := createProduct(t, gdb, "Palta", models.UnitUnit, 800)
	order, item := createOrderWithItem(t, gdb, models.StatusEmitted, product.ID, 2, models.UnitUnit)

	// No captured price: settlement falls back to offer, then catalog.
	item.UnitPrice = 0
	if err := gdb.Save(&item).Error; err != nil {
		t.Fatal(err)
	}
	offer := models.WeeklyOffer{
		ProductID:    product.ID,
		SpecialPrice: 600,
		StartDate:    order.CreatedAt.Add(-24 * time.Hour),
		EndDate:      order.CreatedAt.Add(24 * time.Hour),
		Active:       true,
	}
	if err := gdb.Create(&offer).Error; err != nil {
		t.Fatal(err)
	}

	var loaded models.Order
	if err := gdb.Preload("Items").Preload("Items.Product").First(&loaded, order.ID).Error; err != nil {
		t.Fatal(err)
	}
	totals, err := svc.OrderTotals(&loaded)
	if err != nil {
		t.Fatal(err)
	}
	if totals.Subtotal != 1200 {
		t.Fatalf("subtotal = %d, want 1200 from the offer price", totals.Subtotal)
	}

	// Outside the window the catalog sale price applies.
	if err := gdb.Model(&offer).Update("end_date", order.CreatedAt.Add(-time.Hour)).Error; err != nil {
		t.Fatal(err)
	}
	totals, err = svc.OrderTotals(&loaded)
	if err != nil {
		t.Fatal(err)
	}
	if totals.Subtotal != 1600 {
		t.Fatalf("subtotal = %d, want 1600 from the catalog price", totals.Subtotal)
	}
}

func TestOrderTotalsUtility(t *testing.T) {
	gdb := setupDB(t)
	svc := NewSettlementService(gdb)

	product := createProduct(t, gdb, "Papa", models.UnitKG, 600)
	order, item := createOrderWithItem(t, gdb, models.StatusCompleted, product.ID, 10, models.UnitKG)

	cost := 400.0
	item.UnitPrice = 35000
	item.Cost = &cost
	if err := gdb.Save(&item).Error; err != nil {
		t.Fatal(err)
	}

	var loaded models.Order
	if err := gdb.Preload("Items").Preload("Items.Product").First(&loaded, order.ID).Error; err != nil {
		t.Fatal(err)
	}
	totals, err := svc.OrderTotals(&loaded)
	if err != nil {
		t.Fatal(err)
	}

	// 350000 subtotal ships free; cost 10*400.
	if totals.Total != 350000 {
		t.Fatalf("total = %d, want 350000", totals.Total)
	}
	if !totals.HasCostData || totals.Cost != 4000 {
		t.Fatalf("cost = %v has=%v, want 4000", totals.Cost, totals.HasCostData)
	}
	if totals.UtilityAmount != 346000 {
		t.Fatalf("utility amount = %v, want 346000", totals.UtilityAmount)
	}
	wantPercent := 346000.0 / 350000.0 * 100
	if diff := totals.UtilityPercent - wantPercent; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("utility percent = %v, want %v", totals.UtilityPercent, wantPercent)
	}
}

func TestCustomerDebt(t *testing.T) {
	gdb := setupDB(t)
	svc := NewSettlementService(gdb)

	product := createProduct(t, gdb, "Tomate", models.UnitKG, 900)
	customer := models.Customer{Name: "Zulma"}
	other := models.Customer{Name: "Ana"}
	if err := gdb.Create(&customer).Error; err != nil {
		t.Fatal(err)
	}
	if err := gdb.Create(&other).Error; err != nil {
		t.Fatal(err)
	}

	addOrder := func(status models.OrderStatus, customerID uint, qty float64) models.Order {
		order := models.Order{Status: status, Source: "manual", ShippingType: "normal"}
		if err := gdb.Create(&order).Error; err != nil {
			t.Fatal(err)
		}
		item := models.OrderItem{
			OrderID: order.ID, CustomerID: customerID, ProductID: product.ID,
			Qty: qty, Unit: models.UnitKG, UnitPrice: 1000,
		}
		if err := gdb.Create(&item).Error; err != nil {
			t.Fatal(err)
		}
		return order
	}

	addOrder(models.StatusEmitted, customer.ID, 5)    // 5000 + 3000 shipping
	addOrder(models.StatusCompleted, customer.ID, 40) // 40000, free shipping
	addOrder(models.StatusDraft, customer.ID, 100)    // drafts never bill
	addOrder(models.StatusEmitted, other.ID, 7)       // someone else's debt

	payment := models.Payment{CustomerID: customer.ID, Amount: 10000, Date: time.Now()}
	if err := gdb.Create(&payment).Error; err != nil {
		t.Fatal(err)
	}

	summary, err := svc.CustomerDebt(customer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Orders) != 2 {
		t.Fatalf("orders in debt = %d, want 2", len(summary.Orders))
	}
	if summary.TotalDebt != 48000 {
		t.Fatalf("total debt = %d, want 48000", summary.TotalDebt)
	}
	if summary.TotalPaid != 10000 {
		t.Fatalf("total paid = %d, want 10000", summary.TotalPaid)
	}
	if summary.PendingDebt != 38000 {
		t.Fatalf("pending debt = %d, want 38000", summary.PendingDebt)
	}
	if summary.PendingDebt != summary.TotalDebt-summary.TotalPaid {
		t.Fatal("pending debt must equal total debt minus total paid")
	}
}

func TestCustomerDebtSharedOrder(t *testing.T) {
	gdb := setupDB(t)
	svc := NewSettlementService(gdb)

	product := createProduct(t, gdb, "Manzana", models.UnitKG, 700)
	zulma := models.Customer{Name: "Zulma"}
	ana := models.Customer{Name: "Ana"}
	if err := gdb.Create(&zulma).Error; err != nil {
		t.Fatal(err)
	}
	if err := gdb.Create(&ana).Error; err != nil {
		t.Fatal(err)
	}

	// One order with items for both customers: each owes only their share,
	// with shipping computed on that share.
	order := models.Order{Status: models.StatusEmitted, Source: "whatsapp", ShippingType: "normal"}
	if err := gdb.Create(&order).Error; err != nil {
		t.Fatal(err)
	}
	for _, it := range []models.OrderItem{
		{OrderID: order.ID, CustomerID: zulma.ID, ProductID: product.ID, Qty: 3, Unit: models.UnitKG, UnitPrice: 1000},
		{OrderID: order.ID, CustomerID: ana.ID, ProductID: product.ID, Qty: 50, Unit: models.UnitKG, UnitPrice: 1000},
	} {
		item := it
		if err := gdb.Create(&item).Error; err != nil {
			t.Fatal(err)
		}
	}

	zulmaDebt, err := svc.CustomerDebt(zulma.ID)
	if err != nil {
		t.Fatal(err)
	}
	if zulmaDebt.TotalDebt != 6000 { // 3000 + 3000 shipping on the small share
		t.Fatalf("zulma debt = %d, want 6000", zulmaDebt.TotalDebt)
	}

	anaDebt, err := svc.CustomerDebt(ana.ID)
	if err != nil {
		t.Fatal(err)
	}
	if anaDebt.TotalDebt != 50000 { // large share ships free
		t.Fatalf("ana debt = %d, want 50000", anaDebt.TotalDebt)
	}
}
