package services

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pedidos-app/internal/db"
	"pedidos-app/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return gdb
}

func createProduct(t *testing.T, gdb *gorm.DB, name, unit string, salePrice float64) models.Product {
	t.Helper()
	cat := models.Category{Name: "Fruta " + t.Name()}
	if err := gdb.Create(&cat).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	p := models.Product{Name: name, CategoryID: cat.ID, Unit: unit, SalePrice: salePrice, Active: true}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func createOrderWithItem(t *testing.T, gdb *gorm.DB, status models.OrderStatus, productID uint, qty float64, unit string) (models.Order, models.OrderItem) {
	t.Helper()
	customer := models.Customer{Name: "Cliente " + t.Name()}
	if err := gdb.Create(&customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	order := models.Order{Status: status, Source: "manual", ShippingType: "normal"}
	if err := gdb.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	item := models.OrderItem{
		OrderID: order.ID, CustomerID: customer.ID, ProductID: productID,
		Qty: qty, Unit: unit, UnitPrice: 1000,
	}
	if err := gdb.Create(&item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	return order, item
}

func floatPtr(f float64) *float64 { return &f }

func TestApplyPurchaseWithConversion(t *testing.T) {
	gdb := setupDB(t)
	svc := NewConversionService(gdb, zerolog.Nop())

	product := createProduct(t, gdb, "Palta", models.UnitUnit, 800)
	order, item := createOrderWithItem(t, gdb, models.StatusEmitted, product.ID, 3, models.UnitUnit)

	// 10 units bought, weighing 2 kg total, for 5000.
	purchase, result, err := svc.ApplyPurchase(PurchaseInput{
		ProductID: product.ID, Qty: 10, Unit: models.UnitUnit,
		PriceTotal: 5000, PricePerUnit: 500,
		ConversionQty: floatPtr(2), ConversionUnit: models.UnitKG,
	})
	if err != nil {
		t.Fatalf("ApplyPurchase: %v", err)
	}

	// Cost is spread over the charged quantity: 5000 / 2 kg.
	if result.CostPerChargedUnit != 2500 {
		t.Fatalf("cost per charged unit = %v, want 2500", result.CostPerChargedUnit)
	}
	if purchase.UnitsPerKG == nil || *purchase.UnitsPerKG != 5 {
		t.Fatalf("purchase units_per_kg = %v, want 5", purchase.UnitsPerKG)
	}

	var got models.Product
	if err := gdb.First(&got, product.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.PurchasePrice == nil || *got.PurchasePrice != 2500 {
		t.Fatalf("product purchase price = %v, want 2500", got.PurchasePrice)
	}
	if got.AvgUnitsPerKG == nil || *got.AvgUnitsPerKG != 5 {
		t.Fatalf("avg units per kg = %v, want 5", got.AvgUnitsPerKG)
	}

	// 3 units at 5 units/kg charge as 0.6 kg.
	var gotItem models.OrderItem
	if err := gdb.First(&gotItem, item.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotItem.ChargedQty == nil || *gotItem.ChargedQty != 0.6 {
		t.Fatalf("charged qty = %v, want 0.6", gotItem.ChargedQty)
	}
	if gotItem.ChargedUnit != models.UnitKG {
		t.Fatalf("charged unit = %q, want kg", gotItem.ChargedUnit)
	}
	if gotItem.Cost == nil || *gotItem.Cost != 2500 {
		t.Fatalf("item cost = %v, want 2500", gotItem.Cost)
	}
	if result.UpdatedItems != 1 {
		t.Fatalf("updated items = %d, want 1", result.UpdatedItems)
	}

	// The emitted order is now fully costed and graduates to completed.
	var gotOrder models.Order
	if err := gdb.First(&gotOrder, order.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotOrder.Status != models.StatusCompleted {
		t.Fatalf("order status = %q, want completed", gotOrder.Status)
	}
	if gotOrder.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if len(result.CompletedOrders) != 1 || result.CompletedOrders[0] != order.ID {
		t.Fatalf("completed orders = %v, want [%d]", result.CompletedOrders, order.ID)
	}

	var history []models.PriceHistory
	if err := gdb.Where("product_id = ?", product.ID).Find(&history).Error; err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].PurchasePrice != 2500 {
		t.Fatalf("price history = %+v, want one row at 2500", history)
	}
}

func TestApplyPurchaseKgToUnitConversion(t *testing.T) {
	gdb := setupDB(t)
	svc := NewConversionService(gdb, zerolog.Nop())

	product := createProduct(t, gdb, "Sandia", models.UnitKG, 1200)
	_, item := createOrderWithItem(t, gdb, models.StatusEmitted, product.ID, 4, models.UnitKG)

	// 2 kg bought that came out as 10 units: inverse factor, still 5 u/kg.
	_, result, err := svc.ApplyPurchase(PurchaseInput{
		ProductID: product.ID, Qty: 2, Unit: models.UnitKG,
		PriceTotal: 5000, PricePerUnit: 2500,
		ConversionQty: floatPtr(10), ConversionUnit: models.UnitUnit,
	})
	if err != nil {
		t.Fatalf("ApplyPurchase: %v", err)
	}
	if result.CostPerChargedUnit != 500 {
		t.Fatalf("cost per charged unit = %v, want 500", result.CostPerChargedUnit)
	}

	var got models.Product
	if err := gdb.First(&got, product.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.AvgUnitsPerKG == nil || *got.AvgUnitsPerKG != 5 {
		t.Fatalf("avg units per kg = %v, want 5", got.AvgUnitsPerKG)
	}

	// 4 kg at 5 units/kg charges as 20 units.
	var gotItem models.OrderItem
	if err := gdb.First(&gotItem, item.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotItem.ChargedQty == nil || *gotItem.ChargedQty != 20 {
		t.Fatalf("charged qty = %v, want 20", gotItem.ChargedQty)
	}
	if gotItem.ChargedUnit != models.UnitUnit {
		t.Fatalf("charged unit = %q, want unit", gotItem.ChargedUnit)
	}
}

func TestApplyPurchaseWithoutConversion(t *testing.T) {
	gdb := setupDB(t)
	svc := NewConversionService(gdb, zerolog.Nop())

	product := createProduct(t, gdb, "Tomate", models.UnitKG, 900)
	_, item := createOrderWithItem(t, gdb, models.StatusEmitted, product.ID, 2, models.UnitKG)

	_, result, err := svc.ApplyPurchase(PurchaseInput{
		ProductID: product.ID, Qty: 20, Unit: models.UnitKG,
		PriceTotal: 10000, PricePerUnit: 500,
	})
	if err != nil {
		t.Fatalf("ApplyPurchase: %v", err)
	}
	if result.CostPerChargedUnit != 500 {
		t.Fatalf("cost per charged unit = %v, want 500", result.CostPerChargedUnit)
	}

	var gotItem models.OrderItem
	if err := gdb.First(&gotItem, item.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotItem.ChargedQty != nil {
		t.Fatalf("charged qty = %v, want nil without a conversion pair", gotItem.ChargedQty)
	}
	if gotItem.Cost == nil || *gotItem.Cost != 500 {
		t.Fatalf("item cost = %v, want 500", gotItem.Cost)
	}
}

func TestApplyPurchaseChargedQtyImmutable(t *testing.T) {
	gdb := setupDB(t)
	svc := NewConversionService(gdb, zerolog.Nop())

	product := createProduct(t, gdb, "Mango", models.UnitUnit, 700)
	_, item := createOrderWithItem(t, gdb, models.StatusEmitted, product.ID, 3, models.UnitUnit)

	// First purchase converts the item.
	if _, _, err := svc.ApplyPurchase(PurchaseInput{
		ProductID: product.ID, Qty: 10, Unit: models.UnitUnit,
		PriceTotal: 5000, PricePerUnit: 500,
		ConversionQty: floatPtr(2), ConversionUnit: models.UnitKG,
	}); err != nil {
		t.Fatalf("first purchase: %v", err)
	}

	// A second purchase with a different factor must not move it.
	if _, _, err := svc.ApplyPurchase(PurchaseInput{
		ProductID: product.ID, Qty: 10, Unit: models.UnitUnit,
		PriceTotal: 8000, PricePerUnit: 800,
		ConversionQty: floatPtr(4), ConversionUnit: models.UnitKG,
	}); err != nil {
		t.Fatalf("second purchase: %v", err)
	}

	var gotItem models.OrderItem
	if err := gdb.First(&gotItem, item.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotItem.ChargedQty == nil || *gotItem.ChargedQty != 0.6 {
		t.Fatalf("charged qty = %v, want the original 0.6", gotItem.ChargedQty)
	}
}

func TestApplyPurchaseCompletedOrderCostImmutable(t *testing.T) {
	gdb := setupDB(t)
	svc := NewConversionService(gdb, zerolog.Nop())

	product := createProduct(t, gdb, "Papa", models.UnitKG, 600)
	_, item := createOrderWithItem(t, gdb, models.StatusCompleted, product.ID, 5, models.UnitKG)

	oldCost := 400.0
	item.Cost = &oldCost
	if err := gdb.Save(&item).Error; err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.ApplyPurchase(PurchaseInput{
		ProductID: product.ID, Qty: 30, Unit: models.UnitKG,
		PriceTotal: 21000, PricePerUnit: 700,
	}); err != nil {
		t.Fatalf("ApplyPurchase: %v", err)
	}

	var gotItem models.OrderItem
	if err := gdb.First(&gotItem, item.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotItem.Cost == nil || *gotItem.Cost != 400 {
		t.Fatalf("cost = %v, want frozen 400 on completed order", gotItem.Cost)
	}
}

func TestApplyPurchaseValidation(t *testing.T) {
	gdb := setupDB(t)
	svc := NewConversionService(gdb, zerolog.Nop())
	product := createProduct(t, gdb, "Uva", models.UnitKG, 1500)

	cases := []struct {
		name string
		in   PurchaseInput
		want error
	}{
		{
			"missing product",
			PurchaseInput{ProductID: 9999, Qty: 1, Unit: models.UnitKG, PriceTotal: 100, PricePerUnit: 100},
			ErrProductNotFound,
		},
		{
			"zero qty",
			PurchaseInput{ProductID: product.ID, Qty: 0, Unit: models.UnitKG, PriceTotal: 100, PricePerUnit: 100},
			ErrInvalidPurchase,
		},
		{
			"bad unit",
			PurchaseInput{ProductID: product.ID, Qty: 1, Unit: "litros", PriceTotal: 100, PricePerUnit: 100},
			ErrInvalidPurchase,
		},
		{
			"half conversion pair",
			PurchaseInput{ProductID: product.ID, Qty: 1, Unit: models.UnitKG, PriceTotal: 100, PricePerUnit: 100,
				ConversionQty: floatPtr(2)},
			ErrHalfConversion,
		},
		{
			"negative conversion qty",
			PurchaseInput{ProductID: product.ID, Qty: 1, Unit: models.UnitKG, PriceTotal: 100, PricePerUnit: 100,
				ConversionQty: floatPtr(-2), ConversionUnit: models.UnitUnit},
			ErrInvalidPurchase,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.ApplyPurchase(tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// Rejected inputs must leave no purchase rows behind.
	var count int64
	if err := gdb.Model(&models.Purchase{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("purchase count = %d, want 0", count)
	}
}

func TestConversionFactorRoundTrip(t *testing.T) {
	forward, ok := conversionFactor(models.UnitUnit, models.UnitKG, 10, 2)
	if !ok || forward != 5 {
		t.Fatalf("forward factor = %v ok=%v, want 5", forward, ok)
	}
	back, ok := conversionFactor(models.UnitKG, models.UnitUnit, 2, 10)
	if !ok || back != 5 {
		t.Fatalf("inverse factor = %v ok=%v, want 5", back, ok)
	}
	if _, ok := conversionFactor(models.UnitKG, models.UnitKG, 2, 10); ok {
		t.Fatal("same-unit pair must not produce a factor")
	}
}

func TestChargeQtyGuards(t *testing.T) {
	if q, ok := chargeQty(3, models.UnitKG, models.UnitKG, nil); !ok || q != 3 {
		t.Fatalf("identity conversion = %v ok=%v", q, ok)
	}
	if _, ok := chargeQty(3, models.UnitUnit, models.UnitKG, nil); ok {
		t.Fatal("missing factor must not convert")
	}
	zero := 0.0
	if _, ok := chargeQty(3, models.UnitUnit, models.UnitKG, &zero); ok {
		t.Fatal("zero factor must not convert")
	}
}
