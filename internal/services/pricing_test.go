package services

import (
	"testing"
	"time"

	"pedidos-app/internal/models"
)

func TestEffectiveUnitPrice(t *testing.T) {
	gdb := setupDB(t)
	svc := NewPricingService(gdb)

	product := createProduct(t, gdb, "Palta", models.UnitUnit, 800)
	now := time.Now()

	// No offer: catalog price.
	price, err := svc.EffectiveUnitPrice(product.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if price != 800 {
		t.Fatalf("price = %v, want 800", price)
	}

	offer := models.WeeklyOffer{
		ProductID:    product.ID,
		SpecialPrice: 650,
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(time.Hour),
		Active:       true,
	}
	if err := gdb.Create(&offer).Error; err != nil {
		t.Fatal(err)
	}

	price, err = svc.EffectiveUnitPrice(product.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if price != 650 {
		t.Fatalf("price = %v, want the offer price 650", price)
	}

	// Inactive offers are ignored even inside their window.
	if err := gdb.Model(&offer).Update("active", false).Error; err != nil {
		t.Fatal(err)
	}
	price, err = svc.EffectiveUnitPrice(product.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if price != 800 {
		t.Fatalf("price = %v, want 800 with the offer disabled", price)
	}
}

func TestWeeklyOfferCovers(t *testing.T) {
	now := time.Now()
	offer := models.WeeklyOffer{Active: true, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}
	if !offer.Covers(now) {
		t.Fatal("offer should cover now")
	}
	if offer.Covers(now.Add(2 * time.Hour)) {
		t.Fatal("offer should not cover after end")
	}
	offer.Active = false
	if offer.Covers(now) {
		t.Fatal("inactive offer should not cover")
	}
}
