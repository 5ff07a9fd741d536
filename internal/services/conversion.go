package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"pedidos-app/internal/models"
)

// ConversionService applies purchase events: it refreshes the product's
// purchase price and conversion factor, back-propagates charged quantities
// and unit costs onto order items, and auto-completes emitted orders once
// all their products are costed.
//
// Callers must serialize concurrent purchases of the same product; the
// per-item read-then-write loop is not safe under interleaving.
type ConversionService struct {
	DB  *gorm.DB
	Log zerolog.Logger
	Now func() time.Time
}

func NewConversionService(db *gorm.DB, log zerolog.Logger) *ConversionService {
	return &ConversionService{DB: db, Log: log, Now: time.Now}
}

// PurchaseInput is the validated payload for a purchase event.
type PurchaseInput struct {
	ProductID      uint     `json:"product_id"`
	Qty            float64  `json:"qty"`
	Unit           string   `json:"unit"`
	PriceTotal     float64  `json:"price_total"`
	PricePerUnit   float64  `json:"price_per_unit"`
	ConversionQty  *float64 `json:"conversion_qty"`
	ConversionUnit string   `json:"conversion_unit"`
	Notes          string   `json:"notes"`
}

// ApplyResult reports the side effects of a purchase application.
type ApplyResult struct {
	UpdatedItems       int     `json:"updated_items"`
	CostPerChargedUnit float64 `json:"cost_per_charged_unit"`
	CompletedOrders    []uint  `json:"completed_orders"`
}

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPurchase = errors.New("invalid purchase")
	ErrHalfConversion  = errors.New("conversion qty and unit must both be present")
)

func (in PurchaseInput) validate() error {
	if in.ProductID == 0 {
		return fmt.Errorf("%w: product_id is required", ErrInvalidPurchase)
	}
	if in.Qty <= 0 {
		return fmt.Errorf("%w: qty must be positive", ErrInvalidPurchase)
	}
	if in.Unit != models.UnitKG && in.Unit != models.UnitUnit {
		return fmt.Errorf("%w: unit must be kg or unit", ErrInvalidPurchase)
	}
	if in.PriceTotal <= 0 || in.PricePerUnit <= 0 {
		return fmt.Errorf("%w: price_total and price_per_unit must be positive", ErrInvalidPurchase)
	}
	hasQty := in.ConversionQty != nil
	hasUnit := in.ConversionUnit != ""
	if hasQty != hasUnit {
		return ErrHalfConversion
	}
	if hasQty && *in.ConversionQty <= 0 {
		return fmt.Errorf("%w: conversion_qty must be positive", ErrInvalidPurchase)
	}
	return nil
}

// ApplyPurchase validates and records a purchase, then runs the conversion
// and cost propagation inside one transaction. Per-item failures are logged
// and skipped so one bad row cannot block the rest of the batch.
func (s *ConversionService) ApplyPurchase(in PurchaseInput) (*models.Purchase, ApplyResult, error) {
	if err := in.validate(); err != nil {
		return nil, ApplyResult{}, err
	}

	var (
		purchase models.Purchase
		result   ApplyResult
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		cost := costPerChargedUnit(in)
		result.CostPerChargedUnit = cost
		product.PurchasePrice = &cost

		purchase = models.Purchase{
			ProductID:      in.ProductID,
			Qty:            in.Qty,
			Unit:           in.Unit,
			PriceTotal:     in.PriceTotal,
			PricePerUnit:   in.PricePerUnit,
			ConversionQty:  in.ConversionQty,
			ConversionUnit: in.ConversionUnit,
			Notes:          in.Notes,
		}

		if in.ConversionQty != nil {
			if factor, ok := conversionFactor(in.Unit, in.ConversionUnit, in.Qty, *in.ConversionQty); ok {
				product.AvgUnitsPerKG = &factor
				purchase.UnitsPerKG = &factor
			}
		}

		if err := tx.Save(&product).Error; err != nil {
			return err
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}

		updated, err := s.propagate(tx, &product, in, cost)
		if err != nil {
			return err
		}
		result.UpdatedItems = updated

		completed, err := s.completeEmittedOrders(tx, product.ID)
		if err != nil {
			return err
		}
		result.CompletedOrders = completed

		history := models.PriceHistory{
			ProductID:     product.ID,
			PurchasePrice: cost,
			Date:          s.now(),
			Notes: fmt.Sprintf("Compra registrada: %g %s por $%g (precio en %s: $%.2f)",
				in.Qty, in.Unit, in.PriceTotal, product.Unit, cost),
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, ApplyResult{}, err
	}
	return &purchase, result, nil
}

// costPerChargedUnit picks the unit cost for billing purposes. When the
// purchase unit already is the charged unit, price_per_unit is taken as-is;
// with a conversion pair the total is spread over the charged quantity.
func costPerChargedUnit(in PurchaseInput) float64 {
	if in.ConversionQty == nil || in.ConversionUnit == "" || in.Unit == in.ConversionUnit {
		return in.PricePerUnit
	}
	return in.PriceTotal / *in.ConversionQty
}

// conversionFactor derives avg units-per-kg from a purchase's conversion
// pair. The two branches are multiplicative inverses of each other.
func conversionFactor(unit, convUnit string, qty, convQty float64) (float64, bool) {
	switch {
	case unit == models.UnitUnit && convUnit == models.UnitKG:
		return qty / convQty, true
	case unit == models.UnitKG && convUnit == models.UnitUnit:
		return convQty / qty, true
	default:
		return 0, false
	}
}

// propagate walks every order item referencing the product. Charged
// quantities already set are settled history and stay untouched; costs are
// only written while the owning order is not completed or while unset.
func (s *ConversionService) propagate(tx *gorm.DB, product *models.Product, in PurchaseInput, cost float64) (int, error) {
	var items []models.OrderItem
	if err := tx.Preload("Order").Where("product_id = ?", product.ID).Find(&items).Error; err != nil {
		return 0, err
	}

	updated := 0
	for i := range items {
		item := &items[i]
		changed := false

		if in.ConversionQty != nil && in.ConversionUnit != "" && item.ChargedQty == nil {
			if qty, ok := chargeQty(item.Qty, item.Unit, in.ConversionUnit, product.AvgUnitsPerKG); ok {
				item.ChargedQty = &qty
				item.ChargedUnit = in.ConversionUnit
				changed = true
			}
		}

		orderCompleted := item.Order.Status.Normalized() == models.StatusCompleted
		if item.Cost == nil || !orderCompleted {
			c := cost
			item.Cost = &c
			changed = true
		}

		if !changed {
			continue
		}
		if err := tx.Save(item).Error; err != nil {
			// One unwritable item must not block conversion of the rest.
			s.Log.Error().Err(err).Uint("item_id", item.ID).Uint("product_id", product.ID).
				Msg("skipping item during purchase propagation")
			continue
		}
		updated++
	}
	return updated, nil
}

// chargeQty converts an entered quantity into the charged unit. Returns
// false when the conversion factor is missing or unusable.
func chargeQty(qty float64, unit, chargedUnit string, factor *float64) (float64, bool) {
	if unit == chargedUnit {
		return qty, true
	}
	if factor == nil || *factor <= 0 {
		return 0, false
	}
	switch {
	case unit == models.UnitUnit && chargedUnit == models.UnitKG:
		return qty / *factor, true
	case unit == models.UnitKG && chargedUnit == models.UnitUnit:
		return qty * *factor, true
	default:
		return 0, false
	}
}

// completeEmittedOrders graduates emitted orders containing the product
// once every item has a recorded cost, or (for older data) every product in
// the order has some purchase price.
func (s *ConversionService) completeEmittedOrders(tx *gorm.DB, productID uint) ([]uint, error) {
	var orders []models.Order
	err := tx.Preload("Items").Preload("Items.Product").
		Where("status = ?", models.StatusEmitted).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	completed := []uint{}
	for i := range orders {
		order := &orders[i]

		hasProduct := false
		for _, item := range order.Items {
			if item.ProductID == productID {
				hasProduct = true
				break
			}
		}
		if !hasProduct {
			continue
		}

		allCosted := true
		for _, item := range order.Items {
			if item.Cost != nil {
				continue
			}
			if item.Product.PurchasePrice == nil {
				allCosted = false
				break
			}
		}
		if !allCosted {
			continue
		}

		now := s.now()
		order.Status = models.StatusCompleted
		order.CompletedAt = &now
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Updates(map[string]any{"status": models.StatusCompleted, "completed_at": now}).Error; err != nil {
			return nil, err
		}
		completed = append(completed, order.ID)
	}
	return completed, nil
}

func (s *ConversionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
