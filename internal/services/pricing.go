package services

import (
	"time"

	"gorm.io/gorm"

	"pedidos-app/internal/models"
)

// PricingService resolves the effective sale price for an item:
// explicit value > active weekly offer > product sale price.
type PricingService struct {
	DB *gorm.DB
}

func NewPricingService(db *gorm.DB) *PricingService { return &PricingService{DB: db} }

// EffectiveUnitPrice returns the price to capture on a new item for the
// given product at the given instant. Explicit prices are handled by the
// caller; this resolves the offer/catalog fallback.
func (s *PricingService) EffectiveUnitPrice(productID uint, at time.Time) (float64, error) {
	if price, ok, err := s.offerPrice(productID, at); err != nil {
		return 0, err
	} else if ok {
		return price, nil
	}
	var product models.Product
	if err := s.DB.First(&product, productID).Error; err != nil {
		return 0, err
	}
	return product.SalePrice, nil
}

func (s *PricingService) offerPrice(productID uint, at time.Time) (float64, bool, error) {
	var offer models.WeeklyOffer
	err := s.DB.
		Where("product_id = ? AND active = ? AND start_date <= ? AND end_date >= ?", productID, true, at, at).
		Order("start_date desc").
		First(&offer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return float64(offer.SpecialPrice), true, nil
}

// offerPricesAt loads all offer prices open at the given instant, keyed by
// product. Used by settlement to resolve items with no captured price.
func offerPricesAt(db *gorm.DB, at time.Time) (map[uint]float64, error) {
	var offers []models.WeeklyOffer
	err := db.
		Where("active = ? AND start_date <= ? AND end_date >= ?", true, at, at).
		Order("start_date asc").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	prices := make(map[uint]float64, len(offers))
	for _, o := range offers {
		prices[o.ProductID] = float64(o.SpecialPrice)
	}
	return prices, nil
}
