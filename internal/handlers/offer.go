package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"pedidos-app/internal/httpx"
	"pedidos-app/internal/models"
	"pedidos-app/internal/validation"
)

type OfferHandler struct {
	DB *gorm.DB
}

func NewOfferHandler(db *gorm.DB) *OfferHandler { return &OfferHandler{DB: db} }

// List returns all offers, or only those open right now with ?current=1.
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Order("start_date desc")
	if v := r.URL.Query().Get("current"); v == "1" || v == "true" {
		now := time.Now()
		dbq = dbq.Where("active = ? AND start_date <= ? AND end_date >= ?", true, now, now)
	}
	var offers []models.WeeklyOffer
	if err := dbq.Find(&offers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_offers", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, offers)
}

func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ProductID    uint      `json:"product_id"`
		SpecialPrice int       `json:"special_price"`
		StartDate    time.Time `json:"start_date"`
		EndDate      time.Time `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	if input.ProductID == 0 {
		v["product_id"] = "required"
	}
	validation.PositiveInt("special_price", input.SpecialPrice, v)
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		v["dates"] = "start_date and end_date are required"
	} else if input.EndDate.Before(input.StartDate) {
		v["end_date"] = "must not precede start_date"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var product models.Product
	if err := h.DB.First(&product, input.ProductID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return
	}

	offer := models.WeeklyOffer{
		ProductID:    input.ProductID,
		SpecialPrice: input.SpecialPrice,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		Active:       true,
	}
	if err := h.DB.Create(&offer).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "offer_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, offer)
}

func (h *OfferHandler) Update(w http.ResponseWriter, r *http.Request) {
	offer, ok := h.find(w, r)
	if !ok {
		return
	}
	var body struct {
		SpecialPrice *int       `json:"special_price"`
		StartDate    *time.Time `json:"start_date"`
		EndDate      *time.Time `json:"end_date"`
		Active       *bool      `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if body.SpecialPrice != nil {
		v := validation.Violations{}
		validation.PositiveInt("special_price", *body.SpecialPrice, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		offer.SpecialPrice = *body.SpecialPrice
	}
	if body.StartDate != nil {
		offer.StartDate = *body.StartDate
	}
	if body.EndDate != nil {
		offer.EndDate = *body.EndDate
	}
	if offer.EndDate.Before(offer.StartDate) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			validation.Violations{"end_date": "must not precede start_date"})
		return
	}
	if body.Active != nil {
		offer.Active = *body.Active
	}
	if err := h.DB.Save(&offer).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *OfferHandler) Delete(w http.ResponseWriter, r *http.Request) {
	offer, ok := h.find(w, r)
	if !ok {
		return
	}
	if err := h.DB.Delete(&offer).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": offer.ID})
}

func (h *OfferHandler) find(w http.ResponseWriter, r *http.Request) (models.WeeklyOffer, bool) {
	var offer models.WeeklyOffer
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return offer, false
	}
	if err := h.DB.First(&offer, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "offer_not_found", nil)
		return offer, false
	}
	return offer, true
}
