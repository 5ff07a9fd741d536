package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"pedidos-app/internal/httpx"
	"pedidos-app/internal/match"
	"pedidos-app/internal/models"
	"pedidos-app/internal/validation"
)

type ProductHandler struct {
	DB *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler { return &ProductHandler{DB: db} }

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := strings.ToLower(r.URL.Query().Get("active")) != "false"

	dbq := h.DB.Order("name asc")
	if activeOnly {
		dbq = dbq.Where("active = ?", true)
	}
	if v := r.URL.Query().Get("category_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			dbq = dbq.Where("category_id = ?", id)
		}
	}
	var products []models.Product
	if err := dbq.Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

// Suggest is the fuzzy autocomplete endpoint (threshold 60, top 10).
func (h *ProductHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		httpx.JSON(w, http.StatusOK, []match.Suggestion{})
		return
	}
	var products []models.Product
	if err := h.DB.Where("active = ?", true).Order("id asc").Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, match.Suggest(query, products))
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, ok := h.find(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name          string   `json:"name"`
		CategoryID    uint     `json:"category_id"`
		Unit          string   `json:"unit"`
		SalePrice     float64  `json:"sale_price"`
		PurchasePrice *float64 `json:"purchase_price"`
		AvgUnitsPerKG *float64 `json:"avg_units_per_kg"`
		Notes         string   `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	if input.CategoryID == 0 {
		v["category_id"] = "required"
	}
	if input.Unit == "" {
		input.Unit = models.UnitKG
	}
	validation.OneOf("unit", input.Unit, []string{models.UnitKG, models.UnitUnit}, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	p := models.Product{
		Name:          strings.TrimSpace(input.Name),
		CategoryID:    input.CategoryID,
		Unit:          input.Unit,
		SalePrice:     input.SalePrice,
		PurchasePrice: input.PurchasePrice,
		AvgUnitsPerKG: input.AvgUnitsPerKG,
		Notes:         input.Notes,
		Active:        true,
	}
	if err := h.DB.Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "name_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "product_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.find(w, r)
	if !ok {
		return
	}
	var body struct {
		Name             *string  `json:"name"`
		CategoryID       *uint    `json:"category_id"`
		Unit             *string  `json:"unit"`
		SalePrice        *float64 `json:"sale_price"`
		PurchasePrice    *float64 `json:"purchase_price"`
		AvgUnitsPerKG    *float64 `json:"avg_units_per_kg"`
		Notes            *string  `json:"notes"`
		Active           *bool    `json:"active"`
		PriceChangeNotes string   `json:"price_change_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	// A manual purchase-price change is still tracked in the audit trail.
	if body.PurchasePrice != nil &&
		(p.PurchasePrice == nil || *body.PurchasePrice != *p.PurchasePrice) {
		history := models.PriceHistory{
			ProductID:     p.ID,
			PurchasePrice: *body.PurchasePrice,
			Date:          time.Now(),
			Notes:         body.PriceChangeNotes,
		}
		if err := h.DB.Create(&history).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "price_history_failed", nil)
			return
		}
		p.PurchasePrice = body.PurchasePrice
	}

	if body.Name != nil {
		p.Name = strings.TrimSpace(*body.Name)
	}
	if body.CategoryID != nil {
		p.CategoryID = *body.CategoryID
	}
	if body.Unit != nil {
		v := validation.Violations{}
		validation.OneOf("unit", *body.Unit, []string{models.UnitKG, models.UnitUnit}, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		p.Unit = *body.Unit
	}
	if body.SalePrice != nil {
		p.SalePrice = *body.SalePrice
	}
	if body.AvgUnitsPerKG != nil {
		p.AvgUnitsPerKG = body.AvgUnitsPerKG
	}
	if body.Notes != nil {
		p.Notes = *body.Notes
	}
	if body.Active != nil {
		p.Active = *body.Active
	}
	if err := h.DB.Save(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete deactivates the product; catalog rows are never hard-deleted so
// historical items keep their reference.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.find(w, r)
	if !ok {
		return
	}
	p.Active = false
	if err := h.DB.Save(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deactivated": p.ID})
}

func (h *ProductHandler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.find(w, r)
	if !ok {
		return
	}
	var history []models.PriceHistory
	if err := h.DB.Where("product_id = ?", p.ID).Order("date desc").Find(&history).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_history", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}

func (h *ProductHandler) find(w http.ResponseWriter, r *http.Request) (models.Product, bool) {
	var p models.Product
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return p, false
	}
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return p, false
	}
	return p, true
}
