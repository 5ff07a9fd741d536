package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"pedidos-app/internal/httpx"
	"pedidos-app/internal/models"
	"pedidos-app/internal/validation"
)

type SellerHandler struct {
	DB *gorm.DB
}

func NewSellerHandler(db *gorm.DB) *SellerHandler { return &SellerHandler{DB: db} }

func (h *SellerHandler) List(w http.ResponseWriter, r *http.Request) {
	var sellers []models.Seller
	if err := h.DB.Order("name asc").Find(&sellers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_sellers", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, sellers)
}

func (h *SellerHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.find(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *SellerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	s := models.Seller{Name: strings.TrimSpace(input.Name), Phone: input.Phone, Notes: input.Notes}
	if err := h.DB.Create(&s).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "seller_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, s)
}

func (h *SellerHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.find(w, r)
	if !ok {
		return
	}
	var body struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
		Notes *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"name": "required"})
			return
		}
		s.Name = name
	}
	if body.Phone != nil {
		s.Phone = *body.Phone
	}
	if body.Notes != nil {
		s.Notes = *body.Notes
	}
	if err := h.DB.Save(&s).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// Delete unlinks the seller from its orders before removing the row, so
// order history survives.
func (h *SellerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.find(w, r)
	if !ok {
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("seller_id = ?", s.ID).
			Update("seller_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": s.ID})
}

func (h *SellerHandler) find(w http.ResponseWriter, r *http.Request) (models.Seller, bool) {
	var s models.Seller
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return s, false
	}
	if err := h.DB.First(&s, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "seller_not_found", nil)
		return s, false
	}
	return s, true
}
