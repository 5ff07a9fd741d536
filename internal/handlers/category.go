package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"pedidos-app/internal/httpx"
	"pedidos-app/internal/models"
	"pedidos-app/internal/validation"
)

type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler { return &CategoryHandler{DB: db} }

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	var categories []models.Category
	if err := h.DB.Order("name asc").Find(&categories).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_categories", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
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
	c := models.Category{Name: strings.TrimSpace(input.Name)}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "category_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}
