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

type PaymentHandler struct {
	DB *gorm.DB
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler { return &PaymentHandler{DB: db} }

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Order("date desc")
	if v := r.URL.Query().Get("customer_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			dbq = dbq.Where("customer_id = ?", id)
		}
	}
	var payments []models.Payment
	if err := dbq.Find(&payments).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_payments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var payment models.Payment
	if err := h.DB.First(&payment, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "payment_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// Create adds to the customer's flat payment ledger. Payments are not
// allocated to specific orders; debt is ledger total vs billable total.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CustomerID uint       `json:"customer_id"`
		Amount     int        `json:"amount"`
		Method     string     `json:"method"`
		Reference  string     `json:"reference"`
		Notes      string     `json:"notes"`
		Date       *time.Time `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	if input.CustomerID == 0 {
		v["customer_id"] = "required"
	}
	validation.PositiveInt("amount", input.Amount, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var customer models.Customer
	if err := h.DB.First(&customer, input.CustomerID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		return
	}

	payment := models.Payment{
		CustomerID: input.CustomerID,
		Amount:     input.Amount,
		Method:     input.Method,
		Reference:  input.Reference,
		Notes:      input.Notes,
		Date:       time.Now(),
	}
	if input.Date != nil {
		payment.Date = *input.Date
	}
	if err := h.DB.Create(&payment).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "payment_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Delete(&models.Payment{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "payment_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
