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
	"pedidos-app/internal/services"
	"pedidos-app/internal/validation"
)

type CustomerHandler struct {
	DB         *gorm.DB
	Settlement *services.SettlementService
}

func NewCustomerHandler(db *gorm.DB, settlement *services.SettlementService) *CustomerHandler {
	return &CustomerHandler{DB: db, Settlement: settlement}
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Order("name asc")
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		dbq = dbq.Where("LOWER(name) LIKE LOWER(?)", "%"+q+"%")
	}
	var customers []models.Customer
	if err := dbq.Find(&customers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_customers", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, customers)
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.find(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Debt returns the authoritative balance: billable order totals restricted
// to this customer's items, minus the payment ledger.
func (h *CustomerHandler) Debt(w http.ResponseWriter, r *http.Request) {
	c, ok := h.find(w, r)
	if !ok {
		return
	}
	summary, err := h.Settlement.CustomerDebt(c.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "debt_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"customer": c,
		"debt":     summary,
	})
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Email   string `json:"email"`
		Address string `json:"address"`
		Notes   string `json:"notes"`
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
	c := models.Customer{
		Name:    strings.TrimSpace(input.Name),
		Phone:   input.Phone,
		Email:   input.Email,
		Address: input.Address,
		Notes:   input.Notes,
	}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "customer_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.find(w, r)
	if !ok {
		return
	}
	var body struct {
		Name    *string `json:"name"`
		Phone   *string `json:"phone"`
		Email   *string `json:"email"`
		Address *string `json:"address"`
		Notes   *string `json:"notes"`
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
		c.Name = name
	}
	if body.Phone != nil {
		c.Phone = *body.Phone
	}
	if body.Email != nil {
		c.Email = *body.Email
	}
	if body.Address != nil {
		c.Address = *body.Address
	}
	if body.Notes != nil {
		c.Notes = *body.Notes
	}
	if err := h.DB.Save(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete refuses when the customer still has items on billable orders with
// an unpaid balance.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.find(w, r)
	if !ok {
		return
	}
	summary, err := h.Settlement.CustomerDebt(c.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "debt_failed", nil)
		return
	}
	if summary.PendingDebt > 0 {
		httpx.JSONError(w, http.StatusConflict, "customer_has_pending_debt",
			map[string]any{"pending_debt": summary.PendingDebt})
		return
	}
	if err := h.DB.Delete(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": c.ID})
}

func (h *CustomerHandler) find(w http.ResponseWriter, r *http.Request) (models.Customer, bool) {
	var c models.Customer
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return c, false
	}
	if err := h.DB.First(&c, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		return c, false
	}
	return c, true
}
