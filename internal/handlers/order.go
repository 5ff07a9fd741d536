package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"pedidos-app/internal/httpx"
	"pedidos-app/internal/match"
	"pedidos-app/internal/models"
	"pedidos-app/internal/parser"
	"pedidos-app/internal/services"
	"pedidos-app/internal/validation"
)

type OrderHandler struct {
	DB         *gorm.DB
	Pricing    *services.PricingService
	Settlement *services.SettlementService
}

func NewOrderHandler(db *gorm.DB, pricing *services.PricingService, settlement *services.SettlementService) *OrderHandler {
	return &OrderHandler{DB: db, Pricing: pricing, Settlement: settlement}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Order("created_at desc")
	if status := r.URL.Query().Get("status"); status != "" {
		if status == string(models.StatusCompleted) {
			// Legacy rows still carry the old terminal value.
			dbq = dbq.Where("status IN ?", []string{"completed", "finalized"})
		} else {
			dbq = dbq.Where("status = ?", status)
		}
	}
	var orders []models.Order
	if err := dbq.Find(&orders).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_orders", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.find(w, r, "Items", "Items.Product", "Items.Customer", "Expenses")
	if !ok {
		return
	}
	totals, err := h.Settlement.OrderTotals(&order)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "totals_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"order":  order,
		"items":  order.Items,
		"totals": totals,
	})
}

// parsedLine is one parsed input line joined with its catalog resolution.
type parsedLine struct {
	parser.Item
	Match match.Result `json:"match"`
}

// Parse runs the free-text intake pipeline without touching the database:
// the caller reviews the result and then posts a confirmed order.
func (h *OrderHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if strings.TrimSpace(input.Text) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"text": "required"})
		return
	}

	var products []models.Product
	if err := h.DB.Where("active = ?", true).Order("id asc").Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}

	parsed := parser.ParseOrderText(input.Text)
	lines := make([]parsedLine, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		lines = append(lines, parsedLine{Item: item, Match: match.Match(item.ProductName, products)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":     lines,
		"customers": parsed.Customers,
	})
}

type orderItemInput struct {
	CustomerID   uint     `json:"customer_id"`
	CustomerName string   `json:"customer_name"`
	ProductID    uint     `json:"product_id"`
	ProductName  string   `json:"product_name"`
	Qty          float64  `json:"qty"`
	Unit         string   `json:"unit"`
	UnitPrice    *float64 `json:"unit_price"`
	Notes        string   `json:"notes"`
}

// Create builds a draft order with its items in one transaction. Customers
// may be referenced by id or by name (created on the fly); unknown product
// names are created as inactive placeholders so intake never blocks on the
// catalog.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Source       string           `json:"source"`
		ShippingType string           `json:"shipping_type"`
		SellerID     *uint            `json:"seller_id"`
		Notes        string           `json:"notes"`
		Items        []orderItemInput `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Source == "" {
		input.Source = "manual"
	}
	if input.ShippingType == "" {
		input.ShippingType = "normal"
	}
	v := validation.Violations{}
	if len(input.Items) == 0 {
		v["items"] = "at least one item is required"
	}
	for i, it := range input.Items {
		field := "items[" + strconv.Itoa(i) + "]"
		if it.Qty <= 0 {
			v[field+".qty"] = "must be positive"
		}
		if it.Unit != models.UnitKG && it.Unit != models.UnitUnit {
			v[field+".unit"] = "must be kg or unit"
		}
		if it.CustomerID == 0 && strings.TrimSpace(it.CustomerName) == "" {
			v[field+".customer"] = "customer_id or customer_name is required"
		}
		if it.ProductID == 0 && strings.TrimSpace(it.ProductName) == "" {
			v[field+".product"] = "product_id or product_name is required"
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var order models.Order
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		order = models.Order{
			Status:       models.StatusDraft,
			Source:       input.Source,
			ShippingType: input.ShippingType,
			SellerID:     input.SellerID,
			Notes:        input.Notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, it := range input.Items {
			customerID, err := resolveCustomer(tx, it.CustomerID, it.CustomerName)
			if err != nil {
				return err
			}
			productID, err := resolveProduct(tx, it.ProductID, it.ProductName, it.Unit)
			if err != nil {
				return err
			}

			price := 0.0
			if it.UnitPrice != nil {
				price = *it.UnitPrice
			} else if p, err := h.Pricing.EffectiveUnitPrice(productID, order.CreatedAt); err == nil {
				price = p
			}

			item := models.OrderItem{
				OrderID:    order.ID,
				CustomerID: customerID,
				ProductID:  productID,
				Qty:        it.Qty,
				Unit:       it.Unit,
				UnitPrice:  price,
				Notes:      it.Notes,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "order_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) Emit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusEmitted)
}

func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusCompleted)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, next models.OrderStatus) {
	order, ok := h.find(w, r)
	if !ok {
		return
	}
	if !order.Status.CanTransitionTo(next) {
		httpx.JSONError(w, http.StatusConflict, "invalid_status_transition",
			validation.Violations{"status": string(order.Status.Normalized()) + " -> " + string(next)})
		return
	}
	now := time.Now()
	order.Status = next
	switch next {
	case models.StatusEmitted:
		order.EmittedAt = &now
	case models.StatusCompleted:
		order.CompletedAt = &now
	}
	if err := h.DB.Save(&order).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Delete removes a draft order and its items. Emitted and completed orders
// are settled history and cannot be deleted.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	order, ok := h.find(w, r)
	if !ok {
		return
	}
	if order.Status.Normalized() != models.StatusDraft {
		httpx.JSONError(w, http.StatusConflict, "only_draft_orders_can_be_deleted", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Expense{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": order.ID})
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	order, ok := h.find(w, r)
	if !ok {
		return
	}
	if order.Status.Normalized() == models.StatusCompleted {
		httpx.JSONError(w, http.StatusConflict, "order_already_completed", nil)
		return
	}
	var it orderItemInput
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.PositiveFloat("qty", it.Qty, v)
	validation.OneOf("unit", it.Unit, []string{models.UnitKG, models.UnitUnit}, v)
	if it.CustomerID == 0 && strings.TrimSpace(it.CustomerName) == "" {
		v["customer"] = "customer_id or customer_name is required"
	}
	if it.ProductID == 0 && strings.TrimSpace(it.ProductName) == "" {
		v["product"] = "product_id or product_name is required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var item models.OrderItem
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		customerID, err := resolveCustomer(tx, it.CustomerID, it.CustomerName)
		if err != nil {
			return err
		}
		productID, err := resolveProduct(tx, it.ProductID, it.ProductName, it.Unit)
		if err != nil {
			return err
		}
		price := 0.0
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		} else if p, err := h.Pricing.EffectiveUnitPrice(productID, order.CreatedAt); err == nil {
			price = p
		}
		item = models.OrderItem{
			OrderID:    order.ID,
			CustomerID: customerID,
			ProductID:  productID,
			Qty:        it.Qty,
			Unit:       it.Unit,
			UnitPrice:  price,
			Notes:      it.Notes,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "item_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	order, ok := h.find(w, r)
	if !ok {
		return
	}
	if order.Status.Normalized() == models.StatusCompleted {
		httpx.JSONError(w, http.StatusConflict, "order_already_completed", nil)
		return
	}
	itemID, err := strconv.Atoi(chi.URLParam(r, "itemID"))
	if err != nil || itemID <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var item models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).First(&item, itemID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "item_not_found", nil)
		return
	}
	var body struct {
		Qty       *float64 `json:"qty"`
		Unit      *string  `json:"unit"`
		UnitPrice *float64 `json:"unit_price"`
		Notes     *string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	if body.Qty != nil {
		validation.PositiveFloat("qty", *body.Qty, v)
	}
	if body.Unit != nil {
		validation.OneOf("unit", *body.Unit, []string{models.UnitKG, models.UnitUnit}, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if body.Qty != nil {
		item.Qty = *body.Qty
	}
	if body.Unit != nil {
		item.Unit = *body.Unit
	}
	if body.UnitPrice != nil {
		item.UnitPrice = *body.UnitPrice
	}
	if body.Notes != nil {
		item.Notes = *body.Notes
	}
	if err := h.DB.Save(&item).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	order, ok := h.find(w, r)
	if !ok {
		return
	}
	if order.Status.Normalized() == models.StatusCompleted {
		httpx.JSONError(w, http.StatusConflict, "order_already_completed", nil)
		return
	}
	itemID, err := strconv.Atoi(chi.URLParam(r, "itemID"))
	if err != nil || itemID <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}, itemID)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "item_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": itemID})
}

func (h *OrderHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	order, ok := h.find(w, r)
	if !ok {
		return
	}
	var input struct {
		Category     string `json:"category"`
		Amount       int    `json:"amount"`
		IsSellerCost bool   `json:"is_seller_cost"`
		Description  string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("category", input.Category, v)
	validation.PositiveInt("amount", input.Amount, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	expense := models.Expense{
		OrderID:      order.ID,
		Category:     input.Category,
		Amount:       input.Amount,
		IsSellerCost: input.IsSellerCost,
		Description:  input.Description,
	}
	if err := h.DB.Create(&expense).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "expense_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *OrderHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	order, ok := h.find(w, r)
	if !ok {
		return
	}
	expenseID, err := strconv.Atoi(chi.URLParam(r, "expenseID"))
	if err != nil || expenseID <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Where("order_id = ?", order.ID).Delete(&models.Expense{}, expenseID)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "expense_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": expenseID})
}

func (h *OrderHandler) find(w http.ResponseWriter, r *http.Request, preloads ...string) (models.Order, bool) {
	var order models.Order
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return order, false
	}
	dbq := h.DB
	for _, p := range preloads {
		dbq = dbq.Preload(p)
	}
	if err := dbq.First(&order, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
		return order, false
	}
	return order, true
}

// resolveCustomer returns the given id or finds/creates a customer by name.
// Lookup is case-insensitive on the trimmed name.
func resolveCustomer(tx *gorm.DB, id uint, name string) (uint, error) {
	if id != 0 {
		var c models.Customer
		if err := tx.First(&c, id).Error; err != nil {
			return 0, err
		}
		return c.ID, nil
	}
	name = strings.TrimSpace(name)
	var c models.Customer
	err := tx.Where("LOWER(name) = LOWER(?)", name).First(&c).Error
	if err == nil {
		return c.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}
	c = models.Customer{Name: name}
	if err := tx.Create(&c).Error; err != nil {
		return 0, err
	}
	return c.ID, nil
}

// resolveProduct returns the given id or finds a product by exact name. A
// missing name becomes an inactive zero-priced placeholder to be curated
// later from the catalog screen.
func resolveProduct(tx *gorm.DB, id uint, name, unit string) (uint, error) {
	if id != 0 {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			return 0, err
		}
		return p.ID, nil
	}
	name = strings.TrimSpace(name)
	var p models.Product
	err := tx.Where("LOWER(name) = LOWER(?)", name).First(&p).Error
	if err == nil {
		return p.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	var other models.Category
	if err := tx.Where("name = ?", "Otros").First(&other).Error; err == nil {
		p.CategoryID = other.ID
	} else {
		other = models.Category{Name: "Otros"}
		if err := tx.Create(&other).Error; err != nil {
			return 0, err
		}
		p.CategoryID = other.ID
	}
	p.Name = name
	p.Unit = unit
	p.Active = false
	if err := tx.Create(&p).Error; err != nil {
		return 0, err
	}
	return p.ID, nil
}
