package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"pedidos-app/internal/httpx"
	"pedidos-app/internal/models"
	"pedidos-app/internal/services"
	"pedidos-app/internal/validation"
)

type PurchaseHandler struct {
	DB         *gorm.DB
	Conversion *services.ConversionService
}

func NewPurchaseHandler(db *gorm.DB, conversion *services.ConversionService) *PurchaseHandler {
	return &PurchaseHandler{DB: db, Conversion: conversion}
}

func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Order("created_at desc")
	if v := r.URL.Query().Get("product_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			dbq = dbq.Where("product_id = ?", id)
		}
	}
	var purchases []models.Purchase
	if err := dbq.Find(&purchases).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_purchases", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, purchases)
}

func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var purchase models.Purchase
	if err := h.DB.First(&purchase, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "purchase_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

// Create records a purchase and runs the conversion pipeline: purchase price
// refresh, charged-qty back-propagation and emitted-order completion.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.PurchaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	purchase, result, err := h.Conversion.ApplyPurchase(input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		case errors.Is(err, services.ErrInvalidPurchase), errors.Is(err, services.ErrHalfConversion):
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
				validation.Violations{"purchase": err.Error()})
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "purchase_failed", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"purchase": purchase,
		"result":   result,
	})
}

// Delete removes only the purchase record. Propagated charged quantities
// and costs stay in place: they are settled history.
func (h *PurchaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Delete(&models.Purchase{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "purchase_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
