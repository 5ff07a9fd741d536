package handlers

import (
	"net/http"

	"pedidos-app/internal/httpx"
	"pedidos-app/internal/services"
)

type KPIHandler struct {
	KPIs *services.KPIService
}

func NewKPIHandler(kpis *services.KPIService) *KPIHandler { return &KPIHandler{KPIs: kpis} }

func (h *KPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.KPIs.GetKPIs()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "kpis_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, kpis)
}
