package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

func (h *Handler) lanePrice(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}

	q := r.URL.Query()
	price, err := h.shipping.PriceOf(r.Context(), q.Get("fromCityId"), q.Get("toCityId"))
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]decimal.Decimal{"price": price})
}

func (h *Handler) createLane(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	var req struct {
		FromCityID string          `json:"fromCityId"`
		ToCityID   string          `json:"toCityId"`
		Price      decimal.Decimal `json:"price"`
	}
	if err := decode(r, &req); err != nil {
		respondError(r, w, err)
		return
	}

	lane, err := h.shipping.CreateLane(r.Context(), req.FromCityID, req.ToCityID, req.Price)
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondData(w, http.StatusCreated, map[string]any{
		"id":         lane.ID,
		"fromCityId": lane.FromCityID,
		"toCityId":   lane.ToCityID,
		"price":      lane.Price,
	})
}
