package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/cart"
)

type cartLineDTO struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type cartLineViewDTO struct {
	cartLineDTO
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type cartViewDTO struct {
	Lines []cartLineViewDTO `json:"lines"`
	Total decimal.Decimal   `json:"total"`
}

func toCartLineDTO(l cart.Line) cartLineDTO {
	return cartLineDTO{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		Size:      l.Size,
		Color:     l.Color,
	}
}

func (h *Handler) addCartLine(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
		Size      string `json:"size"`
		Color     string `json:"color"`
	}
	if err := decode(r, &req); err != nil {
		respondError(r, w, err)
		return
	}

	line, err := h.cart.Add(r.Context(), a.UserID, req.ProductID, req.Quantity, req.Size, req.Color)
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondData(w, http.StatusCreated, toCartLineDTO(*line))
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	view, err := h.cart.View(r.Context(), a.UserID)
	if err != nil {
		respondError(r, w, err)
		return
	}

	dto := cartViewDTO{Lines: make([]cartLineViewDTO, 0, len(view.Lines)), Total: view.Total}
	for _, lv := range view.Lines {
		dto.Lines = append(dto.Lines, cartLineViewDTO{
			cartLineDTO: toCartLineDTO(lv.Line),
			ProductName: lv.ProductName,
			UnitPrice:   lv.UnitPrice,
			Subtotal:    lv.Subtotal,
		})
	}
	respondData(w, http.StatusOK, dto)
}

func (h *Handler) updateCartLine(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		respondError(r, w, err)
		return
	}

	if err := h.cart.UpdateQuantity(r.Context(), a.UserID, r.PathValue("id"), req.Quantity); err != nil {
		respondError(r, w, err)
		return
	}
	respondMessage(w, http.StatusOK, "cart line updated")
}

func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	if err := h.cart.Remove(r.Context(), a.UserID, r.PathValue("id")); err != nil {
		respondError(r, w, err)
		return
	}
	respondMessage(w, http.StatusOK, "cart line removed")
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	if err := h.cart.Clear(r.Context(), a.UserID); err != nil {
		respondError(r, w, err)
		return
	}
	respondMessage(w, http.StatusOK, "cart cleared")
}
