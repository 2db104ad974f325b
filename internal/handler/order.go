package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/order"
)

type orderItemDTO struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type orderDTO struct {
	ID              string          `json:"id"`
	BuyerID         string          `json:"buyerId"`
	VendorID        string          `json:"vendorId"`
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	FromCityID      string          `json:"fromCityId"`
	ToCityID        string          `json:"toCityId"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	Phone           string          `json:"phone"`
	Items           []orderItemDTO  `json:"items"`
	CreatedAt       time.Time       `json:"createdAt,omitzero"`
}

func toOrderDTO(o *order.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDTO{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal,
		})
	}
	return orderDTO{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		VendorID:        o.VendorID,
		Status:          string(o.Status),
		Total:           o.Total,
		FromCityID:      o.FromCityID,
		ToCityID:        o.ToCityID,
		ShippingPrice:   o.ShippingPrice,
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		RemainingAmount: o.RemainingAmount,
		ShippingAddress: o.ShippingAddress,
		Phone:           o.Phone,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ToCityID        string `json:"toCityId"`
		ShippingAddress string `json:"shippingAddress"`
		Phone           string `json:"phone"`
		PaymentMethod   string `json:"paymentMethod"`
	}
	if err := decode(r, &req); err != nil {
		respondError(r, w, err)
		return
	}

	orders, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		BuyerID:         a.UserID,
		ToCityID:        req.ToCityID,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		respondError(r, w, err)
		return
	}

	dtos := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	respondData(w, http.StatusCreated, dtos)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), r.PathValue("id"), a)
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondData(w, http.StatusOK, toOrderDTO(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		respondError(r, w, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), order.Status(req.Status), a)
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondData(w, http.StatusOK, toOrderDTO(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Cancel(r.Context(), r.PathValue("id"), a.UserID)
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondData(w, http.StatusOK, toOrderDTO(o))
}

type quoteGroupDTO struct {
	VendorID          string          `json:"vendorId"`
	VendorName        string          `json:"vendorName"`
	FromCityID        string          `json:"fromCityId"`
	ProductsSubtotal  decimal.Decimal `json:"productsSubtotal"`
	ShippingPrice     decimal.Decimal `json:"shippingPrice"`
	ShippingAvailable bool            `json:"shippingAvailable"`
	Total             decimal.Decimal `json:"total"`
	Items             []orderItemDTO  `json:"items"`
}

type quoteDTO struct {
	Groups        []quoteGroupDTO `json:"groups"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
	WalletCovers  bool            `json:"walletCovers"`
	Shortfall     decimal.Decimal `json:"shortfall"`
}

func (h *Handler) priceQuote(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	q, err := h.orders.PriceQuote(r.Context(), a.UserID, r.URL.Query().Get("toCityId"))
	if err != nil {
		respondError(r, w, err)
		return
	}

	dto := quoteDTO{
		Groups:        make([]quoteGroupDTO, 0, len(q.Groups)),
		GrandTotal:    q.GrandTotal,
		WalletBalance: q.WalletBalance,
		WalletCovers:  q.WalletCovers,
		Shortfall:     q.Shortfall,
	}
	for _, g := range q.Groups {
		items := make([]orderItemDTO, 0, len(g.Items))
		for _, it := range g.Items {
			items = append(items, orderItemDTO{
				ID:        it.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
				Subtotal:  it.Subtotal,
			})
		}
		dto.Groups = append(dto.Groups, quoteGroupDTO{
			VendorID:          g.VendorID,
			VendorName:        g.VendorName,
			FromCityID:        g.FromCityID,
			ProductsSubtotal:  g.ProductsSubtotal,
			ShippingPrice:     g.ShippingPrice,
			ShippingAvailable: g.ShippingAvailable,
			Total:             g.Total,
			Items:             items,
		})
	}
	respondData(w, http.StatusOK, dto)
}
