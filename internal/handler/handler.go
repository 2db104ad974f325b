// Package handler exposes the marketplace HTTP API. Handlers decode the
// request, resolve the acting identity from gateway headers, delegate to
// the domain services, and render the uniform response envelope.
package handler

import (
	"net/http"

	"github.com/marzouqa/souq-backend/internal/domain/cart"
	"github.com/marzouqa/souq-backend/internal/domain/notify"
	"github.com/marzouqa/souq-backend/internal/domain/order"
	"github.com/marzouqa/souq-backend/internal/domain/shipping"
	"github.com/marzouqa/souq-backend/internal/domain/wallet"
)

// Handler holds the domain collaborators behind the HTTP surface.
type Handler struct {
	cart     *cart.Service
	orders   *order.Service
	wallet   wallet.Ledger
	shipping *shipping.Resolver
	inbox    notify.Inbox
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cartSvc *cart.Service,
	orderSvc *order.Service,
	ledger wallet.Ledger,
	shippingResolver *shipping.Resolver,
	inbox notify.Inbox,
) *Handler {
	return &Handler{
		cart:     cartSvc,
		orders:   orderSvc,
		wallet:   ledger,
		shipping: shippingResolver,
		inbox:    inbox,
	}
}

// Routes returns the API route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/cart", h.addCartLine)
	mux.HandleFunc("GET /api/cart", h.viewCart)
	mux.HandleFunc("PUT /api/cart/{id}", h.updateCartLine)
	mux.HandleFunc("DELETE /api/cart/{id}", h.removeCartLine)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)

	mux.HandleFunc("GET /api/orders/price-quote", h.priceQuote)
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.updateOrderStatus)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)

	mux.HandleFunc("GET /api/wallet", h.walletBalance)
	mux.HandleFunc("GET /api/wallet/transactions", h.walletTransactions)
	mux.HandleFunc("POST /api/wallet/deposit", h.walletDeposit)

	mux.HandleFunc("GET /api/shipping/lanes", h.lanePrice)
	mux.HandleFunc("POST /api/shipping/lanes", h.createLane)

	mux.HandleFunc("GET /api/notifications", h.listNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.markNotificationRead)

	return mux
}
