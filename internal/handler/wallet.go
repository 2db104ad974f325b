package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/wallet"
)

type walletTransactionDTO struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Description   string          `json:"description,omitempty"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (h *Handler) walletBalance(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	balance, err := h.wallet.Balance(r.Context(), a.UserID)
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

func (h *Handler) walletTransactions(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	limit, offset := pageParams(r, 50, 200)
	txs, err := h.wallet.History(r.Context(), a.UserID, limit, offset)
	if err != nil {
		respondError(r, w, err)
		return
	}

	dtos := make([]walletTransactionDTO, 0, len(txs))
	for _, t := range txs {
		dtos = append(dtos, walletTransactionDTO{
			ID:            t.ID,
			Type:          string(t.Type),
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Description:   t.Description,
			ReferenceID:   t.ReferenceID,
			CreatedAt:     t.CreatedAt,
		})
	}
	respondData(w, http.StatusOK, dtos)
}

func (h *Handler) walletDeposit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		respondError(r, w, err)
		return
	}

	err := h.wallet.Add(r.Context(), a.UserID, req.Amount, wallet.TypeDeposit, "wallet deposit", "")
	if err != nil {
		respondError(r, w, err)
		return
	}

	balance, err := h.wallet.Balance(r.Context(), a.UserID)
	if err != nil {
		respondError(r, w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

// pageParams reads limit/offset query parameters with a default and cap.
func pageParams(r *http.Request, def, max int) (limit, offset int) {
	limit = def
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, max)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
