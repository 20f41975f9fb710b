package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

type repayRequest struct {
	Amount decimal.Decimal `json:"amount"`
	TxRef  string          `json:"tx_ref"`
}

func (a *App) RepaymentsCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req repayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		a.error(w, http.StatusBadRequest, "bad_request", "amount must be positive")
		return
	}

	pool, err := a.Funding.Repay(r.Context(), userID, chi.URLParam(r, "id"), domain.RepayRequest{
		Amount: req.Amount,
		TxRef:  req.TxRef,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, pool)
}
