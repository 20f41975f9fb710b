package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

type investRequest struct {
	Amount           decimal.Decimal          `json:"amount"`
	Tranche          string                   `json:"tranche"`
	TxRef            string                   `json:"tx_ref"`
	TermsAccepted    bool                     `json:"terms_accepted"`
	CatalystConsents *domain.CatalystConsents `json:"catalyst_consents"`
}

func (a *App) InvestmentsCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	tranche, err := domain.ParseTranche(req.Tranche)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	inv, err := a.Funding.Invest(r.Context(), userID, domain.InvestRequest{
		PoolID:           chi.URLParam(r, "id"),
		Amount:           req.Amount,
		Tranche:          tranche,
		TxRef:            req.TxRef,
		TermsAccepted:    req.TermsAccepted,
		CatalystConsents: req.CatalystConsents,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, inv)
}

type quoteRequest struct {
	PoolID  string          `json:"pool_id"`
	Amount  decimal.Decimal `json:"amount"`
	Tranche string          `json:"tranche"`
}

func (a *App) InvestmentsQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.PoolID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "pool_id is required")
		return
	}
	tranche, err := domain.ParseTranche(req.Tranche)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	quote, err := a.Funding.Quote(r.Context(), req.PoolID, req.Amount, tranche)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, quote)
}

func (a *App) Portfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	stats, err := a.Funding.Portfolio(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}
