package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type createPoolRequest struct {
	InvoiceID string `json:"invoice_id"`
}

func (a *App) PoolsCreate(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.InvoiceID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "invoice_id is required")
		return
	}

	pool, err := a.Funding.CreatePool(r.Context(), req.InvoiceID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, pool)
}

func (a *App) PoolsList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	if perPage > 100 {
		perPage = 100
	}

	pools, total, err := a.Funding.ListPools(r.Context(), page, perPage)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":    pools,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (a *App) PoolsGet(w http.ResponseWriter, r *http.Request) {
	pool, err := a.Funding.GetPool(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, pool)
}

func (a *App) PoolByInvoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	pool, err := a.Funding.GetPoolByInvoice(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, pool)
}

func (a *App) PoolsByExporter(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	pools, err := a.Funding.ExporterPools(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": pools})
}

func (a *App) PoolsDisburse(w http.ResponseWriter, r *http.Request) {
	pool, err := a.Funding.Disburse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, pool)
}

func (a *App) PoolsClose(w http.ResponseWriter, r *http.Request) {
	pool, err := a.Funding.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, pool)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
