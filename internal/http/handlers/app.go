package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"vessel/internal/domain"
	"vessel/internal/service"
)

type App struct {
	Funding *service.FundingService
	Logger  zerolog.Logger
}

func NewApp(funding *service.FundingService, logger zerolog.Logger) *App {
	return &App{Funding: funding, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"code": errCode, "message": message})
}

// fail maps domain errors to HTTP responses. Unknown errors are logged and
// surface as an opaque 500.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		configErr     *domain.InvalidConfigurationError
		rangeErr      *domain.AmountRangeError
		shortfallErr  *domain.RepaymentShortfallError
		capacityErr   *domain.TrancheCapacityError
		mismatchErr   *domain.AmountMismatchError
		transitionErr *domain.TransitionError
		pendingErr    *domain.IndeterminateError
	)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "not allowed for this account")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrDuplicateSettlement):
		a.error(w, http.StatusConflict, "duplicate_settlement", err.Error())
	case errors.Is(err, domain.ErrPoolNotOpen):
		a.error(w, http.StatusConflict, "pool_not_open", "pool is not accepting investments")
	case errors.Is(err, domain.ErrCatalystLocked):
		a.error(w, http.StatusForbidden, "catalyst_locked", "catalyst tranche access has not been unlocked")
	case errors.Is(err, domain.ErrTransferNotFound):
		a.error(w, http.StatusUnprocessableEntity, "transfer_not_found", "transfer not found or not yet confirmed")
	case errors.Is(err, domain.ErrTransferReverted):
		a.error(w, http.StatusUnprocessableEntity, "transfer_reverted", "transfer reverted on the ledger")
	case errors.As(err, &validationErr):
		a.error(w, http.StatusBadRequest, "bad_request", validationErr.Error())
	case errors.As(err, &configErr):
		a.error(w, http.StatusBadRequest, "bad_request", configErr.Error())
	case errors.As(err, &rangeErr):
		a.error(w, http.StatusBadRequest, "amount_out_of_range", rangeErr.Error())
	case errors.As(err, &shortfallErr):
		a.error(w, http.StatusUnprocessableEntity, "repayment_short", shortfallErr.Error())
	case errors.As(err, &capacityErr):
		a.error(w, http.StatusConflict, "tranche_capacity", capacityErr.Error())
	case errors.As(err, &mismatchErr):
		a.error(w, http.StatusUnprocessableEntity, "amount_mismatch", mismatchErr.Error())
	case errors.As(err, &transitionErr):
		a.error(w, http.StatusConflict, "invalid_state", transitionErr.Error())
	case errors.As(err, &pendingErr):
		a.error(w, http.StatusAccepted, "settlement_pending", pendingErr.Error())
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// currentUserID reads the authenticated user set by the gateway. Authentication
// itself is terminated upstream.
func (a *App) currentUserID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (a *App) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := a.currentUserID(r)
	if id == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return "", false
	}
	return id, true
}
