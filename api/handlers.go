/*
handlers.go - HTTP request handlers

PURPOSE:
  Each handler follows the same pattern:
  1. Resolve the authenticated owner (X-User-ID header; the session
     layer that fills it lives outside this service)
  2. Parse and validate the request
  3. Call one ledger protocol
  4. Serialize the fully updated affected account(s)

ERROR HANDLING:
  - 400: validation errors, invalid input
  - 401: missing owner header
  - 403: entity owned by someone else
  - 404: entity not found
  - 409: insufficient balance (body carries errorCode + shortfall so a
         client can offer the adjust-and-retry flow for the
         retroactive kind)
  - 500: internal errors
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/loyalty-engine/ledger"
)

// ownerHeader carries the authenticated user id, filled by the session
// layer in front of this service.
const ownerHeader = "X-User-ID"

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *ledger.Service
	Log     zerolog.Logger

	// loadedScenarios tracks the last scenario each owner loaded,
	// keyed by owner id. Guarded by mu; handlers run concurrently.
	mu              sync.Mutex
	loadedScenarios map[string]string
}

// NewHandler creates a new handler over the ledger service.
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		Service:         service,
		Log:             log.With().Str("component", "api").Logger(),
		loadedScenarios: make(map[string]string),
	}
}

func (h *Handler) scenarioFor(ownerID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadedScenarios[ownerID]
}

func (h *Handler) setScenarioFor(ownerID, scenarioID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if scenarioID == "" {
		delete(h.loadedScenarios, ownerID)
		return
	}
	h.loadedScenarios[ownerID] = scenarioID
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts for the owner, most recently
// updated first.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	accounts, err := h.Service.ListAccounts(r.Context(), ownerID)
	if err != nil {
		h.writeLedgerError(w, err, "Failed to list accounts")
		return
	}
	writeJSON(w, http.StatusOK, accountDTOs(accounts))
}

// GetAccount returns one account with history and spending attached.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	account, err := h.Service.GetAccount(r.Context(), chi.URLParam(r, "id"), ownerID)
	if err != nil {
		h.writeLedgerError(w, err, "Failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, accountDTO(account))
}

// CreateAccount creates an account seeded with its initial history.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	data := ledger.NewAccountData{
		Name:        req.Name,
		Category:    ledger.Category(req.Category),
		Balance:     int64(req.Balance),
		Date:        req.Date.Time,
		CardName:    req.Card,
		AnnualFee:   int64(req.AnnualFee),
		SignupBonus: int64(req.SignupBonus),
	}
	if req.CardOpenDate != nil {
		data.CardOpen = &req.CardOpenDate.Time
	}

	account, err := h.Service.CreateAccount(r.Context(), ownerID, data)
	if err != nil {
		h.writeLedgerError(w, err, "Failed to create account")
		return
	}
	writeJSON(w, http.StatusCreated, accountDTO(account))
}

// UpdateBalance is the manual balance adjustment protocol.
func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req UpdateBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Service.UpdateBalance(r.Context(), chi.URLParam(r, "id"), ownerID,
		int64(req.Balance), req.Date.Time, req.Reason)
	if err != nil {
		h.writeLedgerError(w, err, "Failed to update balance")
		return
	}
	writeJSON(w, http.StatusOK, accountDTO(account))
}

// UpdateDetails updates the descriptive account fields.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req UpdateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Service.UpdateDetails(r.Context(), chi.URLParam(r, "id"), ownerID,
		ledger.AccountDetails{
			CustomName:    req.CustomName,
			AccountNumber: req.AccountIDNumber,
			Notes:         req.Notes,
		})
	if err != nil {
		h.writeLedgerError(w, err, "Failed to update account details")
		return
	}
	writeJSON(w, http.StatusOK, accountDTO(account))
}

// DeleteAccount removes an account and everything under it.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteAccount(r.Context(), chi.URLParam(r, "id"), ownerID); err != nil {
		h.writeLedgerError(w, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EARN / SPEND HANDLERS
// =============================================================================

// CreateEarn records an earn event.
func (h *Handler) CreateEarn(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req EarnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Service.CreateEarn(r.Context(), chi.URLParam(r, "id"), ownerID,
		ledger.EarnData{
			PointsEarned: int64(req.PointsEarned),
			Reason:       req.Reason,
			Notes:        req.Notes,
			Date:         req.Date.Time,
		})
	if err != nil {
		h.writeLedgerError(w, err, "Failed to record earning")
		return
	}
	writeJSON(w, http.StatusOK, accountDTO(account))
}

// CreateSpend records a spend event, returning every affected account
// (source first; partner too, for transfers).
func (h *Handler) CreateSpend(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	accounts, err := h.Service.CreateSpend(r.Context(), chi.URLParam(r, "id"), ownerID, req.spendData())
	if err != nil {
		h.writeLedgerError(w, err, "Failed to record spending")
		return
	}
	writeJSON(w, http.StatusOK, accountDTOs(accounts))
}

// EditSpend replaces an existing spend transaction (delete-then-recreate
// inside one store transaction).
func (h *Handler) EditSpend(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	accounts, err := h.Service.EditSpend(r.Context(), chi.URLParam(r, "spendID"), ownerID, req.spendData())
	if err != nil {
		h.writeLedgerError(w, err, "Failed to update spending transaction")
		return
	}
	writeJSON(w, http.StatusOK, accountDTOs(accounts))
}

// DeleteSpend deletes a transaction with all its history entries.
func (h *Handler) DeleteSpend(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	accounts, err := h.Service.DeleteTransaction(r.Context(), chi.URLParam(r, "spendID"), ownerID)
	if err != nil {
		h.writeLedgerError(w, err, "Failed to delete spending transaction")
		return
	}
	writeJSON(w, http.StatusOK, accountDTOs(accounts))
}

// =============================================================================
// HISTORY ENTRY HANDLERS
// =============================================================================

// EditHistoryEntry overwrites one entry's balance and date.
func (h *Handler) EditHistoryEntry(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req EditHistoryEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Service.EditHistoryEntry(r.Context(), chi.URLParam(r, "entryID"), ownerID,
		int64(req.Balance), req.Date.Time)
	if err != nil {
		h.writeLedgerError(w, err, "Failed to update history entry")
		return
	}
	writeJSON(w, http.StatusOK, accountDTO(account))
}

// DeleteHistoryEntry discards an entry; entries linked to a transaction
// resolve to the transaction delete protocol.
func (h *Handler) DeleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	accounts, err := h.Service.DeleteHistoryEntry(r.Context(), chi.URLParam(r, "entryID"), ownerID)
	if err != nil {
		h.writeLedgerError(w, err, "Failed to delete history entry")
		return
	}
	writeJSON(w, http.StatusOK, accountDTOs(accounts))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := r.Header.Get(ownerHeader)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return "", false
	}
	return ownerID, true
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, err error, message string) {
	var insufficient *ledger.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     insufficient.Error(),
			"errorCode": string(insufficient.Kind),
			"shortfall": insufficient.Shortfall(),
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ledger.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "Access denied", nil)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
