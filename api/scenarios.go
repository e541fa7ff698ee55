/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the caller's accounts
	with realistic data for testing and demos. Each scenario creates
	accounts, earnings, and spendings through the regular service
	protocols so every balance timeline is internally consistent.

AVAILABLE SCENARIOS:

	frequent-flyer:  One airline program with earnings and a redemption
	card-transfers:  Credit card with signup bonus + partner transfers
	backfill:        Retroactive earnings and spendings on a stale account

HOW SCENARIOS WORK:
 1. Delete the caller's existing accounts
 2. Create accounts via CreateAccount (signup bonus backfill included)
 3. Record earnings and spendings via the normal protocols

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "card-transfers"}

NOTE:

	Scenarios wipe the caller's accounts. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError, owner resolution
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/loyalty-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "frequent-flyer",
		Name:        "Frequent Flyer",
		Description: "Single airline program: flight earnings and an award redemption",
	},
	{
		ID:          "card-transfers",
		Name:        "Card Transfers",
		Description: "Credit card with signup bonus, portal spend, and partner transfers",
	},
	{
		ID:          "backfill",
		Name:        "Statement Backfill",
		Description: "Retroactive earnings and spendings entered after the fact",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the scenario the caller last loaded, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	current := h.scenarioFor(ownerID)
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario wipes the caller's accounts and loads a predefined
// scenario in their place.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.deleteAllAccounts(ctx, ownerID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset accounts", err)
		return
	}
	h.setScenarioFor(ownerID, "")

	var err error
	switch req.ScenarioID {
	case "frequent-flyer":
		err = h.loadFrequentFlyerScenario(ctx, ownerID)
	case "card-transfers":
		err = h.loadCardTransfersScenario(ctx, ownerID)
	case "backfill":
		err = h.loadBackfillScenario(ctx, ownerID)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.setScenarioFor(ownerID, req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) deleteAllAccounts(ctx context.Context, ownerID string) error {
	accounts, err := h.Service.ListAccounts(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if err := h.Service.DeleteAccount(ctx, account.ID, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func daysAgo(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -n)
}

func (h *Handler) loadFrequentFlyerScenario(ctx context.Context, ownerID string) error {
	account, err := h.Service.CreateAccount(ctx, ownerID, ledger.NewAccountData{
		Name:     "United MileagePlus",
		Category: ledger.CategoryAirline,
		Balance:  42000,
		Date:     daysAgo(120),
	})
	if err != nil {
		return err
	}

	earnings := []ledger.EarnData{
		{PointsEarned: 4800, Reason: "SFO-EWR round trip", Date: daysAgo(90)},
		{PointsEarned: 2100, Reason: "Dining program", Date: daysAgo(60)},
		{PointsEarned: 7500, Reason: "SFO-NRT one way", Date: daysAgo(30)},
	}
	for _, e := range earnings {
		if _, err := h.Service.CreateEarn(ctx, account.ID, ownerID, e); err != nil {
			return err
		}
	}

	_, err = h.Service.CreateSpend(ctx, account.ID, ownerID, ledger.SpendData{
		PointsUsed:  25000,
		Method:      ledger.MethodRedeemedForFlight,
		PartnerName: "United",
		Notes:       "Saver award to Denver",
		Date:        daysAgo(14),
	})
	return err
}

func (h *Handler) loadCardTransfersScenario(ctx context.Context, ownerID string) error {
	cardOpen := daysAgo(200)
	card, err := h.Service.CreateAccount(ctx, ownerID, ledger.NewAccountData{
		Name:        "Chase Ultimate Rewards",
		Category:    ledger.CategoryCreditCard,
		Balance:     30000,
		Date:        daysAgo(180),
		CardName:    "Sapphire Preferred",
		CardOpen:    &cardOpen,
		AnnualFee:   95,
		SignupBonus: 60000,
	})
	if err != nil {
		return err
	}

	hotel, err := h.Service.CreateAccount(ctx, ownerID, ledger.NewAccountData{
		Name:     "World of Hyatt",
		Category: ledger.CategoryHotel,
		Balance:  12000,
		Date:     daysAgo(150),
	})
	if err != nil {
		return err
	}

	if _, err := h.Service.CreateEarn(ctx, card.ID, ownerID, ledger.EarnData{
		PointsEarned: 5400,
		Reason:       "Monthly statement",
		Date:         daysAgo(45),
	}); err != nil {
		return err
	}

	// Transfer to an existing program, then to one that gets created
	// lazily by the coordinator.
	spends := []ledger.SpendData{
		{
			PointsUsed:  20000,
			Method:      ledger.MethodTransferToPartner,
			PartnerName: hotel.Name,
			Notes:       "Topping up for a cash+points stay",
			Date:        daysAgo(20),
		},
		{
			PointsUsed:    15000,
			Method:        ledger.MethodTransferToPartner,
			PartnerName:   "Air France Flying Blue",
			TransferBonus: 25,
			Notes:         "25% transfer promo",
			Date:          daysAgo(10),
		},
		{
			PointsUsed: 8000,
			Method:     ledger.MethodSpentOnPortal,
			Notes:      "Rental car through the portal",
			Date:       daysAgo(5),
		},
	}
	for _, sp := range spends {
		if _, err := h.Service.CreateSpend(ctx, card.ID, ownerID, sp); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadBackfillScenario(ctx context.Context, ownerID string) error {
	account, err := h.Service.CreateAccount(ctx, ownerID, ledger.NewAccountData{
		Name:     "Marriott Bonvoy",
		Category: ledger.CategoryHotel,
		Balance:  8000,
		Date:     daysAgo(365),
	})
	if err != nil {
		return err
	}

	// Recent earn first, then statements entered out of order.
	earnings := []ledger.EarnData{
		{PointsEarned: 3000, Reason: "Weekend stay", Date: daysAgo(7)},
		{PointsEarned: 10000, Reason: "Conference block", Date: daysAgo(200)},
		{PointsEarned: 4500, Reason: "Forgotten statement", Date: daysAgo(90)},
	}
	for _, e := range earnings {
		if _, err := h.Service.CreateEarn(ctx, account.ID, ownerID, e); err != nil {
			return err
		}
	}

	// A redemption remembered months late.
	_, err = h.Service.CreateSpend(ctx, account.ID, ownerID, ledger.SpendData{
		PointsUsed:  12000,
		Method:      ledger.MethodRedeemedForHotel,
		PartnerName: "Marriott",
		Notes:       "Award night, entered from an old email",
		Date:        daysAgo(150),
	})
	return err
}
