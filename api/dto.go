/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model
  from the external contract.

POINT FIELDS:
  Point amounts unmarshal from either JSON numbers or the user-entered
  string forms the ledger parser understands ("50k", "12,345"). Dates
  accept RFC3339 or plain "2006-01-02".
*/
package api

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/warp/loyalty-engine/ledger"
)

// =============================================================================
// POINTS - Accepts numbers and user-entered strings
// =============================================================================

// Points is an integer point amount that also unmarshals from strings
// like "50k" or "12,345".
type Points int64

func (p *Points) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, ok := ledger.ParsePoints(str)
		if !ok {
			return fmt.Errorf("unparseable point amount %q", str)
		}
		*p = Points(v)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*p = Points(int64(math.Round(f)))
	return nil
}

// Date accepts RFC3339 timestamps or plain YYYY-MM-DD dates.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t.UTC()
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("unparseable date %q", s)
	}
	d.Time = t.UTC()
	return nil
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	CustomName      string            `json:"customName,omitempty"`
	AccountIDNumber string            `json:"accountIdNumber,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Category        string            `json:"category"`
	Card            string            `json:"card,omitempty"`
	CardOpenDate    *string           `json:"cardOpenDate,omitempty"`
	AnnualFee       int64             `json:"annualFee,omitempty"`
	SignupBonus     int64             `json:"signupBonus,omitempty"`
	Balance         int64             `json:"balance"`
	Date            string            `json:"date"`
	History         []HistoryEntryDTO `json:"history"`
	Spending        []TransactionDTO  `json:"spending"`
}

// HistoryEntryDTO represents one balance snapshot.
type HistoryEntryDTO struct {
	ID            string `json:"id"`
	Balance       int64  `json:"balance"`
	Date          string `json:"date"`
	Reason        string `json:"reason,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// TransactionDTO represents one earn/spend event.
type TransactionDTO struct {
	ID            string `json:"id"`
	PointsUsed    int64  `json:"pointsUsed"`
	Type          string `json:"type"`
	Method        string `json:"method"`
	PartnerName   string `json:"partnerName,omitempty"`
	TransferBonus int64  `json:"transferBonus,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Date          string `json:"date"`
}

func accountDTO(a *ledger.Account) AccountDTO {
	dto := AccountDTO{
		ID:              a.ID,
		Name:            a.Name,
		CustomName:      a.CustomName,
		AccountIDNumber: a.AccountNumber,
		Notes:           a.Notes,
		Category:        string(a.Category),
		Card:            a.CardName,
		AnnualFee:       a.AnnualFee,
		SignupBonus:     a.SignupBonus,
		Balance:         a.Balance,
		Date:            a.Date.UTC().Format(time.RFC3339),
		History:         make([]HistoryEntryDTO, len(a.History)),
		Spending:        make([]TransactionDTO, len(a.Spending)),
	}
	if a.CardOpen != nil {
		s := a.CardOpen.UTC().Format("2006-01-02")
		dto.CardOpenDate = &s
	}
	for i, e := range a.History {
		dto.History[i] = HistoryEntryDTO{
			ID:            e.ID,
			Balance:       e.Balance,
			Date:          e.Date.UTC().Format(time.RFC3339),
			Reason:        e.Reason,
			TransactionID: e.TransactionID,
		}
	}
	for i, t := range a.Spending {
		dto.Spending[i] = TransactionDTO{
			ID:            t.ID,
			PointsUsed:    t.PointsUsed,
			Type:          string(t.Type),
			Method:        t.Method,
			PartnerName:   t.PartnerName,
			TransferBonus: t.TransferBonus,
			Notes:         t.Notes,
			Date:          t.Date.UTC().Format(time.RFC3339),
		}
	}
	return dto
}

func accountDTOs(accounts []*ledger.Account) []AccountDTO {
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = accountDTO(a)
	}
	return dtos
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateAccountRequest creates an account, optionally with credit-card
// metadata triggering the signup-bonus backfill.
type CreateAccountRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Balance      Points `json:"balance"`
	Date         Date   `json:"date"`
	Card         string `json:"card,omitempty"`
	CardOpenDate *Date  `json:"cardOpenDate,omitempty"`
	AnnualFee    Points `json:"annualFee,omitempty"`
	SignupBonus  Points `json:"signupBonus,omitempty"`
}

// UpdateBalanceRequest is the manual balance adjustment.
type UpdateBalanceRequest struct {
	Balance Points `json:"balance"`
	Date    Date   `json:"date"`
	Reason  string `json:"reason,omitempty"`
}

// UpdateDetailsRequest updates descriptive fields only.
type UpdateDetailsRequest struct {
	CustomName      string `json:"customName"`
	AccountIDNumber string `json:"accountIdNumber"`
	Notes           string `json:"notes"`
}

// EarnRequest records an earn event.
type EarnRequest struct {
	PointsEarned Points `json:"pointsEarned"`
	Reason       string `json:"reason"`
	Notes        string `json:"notes,omitempty"`
	Date         Date   `json:"date"`
}

// SpendRequest records (or, on edit, replaces) a spend event.
type SpendRequest struct {
	PointsUsed    Points `json:"pointsUsed"`
	Method        string `json:"method"`
	PartnerName   string `json:"partnerName,omitempty"`
	TransferBonus Points `json:"transferBonus,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Date          Date   `json:"date"`
	AdjustBalance bool   `json:"adjustBalance,omitempty"`
}

func (r SpendRequest) spendData() ledger.SpendData {
	return ledger.SpendData{
		PointsUsed:    int64(r.PointsUsed),
		Method:        r.Method,
		PartnerName:   r.PartnerName,
		TransferBonus: int64(r.TransferBonus),
		Notes:         r.Notes,
		Date:          r.Date.Time,
		AdjustBalance: r.AdjustBalance,
	}
}

// EditHistoryEntryRequest overwrites one entry's balance and date.
type EditHistoryEntryRequest struct {
	Balance Points `json:"balance"`
	Date    Date   `json:"date"`
}
