/*
Package ledger provides the core loyalty-point ledger engine.

PURPOSE:
  This package contains the domain types and mutation protocols for
  tracking point/mile balances across a user's loyalty accounts. Every
  balance change (manual adjustment, earn, spend, inter-account
  transfer) is recorded as a history entry in a per-account timeline,
  while the account's denormalized "current balance" stays in sync.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A loyalty program account (airline, hotel, credit card)
  - HistoryEntry: An absolute balance snapshot at a date
  - Transaction: An earn/spend event that produced history entries
  - Category: Tagged variant driving the spend-method vocabulary

THE CENTRAL DESIGN FACT:
  HistoryEntry.Balance is an ABSOLUTE point total as of its date, not a
  delta. Reading "current balance" is trivial (latest entry wins), but
  every insertion, edit, or deletion earlier in the timeline must shift
  the absolute balance of all later entries by a constant to keep their
  snapshots correct. The shift algorithms live in timeline.go and the
  protocol files (earn.go, spend.go, adjust.go).

SEE ALSO:
  - timeline.go: balance-as-of, range shifts, summary resync
  - store.go:    persistence contract the protocols run against
  - errors.go:   error kinds surfaced by the protocols
*/
package ledger

import (
	"time"
)

// =============================================================================
// CATEGORY - Account kind, drives spend-method vocabulary
// =============================================================================

type Category string

const (
	CategoryAirline    Category = "AIRLINE"
	CategoryHotel      Category = "HOTEL"
	CategoryCreditCard Category = "CREDIT_CARD"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryAirline, CategoryHotel, CategoryCreditCard:
		return true
	}
	return false
}

// =============================================================================
// ACCOUNT - A loyalty program account owned by one user
// =============================================================================

// Account is a single loyalty program membership. Balance and Date are
// denormalized from the history: they always equal the balance/date of
// the entry with the maximum date (zero/now when history is empty).
// They are never authored directly; ResyncAccountSummary maintains them.
type Account struct {
	ID      string
	OwnerID string

	Name          string
	CustomName    string
	AccountNumber string // external program membership number
	Notes         string
	Category      Category

	// Credit-card metadata, only meaningful for CategoryCreditCard.
	CardName    string
	CardOpen    *time.Time
	AnnualFee   int64
	SignupBonus int64

	Balance int64
	Date    time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Populated on protocol return values, both descending by date.
	History  []HistoryEntry
	Spending []Transaction
}

// DisplayName prefers the user's custom name over the program name.
func (a *Account) DisplayName() string {
	if a.CustomName != "" {
		return a.CustomName
	}
	return a.Name
}

// =============================================================================
// HISTORY ENTRY - Absolute balance snapshot at a date
// =============================================================================

// HistoryEntry records the account's absolute point total as of Date.
// TransactionID links the entry to the Transaction that produced it;
// it is empty for manually-entered adjustments.
type HistoryEntry struct {
	ID            string
	AccountID     string
	Balance       int64
	Date          time.Time
	Reason        string
	TransactionID string
	CreatedAt     time.Time
}

// Manual reports whether this entry was entered by hand rather than
// produced by an earn/spend transaction.
func (e *HistoryEntry) Manual() bool { return e.TransactionID == "" }

// =============================================================================
// TRANSACTION - An earn or spend event
// =============================================================================

type TransactionType string

const (
	TxEarn  TransactionType = "EARN"
	TxSpend TransactionType = "SPEND"
)

// Transaction is a discrete earn/spend event. It produces exactly one
// history entry on its source account and, for partner transfers, one
// more on the partner account, both tagged with the transaction id.
// PointsUsed is a magnitude, always positive, for both types.
type Transaction struct {
	ID        string
	AccountID string

	PointsUsed    int64
	Type          TransactionType
	Method        string // spend method or earn reason
	PartnerName   string
	TransferBonus int64 // percent, e.g. 30 for a 30% transfer bonus
	Notes         string
	Date          time.Time
	CreatedAt     time.Time
}

// IsTransfer reports whether this spend moved points to a partner
// program. Partner lookup is by (name, owner) only.
func (t *Transaction) IsTransfer() bool {
	return t.Method == MethodTransferToPartner && t.PartnerName != ""
}

// =============================================================================
// INPUTS - Protocol parameter bundles
// =============================================================================

// NewAccountData carries everything CreateAccount needs. Balance/Date
// seed the initial history entry; the card fields additionally trigger
// the signup-bonus backfill for credit cards (see account.go).
type NewAccountData struct {
	Name     string
	Category Category
	Balance  int64
	Date     time.Time

	CardName    string
	CardOpen    *time.Time
	AnnualFee   int64
	SignupBonus int64
}

// EarnData carries the parameters of an earn event.
type EarnData struct {
	PointsEarned int64
	Reason       string
	Notes        string
	Date         time.Time
}

// SpendData carries the parameters of a spend event. AdjustBalance
// requests the retroactive auto-adjustment strategy after a prior
// attempt failed with ErrInsufficientBalance (kind Retroactive).
type SpendData struct {
	PointsUsed    int64
	Method        string
	PartnerName   string
	TransferBonus int64
	Notes         string
	Date          time.Time
	AdjustBalance bool
}

// AccountDetails are the mutable descriptive fields that never touch
// the ledger.
type AccountDetails struct {
	CustomName    string
	AccountNumber string
	Notes         string
}
