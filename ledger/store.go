/*
store.go - Persistence contract for the ledger engine

PURPOSE:
  Defines the minimal query contract between the mutation protocols and
  the database: point reads, date-ordered scans, bulk balance shifts,
  and atomic multi-statement transactions. The engine never talks to a
  database directly; it talks to a Store handle, and every protocol runs
  against the handle of one open transaction.

TRANSACTION MODEL:
  TxStore.WithTx executes a function with a Store bound to an open
  transaction. If the function returns an error the transaction is
  rolled back; otherwise it is committed. The handle is threaded as an
  explicit parameter through every nested call, never ambient state,
  so a protocol composed of many reads and writes is all-or-nothing.

ORDERING:
  "Latest entry" ties on equal dates are broken deterministically by
  creation time, then id. Implementations must preserve this or the
  denormalized account summary becomes nondeterministic.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store (same SQL works on PostgreSQL
    modulo dialect details)
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// SHIFT RANGE - Bounds for a bulk balance shift
// =============================================================================

// ShiftRange selects the history entries of one account whose date
// falls inside the (optionally half-open) range. A nil bound means
// unbounded on that side. ExcludeEntry omits one entry by id, which the
// direct-edit protocol uses to avoid shifting the entry it just moved.
type ShiftRange struct {
	From          *time.Time
	FromInclusive bool
	To            *time.Time
	ToInclusive   bool
	ExcludeEntry  string
}

// After selects entries strictly after date (or on/after, per inclusive).
func After(date time.Time, inclusive bool) ShiftRange {
	d := date
	return ShiftRange{From: &d, FromInclusive: inclusive}
}

// AllEntries selects every entry of the account.
func AllEntries() ShiftRange { return ShiftRange{} }

// Between selects entries between from and to with the given inclusivity.
func Between(from time.Time, fromInclusive bool, to time.Time, toInclusive bool) ShiftRange {
	f, t := from, to
	return ShiftRange{From: &f, FromInclusive: fromInclusive, To: &t, ToInclusive: toInclusive}
}

// =============================================================================
// STORE - Minimal query contract
// =============================================================================

// Store is the persistence contract the protocols run against. Within
// WithTx, the Store passed to the callback is bound to the open
// transaction; reads see the transaction's own writes.
//
// Lookups return (nil, nil) when the id does not resolve; the protocols
// translate that into the NotFound error kinds.
type Store interface {
	// --- accounts ---

	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	FindAccountByName(ctx context.Context, ownerID, name string) (*Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]*Account, error)

	// UpdateAccountSummary writes the denormalized balance/date fields.
	UpdateAccountSummary(ctx context.Context, id string, balance int64, date time.Time) error

	// UpdateAccountDetails writes the descriptive fields only.
	UpdateAccountDetails(ctx context.Context, id string, d AccountDetails) error

	// DeleteAccount removes the account, cascading to its history
	// entries and transactions.
	DeleteAccount(ctx context.Context, id string) error

	// --- history entries ---

	CreateEntry(ctx context.Context, e *HistoryEntry) error
	GetEntry(ctx context.Context, id string) (*HistoryEntry, error)

	// EntryAsOf returns the entry with the greatest date <= date, or nil.
	EntryAsOf(ctx context.Context, accountID string, date time.Time) (*HistoryEntry, error)

	// EntryAfter returns the entry with the smallest date > date, or nil.
	EntryAfter(ctx context.Context, accountID string, date time.Time) (*HistoryEntry, error)

	// EntryInWindow returns any entry with from <= date < to, or nil.
	EntryInWindow(ctx context.Context, accountID string, from, to time.Time) (*HistoryEntry, error)

	// LatestEntry returns the entry with the maximum date, or nil.
	LatestEntry(ctx context.Context, accountID string) (*HistoryEntry, error)

	// ListEntries returns all entries for the account, descending by date.
	ListEntries(ctx context.Context, accountID string) ([]HistoryEntry, error)

	// UpdateEntry overwrites balance/date/reason of one entry in place.
	UpdateEntry(ctx context.Context, id string, balance int64, date time.Time, reason string) error

	// ShiftEntries adds delta to the balance of every entry in the
	// range, as a single bulk update.
	ShiftEntries(ctx context.Context, accountID string, r ShiftRange, delta int64) error

	DeleteEntry(ctx context.Context, id string) error

	// DeleteEntriesByTransaction removes every entry on the account
	// carrying the transaction id, returning how many were removed.
	DeleteEntriesByTransaction(ctx context.Context, accountID, transactionID string) (int64, error)

	// --- transactions ---

	CreateTransaction(ctx context.Context, t *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)

	// ListTransactions returns all transactions for the account,
	// descending by date.
	ListTransactions(ctx context.Context, accountID string) ([]Transaction, error)

	DeleteTransaction(ctx context.Context, id string) error
}

// TxStore is a Store that can open atomic transactions.
type TxStore interface {
	Store

	// WithTx executes fn with a Store bound to one open transaction.
	// fn returning an error rolls the transaction back; nil commits.
	WithTx(ctx context.Context, fn func(Store) error) error
}
