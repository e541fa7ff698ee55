/*
timeline.go - Balance Timeline Engine

PURPOSE:
  The three primitive operations every mutation protocol is built from:

    BalanceAsOf          reference balance for an insertion at a date
    ShiftEntriesAfter    translate downstream snapshots by a constant
    ResyncAccountSummary recompute the denormalized account fields

  Because history entries store ABSOLUTE balances, downstream snapshots
  are never recomputed from scratch after an earlier-dated change; they
  are only translated by the delta of that change. Getting the shift
  boundary (strict vs inclusive) right is the whole game; the protocol
  files document their boundary choices at each call site.

FAILURE SEMANTICS:
  All operations run inside the caller's open transaction. Any error
  aborts the whole transaction; a partial timeline shift is never
  visible.
*/
package ledger

import (
	"context"
	"time"
)

// BalanceAsOf returns the balance of the history entry with the
// greatest date <= date for the account, or 0 if none exists. This is
// the reference point for any insertion at that date.
func BalanceAsOf(ctx context.Context, tx Store, accountID string, date time.Time) (int64, error) {
	entry, err := tx.EntryAsOf(ctx, accountID, date)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, nil
	}
	return entry.Balance, nil
}

// ShiftEntriesAfter adds delta (signed) to the balance of every entry
// for the account dated strictly after date (or on/after, when
// inclusive is true), as one atomic bulk update.
func ShiftEntriesAfter(ctx context.Context, tx Store, accountID string, date time.Time, delta int64, inclusive bool) error {
	if delta == 0 {
		return nil
	}
	return tx.ShiftEntries(ctx, accountID, After(date, inclusive), delta)
}

// ResyncAccountSummary reads the entry with the maximum date (ties
// broken deterministically by the store) and writes its balance/date
// onto the account's denormalized fields. With no entries remaining it
// resets to balance 0 as of now.
func ResyncAccountSummary(ctx context.Context, tx Store, accountID string, now time.Time) error {
	latest, err := tx.LatestEntry(ctx, accountID)
	if err != nil {
		return err
	}
	if latest == nil {
		return tx.UpdateAccountSummary(ctx, accountID, 0, now)
	}
	return tx.UpdateAccountSummary(ctx, accountID, latest.Balance, latest.Date)
}
