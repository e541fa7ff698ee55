/*
entry.go - History entry direct edit and deletion

PROTOCOLS IN THIS FILE:
  EditHistoryEntry    overwrite one entry's balance and date in place
  DeleteHistoryEntry  discard a manual entry, or resolve a linked entry
                      to its transaction and delete that instead

THE DELICATE PART:
  Moving an entry's date changes which other entries count as
  "downstream" of it. The correction must hit every affected entry
  exactly once:

    1. shift everything strictly after the OLD date by +delta
    2. moved earlier: entries in [newDate, oldDate) are newly
       downstream, so shift them by +delta too
    3. moved later: entries in (oldDate, newDate] were shifted in step
       1 but are now upstream of the moved entry; reverse with -delta

  The edited entry itself is excluded from every range; it already
  carries its new balance. Double-shifting or mis-ranging an entry
  silently corrupts the ledger, so all four date/balance quadrants are
  covered in entry_test.go.
*/
package ledger

import (
	"context"
	"time"
)

// EditHistoryEntry overwrites an entry's balance and date, shifting the
// rest of the timeline so everything downstream of the entry (under
// its old date or its new one) moves by exactly the balance delta.
func (s *Service) EditHistoryEntry(ctx context.Context, entryID, ownerID string, newBalance int64, newDate time.Time) (*Account, error) {
	if newDate.IsZero() {
		return nil, invalidf("date", "required")
	}

	var accountID string
	err := s.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrEntryNotFound
		}
		if _, err := requireAccount(ctx, tx, entry.AccountID, ownerID); err != nil {
			return err
		}
		accountID = entry.AccountID

		delta := newBalance - entry.Balance
		oldDate := entry.Date

		if err := tx.UpdateEntry(ctx, entry.ID, newBalance, newDate, entry.Reason); err != nil {
			return err
		}

		// Everything that was downstream of the old position.
		after := After(oldDate, false)
		after.ExcludeEntry = entry.ID
		if delta != 0 {
			if err := tx.ShiftEntries(ctx, accountID, after, delta); err != nil {
				return err
			}
		}

		switch {
		case newDate.Before(oldDate):
			// Entries in [newDate, oldDate) are downstream of the new
			// position but were not shifted above.
			r := Between(newDate, true, oldDate, false)
			r.ExcludeEntry = entry.ID
			if delta != 0 {
				if err := tx.ShiftEntries(ctx, accountID, r, delta); err != nil {
					return err
				}
			}
		case newDate.After(oldDate):
			// Entries in (oldDate, newDate] were shifted above but are
			// now upstream of the moved entry; reverse it.
			r := Between(oldDate, false, newDate, true)
			r.ExcludeEntry = entry.ID
			if delta != 0 {
				if err := tx.ShiftEntries(ctx, accountID, r, -delta); err != nil {
					return err
				}
			}
		}

		return ResyncAccountSummary(ctx, tx, accountID, s.now())
	})
	if err != nil {
		return nil, err
	}

	return loadAccountView(ctx, s.store, accountID)
}

// DeleteHistoryEntry discards one history entry. A manual entry is
// simply removed and the summary resynced, with no shifting: removing an
// observation says nothing about the magnitude of later entries. An
// entry linked to a transaction resolves to the Delete-Transaction
// protocol instead, so the sibling entries go with it. Returns every
// affected account, owning account first.
func (s *Service) DeleteHistoryEntry(ctx context.Context, entryID, ownerID string) ([]*Account, error) {
	var affected []string
	err := s.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrEntryNotFound
		}
		if _, err := requireAccount(ctx, tx, entry.AccountID, ownerID); err != nil {
			return err
		}

		if !entry.Manual() {
			spend, err := tx.GetTransaction(ctx, entry.TransactionID)
			if err != nil {
				return err
			}
			if spend == nil {
				return ErrTransactionNotFound
			}
			affected, err = s.deleteTransactionTx(ctx, tx, spend, ownerID)
			return err
		}

		if err := tx.DeleteEntry(ctx, entry.ID); err != nil {
			return err
		}
		affected = []string{entry.AccountID}
		return ResyncAccountSummary(ctx, tx, entry.AccountID, s.now())
	})
	if err != nil {
		return nil, err
	}

	return loadAccountViews(ctx, s.store, affected)
}
