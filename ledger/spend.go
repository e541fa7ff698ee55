/*
spend.go - Spend protocol and Transfer Coordinator

PROTOCOLS IN THIS FILE:
  CreateSpend        record a spend (optionally transferring to a
                     partner account), with insufficient-balance
                     detection and retroactive auto-correction
  EditSpend          delete-then-recreate inside one transaction
  DeleteTransaction  remove a transaction with all its history entries
                     on both source and partner

RETROACTIVE SPENDS:
  A spend dated before the account's latest entry must not silently
  corrupt downstream snapshots. When the balance at the spend date is
  insufficient:

    - non-retroactive: hard fail (kind Current)
    - retroactive with a balance context (an entry on/before the date):
      fail with kind Retroactive, or, on an AdjustBalance retry,
      shift ALL entries by +pointsUsed first, so subtracting pointsUsed
      at the event date leaves every downstream entry's final value
      unchanged
    - retroactive with no entry on/before the date: infer the prior
      balance from the next entry and materialize an "Automatic Balance
      Adjustment" entry one day before the spend; the adjustment
      absorbs the effect, so no downstream shift is needed

TRANSFERS:
  Method "Transfer to Partner" credits the partner account (looked up
  by name+owner, lazily created with category AIRLINE) with
  pointsUsed plus the rounded percent bonus, tagged with the same
  transaction id, and shifts the partner's downstream entries by the
  credited total.
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
)

// =============================================================================
// CREATE
// =============================================================================

// CreateSpend records a spend event and returns every affected account,
// source first. Fails with InsufficientBalanceError as described above.
func (s *Service) CreateSpend(ctx context.Context, accountID, ownerID string, data SpendData) ([]*Account, error) {
	if err := validateSpendData(data); err != nil {
		return nil, err
	}

	var affected []string
	err := s.store.WithTx(ctx, func(tx Store) error {
		account, err := requireAccount(ctx, tx, accountID, ownerID)
		if err != nil {
			return err
		}
		if !AllowedSpendMethod(account.Category, data.Method) {
			return invalidf("method", "%q is not a spend method for %s accounts", data.Method, account.Category)
		}
		affected, err = s.createSpendTx(ctx, tx, account, ownerID, data)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account", accountID).Int64("points", data.PointsUsed).
		Str("method", data.Method).Msg("spend recorded")

	return loadAccountViews(ctx, s.store, affected)
}

func validateSpendData(data SpendData) error {
	if data.PointsUsed <= 0 {
		return invalidf("pointsUsed", "must be positive")
	}
	if data.Method == "" {
		return invalidf("method", "required")
	}
	if data.Date.IsZero() {
		return invalidf("date", "required")
	}
	if data.Method == MethodTransferToPartner && data.PartnerName == "" {
		return invalidf("partnerName", "required for partner transfers")
	}
	if data.TransferBonus < 0 {
		return invalidf("transferBonus", "must not be negative")
	}
	return nil
}

// createSpendTx runs the spend procedure inside an open transaction and
// returns the affected account ids, source first.
func (s *Service) createSpendTx(ctx context.Context, tx Store, account *Account, ownerID string, data SpendData) ([]string, error) {
	latest, err := tx.LatestEntry(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	retroactive := latest != nil && data.Date.Before(latest.Date)

	balanceAtSpend, err := BalanceAsOf(ctx, tx, account.ID, data.Date)
	if err != nil {
		return nil, err
	}

	// The auto-adjustment-entry branch absorbs the debit itself; every
	// other branch still owes the downstream shift.
	shiftDownstream := true

	if balanceAtSpend < data.PointsUsed {
		if !retroactive {
			return nil, &InsufficientBalanceError{
				Kind:      InsufficientCurrent,
				AccountID: account.ID,
				Date:      data.Date,
				Available: balanceAtSpend,
				Requested: data.PointsUsed,
			}
		}

		anchor, err := tx.EntryAsOf(ctx, account.ID, data.Date)
		if err != nil {
			return nil, err
		}

		switch {
		case anchor != nil:
			// There is a balance context. Raising the whole timeline by
			// pointsUsed keeps every downstream final value unchanged
			// once the debit lands, but only do it when the caller
			// confirmed via AdjustBalance.
			if !data.AdjustBalance {
				return nil, &InsufficientBalanceError{
					Kind:      InsufficientRetroactive,
					AccountID: account.ID,
					Date:      data.Date,
					Available: balanceAtSpend,
					Requested: data.PointsUsed,
				}
			}
			if err := tx.ShiftEntries(ctx, account.ID, AllEntries(), data.PointsUsed); err != nil {
				return nil, err
			}
			balanceAtSpend, err = BalanceAsOf(ctx, tx, account.ID, data.Date)
			if err != nil {
				return nil, err
			}

		default:
			// No entry on/before the date, but history exists after it.
			// Infer the balance just before the spend from the next
			// entry and materialize it; the debit then reproduces the
			// next entry's value exactly, so downstream needs no shift.
			next, err := tx.EntryAfter(ctx, account.ID, data.Date)
			if err != nil {
				return nil, err
			}
			if next == nil {
				// latest said otherwise; treat as corrupt input
				return nil, ErrEntryNotFound
			}
			inferred := next.Balance + data.PointsUsed
			adjustment := &HistoryEntry{
				ID:        uuid.NewString(),
				AccountID: account.ID,
				Balance:   inferred,
				Date:      data.Date.AddDate(0, 0, -1),
				Reason:    "Automatic Balance Adjustment",
			}
			if err := tx.CreateEntry(ctx, adjustment); err != nil {
				return nil, err
			}
			balanceAtSpend = inferred
			shiftDownstream = false
		}
	}

	spend := &Transaction{
		ID:            uuid.NewString(),
		AccountID:     account.ID,
		PointsUsed:    data.PointsUsed,
		Type:          TxSpend,
		Method:        data.Method,
		PartnerName:   data.PartnerName,
		TransferBonus: data.TransferBonus,
		Notes:         data.Notes,
		Date:          data.Date,
	}
	if err := tx.CreateTransaction(ctx, spend); err != nil {
		return nil, err
	}

	debit := &HistoryEntry{
		ID:            uuid.NewString(),
		AccountID:     account.ID,
		Balance:       balanceAtSpend - data.PointsUsed,
		Date:          data.Date,
		Reason:        spendReason(data),
		TransactionID: spend.ID,
	}
	if err := tx.CreateEntry(ctx, debit); err != nil {
		return nil, err
	}

	if shiftDownstream {
		if err := ShiftEntriesAfter(ctx, tx, account.ID, data.Date, -data.PointsUsed, false); err != nil {
			return nil, err
		}
	}

	affected := []string{account.ID}
	if spend.IsTransfer() {
		partnerID, err := s.creditPartner(ctx, tx, account, ownerID, spend.ID, data)
		if err != nil {
			return nil, err
		}
		affected = append(affected, partnerID)
	}

	for _, id := range affected {
		if err := ResyncAccountSummary(ctx, tx, id, s.now()); err != nil {
			return nil, err
		}
	}
	return affected, nil
}

func spendReason(data SpendData) string {
	if data.PartnerName != "" {
		return "Spent: " + data.Method + " - " + data.PartnerName
	}
	return "Spent: " + data.Method
}

// =============================================================================
// TRANSFER COORDINATOR
// =============================================================================

// creditPartner credits the partner account with pointsUsed plus the
// rounded transfer bonus, creating the account when it does not exist
// yet. Partner lookup is by (name, owner) only. Returns the partner
// account id.
func (s *Service) creditPartner(ctx context.Context, tx Store, source *Account, ownerID, transactionID string, data SpendData) (string, error) {
	total := data.PointsUsed + transferBonusPoints(data.PointsUsed, data.TransferBonus)
	reason := "Transfer from " + source.Name

	partner, err := tx.FindAccountByName(ctx, ownerID, data.PartnerName)
	if err != nil {
		return "", err
	}

	if partner == nil {
		now := s.now()
		partner = &Account{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			Name:      data.PartnerName,
			Category:  CategoryAirline, // most transfer targets are airline programs
			Balance:   total,
			Date:      data.Date,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateAccount(ctx, partner); err != nil {
			return "", err
		}
		credit := &HistoryEntry{
			ID:            uuid.NewString(),
			AccountID:     partner.ID,
			Balance:       total,
			Date:          data.Date,
			Reason:        reason,
			TransactionID: transactionID,
		}
		if err := tx.CreateEntry(ctx, credit); err != nil {
			return "", err
		}
		s.log.Info().Str("account", partner.ID).Str("name", data.PartnerName).
			Msg("partner account created for transfer")
		return partner.ID, nil
	}

	balanceAtTransfer, err := BalanceAsOf(ctx, tx, partner.ID, data.Date)
	if err != nil {
		return "", err
	}
	credit := &HistoryEntry{
		ID:            uuid.NewString(),
		AccountID:     partner.ID,
		Balance:       balanceAtTransfer + total,
		Date:          data.Date,
		Reason:        reason,
		TransactionID: transactionID,
	}
	if err := tx.CreateEntry(ctx, credit); err != nil {
		return "", err
	}
	if err := ShiftEntriesAfter(ctx, tx, partner.ID, data.Date, total, false); err != nil {
		return "", err
	}
	return partner.ID, nil
}

// =============================================================================
// EDIT (delete-then-recreate)
// =============================================================================

// EditSpend replaces an existing spend transaction with new parameters.
// Implemented as delete-then-recreate inside ONE transaction, so the
// edit inherits every consistency guarantee of the create path, and a
// failing recreate rolls the delete back too.
func (s *Service) EditSpend(ctx context.Context, transactionID, ownerID string, data SpendData) ([]*Account, error) {
	if err := validateSpendData(data); err != nil {
		return nil, err
	}

	var affected []string
	err := s.store.WithTx(ctx, func(tx Store) error {
		old, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if old == nil {
			return ErrTransactionNotFound
		}

		if _, err := s.deleteTransactionTx(ctx, tx, old, ownerID); err != nil {
			return err
		}

		// Re-read the source: the delete just resynced its summary.
		account, err := requireAccount(ctx, tx, old.AccountID, ownerID)
		if err != nil {
			return err
		}
		if !AllowedSpendMethod(account.Category, data.Method) {
			return invalidf("method", "%q is not a spend method for %s accounts", data.Method, account.Category)
		}

		affected, err = s.createSpendTx(ctx, tx, account, ownerID, data)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("transaction", transactionID).Msg("spend edited")

	return loadAccountViews(ctx, s.store, affected)
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteTransaction removes a transaction and all history entries
// carrying its id (on the partner account too, for transfers), then
// resyncs every affected account. Remaining downstream entries are NOT
// shifted to compensate: deletion undoes the record, not the
// consequence.
func (s *Service) DeleteTransaction(ctx context.Context, transactionID, ownerID string) ([]*Account, error) {
	var affected []string
	err := s.store.WithTx(ctx, func(tx Store) error {
		spend, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if spend == nil {
			return ErrTransactionNotFound
		}
		affected, err = s.deleteTransactionTx(ctx, tx, spend, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("transaction", transactionID).Msg("transaction deleted")

	return loadAccountViews(ctx, s.store, affected)
}

// deleteTransactionTx removes the transaction inside an open
// transaction, returning the affected account ids, source first.
func (s *Service) deleteTransactionTx(ctx context.Context, tx Store, spend *Transaction, ownerID string) ([]string, error) {
	source, err := tx.GetAccount(ctx, spend.AccountID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrAccountNotFound
	}
	if source.OwnerID != ownerID {
		return nil, ErrAccessDenied
	}

	affected := []string{source.ID}

	if spend.IsTransfer() {
		partner, err := tx.FindAccountByName(ctx, ownerID, spend.PartnerName)
		if err != nil {
			return nil, err
		}
		if partner != nil {
			affected = append(affected, partner.ID)
			if _, err := tx.DeleteEntriesByTransaction(ctx, partner.ID, spend.ID); err != nil {
				return nil, err
			}
			if err := ResyncAccountSummary(ctx, tx, partner.ID, s.now()); err != nil {
				return nil, err
			}
		}
	}

	if _, err := tx.DeleteEntriesByTransaction(ctx, source.ID, spend.ID); err != nil {
		return nil, err
	}
	if err := tx.DeleteTransaction(ctx, spend.ID); err != nil {
		return nil, err
	}
	if err := ResyncAccountSummary(ctx, tx, source.ID, s.now()); err != nil {
		return nil, err
	}
	return affected, nil
}
