/*
account.go - Account lifecycle and manual balance adjustment

PROTOCOLS IN THIS FILE:
  CreateAccount   seed an account with one history entry, or two when
                  the credit-card signup-bonus backfill applies
  UpdateBalance   "balance is X as of date D" manual adjustment
  UpdateDetails   descriptive fields only, never touches the ledger
  DeleteAccount   cascade delete of history and transactions

SIGNUP-BONUS BACKFILL:
  A credit card created with a positive signup bonus and a known open
  date gets a two-point history: the bonus at an inferred posting date,
  then the stated balance at the stated as-of date. The posting date is
  openDate+90d if that is already past, else yesterday, and is clamped
  to land strictly before the as-of date so the seed timeline is
  monotonically ordered.
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// signupBonusPostingLag approximates how long issuers take to post a
// signup bonus after the card is opened.
const signupBonusPostingLag = 90 // days

// =============================================================================
// CREATE
// =============================================================================

// CreateAccount creates an account for ownerID seeded with its initial
// history, returning the account with history attached.
func (s *Service) CreateAccount(ctx context.Context, ownerID string, data NewAccountData) (*Account, error) {
	if data.Name == "" {
		return nil, invalidf("name", "required")
	}
	if !ValidCategory(data.Category) {
		return nil, invalidf("category", "must be one of AIRLINE, HOTEL, CREDIT_CARD")
	}
	if data.Date.IsZero() {
		return nil, invalidf("date", "required")
	}
	if data.Balance < 0 {
		return nil, invalidf("balance", "must not be negative")
	}

	now := s.now()
	account := &Account{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        data.Name,
		Category:    data.Category,
		CardName:    data.CardName,
		CardOpen:    data.CardOpen,
		AnnualFee:   data.AnnualFee,
		SignupBonus: data.SignupBonus,
		Balance:     data.Balance,
		Date:        data.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}

		if bonusDate, ok := s.signupBonusDate(data); ok {
			bonus := &HistoryEntry{
				ID:        uuid.NewString(),
				AccountID: account.ID,
				Balance:   data.SignupBonus,
				Date:      bonusDate,
				Reason:    "Signup Bonus",
			}
			if err := tx.CreateEntry(ctx, bonus); err != nil {
				return err
			}
		}

		seed := &HistoryEntry{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Balance:   data.Balance,
			Date:      data.Date,
		}
		if err := tx.CreateEntry(ctx, seed); err != nil {
			return err
		}

		return ResyncAccountSummary(ctx, tx, account.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account", account.ID).Str("owner", ownerID).
		Str("category", string(data.Category)).Msg("account created")

	return loadAccountView(ctx, s.store, account.ID)
}

// signupBonusDate infers when a credit card's signup bonus posted.
// Returns ok=false when the backfill does not apply.
func (s *Service) signupBonusDate(data NewAccountData) (time.Time, bool) {
	if data.Category != CategoryCreditCard || data.SignupBonus <= 0 || data.CardOpen == nil {
		return time.Time{}, false
	}

	posted := data.CardOpen.AddDate(0, 0, signupBonusPostingLag)
	if !posted.Before(s.now()) {
		// Not yet reached the usual posting window; assume recently earned.
		posted = s.now().AddDate(0, 0, -1)
	}
	// The bonus must land strictly before the as-of entry.
	if !posted.Before(data.Date) {
		posted = data.Date.AddDate(0, 0, -1)
	}
	return posted, true
}

// =============================================================================
// MANUAL BALANCE ADJUSTMENT
// =============================================================================

// UpdateBalance records "balance is X as of date D". An existing entry
// within the same day window is overwritten in place (same-day
// re-entries are corrections, not new events); otherwise a new entry is
// inserted. Subsequent entries are NOT shifted: the protocol is meant
// for the current edge of the timeline, where no downstream exists yet.
func (s *Service) UpdateBalance(ctx context.Context, accountID, ownerID string, balance int64, date time.Time, reason string) (*Account, error) {
	if date.IsZero() {
		return nil, invalidf("date", "required")
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := requireAccount(ctx, tx, accountID, ownerID); err != nil {
			return err
		}

		dayStart, dayEnd := dayWindow(date)
		existing, err := tx.EntryInWindow(ctx, accountID, dayStart, dayEnd)
		if err != nil {
			return err
		}

		if existing != nil {
			if err := tx.UpdateEntry(ctx, existing.ID, balance, date, reason); err != nil {
				return err
			}
		} else {
			entry := &HistoryEntry{
				ID:        uuid.NewString(),
				AccountID: accountID,
				Balance:   balance,
				Date:      date,
				Reason:    reason,
			}
			if err := tx.CreateEntry(ctx, entry); err != nil {
				return err
			}
		}

		return ResyncAccountSummary(ctx, tx, accountID, s.now())
	})
	if err != nil {
		return nil, err
	}

	return loadAccountView(ctx, s.store, accountID)
}

// =============================================================================
// DETAILS / DELETE
// =============================================================================

// UpdateDetails updates the descriptive account fields.
func (s *Service) UpdateDetails(ctx context.Context, accountID, ownerID string, d AccountDetails) (*Account, error) {
	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := requireAccount(ctx, tx, accountID, ownerID); err != nil {
			return err
		}
		return tx.UpdateAccountDetails(ctx, accountID, d)
	})
	if err != nil {
		return nil, err
	}
	return loadAccountView(ctx, s.store, accountID)
}

// DeleteAccount removes the account and everything under it.
func (s *Service) DeleteAccount(ctx context.Context, accountID, ownerID string) error {
	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := requireAccount(ctx, tx, accountID, ownerID); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, accountID)
	})
	if err == nil {
		s.log.Info().Str("account", accountID).Msg("account deleted")
	}
	return err
}
