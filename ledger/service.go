/*
service.go - Protocol entry points and shared helpers

PURPOSE:
  Service is the façade the transport layer calls. Each public method is
  one mutation protocol: it opens one store transaction, runs the
  multi-step procedure inside it, and returns the fully updated affected
  account(s). The transaction handle is passed explicitly through every
  nested call.

AUTHORIZATION:
  The caller supplies an authenticated owner id; the service enforces
  ownership by checking the account's owner field on every read before
  mutating. Authentication itself lives outside this package.
*/
package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Service coordinates the mutation protocols over a transactional store.
type Service struct {
	store TxStore
	log   zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates a Service over the given store.
func NewService(store TxStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "ledger").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the service clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// =============================================================================
// SHARED HELPERS
// =============================================================================

// requireAccount resolves an account and enforces ownership.
func requireAccount(ctx context.Context, tx Store, accountID, ownerID string) (*Account, error) {
	account, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.OwnerID != ownerID {
		return nil, ErrAccessDenied
	}
	return account, nil
}

// loadAccountView re-reads an account with its history and transactions
// attached, both descending by date. Protocols return these.
func loadAccountView(ctx context.Context, tx Store, accountID string) (*Account, error) {
	account, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.History, err = tx.ListEntries(ctx, accountID); err != nil {
		return nil, err
	}
	if account.Spending, err = tx.ListTransactions(ctx, accountID); err != nil {
		return nil, err
	}
	return account, nil
}

// loadAccountViews loads views for several account ids, in order.
func loadAccountViews(ctx context.Context, tx Store, accountIDs []string) ([]*Account, error) {
	accounts := make([]*Account, 0, len(accountIDs))
	for _, id := range accountIDs {
		a, err := loadAccountView(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// dayWindow returns the [startOfDay, startOfDay+24h) window containing t,
// in UTC. Same-day re-entries of a manual adjustment are treated as
// corrections, not new events, via this window.
func dayWindow(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// ListAccounts returns every account for the owner with history
// attached, most recently updated first.
func (s *Service) ListAccounts(ctx context.Context, ownerID string) ([]*Account, error) {
	accounts, err := s.store.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.History, err = s.store.ListEntries(ctx, a.ID); err != nil {
			return nil, err
		}
		if a.Spending, err = s.store.ListTransactions(ctx, a.ID); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// GetAccount returns one account with history attached, enforcing
// ownership.
func (s *Service) GetAccount(ctx context.Context, accountID, ownerID string) (*Account, error) {
	if _, err := requireAccount(ctx, s.store, accountID, ownerID); err != nil {
		return nil, err
	}
	return loadAccountView(ctx, s.store, accountID)
}
