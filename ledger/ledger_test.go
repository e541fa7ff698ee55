package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testOwner = "user-1"

// testNow is the frozen clock every service test runs under.
var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *ledger.Service {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service := ledger.NewService(store, zerolog.Nop())
	service.SetClock(func() time.Time { return testNow })
	return service
}

func date(month time.Month, day int) time.Time {
	return time.Date(2026, month, day, 0, 0, 0, 0, time.UTC)
}

// newAccount seeds a plain account with one history entry.
func newAccount(t *testing.T, s *ledger.Service, name string, category ledger.Category, balance int64, at time.Time) *ledger.Account {
	t.Helper()
	account, err := s.CreateAccount(context.Background(), testOwner, ledger.NewAccountData{
		Name:     name,
		Category: category,
		Balance:  balance,
		Date:     at,
	})
	require.NoError(t, err)
	return account
}

// entryAt finds the history entry dated at, failing the test when the
// account has none.
func entryAt(t *testing.T, account *ledger.Account, at time.Time) ledger.HistoryEntry {
	t.Helper()
	for _, e := range account.History {
		if e.Date.Equal(at) {
			return e
		}
	}
	t.Fatalf("no history entry at %s (have %d entries)", at.Format("2006-01-02"), len(account.History))
	return ledger.HistoryEntry{}
}

// balances maps each history entry's date to its balance for compact
// whole-timeline assertions.
func balances(account *ledger.Account) map[string]int64 {
	out := make(map[string]int64, len(account.History))
	for _, e := range account.History {
		out[e.Date.UTC().Format("2006-01-02")] = e.Balance
	}
	return out
}
