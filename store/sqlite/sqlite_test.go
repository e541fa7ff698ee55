package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func seedAccount(t *testing.T, s *sqlite.Store, id string) {
	t.Helper()
	require.NoError(t, s.CreateAccount(context.Background(), &ledger.Account{
		ID:       id,
		OwnerID:  "owner-1",
		Name:     "Account " + id,
		Category: ledger.CategoryAirline,
		Date:     day(1),
	}))
}

func seedEntry(t *testing.T, s *sqlite.Store, id, accountID string, balance int64, date, created time.Time) {
	t.Helper()
	require.NoError(t, s.CreateEntry(context.Background(), &ledger.HistoryEntry{
		ID:        id,
		AccountID: accountID,
		Balance:   balance,
		Date:      date,
		CreatedAt: created,
	}))
}

// =============================================================================
// POINT READS AND ORDERING
// =============================================================================

func TestEntryAsOf_Boundaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")
	seedEntry(t, s, "e1", "a1", 100, day(10), day(10))
	seedEntry(t, s, "e2", "a1", 200, day(20), day(20))

	// Strictly before all entries: nil.
	e, err := s.EntryAsOf(ctx, "a1", day(5))
	require.NoError(t, err)
	assert.Nil(t, e)

	// Exactly on an entry's date: that entry (<= semantics).
	e, err = s.EntryAsOf(ctx, "a1", day(10))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "e1", e.ID)

	// Between entries: the earlier one.
	e, err = s.EntryAsOf(ctx, "a1", day(15))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "e1", e.ID)
}

func TestEntryAfter_StrictlyAfter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")
	seedEntry(t, s, "e1", "a1", 100, day(10), day(10))
	seedEntry(t, s, "e2", "a1", 200, day(20), day(20))

	e, err := s.EntryAfter(ctx, "a1", day(10))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "e2", e.ID)

	e, err = s.EntryAfter(ctx, "a1", day(20))
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestLatestEntry_SameDateTieBreaksByCreation(t *testing.T) {
	// GIVEN: Two entries on the same date, created in a known order
	// WHEN: Reading the latest entry
	// THEN: The later-created one wins, deterministically

	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")
	seedEntry(t, s, "older", "a1", 100, day(10), day(10).Add(1*time.Hour))
	seedEntry(t, s, "newer", "a1", 150, day(10), day(10).Add(2*time.Hour))

	e, err := s.LatestEntry(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "newer", e.ID)
}

func TestListEntries_DescendingByDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")
	seedEntry(t, s, "e1", "a1", 100, day(10), day(10))
	seedEntry(t, s, "e3", "a1", 300, day(30), day(30))
	seedEntry(t, s, "e2", "a1", 200, day(20), day(20))

	entries, err := s.ListEntries(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"e3", "e2", "e1"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
}

// =============================================================================
// SHIFTS
// =============================================================================

func TestShiftEntries_RangesAndExclusion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")
	seedEntry(t, s, "e1", "a1", 100, day(10), day(10))
	seedEntry(t, s, "e2", "a1", 200, day(20), day(20))
	seedEntry(t, s, "e3", "a1", 300, day(30), day(30))

	get := func(id string) int64 {
		e, err := s.GetEntry(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, e)
		return e.Balance
	}

	// Strictly after day 10.
	require.NoError(t, s.ShiftEntries(ctx, "a1", ledger.After(day(10), false), 5))
	assert.Equal(t, int64(100), get("e1"))
	assert.Equal(t, int64(205), get("e2"))
	assert.Equal(t, int64(305), get("e3"))

	// Inclusive range with an excluded entry.
	r := ledger.Between(day(10), true, day(30), true)
	r.ExcludeEntry = "e2"
	require.NoError(t, s.ShiftEntries(ctx, "a1", r, 10))
	assert.Equal(t, int64(110), get("e1"))
	assert.Equal(t, int64(205), get("e2"))
	assert.Equal(t, int64(315), get("e3"))

	// Unbounded: every entry.
	require.NoError(t, s.ShiftEntries(ctx, "a1", ledger.AllEntries(), -100))
	assert.Equal(t, int64(10), get("e1"))
	assert.Equal(t, int64(105), get("e2"))
	assert.Equal(t, int64(215), get("e3"))
}

func TestShiftEntries_ScopedToAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")
	seedAccount(t, s, "a2")
	seedEntry(t, s, "mine", "a1", 100, day(10), day(10))
	seedEntry(t, s, "other", "a2", 100, day(10), day(10))

	require.NoError(t, s.ShiftEntries(ctx, "a1", ledger.AllEntries(), 50))

	e, err := s.GetEntry(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(100), e.Balance)
}

// =============================================================================
// TRANSACTIONS AND CASCADE
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A callback that writes then fails
	// WHEN: WithTx returns the error
	// THEN: None of the writes are visible

	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.CreateEntry(ctx, &ledger.HistoryEntry{
			ID: "ghost", AccountID: "a1", Balance: 1, Date: day(10),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	e, err := s.GetEntry(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestDeleteAccount_CascadesToEntriesAndTransactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")
	seedEntry(t, s, "e1", "a1", 100, day(10), day(10))
	require.NoError(t, s.CreateTransaction(ctx, &ledger.Transaction{
		ID: "t1", AccountID: "a1", PointsUsed: 10, Type: ledger.TxSpend, Date: day(10),
	}))

	require.NoError(t, s.DeleteAccount(ctx, "a1"))

	e, err := s.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, e)

	tx, err := s.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestDeleteEntriesByTransaction_CountsRemovals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a1")
	require.NoError(t, s.CreateEntry(ctx, &ledger.HistoryEntry{
		ID: "e1", AccountID: "a1", Balance: 100, Date: day(10), TransactionID: "t1",
	}))
	require.NoError(t, s.CreateEntry(ctx, &ledger.HistoryEntry{
		ID: "e2", AccountID: "a1", Balance: 200, Date: day(20),
	}))

	n, err := s.DeleteEntriesByTransaction(ctx, "a1", "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := s.ListEntries(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "e2", remaining[0].ID)
}

func TestFindAccountByName_ScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, &ledger.Account{
		ID: "a1", OwnerID: "owner-1", Name: "Hyatt", Category: ledger.CategoryHotel, Date: day(1),
	}))

	found, err := s.FindAccountByName(ctx, "owner-1", "Hyatt")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "a1", found.ID)

	missing, err := s.FindAccountByName(ctx, "owner-2", "Hyatt")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAccountRoundTrip_PreservesCardFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	open := day(3)
	require.NoError(t, s.CreateAccount(ctx, &ledger.Account{
		ID:          "card",
		OwnerID:     "owner-1",
		Name:        "Sapphire",
		Category:    ledger.CategoryCreditCard,
		CardName:    "Sapphire Preferred",
		CardOpen:    &open,
		AnnualFee:   95,
		SignupBonus: 60000,
		Balance:     12345,
		Date:        day(5),
	}))

	got, err := s.GetAccount(ctx, "card")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sapphire Preferred", got.CardName)
	require.NotNil(t, got.CardOpen)
	assert.True(t, got.CardOpen.Equal(open))
	assert.Equal(t, int64(95), got.AnnualFee)
	assert.Equal(t, int64(60000), got.SignupBonus)
	assert.Equal(t, int64(12345), got.Balance)
	assert.True(t, got.Date.Equal(day(5)))
}
