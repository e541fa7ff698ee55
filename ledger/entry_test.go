package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/ledger"
)

// Edit shifts are easy to get wrong in exactly four ways (balance
// change with/without a date move, in either direction), so each
// quadrant gets its own test over the same fixture:
//
//	Jan 10: 1000  (seed)
//	Feb  1: 1500  (earned 500)
//	Mar  1: 2000  (earned 500)
func editFixture(t *testing.T, s *ledger.Service) *ledger.Account {
	t.Helper()
	ctx := context.Background()

	account := newAccount(t, s, "United MileagePlus", ledger.CategoryAirline, 1000, date(time.January, 10))
	for _, d := range []time.Time{date(time.February, 1), date(time.March, 1)} {
		var err error
		account, err = s.CreateEarn(ctx, account.ID, testOwner, ledger.EarnData{
			PointsEarned: 500, Reason: "Flight", Date: d,
		})
		require.NoError(t, err)
	}
	return account
}

// =============================================================================
// EDIT QUADRANTS
// =============================================================================

func TestEditHistoryEntry_BalanceOnly(t *testing.T) {
	// GIVEN: The three-entry fixture
	// WHEN: Correcting the February balance from 1500 to 1600, same date
	// THEN: Everything after February rises by the +100 delta

	s := newTestService(t)
	account := editFixture(t, s)
	feb := entryAt(t, account, date(time.February, 1))

	updated, err := s.EditHistoryEntry(context.Background(), feb.ID, testOwner, 1600, date(time.February, 1))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"2026-01-10": 1000,
		"2026-02-01": 1600,
		"2026-03-01": 2100,
	}, balances(updated))
}

func TestEditHistoryEntry_DateOnly_MovedEarlier(t *testing.T) {
	// GIVEN: The three-entry fixture
	// WHEN: Moving the February entry to January 20, balance unchanged
	// THEN: No balance shifts anywhere; only the date moves

	s := newTestService(t)
	account := editFixture(t, s)
	feb := entryAt(t, account, date(time.February, 1))

	updated, err := s.EditHistoryEntry(context.Background(), feb.ID, testOwner, 1500, date(time.January, 20))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"2026-01-10": 1000,
		"2026-01-20": 1500,
		"2026-03-01": 2000,
	}, balances(updated))
}

func TestEditHistoryEntry_MovedEarlierWithDelta(t *testing.T) {
	// GIVEN: The three-entry fixture
	// WHEN: Moving February to January 20 AND raising it to 1700
	// THEN: Entries downstream of either position rise by +200 exactly
	//       once; entries before the new position are untouched

	s := newTestService(t)
	account := editFixture(t, s)
	feb := entryAt(t, account, date(time.February, 1))

	updated, err := s.EditHistoryEntry(context.Background(), feb.ID, testOwner, 1700, date(time.January, 20))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"2026-01-10": 1000,
		"2026-01-20": 1700,
		"2026-03-01": 2200,
	}, balances(updated))
}

func TestEditHistoryEntry_MovedLaterWithDelta(t *testing.T) {
	// GIVEN: The fixture plus an extra entry at Feb 10 (1600)
	// WHEN: Moving the Feb 1 entry past it to Feb 20, lowered to 1300
	// THEN: The Feb 10 entry is now upstream of the moved entry, so the
	//       step-1 shift over it must be reversed; only March keeps -200

	s := newTestService(t)
	ctx := context.Background()
	account := editFixture(t, s)
	_, err := s.CreateEarn(ctx, account.ID, testOwner, ledger.EarnData{
		PointsEarned: 100, Reason: "Dining", Date: date(time.February, 10),
	})
	require.NoError(t, err)
	feb := entryAt(t, account, date(time.February, 1))

	updated, err := s.EditHistoryEntry(ctx, feb.ID, testOwner, 1300, date(time.February, 20))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"2026-01-10": 1000,
		"2026-02-10": 1600, // shifted -200 then reversed: net zero
		"2026-02-20": 1300,
		"2026-03-01": 1900, // 2100 - 200
	}, balances(updated))
}

func TestEditHistoryEntry_UnknownEntry(t *testing.T) {
	s := newTestService(t)

	_, err := s.EditHistoryEntry(context.Background(), "no-such-entry", testOwner, 100, date(time.January, 1))
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteHistoryEntry_ManualEntryNoShift(t *testing.T) {
	// GIVEN: A manual observation between two others
	// WHEN: Deleting it
	// THEN: Later entries keep their observed values; removing an
	//       observation says nothing about later magnitudes

	s := newTestService(t)
	ctx := context.Background()

	account := newAccount(t, s, "Marriott Bonvoy", ledger.CategoryHotel, 1000, date(time.January, 10))
	updated, err := s.UpdateBalance(ctx, account.ID, testOwner, 2000, date(time.February, 1), "Statement")
	require.NoError(t, err)
	_, err = s.CreateEarn(ctx, account.ID, testOwner, ledger.EarnData{
		PointsEarned: 300, Reason: "Stay", Date: date(time.March, 1),
	})
	require.NoError(t, err)

	manual := entryAt(t, updated, date(time.February, 1))
	accounts, err := s.DeleteHistoryEntry(ctx, manual.ID, testOwner)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	assert.Equal(t, map[string]int64{
		"2026-01-10": 1000,
		"2026-03-01": 2300,
	}, balances(accounts[0]))
	assert.Equal(t, int64(2300), accounts[0].Balance)
}

func TestDeleteHistoryEntry_LinkedEntryResolvesToTransaction(t *testing.T) {
	// GIVEN: A transfer whose entries exist on both accounts
	// WHEN: Deleting the source-side history entry directly
	// THEN: The whole transaction goes, partner credit included

	s := newTestService(t)
	ctx := context.Background()

	card := newAccount(t, s, "Chase Ultimate Rewards", ledger.CategoryCreditCard, 30000, date(time.January, 10))
	newAccount(t, s, "World of Hyatt", ledger.CategoryHotel, 5000, date(time.January, 1))

	accounts, err := s.CreateSpend(ctx, card.ID, testOwner, ledger.SpendData{
		PointsUsed:  10000,
		Method:      ledger.MethodTransferToPartner,
		PartnerName: "World of Hyatt",
		Date:        date(time.February, 1),
	})
	require.NoError(t, err)

	debit := entryAt(t, accounts[0], date(time.February, 1))
	require.False(t, debit.Manual())

	affected, err := s.DeleteHistoryEntry(ctx, debit.ID, testOwner)
	require.NoError(t, err)
	require.Len(t, affected, 2)

	assert.Equal(t, int64(30000), affected[0].Balance)
	assert.Empty(t, affected[0].Spending)
	assert.Equal(t, int64(5000), affected[1].Balance)
	assert.Len(t, affected[1].History, 1)
}

func TestDeleteHistoryEntry_ResyncsToRemainingLatest(t *testing.T) {
	// GIVEN: Two manual entries
	// WHEN: Deleting the latest
	// THEN: The summary falls back to the remaining entry

	s := newTestService(t)
	ctx := context.Background()

	account := newAccount(t, s, "Marriott Bonvoy", ledger.CategoryHotel, 1000, date(time.January, 10))
	updated, err := s.UpdateBalance(ctx, account.ID, testOwner, 2000, date(time.February, 1), "")
	require.NoError(t, err)

	latest := entryAt(t, updated, date(time.February, 1))
	accounts, err := s.DeleteHistoryEntry(ctx, latest.ID, testOwner)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), accounts[0].Balance)
	assert.True(t, accounts[0].Date.Equal(date(time.January, 10)))
}
