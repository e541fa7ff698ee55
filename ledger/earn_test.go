package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/ledger"
)

func TestCreateEarn_AppendsCredit(t *testing.T) {
	// GIVEN: An account at 1000 points
	// WHEN: Earning 500 on a later date
	// THEN: The credit entry carries the new absolute total

	s := newTestService(t)
	ctx := context.Background()

	account := newAccount(t, s, "United MileagePlus", ledger.CategoryAirline, 1000, date(time.January, 10))

	updated, err := s.CreateEarn(ctx, account.ID, testOwner, ledger.EarnData{
		PointsEarned: 500,
		Reason:       "SFO-EWR flight",
		Date:         date(time.February, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1500), updated.Balance)
	credit := entryAt(t, updated, date(time.February, 1))
	assert.Equal(t, int64(1500), credit.Balance)
	assert.Equal(t, "Earned: SFO-EWR flight", credit.Reason)
	assert.False(t, credit.Manual())

	require.Len(t, updated.Spending, 1)
	assert.Equal(t, ledger.TxEarn, updated.Spending[0].Type)
	assert.Equal(t, int64(500), updated.Spending[0].PointsUsed)
}

func TestCreateEarn_RetroactiveShiftsDownstream(t *testing.T) {
	// GIVEN: Entries at Jan 10 (1000) and Feb 1 (1500)
	// WHEN: A forgotten earn of 200 is entered for Jan 20
	// THEN: Every later snapshot rises by 200

	s := newTestService(t)
	ctx := context.Background()

	account := newAccount(t, s, "United MileagePlus", ledger.CategoryAirline, 1000, date(time.January, 10))
	_, err := s.CreateEarn(ctx, account.ID, testOwner, ledger.EarnData{
		PointsEarned: 500, Reason: "Flight", Date: date(time.February, 1),
	})
	require.NoError(t, err)

	updated, err := s.CreateEarn(ctx, account.ID, testOwner, ledger.EarnData{
		PointsEarned: 200, Reason: "Dining program", Date: date(time.January, 20),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"2026-01-10": 1000,
		"2026-01-20": 1200,
		"2026-02-01": 1700,
	}, balances(updated))
	assert.Equal(t, int64(1700), updated.Balance)
}

func TestCreateEarn_Validation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	account := newAccount(t, s, "United MileagePlus", ledger.CategoryAirline, 1000, date(time.January, 10))

	cases := []struct {
		name string
		data ledger.EarnData
	}{
		{"zero points", ledger.EarnData{Reason: "x", Date: date(time.February, 1)}},
		{"negative points", ledger.EarnData{PointsEarned: -5, Reason: "x", Date: date(time.February, 1)}},
		{"missing reason", ledger.EarnData{PointsEarned: 10, Date: date(time.February, 1)}},
		{"missing date", ledger.EarnData{PointsEarned: 10, Reason: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateEarn(ctx, account.ID, testOwner, tc.data)
			assert.ErrorIs(t, err, ledger.ErrValidation)
		})
	}
}
