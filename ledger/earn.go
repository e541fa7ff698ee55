/*
earn.go - Earn protocol

Records a Transaction + HistoryEntry pair for a credit. Retroactive
earns are always allowed: the credit raises every downstream snapshot
by the earned amount via a strict-after shift, so the timeline stays
consistent no matter where the event lands.
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
)

// CreateEarn records an earn event and returns the updated account.
func (s *Service) CreateEarn(ctx context.Context, accountID, ownerID string, data EarnData) (*Account, error) {
	if data.PointsEarned <= 0 {
		return nil, invalidf("pointsEarned", "must be positive")
	}
	if data.Reason == "" {
		return nil, invalidf("reason", "required")
	}
	if data.Date.IsZero() {
		return nil, invalidf("date", "required")
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := requireAccount(ctx, tx, accountID, ownerID); err != nil {
			return err
		}
		return s.createEarnTx(ctx, tx, accountID, data)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account", accountID).Int64("points", data.PointsEarned).
		Time("date", data.Date).Msg("earn recorded")

	return loadAccountView(ctx, s.store, accountID)
}

// createEarnTx runs the earn procedure inside an open transaction.
func (s *Service) createEarnTx(ctx context.Context, tx Store, accountID string, data EarnData) error {
	balanceAtEarn, err := BalanceAsOf(ctx, tx, accountID, data.Date)
	if err != nil {
		return err
	}

	earn := &Transaction{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		PointsUsed: data.PointsEarned, // stored as a positive magnitude
		Type:       TxEarn,
		Method:     data.Reason,
		Notes:      data.Notes,
		Date:       data.Date,
	}
	if err := tx.CreateTransaction(ctx, earn); err != nil {
		return err
	}

	credit := &HistoryEntry{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Balance:       balanceAtEarn + data.PointsEarned,
		Date:          data.Date,
		Reason:        "Earned: " + data.Reason,
		TransactionID: earn.ID,
	}
	if err := tx.CreateEntry(ctx, credit); err != nil {
		return err
	}

	// Strict-after: the new credit entry itself already carries the
	// raised balance.
	if err := ShiftEntriesAfter(ctx, tx, accountID, data.Date, data.PointsEarned, false); err != nil {
		return err
	}

	return ResyncAccountSummary(ctx, tx, accountID, s.now())
}
