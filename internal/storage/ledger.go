package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ewhitmore/hearth/internal/domain"
)

// CreatePayment posts a mortgage payment snapshot to the transaction
// ledger. The amount is the full cash outflow (payment plus overpayment)
// recorded as a debit. Forecast entries are unpaid; confirmed entries are
// marked paid.
func (s *Store) CreatePayment(ctx context.Context, inst *domain.Instrument, snap *domain.Snapshot, forecast bool) (int64, error) {
	if inst.AccountID == nil {
		return 0, fmt.Errorf("instrument %d has no ledger account", inst.ID)
	}

	amount := decimal.Zero
	if snap.Payment != nil {
		amount = amount.Add(*snap.Payment)
	}
	if snap.Overpayment != nil {
		amount = amount.Add(*snap.Overpayment)
	}

	description := "Mortgage Payment - " + inst.Property
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO ledger_transactions (account_id, transaction_date, amount,
			description, is_paid, is_forecast, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		*inst.AccountID, fmtDate(snap.ReviewDate), fmtDec(amount.Neg()),
		description, !forecast, forecast, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert ledger payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger payment id: %w", err)
	}
	return id, nil
}
