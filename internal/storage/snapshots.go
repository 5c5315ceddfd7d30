package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ewhitmore/hearth/internal/domain"
	"github.com/ewhitmore/hearth/internal/reconcile"
)

const snapshotColumns = `id, instrument_id, review_date, value, interest,
	principal, payment, overpayment, growth_percent, is_projection, scenario,
	rate_used, transaction_id, created_at`

// CreateSnapshot inserts a snapshot and fills in its id.
func (s *Store) CreateSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	snap.CreatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO snapshots (instrument_id, review_date, value, interest,
			principal, payment, overpayment, growth_percent, is_projection,
			scenario, rate_used, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.InstrumentID, fmtDate(snap.ReviewDate), fmtDec(snap.Value),
		fmtDecPtr(snap.Interest), fmtDecPtr(snap.Principal),
		fmtDecPtr(snap.Payment), fmtDecPtr(snap.Overpayment),
		fmtDecPtr(snap.GrowthPercent), snap.IsProjection, snap.Scenario,
		fmtDecPtr(snap.RateUsed), snap.TransactionID,
		snap.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	snap.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}
	return nil
}

// Snapshot loads one snapshot by id.
func (s *Store) Snapshot(ctx context.Context, id int64) (*domain.Snapshot, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d: %w", id, reconcile.ErrSnapshotNotFound)
	}
	return snap, err
}

// UpdateSnapshot persists a snapshot's mutable fields.
func (s *Store) UpdateSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE snapshots SET review_date = ?, value = ?, interest = ?,
			principal = ?, payment = ?, overpayment = ?, growth_percent = ?,
			is_projection = ?, scenario = ?, rate_used = ?, transaction_id = ?
		WHERE id = ?`,
		fmtDate(snap.ReviewDate), fmtDec(snap.Value),
		fmtDecPtr(snap.Interest), fmtDecPtr(snap.Principal),
		fmtDecPtr(snap.Payment), fmtDecPtr(snap.Overpayment),
		fmtDecPtr(snap.GrowthPercent), snap.IsProjection, snap.Scenario,
		fmtDecPtr(snap.RateUsed), snap.TransactionID, snap.ID)
	if err != nil {
		return fmt.Errorf("update snapshot %d: %w", snap.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("snapshot %d: %w", snap.ID, reconcile.ErrSnapshotNotFound)
	}
	return nil
}

// filterClause renders a SnapshotFilter into SQL conditions.
func filterClause(f reconcile.SnapshotFilter) (string, []any) {
	clause := ` WHERE instrument_id = ?`
	args := []any{f.InstrumentID}

	if f.IsProjection != nil {
		clause += ` AND is_projection = ?`
		args = append(args, *f.IsProjection)
	}
	if f.Scenario != "" {
		clause += ` AND scenario = ?`
		args = append(args, f.Scenario)
	}
	if f.From != nil {
		clause += ` AND review_date >= ?`
		args = append(args, fmtDate(*f.From))
	}
	if f.To != nil {
		clause += ` AND review_date <= ?`
		args = append(args, fmtDate(*f.To))
	}
	if f.On != nil {
		clause += ` AND review_date = ?`
		args = append(args, fmtDate(*f.On))
	}
	return clause, args
}

// Snapshots lists snapshots matching the filter, ordered by review date.
func (s *Store) Snapshots(ctx context.Context, f reconcile.SnapshotFilter) ([]domain.Snapshot, error) {
	clause, args := filterClause(f)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots`+clause+` ORDER BY review_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// DeleteSnapshots removes snapshots matching the filter, returning the
// number of deleted rows.
func (s *Store) DeleteSnapshots(ctx context.Context, f reconcile.SnapshotFilter) (int64, error) {
	clause, args := filterClause(f)
	res, err := s.q.ExecContext(ctx, `DELETE FROM snapshots`+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	return res.RowsAffected()
}

// LatestActual returns the most recent actual snapshot for an instrument,
// nil when none exists.
func (s *Store) LatestActual(ctx context.Context, instrumentID int64) (*domain.Snapshot, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE instrument_id = ? AND is_projection = 0
		ORDER BY review_date DESC LIMIT 1`, instrumentID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

// LatestActualBefore returns the most recent actual snapshot strictly
// before the given date, nil when none exists. Computed fresh per call so
// out-of-order backfills never see stale growth baselines.
func (s *Store) LatestActualBefore(ctx context.Context, instrumentID int64, before time.Time) (*domain.Snapshot, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE instrument_id = ? AND is_projection = 0 AND review_date < ?
		ORDER BY review_date DESC LIMIT 1`, instrumentID, fmtDate(before))
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

func scanSnapshot(row rowScanner) (*domain.Snapshot, error) {
	var (
		snap                         domain.Snapshot
		reviewDate, value, createdAt string
		interest, principal          sql.NullString
		payment, overpayment         sql.NullString
		growthPercent, rateUsed      sql.NullString
		transactionID                sql.NullInt64
	)
	err := row.Scan(&snap.ID, &snap.InstrumentID, &reviewDate, &value,
		&interest, &principal, &payment, &overpayment, &growthPercent,
		&snap.IsProjection, &snap.Scenario, &rateUsed, &transactionID,
		&createdAt)
	if err != nil {
		return nil, err
	}

	if snap.ReviewDate, err = parseDate(reviewDate); err != nil {
		return nil, fmt.Errorf("snapshot %d review_date: %w", snap.ID, err)
	}
	if snap.Value, err = parseDec(value); err != nil {
		return nil, fmt.Errorf("snapshot %d value: %w", snap.ID, err)
	}
	if snap.Interest, err = parseDecPtr(interest); err != nil {
		return nil, fmt.Errorf("snapshot %d interest: %w", snap.ID, err)
	}
	if snap.Principal, err = parseDecPtr(principal); err != nil {
		return nil, fmt.Errorf("snapshot %d principal: %w", snap.ID, err)
	}
	if snap.Payment, err = parseDecPtr(payment); err != nil {
		return nil, fmt.Errorf("snapshot %d payment: %w", snap.ID, err)
	}
	if snap.Overpayment, err = parseDecPtr(overpayment); err != nil {
		return nil, fmt.Errorf("snapshot %d overpayment: %w", snap.ID, err)
	}
	if snap.GrowthPercent, err = parseDecPtr(growthPercent); err != nil {
		return nil, fmt.Errorf("snapshot %d growth_percent: %w", snap.ID, err)
	}
	if snap.RateUsed, err = parseDecPtr(rateUsed); err != nil {
		return nil, fmt.Errorf("snapshot %d rate_used: %w", snap.ID, err)
	}
	snap.TransactionID = int64Ptr(transactionID)
	if snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("snapshot %d created_at: %w", snap.ID, err)
	}
	return &snap, nil
}
