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

const instrumentColumns = `id, kind, name, person, property, account_id,
	current_value, monthly_contribution, monthly_payment, overpayment,
	annual_rate, retirement_age, payment_day, is_active, projected_value,
	created_at, updated_at`

// CreateInstrument inserts a new instrument and fills in its id and
// timestamps.
func (s *Store) CreateInstrument(ctx context.Context, inst *domain.Instrument) error {
	now := time.Now().UTC()
	inst.CreatedAt = now
	inst.UpdatedAt = now

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO instruments (kind, name, person, property, account_id,
			current_value, monthly_contribution, monthly_payment, overpayment,
			annual_rate, retirement_age, payment_day, is_active, projected_value,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(inst.Kind), inst.Name, inst.Person, inst.Property, inst.AccountID,
		fmtDec(inst.CurrentValue), fmtDec(inst.MonthlyContribution),
		fmtDec(inst.MonthlyPayment), fmtDec(inst.Overpayment),
		fmtDec(inst.AnnualRate), inst.RetirementAge, inst.PaymentDay,
		inst.IsActive, fmtDecPtr(inst.ProjectedValue),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert instrument: %w", err)
	}
	inst.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("instrument id: %w", err)
	}
	return nil
}

// Instrument loads one instrument by id.
func (s *Store) Instrument(ctx context.Context, id int64) (*domain.Instrument, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+instrumentColumns+` FROM instruments WHERE id = ?`, id)
	inst, err := scanInstrument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instrument %d: %w", id, reconcile.ErrInstrumentNotFound)
	}
	return inst, err
}

// Instruments lists instruments, optionally narrowed to one kind and to
// active ones only, ordered by id.
func (s *Store) Instruments(ctx context.Context, kind domain.InstrumentKind, activeOnly bool) ([]domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE 1=1`
	var args []any
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var out []domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	return out, rows.Err()
}

// UpdateInstrument persists an instrument's mutable fields.
func (s *Store) UpdateInstrument(ctx context.Context, inst *domain.Instrument) error {
	inst.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE instruments SET name = ?, person = ?, property = ?,
			account_id = ?, current_value = ?, monthly_contribution = ?,
			monthly_payment = ?, overpayment = ?, annual_rate = ?,
			retirement_age = ?, payment_day = ?, is_active = ?,
			projected_value = ?, updated_at = ?
		WHERE id = ?`,
		inst.Name, inst.Person, inst.Property, inst.AccountID,
		fmtDec(inst.CurrentValue), fmtDec(inst.MonthlyContribution),
		fmtDec(inst.MonthlyPayment), fmtDec(inst.Overpayment),
		fmtDec(inst.AnnualRate), inst.RetirementAge, inst.PaymentDay,
		inst.IsActive, fmtDecPtr(inst.ProjectedValue),
		inst.UpdatedAt.Format(time.RFC3339), inst.ID)
	if err != nil {
		return fmt.Errorf("update instrument %d: %w", inst.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("instrument %d: %w", inst.ID, reconcile.ErrInstrumentNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstrument(row rowScanner) (*domain.Instrument, error) {
	var (
		inst                       domain.Instrument
		kind                       string
		accountID, retirementAge   sql.NullInt64
		currentValue, contribution string
		payment, overpayment, rate string
		projectedValue             sql.NullString
		createdAt, updatedAt       string
	)
	err := row.Scan(&inst.ID, &kind, &inst.Name, &inst.Person, &inst.Property,
		&accountID, &currentValue, &contribution, &payment, &overpayment,
		&rate, &retirementAge, &inst.PaymentDay, &inst.IsActive,
		&projectedValue, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	inst.Kind = domain.InstrumentKind(kind)
	inst.AccountID = int64Ptr(accountID)
	inst.RetirementAge = intPtr(retirementAge)

	if inst.CurrentValue, err = parseDec(currentValue); err != nil {
		return nil, fmt.Errorf("instrument %d current_value: %w", inst.ID, err)
	}
	if inst.MonthlyContribution, err = parseDec(contribution); err != nil {
		return nil, fmt.Errorf("instrument %d monthly_contribution: %w", inst.ID, err)
	}
	if inst.MonthlyPayment, err = parseDec(payment); err != nil {
		return nil, fmt.Errorf("instrument %d monthly_payment: %w", inst.ID, err)
	}
	if inst.Overpayment, err = parseDec(overpayment); err != nil {
		return nil, fmt.Errorf("instrument %d overpayment: %w", inst.ID, err)
	}
	if inst.AnnualRate, err = parseDec(rate); err != nil {
		return nil, fmt.Errorf("instrument %d annual_rate: %w", inst.ID, err)
	}
	if inst.ProjectedValue, err = parseDecPtr(projectedValue); err != nil {
		return nil, fmt.Errorf("instrument %d projected_value: %w", inst.ID, err)
	}
	if inst.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("instrument %d created_at: %w", inst.ID, err)
	}
	if inst.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("instrument %d updated_at: %w", inst.ID, err)
	}
	return &inst, nil
}
