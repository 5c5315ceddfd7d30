package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewhitmore/hearth/internal/domain"
	"github.com/ewhitmore/hearth/internal/log"
	"github.com/ewhitmore/hearth/internal/reconcile"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "hearth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testPension(name, person string) *domain.Instrument {
	return &domain.Instrument{
		Kind:                domain.KindPension,
		Name:                name,
		Person:              person,
		CurrentValue:        dec("45000"),
		MonthlyContribution: dec("300"),
		IsActive:            true,
	}
}

func testMortgage(name string) *domain.Instrument {
	return &domain.Instrument{
		Kind:           domain.KindMortgage,
		Name:           name,
		Property:       "12 Rowan Close",
		CurrentValue:   dec("100000"),
		MonthlyPayment: dec("550"),
		AnnualRate:     dec("0.0439"),
		PaymentDay:     1,
		IsActive:       true,
	}
}

func TestInstrumentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Workplace Pension", "alex")
	age := 60
	inst.RetirementAge = &age
	inst.ProjectedValue = decPtr("198765.43")
	require.NoError(t, s.CreateInstrument(ctx, inst))
	require.NotZero(t, inst.ID)

	got, err := s.Instrument(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindPension, got.Kind)
	assert.Equal(t, "Workplace Pension", got.Name)
	assert.Equal(t, "alex", got.Person)
	assert.True(t, got.CurrentValue.Equal(dec("45000")))
	assert.True(t, got.MonthlyContribution.Equal(dec("300")))
	require.NotNil(t, got.RetirementAge)
	assert.Equal(t, 60, *got.RetirementAge)
	require.NotNil(t, got.ProjectedValue)
	assert.True(t, got.ProjectedValue.Equal(dec("198765.43")))
	assert.True(t, got.IsActive)

	_, err = s.Instrument(ctx, 9999)
	assert.ErrorIs(t, err, reconcile.ErrInstrumentNotFound)
}

func TestInstrumentsFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pension := testPension("Pension A", "alex")
	mortgage := testMortgage("Fixed 2yr")
	closed := testMortgage("Repaid 2019")
	closed.IsActive = false
	for _, inst := range []*domain.Instrument{pension, mortgage, closed} {
		require.NoError(t, s.CreateInstrument(ctx, inst))
	}

	all, err := s.Instruments(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := s.Instruments(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	mortgages, err := s.Instruments(ctx, domain.KindMortgage, true)
	require.NoError(t, err)
	require.Len(t, mortgages, 1)
	assert.Equal(t, "Fixed 2yr", mortgages[0].Name)
}

func TestUpdateInstrument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Pension A", "alex")
	require.NoError(t, s.CreateInstrument(ctx, inst))

	inst.CurrentValue = dec("46000")
	inst.ProjectedValue = decPtr("210000")
	require.NoError(t, s.UpdateInstrument(ctx, inst))

	got, err := s.Instrument(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.Equal(dec("46000")))
	require.NotNil(t, got.ProjectedValue)
	assert.True(t, got.ProjectedValue.Equal(dec("210000")))

	missing := testPension("Ghost", "alex")
	missing.ID = 9999
	assert.ErrorIs(t, s.UpdateInstrument(ctx, missing), reconcile.ErrInstrumentNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testMortgage("Fixed 2yr")
	require.NoError(t, s.CreateInstrument(ctx, inst))

	snap := &domain.Snapshot{
		InstrumentID: inst.ID,
		ReviewDate:   day(2026, time.September, 1),
		Value:        dec("99565.83"),
		Interest:     decPtr("365.83"),
		Principal:    decPtr("434.17"),
		Payment:      decPtr("800"),
		Overpayment:  decPtr("0"),
		IsProjection: true,
		Scenario:     domain.ScenarioBase,
		RateUsed:     decPtr("0.0439"),
	}
	require.NoError(t, s.CreateSnapshot(ctx, snap))
	require.NotZero(t, snap.ID)

	got, err := s.Snapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.InstrumentID)
	assert.Equal(t, day(2026, time.September, 1), got.ReviewDate)
	assert.True(t, got.Value.Equal(dec("99565.83")))
	require.NotNil(t, got.Interest)
	assert.True(t, got.Interest.Equal(dec("365.83")))
	require.NotNil(t, got.Principal)
	assert.True(t, got.Principal.Equal(dec("434.17")))
	assert.True(t, got.IsProjection)
	assert.Equal(t, domain.ScenarioBase, got.Scenario)
	assert.Nil(t, got.GrowthPercent)
	assert.Nil(t, got.TransactionID)

	_, err = s.Snapshot(ctx, 9999)
	assert.ErrorIs(t, err, reconcile.ErrSnapshotNotFound)
}

func TestUpdateSnapshotPromotion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Pension A", "alex")
	require.NoError(t, s.CreateInstrument(ctx, inst))

	snap := &domain.Snapshot{
		InstrumentID: inst.ID,
		ReviewDate:   day(2026, time.September, 15),
		Value:        dec("45354"),
		IsProjection: true,
		Scenario:     "default",
		RateUsed:     decPtr("0.0012"),
	}
	require.NoError(t, s.CreateSnapshot(ctx, snap))

	snap.Value = dec("45400")
	snap.IsProjection = false
	snap.Scenario = ""
	snap.RateUsed = nil
	snap.GrowthPercent = decPtr("0.89")
	require.NoError(t, s.UpdateSnapshot(ctx, snap))

	got, err := s.Snapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.False(t, got.IsProjection)
	assert.Empty(t, got.Scenario)
	assert.Nil(t, got.RateUsed)
	require.NotNil(t, got.GrowthPercent)
	assert.True(t, got.GrowthPercent.Equal(dec("0.89")))
	assert.True(t, got.Value.Equal(dec("45400")))
}

func seedSnapshots(t *testing.T, s *Store, instrumentID int64) {
	t.Helper()
	ctx := context.Background()
	rows := []domain.Snapshot{
		{ReviewDate: day(2026, time.June, 15), Value: dec("44500")},
		{ReviewDate: day(2026, time.July, 15), Value: dec("44900")},
		{ReviewDate: day(2026, time.August, 15), Value: dec("45300"), IsProjection: true, Scenario: "default"},
		{ReviewDate: day(2026, time.September, 15), Value: dec("45700"), IsProjection: true, Scenario: "default"},
		{ReviewDate: day(2026, time.September, 15), Value: dec("45950"), IsProjection: true, Scenario: "optimistic"},
	}
	for i := range rows {
		rows[i].InstrumentID = instrumentID
		require.NoError(t, s.CreateSnapshot(ctx, &rows[i]))
	}
}

func TestSnapshotsFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Pension A", "alex")
	require.NoError(t, s.CreateInstrument(ctx, inst))
	seedSnapshots(t, s, inst.ID)

	all, err := s.Snapshots(ctx, reconcile.SnapshotFilter{InstrumentID: inst.ID})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].ReviewDate.Before(all[i-1].ReviewDate))
	}

	actual := false
	actuals, err := s.Snapshots(ctx, reconcile.SnapshotFilter{InstrumentID: inst.ID, IsProjection: &actual})
	require.NoError(t, err)
	assert.Len(t, actuals, 2)

	proj := true
	defaults, err := s.Snapshots(ctx, reconcile.SnapshotFilter{
		InstrumentID: inst.ID, IsProjection: &proj, Scenario: "default",
	})
	require.NoError(t, err)
	assert.Len(t, defaults, 2)

	from := day(2026, time.July, 15)
	to := day(2026, time.August, 15)
	ranged, err := s.Snapshots(ctx, reconcile.SnapshotFilter{InstrumentID: inst.ID, From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	on := day(2026, time.September, 15)
	exact, err := s.Snapshots(ctx, reconcile.SnapshotFilter{InstrumentID: inst.ID, On: &on})
	require.NoError(t, err)
	assert.Len(t, exact, 2)
}

func TestDeleteSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Pension A", "alex")
	require.NoError(t, s.CreateInstrument(ctx, inst))
	seedSnapshots(t, s, inst.ID)

	proj := true
	from := day(2026, time.September, 1)
	deleted, err := s.DeleteSnapshots(ctx, reconcile.SnapshotFilter{
		InstrumentID: inst.ID, IsProjection: &proj, Scenario: "default", From: &from,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := s.Snapshots(ctx, reconcile.SnapshotFilter{InstrumentID: inst.ID})
	require.NoError(t, err)
	assert.Len(t, remaining, 4)
}

func TestLatestActual(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Pension A", "alex")
	require.NoError(t, s.CreateInstrument(ctx, inst))

	latest, err := s.LatestActual(ctx, inst.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	seedSnapshots(t, s, inst.ID)

	latest, err = s.LatestActual(ctx, inst.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, day(2026, time.July, 15), latest.ReviewDate)

	prior, err := s.LatestActualBefore(ctx, inst.ID, day(2026, time.July, 15))
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, day(2026, time.June, 15), prior.ReviewDate)

	none, err := s.LatestActualBefore(ctx, inst.ID, day(2026, time.June, 15))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSnapshotUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Pension A", "alex")
	require.NoError(t, s.CreateInstrument(ctx, inst))

	date := day(2026, time.August, 15)
	require.NoError(t, s.CreateSnapshot(ctx, &domain.Snapshot{
		InstrumentID: inst.ID, ReviewDate: date, Value: dec("45000"),
	}))
	err := s.CreateSnapshot(ctx, &domain.Snapshot{
		InstrumentID: inst.ID, ReviewDate: date, Value: dec("45100"),
	})
	assert.Error(t, err, "second actual on the same date must be rejected")

	require.NoError(t, s.CreateSnapshot(ctx, &domain.Snapshot{
		InstrumentID: inst.ID, ReviewDate: date, Value: dec("45200"),
		IsProjection: true, Scenario: "default",
	}))
	require.NoError(t, s.CreateSnapshot(ctx, &domain.Snapshot{
		InstrumentID: inst.ID, ReviewDate: date, Value: dec("45300"),
		IsProjection: true, Scenario: "optimistic",
	}))
	err = s.CreateSnapshot(ctx, &domain.Snapshot{
		InstrumentID: inst.ID, ReviewDate: date, Value: dec("45400"),
		IsProjection: true, Scenario: "default",
	})
	assert.Error(t, err, "second projection for the same scenario and date must be rejected")
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Pension A", "alex")
	require.NoError(t, s.CreateInstrument(ctx, inst))

	boom := assert.AnError
	err := s.WithTx(ctx, func(r reconcile.Repository) error {
		if err := r.CreateSnapshot(ctx, &domain.Snapshot{
			InstrumentID: inst.ID, ReviewDate: day(2026, time.August, 15), Value: dec("45000"),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := s.Snapshots(ctx, reconcile.SnapshotFilter{InstrumentID: inst.ID})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWithTxCommits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testPension("Pension A", "alex")
	require.NoError(t, s.CreateInstrument(ctx, inst))

	err := s.WithTx(ctx, func(r reconcile.Repository) error {
		return r.CreateSnapshot(ctx, &domain.Snapshot{
			InstrumentID: inst.ID, ReviewDate: day(2026, time.August, 15), Value: dec("45000"),
		})
	})
	require.NoError(t, err)

	rows, err := s.Snapshots(ctx, reconcile.SnapshotFilter{InstrumentID: inst.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "pension_default_monthly_growth_rate")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "pension_default_monthly_growth_rate", "0.0012",
		"Default monthly pension growth", "decimal"))

	value, ok, err := s.Get(ctx, "pension_default_monthly_growth_rate")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.0012", value)

	// Updating with empty metadata keeps the existing description.
	require.NoError(t, s.Set(ctx, "pension_default_monthly_growth_rate", "0.0015", "", ""))

	value, ok, err = s.Get(ctx, "pension_default_monthly_growth_rate")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.0015", value)
}

func TestRegenerateMortgageWritesForecastLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testMortgage("Fixed 2yr")
	account := int64(3)
	inst.AccountID = &account
	require.NoError(t, s.CreateInstrument(ctx, inst))

	// Same wiring as the CLI: one store serving repository, settings,
	// and ledger. Ledger rows must land inside the regeneration
	// transaction rather than contending with it on a second connection.
	m := reconcile.NewManager(s, s, reconcile.WithLedger(s))
	written, err := m.Regenerate(ctx, inst.ID, domain.ScenarioBase)
	require.NoError(t, err)
	require.Positive(t, written)

	proj := true
	rows, err := s.Snapshots(ctx, reconcile.SnapshotFilter{
		InstrumentID: inst.ID, IsProjection: &proj, Scenario: domain.ScenarioBase,
	})
	require.NoError(t, err)
	require.Len(t, rows, written)
	for _, row := range rows {
		require.NotNil(t, row.TransactionID,
			"projection %s has no ledger entry", row.ReviewDate.Format("2006-01-02"))
	}

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_transactions WHERE account_id = ? AND is_forecast = 1`,
		account).Scan(&count))
	assert.Equal(t, written, count)
}

func TestRegenerateAllCoversEveryInstrument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "alex_date_of_birth", "1980-06-15", "", ""))
	require.NoError(t, s.Set(ctx, "alex_retirement_age", "65", "", ""))

	const count = 6
	for i := 0; i < count; i++ {
		require.NoError(t, s.CreateInstrument(ctx, testPension(fmt.Sprintf("Pension %d", i+1), "alex")))
	}

	now := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	m := reconcile.NewManager(s, s, reconcile.WithClock(func() time.Time { return now }))
	total, err := m.RegenerateAll(ctx, "")
	require.NoError(t, err)

	// Concurrent regeneration over the shared database file must not drop
	// any instrument: 226 months to retirement for each of the six.
	assert.Equal(t, 226*count, total)

	proj := true
	instruments, err := s.Instruments(ctx, domain.KindPension, true)
	require.NoError(t, err)
	require.Len(t, instruments, count)
	for _, inst := range instruments {
		rows, err := s.Snapshots(ctx, reconcile.SnapshotFilter{InstrumentID: inst.ID, IsProjection: &proj})
		require.NoError(t, err)
		assert.Len(t, rows, 226, "instrument %d", inst.ID)
	}
}

func TestMigrationsLogResult(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "hearth.db"))
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := log.New(log.Config{
		Handler:   slog.NewTextHandler(&buf, nil),
		Component: log.ComponentStorage,
	})

	require.NoError(t, runMigrations(db, logger))
	assert.Contains(t, buf.String(), "applied migrations")

	// A second run finds nothing to apply and stays quiet at info level.
	buf.Reset()
	require.NoError(t, runMigrations(db, logger))
	assert.NotContains(t, buf.String(), "applied migrations")
}

func TestCreatePayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testMortgage("Fixed 2yr")
	account := int64(3)
	inst.AccountID = &account
	require.NoError(t, s.CreateInstrument(ctx, inst))

	snap := &domain.Snapshot{
		InstrumentID: inst.ID,
		ReviewDate:   day(2026, time.September, 1),
		Value:        dec("99565.83"),
		Payment:      decPtr("550"),
		Overpayment:  decPtr("250"),
		IsProjection: true,
		Scenario:     domain.ScenarioBase,
	}
	require.NoError(t, s.CreateSnapshot(ctx, snap))

	id, err := s.CreatePayment(ctx, inst, snap, true)
	require.NoError(t, err)
	require.NotZero(t, id)

	var (
		accountID       int64
		date, amount    string
		description     string
		isPaid, isFcast bool
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT account_id, transaction_date, amount, description, is_paid, is_forecast
		FROM ledger_transactions WHERE id = ?`, id).
		Scan(&accountID, &date, &amount, &description, &isPaid, &isFcast)
	require.NoError(t, err)
	assert.Equal(t, account, accountID)
	assert.Equal(t, "2026-09-01", date)
	assert.Equal(t, "-800", amount)
	assert.Equal(t, "Mortgage Payment - 12 Rowan Close", description)
	assert.False(t, isPaid)
	assert.True(t, isFcast)

	noAccount := testMortgage("Unlinked")
	require.NoError(t, s.CreateInstrument(ctx, noAccount))
	_, err = s.CreatePayment(ctx, noAccount, snap, false)
	assert.Error(t, err)
}
