// Package reconcile merges projected snapshots with user-confirmed actuals.
// It owns the regenerate / confirm / record-actual lifecycle: projections
// are recomputed from the latest actual, stale future rows are replaced
// transactionally, and actual rows are never touched by regeneration.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ewhitmore/hearth/internal/config"
	"github.com/ewhitmore/hearth/internal/domain"
	"github.com/ewhitmore/hearth/internal/log"
	"github.com/ewhitmore/hearth/internal/projection"
)

// Manager coordinates the Projection Engine, the snapshot repository, the
// settings store, and the optional ledger.
type Manager struct {
	repo     Repository
	settings config.Store
	ledger   Ledger
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLedger attaches a ledger for mortgage payment transactions.
func WithLedger(l Ledger) Option {
	return func(m *Manager) { m.ledger = l }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l.WithComponent(log.ComponentReconcile) }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager over the given repository and settings store.
func NewManager(repo Repository, settings config.Store, opts ...Option) *Manager {
	m := &Manager{
		repo:     repo,
		settings: settings,
		ledger:   NopLedger{},
		logger:   log.New(log.Config{Component: log.ComponentReconcile}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// today returns the current date truncated to midnight UTC. Review dates
// carry no time component, so comparisons against "now" use this.
func (m *Manager) today() time.Time {
	return dateOnly(m.now())
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// scenarioFor resolves a scenario name into its parameter set for the
// given instrument kind. Pension scenarios carry a monthly growth rate,
// mortgage scenarios an overpayment amount. Unknown names degrade to the
// moderate / no-overpayment parameters rather than failing.
func (m *Manager) scenarioFor(ctx context.Context, inst *domain.Instrument, name string) (domain.Scenario, error) {
	switch inst.Kind {
	case domain.KindMortgage:
		overpayment := decimal.Zero
		if name == domain.ScenarioAggressive {
			overpayment = config.DefaultAggressiveOverpay
		}
		return domain.Scenario{Name: name, Overpayment: overpayment}, nil
	default:
		settings, err := config.LoadPensionSettings(ctx, m.settings)
		if err != nil {
			return domain.Scenario{}, err
		}
		return domain.Scenario{Name: name, MonthlyGrowthRate: settings.RateForScenario(name)}, nil
	}
}

// defaultScenario is the scenario regenerated after a confirm or a new
// actual: the actual-continuation trajectory.
func defaultScenario(inst *domain.Instrument) string {
	if inst.Kind == domain.KindMortgage {
		return domain.ScenarioBase
	}
	return domain.ScenarioDefault
}

// Project computes the full projection sequence for an instrument under a
// scenario without touching storage. Continuation starts one month after
// the latest actual snapshot, or from the instrument's current value as of
// today when no actual exists. months <= 0 derives the horizon from the
// instrument: retirement distance for pensions, the payoff cap for
// mortgages. An underivable horizon (no usable date of birth) yields an
// empty sequence. A standing overpayment on the instrument applies on top
// of the scenario's overpayment.
func (m *Manager) Project(ctx context.Context, inst *domain.Instrument, scenario domain.Scenario, months int) ([]domain.Point, error) {
	last, err := m.repo.LatestActual(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("latest actual for instrument %d: %w", inst.ID, err)
	}

	startDate := m.today()
	startValue := inst.CurrentValue
	if last != nil {
		startDate = last.ReviewDate
		startValue = last.Value
	}

	if inst.Kind == domain.KindMortgage {
		payment := inst.MonthlyPayment
		if payment.IsZero() && startValue.GreaterThan(decimal.Zero) {
			// No payment on record, assume a standard repayment schedule
			// over the remaining cap.
			payment = projection.AmortizedPayment(startValue, inst.AnnualRate, projection.MaxMortgageMonths)
		}
		return projection.Mortgage(projection.MortgageInput{
			StartDate:      startDate,
			StartBalance:   startValue,
			AnnualRate:     inst.AnnualRate,
			MonthlyPayment: payment,
			Overpayment:    inst.Overpayment.Add(scenario.Overpayment),
			PaymentDay:     inst.PaymentDay,
			Scenario:       scenario.Name,
			MaxMonths:      months,
		}), nil
	}

	if months <= 0 {
		months, err = m.pensionHorizon(ctx, inst)
		if err != nil {
			return nil, err
		}
	}
	return projection.Pension(projection.PensionInput{
		StartDate:           startDate,
		StartValue:          startValue,
		MonthlyContribution: inst.MonthlyContribution,
		MonthlyGrowthRate:   scenario.MonthlyGrowthRate,
		Active:              inst.IsActive,
		Scenario:            scenario.Name,
		Months:              months,
	}), nil
}

// pensionHorizon derives the months until the owner's retirement. Missing
// or unparseable dates of birth give a zero horizon: insufficient data,
// not an error.
func (m *Manager) pensionHorizon(ctx context.Context, inst *domain.Instrument) (int, error) {
	person, err := config.LoadPersonSettings(ctx, m.settings, inst.Person)
	if err != nil {
		return 0, err
	}
	if person.DateOfBirth == nil {
		return 0, nil
	}
	age := person.RetirementAge
	if inst.RetirementAge != nil {
		age = *inst.RetirementAge
	}
	return projection.MonthsUntilRetirement(*person.DateOfBirth, age, m.now()), nil
}

// Regenerate recomputes projections for one instrument and scenario and
// replaces the persisted future rows. The full lineage is computed so the
// instrument's projected value at the horizon reflects the terminal point,
// but only points dated today or later are written. Actual snapshots,
// past-dated projections, and other scenarios are never touched. An empty
// scenario name resolves to the instrument's default scenario. Returns the
// number of projection rows written.
func (m *Manager) Regenerate(ctx context.Context, instrumentID int64, scenario string) (int, error) {
	inst, err := m.repo.Instrument(ctx, instrumentID)
	if err != nil {
		return 0, err
	}
	if scenario == "" {
		scenario = defaultScenario(inst)
	}
	sc, err := m.scenarioFor(ctx, inst, scenario)
	if err != nil {
		return 0, err
	}
	return m.regenerate(ctx, inst, sc)
}

// RegenerateScenario is Regenerate with explicit scenario parameters, for
// callers supplying custom rates or overpayment amounts.
func (m *Manager) RegenerateScenario(ctx context.Context, instrumentID int64, sc domain.Scenario) (int, error) {
	inst, err := m.repo.Instrument(ctx, instrumentID)
	if err != nil {
		return 0, err
	}
	return m.regenerate(ctx, inst, sc)
}

func (m *Manager) regenerate(ctx context.Context, inst *domain.Instrument, sc domain.Scenario) (int, error) {
	runID := uuid.NewString()
	started := m.now()

	points, err := m.Project(ctx, inst, sc, 0)
	if err != nil {
		return 0, err
	}

	today := m.today()
	projFlag := true
	written := 0

	err = m.repo.WithTx(ctx, func(r Repository) error {
		ledger := m.txLedger(r)
		if _, err := r.DeleteSnapshots(ctx, SnapshotFilter{
			InstrumentID: inst.ID,
			IsProjection: &projFlag,
			Scenario:     sc.Name,
			From:         &today,
		}); err != nil {
			return fmt.Errorf("delete stale projections: %w", err)
		}

		for i := range points {
			p := points[i]
			if p.Date.Before(today) {
				continue
			}
			snap := snapshotFromPoint(inst.ID, p)
			if m.linksLedger(inst, sc.Name) {
				txID, err := ledger.CreatePayment(ctx, inst, snap, true)
				if err != nil {
					return fmt.Errorf("ledger payment for %s: %w", p.Date.Format("2006-01-02"), err)
				}
				if txID != 0 {
					snap.TransactionID = &txID
				}
			}
			if err := r.CreateSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("persist projection for %s: %w", p.Date.Format("2006-01-02"), err)
			}
			written++
		}

		if len(points) > 0 {
			terminal := points[len(points)-1].Value
			inst.ProjectedValue = &terminal
			if err := r.UpdateInstrument(ctx, inst); err != nil {
				return fmt.Errorf("update projected value: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.logger.InfoContext(ctx, "regenerated projections",
		log.FieldRunID, runID,
		log.FieldInstrumentID, inst.ID,
		log.FieldScenario, sc.Name,
		log.FieldPoints, written,
		log.FieldDuration, m.now().Sub(started).Milliseconds(),
	)
	return written, nil
}

// txLedger resolves the ledger to use inside a transaction. When the
// transactional repository view can post payments itself, ledger rows go
// through it so they commit and roll back with the snapshots they back.
// Writing through the attached ledger from inside the transaction would
// run on a second connection and contend with the transaction's own lock.
func (m *Manager) txLedger(r Repository) Ledger {
	if _, nop := m.ledger.(NopLedger); nop {
		return m.ledger
	}
	if l, ok := r.(Ledger); ok {
		return l
	}
	return m.ledger
}

// linksLedger reports whether projection snapshots for this run should get
// forecast ledger entries: mortgage payments on the base scenario for an
// instrument with a linked account.
func (m *Manager) linksLedger(inst *domain.Instrument, scenario string) bool {
	if _, nop := m.ledger.(NopLedger); nop {
		return false
	}
	return inst.Kind == domain.KindMortgage && inst.AccountID != nil && scenario == domain.ScenarioBase
}

func snapshotFromPoint(instrumentID int64, p domain.Point) *domain.Snapshot {
	return &domain.Snapshot{
		InstrumentID:  instrumentID,
		ReviewDate:    p.Date,
		Value:         p.Value,
		Interest:      p.Interest,
		Principal:     p.Principal,
		Payment:       p.Payment,
		Overpayment:   p.Overpayment,
		GrowthPercent: p.GrowthPercent,
		IsProjection:  true,
		Scenario:      p.Scenario,
		RateUsed:      p.RateUsed,
	}
}

// Confirm promotes a projection snapshot to an actual: the projection
// flag, scenario, and rate are cleared, the value is replaced with the
// observed one, and the growth percent is recomputed against the latest
// actual strictly before the snapshot's date. The instrument's current
// value follows the confirmed value. When auto-regeneration is enabled the
// default scenario is regenerated afterwards so later months continue from
// the corrected trajectory.
func (m *Manager) Confirm(ctx context.Context, instrumentID, snapshotID int64, actualValue decimal.Decimal) (*domain.Snapshot, error) {
	snap, err := m.repo.Snapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if snap.InstrumentID != instrumentID {
		return nil, fmt.Errorf("confirm snapshot %d: %w", snapshotID, ErrNotOwned)
	}
	if !snap.IsProjection {
		return nil, fmt.Errorf("confirm snapshot %d: %w", snapshotID, ErrNotProjection)
	}
	inst, err := m.repo.Instrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}

	err = m.repo.WithTx(ctx, func(r Repository) error {
		prior, err := r.LatestActualBefore(ctx, inst.ID, snap.ReviewDate)
		if err != nil {
			return err
		}

		snap.IsProjection = false
		snap.Scenario = ""
		snap.RateUsed = nil
		snap.Value = actualValue
		snap.GrowthPercent = nil
		if prior != nil {
			snap.GrowthPercent = domain.GrowthPercent(prior.Value, actualValue)
		}

		if inst.Kind == domain.KindMortgage && inst.AccountID != nil && snap.TransactionID == nil {
			txID, err := m.txLedger(r).CreatePayment(ctx, inst, snap, false)
			if err != nil {
				return fmt.Errorf("ledger payment: %w", err)
			}
			if txID != 0 {
				snap.TransactionID = &txID
			}
		}
		if err := r.UpdateSnapshot(ctx, snap); err != nil {
			return err
		}

		inst.CurrentValue = actualValue
		return r.UpdateInstrument(ctx, inst)
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "confirmed snapshot",
		log.FieldInstrumentID, inst.ID,
		log.FieldReviewDate, snap.ReviewDate.Format("2006-01-02"),
	)

	if err := m.autoRegenerate(ctx, inst); err != nil {
		return nil, err
	}
	return snap, nil
}

// RecordActual inserts a user-observed value for a date. A projection
// already sitting on that exact date is superseded: reality replaces the
// forecast regardless of scenario. Recording a second actual for the same
// date fails with ErrDuplicateActual.
func (m *Manager) RecordActual(ctx context.Context, instrumentID int64, reviewDate time.Time, value decimal.Decimal) (*domain.Snapshot, error) {
	inst, err := m.repo.Instrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	day := dateOnly(reviewDate)

	var snap *domain.Snapshot
	err = m.repo.WithTx(ctx, func(r Repository) error {
		actualFlag := false
		existing, err := r.Snapshots(ctx, SnapshotFilter{
			InstrumentID: inst.ID,
			IsProjection: &actualFlag,
			On:           &day,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("record actual for %s: %w", day.Format("2006-01-02"), ErrDuplicateActual)
		}

		projFlag := true
		if _, err := r.DeleteSnapshots(ctx, SnapshotFilter{
			InstrumentID: inst.ID,
			IsProjection: &projFlag,
			On:           &day,
		}); err != nil {
			return fmt.Errorf("supersede projections: %w", err)
		}

		prior, err := r.LatestActualBefore(ctx, inst.ID, day)
		if err != nil {
			return err
		}
		snap = &domain.Snapshot{
			InstrumentID: inst.ID,
			ReviewDate:   day,
			Value:        value,
		}
		if prior != nil {
			snap.GrowthPercent = domain.GrowthPercent(prior.Value, value)
		}
		if err := r.CreateSnapshot(ctx, snap); err != nil {
			return err
		}

		inst.CurrentValue = value
		return r.UpdateInstrument(ctx, inst)
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "recorded actual",
		log.FieldInstrumentID, inst.ID,
		log.FieldReviewDate, day.Format("2006-01-02"),
	)

	if err := m.autoRegenerate(ctx, inst); err != nil {
		return nil, err
	}
	return snap, nil
}

// autoRegenerate regenerates the default scenario when the
// auto_regenerate_projections setting is on.
func (m *Manager) autoRegenerate(ctx context.Context, inst *domain.Instrument) error {
	settings, err := config.LoadPensionSettings(ctx, m.settings)
	if err != nil {
		return err
	}
	if !settings.AutoRegenerate {
		return nil
	}
	_, err = m.Regenerate(ctx, inst.ID, defaultScenario(inst))
	return err
}
