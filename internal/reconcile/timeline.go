package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ewhitmore/hearth/internal/config"
	"github.com/ewhitmore/hearth/internal/domain"
	"github.com/ewhitmore/hearth/internal/log"
)

// Timeline returns the merged actual plus projected history for one
// instrument: every actual snapshot, plus the projections for the named
// scenario, ordered by review date. Actuals sort before projections on the
// same date.
func (m *Manager) Timeline(ctx context.Context, instrumentID int64, scenario string) ([]domain.Snapshot, error) {
	if _, err := m.repo.Instrument(ctx, instrumentID); err != nil {
		return nil, err
	}

	actualFlag := false
	actuals, err := m.repo.Snapshots(ctx, SnapshotFilter{
		InstrumentID: instrumentID,
		IsProjection: &actualFlag,
	})
	if err != nil {
		return nil, err
	}

	projFlag := true
	projections, err := m.repo.Snapshots(ctx, SnapshotFilter{
		InstrumentID: instrumentID,
		IsProjection: &projFlag,
		Scenario:     scenario,
	})
	if err != nil {
		return nil, err
	}

	merged := append(actuals, projections...)
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].ReviewDate.Equal(merged[j].ReviewDate) {
			return merged[i].ReviewDate.Before(merged[j].ReviewDate)
		}
		return !merged[i].IsProjection && merged[j].IsProjection
	})
	return merged, nil
}

// PensionDetail is one pension's contribution to a retirement summary.
type PensionDetail struct {
	Name           string
	Person         string
	CurrentValue   decimal.Decimal
	ProjectedValue decimal.Decimal
}

// RetirementSummary aggregates projected retirement income across active
// pensions. Projected values are the stored end-of-horizon figures, so
// Regenerate must have run recently for the numbers to be current.
type RetirementSummary struct {
	TotalCurrentValue   decimal.Decimal
	TotalProjectedValue decimal.Decimal
	TotalAnnuity        decimal.Decimal
	GovernmentPension   decimal.Decimal
	TotalAnnualIncome   decimal.Decimal
	TotalMonthlyIncome  decimal.Decimal
	Pensions            []PensionDetail
}

// Retirement summarises projected retirement income, for one person or,
// with an empty person, for everyone. The annual annuity is the projected
// pot times the annuity conversion rate; the state pension comes from
// settings per person.
func (m *Manager) Retirement(ctx context.Context, person string) (*RetirementSummary, error) {
	settings, err := config.LoadPensionSettings(ctx, m.settings)
	if err != nil {
		return nil, err
	}

	instruments, err := m.repo.Instruments(ctx, domain.KindPension, true)
	if err != nil {
		return nil, err
	}

	summary := &RetirementSummary{
		TotalCurrentValue:   decimal.Zero,
		TotalProjectedValue: decimal.Zero,
		GovernmentPension:   decimal.Zero,
	}
	persons := map[string]bool{}

	for _, inst := range instruments {
		if person != "" && !strings.EqualFold(inst.Person, person) {
			continue
		}
		projected := decimal.Zero
		if inst.ProjectedValue != nil {
			projected = *inst.ProjectedValue
		}
		summary.TotalCurrentValue = summary.TotalCurrentValue.Add(inst.CurrentValue)
		summary.TotalProjectedValue = summary.TotalProjectedValue.Add(projected)
		summary.Pensions = append(summary.Pensions, PensionDetail{
			Name:           inst.Name,
			Person:         inst.Person,
			CurrentValue:   inst.CurrentValue,
			ProjectedValue: projected,
		})
		persons[inst.Person] = true
	}

	summary.TotalAnnuity = summary.TotalProjectedValue.Mul(settings.AnnuityConversionRate)

	if person != "" {
		ps, err := config.LoadPersonSettings(ctx, m.settings, person)
		if err != nil {
			return nil, err
		}
		summary.GovernmentPension = ps.GovernmentPensionAnnual
	} else {
		for p := range persons {
			ps, err := config.LoadPersonSettings(ctx, m.settings, p)
			if err != nil {
				return nil, err
			}
			summary.GovernmentPension = summary.GovernmentPension.Add(ps.GovernmentPensionAnnual)
		}
	}

	summary.TotalAnnualIncome = summary.TotalAnnuity.Add(summary.GovernmentPension)
	summary.TotalMonthlyIncome = summary.TotalAnnualIncome.Div(decimal.NewFromInt(12))
	return summary, nil
}

// RegenerateAll regenerates projections for every active instrument. An
// empty scenario regenerates each instrument's default scenario. Failures
// are isolated: one instrument's error never stops the rest, but every
// failure is logged and reported in the returned error. Returns the total
// number of projection rows written.
func (m *Manager) RegenerateAll(ctx context.Context, scenario string) (int, error) {
	instruments, err := m.repo.Instruments(ctx, "", true)
	if err != nil {
		return 0, err
	}

	var (
		total atomic.Int64
		mu    sync.Mutex
		errs  []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := range instruments {
		inst := instruments[i]
		g.Go(func() error {
			name := scenario
			if name == "" {
				name = defaultScenario(&inst)
			}
			written, err := m.Regenerate(ctx, inst.ID, name)
			if err != nil {
				m.logger.ErrorContext(ctx, "regeneration failed",
					log.FieldInstrumentID, inst.ID,
					log.FieldScenario, name,
					log.FieldError, err,
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("instrument %d: %w", inst.ID, err))
				mu.Unlock()
				return nil
			}
			total.Add(int64(written))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return int(total.Load()), fmt.Errorf("regenerate all: %w", errors.Join(errs...))
	}
	return int(total.Load()), nil
}
