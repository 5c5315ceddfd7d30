// Package compare runs the projection engine under multiple named
// scenarios for one instrument and reduces each run to comparable metrics:
// payoff date, total interest and cost, terminal value, and months saved
// against the base scenario.
package compare

import (
	"context"
	"fmt"

	"github.com/ewhitmore/hearth/internal/domain"
	"github.com/ewhitmore/hearth/internal/log"
)

// Projector is the slice of the reconciliation manager the comparator
// needs: ephemeral projection, plus persisted regeneration when the caller
// wants the comparison rows stored.
type Projector interface {
	Project(ctx context.Context, inst *domain.Instrument, scenario domain.Scenario, months int) ([]domain.Point, error)
	RegenerateScenario(ctx context.Context, instrumentID int64, scenario domain.Scenario) (int, error)
}

// Comparator orchestrates multi-scenario comparison.
type Comparator struct {
	projector Projector
	logger    *log.Logger
}

// NewComparator creates a comparator over the given projector.
func NewComparator(p Projector) *Comparator {
	return &Comparator{
		projector: p,
		logger:    log.New(log.Config{Component: log.ComponentCompare}),
	}
}

// Options configures comparison behavior.
type Options struct {
	// Months overrides the horizon for every scenario; zero derives it
	// per instrument.
	Months int
	// Persist also regenerates the stored projection rows per scenario
	// instead of computing ephemerally.
	Persist bool
}

// Compare projects the instrument under every scenario and diffs each one
// against the base. The base is the scenario named "base" (or "default"),
// falling back to the first in the list.
func (c *Comparator) Compare(ctx context.Context, inst *domain.Instrument, scenarios []domain.Scenario, opts Options) (*ComparisonSet, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("compare instrument %d: no scenarios given", inst.ID)
	}
	base := domain.BaseScenario(scenarios)

	set := &ComparisonSet{
		Instrument: inst.Name,
		Kind:       inst.Kind,
	}

	outcomes := make(map[string]Outcome, len(scenarios))
	for _, sc := range scenarios {
		points, err := c.projector.Project(ctx, inst, sc, opts.Months)
		if err != nil {
			return nil, fmt.Errorf("project scenario %s: %w", sc.Name, err)
		}
		outcomes[sc.Name] = outcomeFromPoints(sc.Name, points)

		if opts.Persist {
			if _, err := c.projector.RegenerateScenario(ctx, inst.ID, sc); err != nil {
				return nil, fmt.Errorf("persist scenario %s: %w", sc.Name, err)
			}
		}

		c.logger.DebugContext(ctx, "scenario projected",
			log.FieldInstrumentID, inst.ID,
			log.FieldScenario, sc.Name,
			log.FieldPoints, len(points),
		)
	}

	baseOutcome := outcomes[base.Name]
	set.Base = &baseOutcome

	for _, sc := range scenarios {
		if sc.Name == base.Name {
			continue
		}
		set.Alternatives = append(set.Alternatives, withMonthsSaved(outcomes[sc.Name], set.Base))
	}
	return set, nil
}
