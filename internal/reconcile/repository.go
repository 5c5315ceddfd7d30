package reconcile

import (
	"context"
	"time"

	"github.com/ewhitmore/hearth/internal/domain"
)

// SnapshotFilter narrows snapshot queries and deletions. Zero fields are
// ignored; pointer fields distinguish "unset" from "false"/"zero".
type SnapshotFilter struct {
	InstrumentID int64
	IsProjection *bool
	Scenario     string     // empty matches any scenario
	From         *time.Time // inclusive lower bound on review date
	To           *time.Time // inclusive upper bound on review date
	On           *time.Time // exact review date
}

// Repository is the persistence boundary for instruments and snapshots.
// Snapshot listings come back ordered by review date ascending. Lookups by
// id return ErrInstrumentNotFound / ErrSnapshotNotFound; the latest-actual
// queries return (nil, nil) when no actual exists.
type Repository interface {
	Instrument(ctx context.Context, id int64) (*domain.Instrument, error)
	// Instruments lists instruments, optionally narrowed to one kind
	// (empty kind matches all) and to active ones only.
	Instruments(ctx context.Context, kind domain.InstrumentKind, activeOnly bool) ([]domain.Instrument, error)
	UpdateInstrument(ctx context.Context, inst *domain.Instrument) error

	Snapshot(ctx context.Context, id int64) (*domain.Snapshot, error)
	CreateSnapshot(ctx context.Context, snap *domain.Snapshot) error
	UpdateSnapshot(ctx context.Context, snap *domain.Snapshot) error
	Snapshots(ctx context.Context, filter SnapshotFilter) ([]domain.Snapshot, error)
	DeleteSnapshots(ctx context.Context, filter SnapshotFilter) (int64, error)

	// LatestActual returns the most recent actual snapshot for the
	// instrument, nil when none exists.
	LatestActual(ctx context.Context, instrumentID int64) (*domain.Snapshot, error)
	// LatestActualBefore returns the most recent actual snapshot strictly
	// before the given date, nil when none exists.
	LatestActualBefore(ctx context.Context, instrumentID int64, before time.Time) (*domain.Snapshot, error)

	// WithTx runs fn against a transactional view of the repository.
	// Returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// Ledger records cash movements for mortgage payment snapshots. Forecast
// entries back projected payments; confirmed entries back actuals.
type Ledger interface {
	CreatePayment(ctx context.Context, inst *domain.Instrument, snap *domain.Snapshot, forecast bool) (int64, error)
}

// NopLedger satisfies Ledger without recording anything, for callers that
// do not link snapshots to a transaction ledger.
type NopLedger struct{}

func (NopLedger) CreatePayment(context.Context, *domain.Instrument, *domain.Snapshot, bool) (int64, error) {
	return 0, nil
}
