package reconcile

import "errors"

var (
	// ErrInstrumentNotFound is returned when the referenced instrument
	// does not exist.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrSnapshotNotFound is returned when the referenced snapshot does
	// not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNotOwned is returned when a snapshot operation names an
	// instrument the snapshot does not belong to. No mutation happens.
	ErrNotOwned = errors.New("snapshot does not belong to instrument")

	// ErrNotProjection is returned when confirming a snapshot that is
	// already an actual.
	ErrNotProjection = errors.New("snapshot is not a projection")

	// ErrDuplicateActual is returned when recording an actual for a date
	// that already has one.
	ErrDuplicateActual = errors.New("actual snapshot already exists for date")
)
