package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldRunID        = "run_id"
	FieldInstrumentID = "instrument_id"
	FieldInstrument   = "instrument"
	FieldScenario     = "scenario"
	FieldPerson       = "person"
	FieldPoints       = "points"
	FieldReviewDate   = "review_date"
	FieldDuration     = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentProjection = "projection"
	ComponentReconcile  = "reconcile"
	ComponentCompare    = "compare"
	ComponentStorage    = "storage"
	ComponentLedger     = "ledger"
	ComponentCLI        = "cli"
)
