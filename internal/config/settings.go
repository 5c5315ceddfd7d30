package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the generic key/value settings collaborator. Values are stored
// as strings with a type tag; this package is the only place that parses
// them, everything else works with the typed structs below.
type Store interface {
	// Get returns the raw value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes a value with a human description and a type tag
	// ("string", "int", "float", "boolean", "date").
	Set(ctx context.Context, key, value, description, valueType string) error
}

// Setting keys the projection core depends on. Person-scoped keys are
// produced by PersonKey.
const (
	KeyPensionDefaultRate     = "pension_default_monthly_growth_rate"
	KeyPensionOptimisticRate  = "pension_optimistic_monthly_growth_rate"
	KeyPensionPessimisticRate = "pension_pessimistic_monthly_growth_rate"
	KeyAnnuityConversionRate  = "annuity_conversion_rate"
	KeyAutoRegenerate         = "auto_regenerate_projections"

	keyDateOfBirth   = "date_of_birth"
	keyRetirementAge = "retirement_age"

	keyGovernmentPensionPrefix = "government_pension_annual_"
)

// Documented defaults, used when a key is absent.
var (
	DefaultPensionRate       = decimal.RequireFromString("0.0012")
	DefaultOptimisticRate    = decimal.RequireFromString("0.005")
	DefaultPessimisticRate   = decimal.RequireFromString("0.0005")
	DefaultAnnuityRate       = decimal.RequireFromString("0.05")
	DefaultRetirementAge     = 65
	DefaultAutoRegenerate    = true
	DefaultAggressiveOverpay = decimal.NewFromInt(500)
)

// PersonKey builds a person-scoped settings key, e.g.
// PersonKey("Alex", "retirement_age") -> "alex_retirement_age".
func PersonKey(person, suffix string) string {
	return strings.ToLower(person) + "_" + suffix
}

// PensionSettings is the validated parameter set for pension projections.
type PensionSettings struct {
	DefaultMonthlyRate     decimal.Decimal
	OptimisticMonthlyRate  decimal.Decimal
	PessimisticMonthlyRate decimal.Decimal
	AnnuityConversionRate  decimal.Decimal
	AutoRegenerate         bool
}

// RateForScenario maps a scenario name to its monthly growth rate. Unknown
// names fall back to the default rate, mirroring how unknown scenarios are
// treated as moderate growth.
func (s PensionSettings) RateForScenario(name string) decimal.Decimal {
	switch name {
	case "optimistic":
		return s.OptimisticMonthlyRate
	case "pessimistic":
		return s.PessimisticMonthlyRate
	default:
		return s.DefaultMonthlyRate
	}
}

// LoadPensionSettings reads and validates the pension parameter set,
// applying documented defaults for absent keys. A malformed rate is a
// configuration error.
func LoadPensionSettings(ctx context.Context, store Store) (PensionSettings, error) {
	s := PensionSettings{}
	var err error

	if s.DefaultMonthlyRate, err = getDecimal(ctx, store, KeyPensionDefaultRate, DefaultPensionRate); err != nil {
		return s, err
	}
	if s.OptimisticMonthlyRate, err = getDecimal(ctx, store, KeyPensionOptimisticRate, DefaultOptimisticRate); err != nil {
		return s, err
	}
	if s.PessimisticMonthlyRate, err = getDecimal(ctx, store, KeyPensionPessimisticRate, DefaultPessimisticRate); err != nil {
		return s, err
	}
	if s.AnnuityConversionRate, err = getDecimal(ctx, store, KeyAnnuityConversionRate, DefaultAnnuityRate); err != nil {
		return s, err
	}
	if s.AutoRegenerate, err = getBool(ctx, store, KeyAutoRegenerate, DefaultAutoRegenerate); err != nil {
		return s, err
	}

	for _, rate := range []decimal.Decimal{s.DefaultMonthlyRate, s.OptimisticMonthlyRate, s.PessimisticMonthlyRate} {
		if rate.LessThan(decimal.NewFromInt(-1)) || rate.GreaterThan(decimal.NewFromInt(1)) {
			return s, fmt.Errorf("monthly growth rate %s out of range: must be a fraction, not a percentage", rate)
		}
	}
	return s, nil
}

// PersonSettings carries the retirement inputs for one person. DateOfBirth
// is nil when unset or unparseable: the projection horizon for that person
// cannot be derived and projections come back empty rather than failing.
type PersonSettings struct {
	Person                  string
	DateOfBirth             *time.Time
	RetirementAge           int
	GovernmentPensionAnnual decimal.Decimal
}

// LoadPersonSettings reads the per-person keys. Missing or malformed dates
// of birth yield a nil DateOfBirth, not an error.
func LoadPersonSettings(ctx context.Context, store Store, person string) (PersonSettings, error) {
	s := PersonSettings{Person: person, RetirementAge: DefaultRetirementAge}

	raw, ok, err := store.Get(ctx, PersonKey(person, keyDateOfBirth))
	if err != nil {
		return s, fmt.Errorf("read date of birth for %s: %w", person, err)
	}
	if ok {
		if dob, perr := time.Parse("2006-01-02", raw); perr == nil {
			s.DateOfBirth = &dob
		}
	}

	age, err := getInt(ctx, store, PersonKey(person, keyRetirementAge), DefaultRetirementAge)
	if err != nil {
		return s, err
	}
	if age > 0 {
		s.RetirementAge = age
	}

	s.GovernmentPensionAnnual, err = getDecimal(ctx, store, keyGovernmentPensionPrefix+strings.ToLower(person), decimal.Zero)
	if err != nil {
		return s, err
	}
	return s, nil
}

func getDecimal(ctx context.Context, store Store, key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return def, fmt.Errorf("read setting %s: %w", key, err)
	}
	if !ok || raw == "" {
		return def, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return def, fmt.Errorf("setting %s: malformed decimal %q: %w", key, raw, err)
	}
	return v, nil
}

func getInt(ctx context.Context, store Store, key string, def int) (int, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return def, fmt.Errorf("read setting %s: %w", key, err)
	}
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def, fmt.Errorf("setting %s: malformed integer %q: %w", key, raw, err)
	}
	return v, nil
}

func getBool(ctx context.Context, store Store, key string, def bool) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return def, fmt.Errorf("read setting %s: %w", key, err)
	}
	if !ok || raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true, nil
	default:
		return false, nil
	}
}
