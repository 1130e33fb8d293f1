package information

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("information not found")

type PeriodUnit uint8

const (
	PeriodUnknown PeriodUnit = iota
	PeriodDay
	PeriodWeek
	PeriodMonth
	PeriodYear
)

func (u PeriodUnit) String() string {
	switch u {
	case PeriodDay:
		return "DAY"
	case PeriodWeek:
		return "WEEK"
	case PeriodMonth:
		return "MONTH"
	case PeriodYear:
		return "YEAR"
	default:
		return "UNKNOWN"
	}
}

type FreeTrialPeriod struct {
	NumberOfUnits int
	Unit          PeriodUnit
}

// Information is store-localized product metadata.
type Information struct {
	LocalName         string
	LocalDescription  string
	LocalPricing      string
	PriceCurrencyCode string
	Price             decimal.NullDecimal
	FreeTrialPeriod   *FreeTrialPeriod
}

// Unavailable is returned for identifiers that are unknown or were never fetched.
var Unavailable = Information{}

func (i Information) IsAvailable() bool {
	return !i.Equal(Unavailable)
}

func (i Information) Equal(other Information) bool {
	if i.LocalName != other.LocalName ||
		i.LocalDescription != other.LocalDescription ||
		i.LocalPricing != other.LocalPricing ||
		i.PriceCurrencyCode != other.PriceCurrencyCode {
		return false
	}

	if i.Price.Valid != other.Price.Valid {
		return false
	}
	if i.Price.Valid && !i.Price.Decimal.Equal(other.Price.Decimal) {
		return false
	}

	switch {
	case i.FreeTrialPeriod == nil && other.FreeTrialPeriod == nil:
		return true
	case i.FreeTrialPeriod == nil || other.FreeTrialPeriod == nil:
		return false
	default:
		return *i.FreeTrialPeriod == *other.FreeTrialPeriod
	}
}

func (i Information) Clone() Information {
	cloned := i
	if i.FreeTrialPeriod != nil {
		period := *i.FreeTrialPeriod
		cloned.FreeTrialPeriod = &period
	}
	return cloned
}

type Store interface {
	// GetInformation returns the information cached for a canonical offer
	// identifier.
	//
	// ErrNotFound is returned if nothing was stored for the identifier.
	GetInformation(ctx context.Context, identifier string) (Information, error)

	// PutInformation stores information for a canonical offer identifier,
	// replacing any previous value.
	PutInformation(ctx context.Context, identifier string, info Information) error

	// Clear removes all stored information.
	Clear(ctx context.Context) error
}
