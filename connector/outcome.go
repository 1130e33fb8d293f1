package connector

import (
	"errors"
	"fmt"
)

// Outcome is the vendor-agnostic classification of a failed connector operation.
type Outcome uint8

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeAlreadyOwned
	OutcomeInvalidProduct
	OutcomeUserCanceled
	OutcomeTransientFailure
	OutcomeLoginRequired
	OutcomeRegionUnsupported
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeAlreadyOwned:
		return "ALREADY_OWNED"
	case OutcomeInvalidProduct:
		return "INVALID_PRODUCT"
	case OutcomeUserCanceled:
		return "USER_CANCELED"
	case OutcomeTransientFailure:
		return "TRANSIENT_FAILURE"
	case OutcomeLoginRequired:
		return "LOGIN_REQUIRED"
	case OutcomeRegionUnsupported:
		return "REGION_UNSUPPORTED"
	case OutcomeFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Error is returned by connectors for classified vendor failures. Code is the
// vendor's native code, kept for diagnostics.
type Error struct {
	Outcome Outcome
	Code    string
	Message string
}

func NewError(outcome Outcome, code, message string) *Error {
	return &Error{
		Outcome: outcome,
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Outcome, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Outcome, e.Code, e.Message)
}

// OutcomeOf classifies err. Unclassified non-nil errors are OutcomeFailure.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var connErr *Error
	if errors.As(err, &connErr) {
		if connErr.Outcome == OutcomeUnknown {
			return OutcomeFailure
		}
		return connErr.Outcome
	}
	return OutcomeFailure
}

// CodeOf returns the vendor code carried by err, if any.
func CodeOf(err error) string {
	var connErr *Error
	if errors.As(err, &connErr) {
		return connErr.Code
	}
	return ""
}
