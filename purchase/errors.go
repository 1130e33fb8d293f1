package purchase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/code-payments/flipchat-purchases/connector"
)

// Kind is the canonical class of a purchase manager failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindConnection
	KindNotInstalled
	KindFetchItemInformation
	KindInvalidItem
	KindItemAlreadyOwned
	KindLoginRequired
	KindRegionNotSupported
	KindPurchaseInProgress
	KindPurchase
	KindVerification
	KindConsumption
	KindRestore
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindConnection:
		return "ConnectionError"
	case KindNotInstalled:
		return "NotInstalledError"
	case KindFetchItemInformation:
		return "FetchItemInformationError"
	case KindInvalidItem:
		return "InvalidItemError"
	case KindItemAlreadyOwned:
		return "ItemAlreadyOwnedError"
	case KindLoginRequired:
		return "LoginRequiredError"
	case KindRegionNotSupported:
		return "RegionNotSupportedError"
	case KindPurchaseInProgress:
		return "PurchaseInProgressError"
	case KindPurchase:
		return "PurchaseError"
	case KindVerification:
		return "VerificationError"
	case KindConsumption:
		return "ConsumptionError"
	case KindRestore:
		return "RestoreError"
	default:
		return "UnknownError"
	}
}

// Error is the only error type delivered to observers. Collaborator failures
// are translated into it; Code and Detail keep the vendor's code and message.
type Error struct {
	Kind       Kind
	Identifier string
	Code       string
	Retryable  bool
	Detail     string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Identifier != "" {
		fmt.Fprintf(&sb, " (%s)", e.Identifier)
	}
	if e.Code != "" {
		fmt.Fprintf(&sb, " [code %s]", e.Code)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

// Is matches any *Error of the same kind, so the sentinels below can be used
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrConnection           = &Error{Kind: KindConnection}
	ErrNotInstalled         = &Error{Kind: KindNotInstalled}
	ErrFetchItemInformation = &Error{Kind: KindFetchItemInformation}
	ErrInvalidItem          = &Error{Kind: KindInvalidItem}
	ErrItemAlreadyOwned     = &Error{Kind: KindItemAlreadyOwned}
	ErrLoginRequired        = &Error{Kind: KindLoginRequired}
	ErrRegionNotSupported   = &Error{Kind: KindRegionNotSupported}
	ErrPurchaseInProgress   = &Error{Kind: KindPurchaseInProgress}
	ErrPurchase             = &Error{Kind: KindPurchase}
	ErrVerification         = &Error{Kind: KindVerification}
	ErrConsumption          = &Error{Kind: KindConsumption}
	ErrRestore              = &Error{Kind: KindRestore}
)

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, identifier, detail string) *Error {
	return &Error{
		Kind:       kind,
		Identifier: identifier,
		Detail:     detail,
	}
}

// translate converts a collaborator error into kind. Only the vendor code and
// message text are kept.
func translate(kind Kind, identifier string, err error) *Error {
	e := newError(kind, identifier, detailOf(err))
	e.Code = connector.CodeOf(err)
	return e
}

func detailOf(err error) string {
	if err == nil {
		return ""
	}

	var connErr *connector.Error
	if errors.As(err, &connErr) {
		return connErr.Message
	}
	return err.Error()
}

// connectionError classifies a failed Connect. Account and region problems keep
// their own kinds and are not worth retrying until the user fixes them.
func connectionError(err error) *Error {
	switch connector.OutcomeOf(err) {
	case connector.OutcomeLoginRequired:
		return translate(KindLoginRequired, "", err)
	case connector.OutcomeRegionUnsupported:
		return translate(KindRegionNotSupported, "", err)
	default:
		e := translate(KindConnection, "", err)
		e.Retryable = true
		return e
	}
}

// purchaseError classifies a failed StartPurchase. USER_CANCELED is not an
// error and must be handled before calling it.
func purchaseError(identifier string, err error) *Error {
	switch connector.OutcomeOf(err) {
	case connector.OutcomeAlreadyOwned:
		return translate(KindItemAlreadyOwned, identifier, err)
	case connector.OutcomeInvalidProduct:
		return translate(KindInvalidItem, identifier, err)
	case connector.OutcomeLoginRequired:
		return translate(KindLoginRequired, identifier, err)
	case connector.OutcomeRegionUnsupported:
		return translate(KindRegionNotSupported, identifier, err)
	case connector.OutcomeTransientFailure:
		e := translate(KindPurchase, identifier, err)
		e.Retryable = true
		return e
	default:
		return translate(KindPurchase, identifier, err)
	}
}
