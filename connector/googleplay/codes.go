// Package googleplay classifies Google Play Billing response codes.
package googleplay

import (
	"strconv"

	"github.com/code-payments/flipchat-purchases/connector"
)

// StoreName is the store key used for per-store SKUs.
const StoreName = "GooglePlay"

// BillingResponseCode mirrors BillingClient.BillingResponseCode.
type BillingResponseCode int

const (
	ServiceTimeout      BillingResponseCode = -3
	FeatureNotSupported BillingResponseCode = -2
	ServiceDisconnected BillingResponseCode = -1
	OK                  BillingResponseCode = 0
	UserCanceled        BillingResponseCode = 1
	ServiceUnavailable  BillingResponseCode = 2
	BillingUnavailable  BillingResponseCode = 3
	ItemUnavailable     BillingResponseCode = 4
	DeveloperError      BillingResponseCode = 5
	Error               BillingResponseCode = 6
	ItemAlreadyOwned    BillingResponseCode = 7
	ItemNotOwned        BillingResponseCode = 8
	NetworkError        BillingResponseCode = 12
)

var names = map[BillingResponseCode]string{
	ServiceTimeout:      "SERVICE_TIMEOUT",
	FeatureNotSupported: "FEATURE_NOT_SUPPORTED",
	ServiceDisconnected: "SERVICE_DISCONNECTED",
	OK:                  "OK",
	UserCanceled:        "USER_CANCELED",
	ServiceUnavailable:  "SERVICE_UNAVAILABLE",
	BillingUnavailable:  "BILLING_UNAVAILABLE",
	ItemUnavailable:     "ITEM_UNAVAILABLE",
	DeveloperError:      "DEVELOPER_ERROR",
	Error:               "ERROR",
	ItemAlreadyOwned:    "ITEM_ALREADY_OWNED",
	ItemNotOwned:        "ITEM_NOT_OWNED",
	NetworkError:        "NETWORK_ERROR",
}

func (c BillingResponseCode) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

// Classify maps a response code onto the canonical outcome.
//
// BILLING_UNAVAILABLE is reported by Play both for unsupported countries and
// for accounts without a usable Play profile; it is treated as a region issue.
func Classify(code BillingResponseCode) connector.Outcome {
	switch code {
	case OK:
		return connector.OutcomeSuccess
	case UserCanceled:
		return connector.OutcomeUserCanceled
	case ItemAlreadyOwned:
		return connector.OutcomeAlreadyOwned
	case ItemUnavailable:
		return connector.OutcomeInvalidProduct
	case BillingUnavailable:
		return connector.OutcomeRegionUnsupported
	case ServiceTimeout, ServiceDisconnected, ServiceUnavailable, NetworkError, Error:
		return connector.OutcomeTransientFailure
	default:
		return connector.OutcomeFailure
	}
}

// NewError returns the connector error for a failed billing call, or nil for OK.
func NewError(code BillingResponseCode, debugMessage string) error {
	if code == OK {
		return nil
	}
	return connector.NewError(Classify(code), code.String(), debugMessage)
}
