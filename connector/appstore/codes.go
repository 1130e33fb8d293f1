// Package appstore classifies StoreKit SKErrorCode values.
package appstore

import (
	"strconv"

	"github.com/code-payments/flipchat-purchases/connector"
)

const StoreName = "AppleiOS"

type ErrorCode int

const (
	Unknown                          ErrorCode = 0
	ClientInvalid                    ErrorCode = 1
	PaymentCancelled                 ErrorCode = 2
	PaymentInvalid                   ErrorCode = 3
	PaymentNotAllowed                ErrorCode = 4
	StoreProductNotAvailable         ErrorCode = 5
	CloudServicePermissionDenied     ErrorCode = 6
	CloudServiceNetworkConnectionErr ErrorCode = 7
	CloudServiceRevoked              ErrorCode = 8
	PrivacyAcknowledgementRequired   ErrorCode = 9
	UnauthorizedRequestData          ErrorCode = 10
	InvalidOfferIdentifier           ErrorCode = 11
	InvalidSignature                 ErrorCode = 12
	MissingOfferParams               ErrorCode = 13
	InvalidOfferPrice                ErrorCode = 14
	OverlayCancelled                 ErrorCode = 15
	OverlayInvalidConfiguration      ErrorCode = 16
	OverlayTimeout                   ErrorCode = 17
	IneligibleForOffer               ErrorCode = 18
	UnsupportedPlatform              ErrorCode = 19
)

var names = map[ErrorCode]string{
	Unknown:                          "SKErrorUnknown",
	ClientInvalid:                    "SKErrorClientInvalid",
	PaymentCancelled:                 "SKErrorPaymentCancelled",
	PaymentInvalid:                   "SKErrorPaymentInvalid",
	PaymentNotAllowed:                "SKErrorPaymentNotAllowed",
	StoreProductNotAvailable:         "SKErrorStoreProductNotAvailable",
	CloudServicePermissionDenied:     "SKErrorCloudServicePermissionDenied",
	CloudServiceNetworkConnectionErr: "SKErrorCloudServiceNetworkConnectionFailed",
	CloudServiceRevoked:              "SKErrorCloudServiceRevoked",
	PrivacyAcknowledgementRequired:   "SKErrorPrivacyAcknowledgementRequired",
	UnauthorizedRequestData:          "SKErrorUnauthorizedRequestData",
	InvalidOfferIdentifier:           "SKErrorInvalidOfferIdentifier",
	InvalidSignature:                 "SKErrorInvalidSignature",
	MissingOfferParams:               "SKErrorMissingOfferParams",
	InvalidOfferPrice:                "SKErrorInvalidOfferPrice",
	OverlayCancelled:                 "SKErrorOverlayCancelled",
	OverlayInvalidConfiguration:      "SKErrorOverlayInvalidConfiguration",
	OverlayTimeout:                   "SKErrorOverlayTimeout",
	IneligibleForOffer:               "SKErrorIneligibleForOffer",
	UnsupportedPlatform:              "SKErrorUnsupportedPlatform",
}

func (c ErrorCode) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

func Classify(code ErrorCode) connector.Outcome {
	switch code {
	case PaymentCancelled, OverlayCancelled:
		return connector.OutcomeUserCanceled
	case ClientInvalid, PrivacyAcknowledgementRequired:
		return connector.OutcomeLoginRequired
	case StoreProductNotAvailable:
		return connector.OutcomeRegionUnsupported
	case InvalidOfferIdentifier:
		return connector.OutcomeInvalidProduct
	case CloudServiceNetworkConnectionErr, OverlayTimeout:
		return connector.OutcomeTransientFailure
	default:
		return connector.OutcomeFailure
	}
}

func NewError(code ErrorCode, localizedDescription string) error {
	return connector.NewError(Classify(code), code.String(), localizedDescription)
}

// InvalidProductError is reported when StoreKit lists the requested product
// identifier as invalid rather than failing with an error code.
func InvalidProductError(productIdentifier string) error {
	return connector.NewError(connector.OutcomeInvalidProduct, "", "invalid product identifier: "+productIdentifier)
}
