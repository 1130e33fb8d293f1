// Package huawei classifies Huawei IAP OrderStatusCode values.
package huawei

import (
	"strconv"

	"github.com/code-payments/flipchat-purchases/connector"
)

const StoreName = "HuaweiAppGallery"

type StatusCode int

const (
	StateFailed             StatusCode = -1
	StateSuccess            StatusCode = 0
	StateCancel             StatusCode = 60000
	StateParamError         StatusCode = 60001
	StateProductInvalid     StatusCode = 60003
	StateNetError           StatusCode = 60005
	HwidNotLogin            StatusCode = 60050
	ProductOwned            StatusCode = 60051
	ProductNotOwned         StatusCode = 60052
	ProductConsumed         StatusCode = 60053
	AccountAreaNotSupported StatusCode = 60054
	NotAcceptAgreement      StatusCode = 60055
	StatePending            StatusCode = 60057
)

var names = map[StatusCode]string{
	StateFailed:             "ORDER_STATE_FAILED",
	StateSuccess:            "ORDER_STATE_SUCCESS",
	StateCancel:             "ORDER_STATE_CANCEL",
	StateParamError:         "ORDER_STATE_PARAM_ERROR",
	StateProductInvalid:     "ORDER_STATE_PRODUCT_INVALID",
	StateNetError:           "ORDER_STATE_NET_ERROR",
	HwidNotLogin:            "ORDER_HWID_NOT_LOGIN",
	ProductOwned:            "ORDER_PRODUCT_OWNED",
	ProductNotOwned:         "ORDER_PRODUCT_NOT_OWNED",
	ProductConsumed:         "ORDER_PRODUCT_CONSUMED",
	AccountAreaNotSupported: "ORDER_ACCOUNT_AREA_NOT_SUPPORTED",
	NotAcceptAgreement:      "ORDER_NOT_ACCEPT_AGREEMENT",
	StatePending:            "ORDER_STATE_PENDING",
}

func (c StatusCode) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

func Classify(code StatusCode) connector.Outcome {
	switch code {
	case StateSuccess:
		return connector.OutcomeSuccess
	case StateCancel:
		return connector.OutcomeUserCanceled
	case ProductOwned:
		return connector.OutcomeAlreadyOwned
	case StateProductInvalid:
		return connector.OutcomeInvalidProduct
	case HwidNotLogin, NotAcceptAgreement:
		return connector.OutcomeLoginRequired
	case AccountAreaNotSupported:
		return connector.OutcomeRegionUnsupported
	case StateNetError, StatePending:
		return connector.OutcomeTransientFailure
	default:
		return connector.OutcomeFailure
	}
}

func NewError(code StatusCode, message string) error {
	if code == StateSuccess {
		return nil
	}
	return connector.NewError(Classify(code), code.String(), message)
}
