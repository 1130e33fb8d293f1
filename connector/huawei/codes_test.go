package huawei

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/flipchat-purchases/connector"
)

func TestClassify(t *testing.T) {
	for code, expected := range map[StatusCode]connector.Outcome{
		StateSuccess:            connector.OutcomeSuccess,
		StateCancel:             connector.OutcomeUserCanceled,
		ProductOwned:            connector.OutcomeAlreadyOwned,
		StateProductInvalid:     connector.OutcomeInvalidProduct,
		HwidNotLogin:            connector.OutcomeLoginRequired,
		AccountAreaNotSupported: connector.OutcomeRegionUnsupported,
		StateNetError:           connector.OutcomeTransientFailure,
		StateFailed:             connector.OutcomeFailure,
		ProductConsumed:         connector.OutcomeFailure,
	} {
		require.Equal(t, expected, Classify(code), code.String())
	}
}

func TestNewError(t *testing.T) {
	require.NoError(t, NewError(StateSuccess, ""))

	err := NewError(HwidNotLogin, "sign in to HUAWEI ID")
	require.Equal(t, connector.OutcomeLoginRequired, connector.OutcomeOf(err))
	require.Equal(t, "ORDER_HWID_NOT_LOGIN", connector.CodeOf(err))
}
