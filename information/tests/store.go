package tests

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/flipchat-purchases/information"
)

func RunStoreTests(t *testing.T, s information.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s information.Store){
		testInformationStore_HappyPath,
		testInformationStore_Clear,
		testInformationStore_Isolation,
	} {
		tf(t, s)
		teardown()
	}
}

func testInformationStore_HappyPath(t *testing.T, store information.Store) {
	ctx := context.Background()

	expected := information.Information{
		LocalName:         "Full Edition",
		LocalDescription:  "Unlocks everything",
		LocalPricing:      "$4.99",
		PriceCurrencyCode: "USD",
		Price:             decimal.NewNullDecimal(decimal.RequireFromString("4.99")),
		FreeTrialPeriod: &information.FreeTrialPeriod{
			NumberOfUnits: 1,
			Unit:          information.PeriodWeek,
		},
	}

	actual, err := store.GetInformation(ctx, "full_edition")
	require.ErrorIs(t, err, information.ErrNotFound)
	require.False(t, actual.IsAvailable())

	require.NoError(t, store.PutInformation(ctx, "full_edition", expected))

	actual, err = store.GetInformation(ctx, "full_edition")
	require.NoError(t, err)
	require.True(t, expected.Equal(actual))

	updated := expected.Clone()
	updated.LocalPricing = "$3.99"
	updated.Price = decimal.NewNullDecimal(decimal.RequireFromString("3.99"))
	require.NoError(t, store.PutInformation(ctx, "full_edition", updated))

	actual, err = store.GetInformation(ctx, "full_edition")
	require.NoError(t, err)
	require.Equal(t, "$3.99", actual.LocalPricing)
}

func testInformationStore_Clear(t *testing.T, store information.Store) {
	ctx := context.Background()

	require.NoError(t, store.PutInformation(ctx, "a", information.Information{LocalName: "a"}))
	require.NoError(t, store.PutInformation(ctx, "b", information.Information{LocalName: "b"}))

	require.NoError(t, store.Clear(ctx))

	for _, id := range []string{"a", "b"} {
		actual, err := store.GetInformation(ctx, id)
		require.ErrorIs(t, err, information.ErrNotFound)
		require.Equal(t, information.Unavailable, actual)
	}
}

func testInformationStore_Isolation(t *testing.T, store information.Store) {
	ctx := context.Background()

	stored := information.Information{
		LocalName:       "Monthly",
		FreeTrialPeriod: &information.FreeTrialPeriod{NumberOfUnits: 7, Unit: information.PeriodDay},
	}
	require.NoError(t, store.PutInformation(ctx, "monthly", stored))

	stored.FreeTrialPeriod.NumberOfUnits = 30

	actual, err := store.GetInformation(ctx, "monthly")
	require.NoError(t, err)
	require.Equal(t, 7, actual.FreeTrialPeriod.NumberOfUnits)

	actual.FreeTrialPeriod.NumberOfUnits = 14

	actual, err = store.GetInformation(ctx, "monthly")
	require.NoError(t, err)
	require.Equal(t, 7, actual.FreeTrialPeriod.NumberOfUnits)
}
