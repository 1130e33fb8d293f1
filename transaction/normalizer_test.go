package transaction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/flipchat-purchases/connector"
	"github.com/code-payments/flipchat-purchases/offer"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	catalog, err := offer.NewCatalog(
		offer.New("full_edition", offer.TypeEntitlement).WithStoreIdentifier("GooglePlay", "com.app.full"),
		offer.New("coins_100", offer.TypeConsumable),
	)
	require.NoError(t, err)
	return NewNormalizer(catalog, "GooglePlay")
}

func TestNormalize_HappyPath(t *testing.T) {
	n := newTestNormalizer(t)

	purchasedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	refundedAt := purchasedAt.Add(time.Hour)
	reversal := refundedAt
	record := &connector.RawPurchase{
		SKU:          "com.app.full",
		OrderID:      "GPA.1234",
		UserID:       "user-1",
		PurchaseTime: purchasedAt,
		ReversalTime: &reversal,
		ReversalText: "refunded",
		Payload:      `{"orderId":"GPA.1234"}`,
		Signature:    "c2ln",
		Cost:         decimal.NewNullDecimal(decimal.RequireFromString("4.99")),
		CostCurrency: "USD",
	}

	o, txn, err := n.Normalize(record)
	require.NoError(t, err)
	require.Equal(t, "full_edition", o.Identifier)
	require.Equal(t, "full_edition", txn.Identifier)
	require.Equal(t, "GPA.1234", txn.OrderID)
	require.Equal(t, "GooglePlay", txn.StoreName)
	require.Equal(t, "user-1", txn.UserID)
	require.Equal(t, purchasedAt, txn.PurchaseTime)
	require.True(t, txn.IsReversed())
	require.Equal(t, "refunded", txn.ReversalText)
	require.Equal(t, record.Payload, txn.RawTransactionData)
	require.Equal(t, record.Signature, txn.RawTransactionSignature)
	require.True(t, txn.PurchaseCost.Decimal.Equal(decimal.RequireFromString("4.99")))
	require.Equal(t, "USD", txn.PurchaseCostCurrency)

	// The transaction owns its reversal time.
	*record.ReversalTime = purchasedAt
	require.Equal(t, refundedAt, *txn.ReversalTime)
}

func TestNormalize_PurchaseTokenFallback(t *testing.T) {
	n := newTestNormalizer(t)

	_, txn, err := n.Normalize(&connector.RawPurchase{SKU: "coins_100", PurchaseToken: "token-1"})
	require.NoError(t, err)
	require.Equal(t, "token-1", txn.OrderID)
	require.False(t, txn.IsReversed())
	require.False(t, txn.PurchaseCost.Valid)

	_, _, err = n.Normalize(&connector.RawPurchase{SKU: "coins_100"})
	require.ErrorIs(t, err, ErrMissingOrderID)
}

func TestNormalize_UnknownProduct(t *testing.T) {
	n := newTestNormalizer(t)

	_, _, err := n.Normalize(&connector.RawPurchase{SKU: "full_edition", OrderID: "1"})
	require.ErrorIs(t, err, ErrUnknownProduct)
}

func TestNormalizeFor(t *testing.T) {
	n := newTestNormalizer(t)
	full := offer.New("full_edition", offer.TypeEntitlement).WithStoreIdentifier("GooglePlay", "com.app.full")

	txn, err := n.NormalizeFor(full, &connector.RawPurchase{OrderID: "X"})
	require.NoError(t, err)
	require.Equal(t, "X", txn.OrderID)

	_, err = n.NormalizeFor(full, &connector.RawPurchase{SKU: "coins_100", OrderID: "X"})
	require.ErrorIs(t, err, ErrSKUMismatch)
}

func TestTransaction_Clone(t *testing.T) {
	reversal := time.Now()
	txn := &Transaction{OrderID: "A", ReversalTime: &reversal}

	cloned := txn.Clone()
	require.Equal(t, txn, cloned)

	*cloned.ReversalTime = reversal.Add(time.Minute)
	require.Equal(t, reversal, *txn.ReversalTime)

	require.Equal(t, []string{"A", "B"}, OrderIDs([]*Transaction{{OrderID: "A"}, {OrderID: "B"}}))
}
