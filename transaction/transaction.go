package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the store-independent record of a completed purchase.
type Transaction struct {
	// Identifier is the canonical offer identifier.
	Identifier string

	// OrderID is assigned by the store and unique per purchase event.
	OrderID string

	StoreName    string
	UserID       string
	PurchaseTime time.Time

	// ReversalTime is set when the purchase was cancelled or refunded.
	ReversalTime *time.Time
	ReversalText string

	// RawTransactionData is the opaque store payload, kept for verification.
	RawTransactionData      string
	RawTransactionSignature string

	PurchaseCost         decimal.NullDecimal
	PurchaseCostCurrency string
}

func (t *Transaction) IsReversed() bool {
	return t.ReversalTime != nil
}

func (t *Transaction) Clone() *Transaction {
	cloned := *t
	if t.ReversalTime != nil {
		reversal := *t.ReversalTime
		cloned.ReversalTime = &reversal
	}
	return &cloned
}

// OrderIDs returns the order ids of txns, in order.
func OrderIDs(txns []*Transaction) []string {
	ids := make([]string, len(txns))
	for i, txn := range txns {
		ids[i] = txn.OrderID
	}
	return ids
}
