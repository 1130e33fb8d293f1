package verify

import (
	"context"

	"github.com/code-payments/flipchat-purchases/transaction"
)

type Verifier interface {

	// VerifyTransaction determines whether the transaction's raw store receipt
	// (RawTransactionData, and RawTransactionSignature where the store signs
	// receipts) is authentic and matches the transaction.
	//
	// An error is returned only when verification could not be performed; an
	// inauthentic receipt yields false with a nil error.
	VerifyTransaction(ctx context.Context, txn *transaction.Transaction) (bool, error)
}

// VerifierFunc is an adapter to allow the use of ordinary functions as
// Verifiers.
type VerifierFunc func(ctx context.Context, txn *transaction.Transaction) (bool, error)

func (f VerifierFunc) VerifyTransaction(ctx context.Context, txn *transaction.Transaction) (bool, error) {
	return f(ctx, txn)
}
