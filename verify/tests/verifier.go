package tests

import (
	"context"
	"testing"

	"github.com/code-payments/flipchat-purchases/transaction"
	"github.com/code-payments/flipchat-purchases/verify"
)

// ValidTransactionFunc returns a transaction whose receipt the verifier under
// test must accept.
type ValidTransactionFunc func() *transaction.Transaction

func RunGenericVerifierTests(t *testing.T, v verify.Verifier, validTxnFunc ValidTransactionFunc, teardown func()) {
	for _, testFunc := range []func(t *testing.T, v verify.Verifier, validTxnFunc ValidTransactionFunc){
		testValidReceipt,
		testTamperedReceipt,
		testInvalidReceipt,
	} {
		testFunc(t, v, validTxnFunc)
		teardown()
	}
}

func testValidReceipt(t *testing.T, v verify.Verifier, validTxnFunc ValidTransactionFunc) {
	ctx := context.Background()

	valid, err := v.VerifyTransaction(ctx, validTxnFunc())
	if err != nil {
		t.Fatalf("unexpected error verifying valid receipt: %v", err)
	}
	if !valid {
		t.Errorf("expected receipt to be valid, got invalid")
	}
}

func testTamperedReceipt(t *testing.T, v verify.Verifier, validTxnFunc ValidTransactionFunc) {
	ctx := context.Background()

	txn := validTxnFunc()
	txn.RawTransactionData += "tampered"

	valid, _ := v.VerifyTransaction(ctx, txn)
	if valid {
		t.Errorf("expected tampered receipt to be invalid, got valid")
	}
}

func testInvalidReceipt(t *testing.T, v verify.Verifier, validTxnFunc ValidTransactionFunc) {
	ctx := context.Background()

	txn := validTxnFunc()
	// Just use the word "invalid" as an invalid receipt.
	txn.RawTransactionData = "invalid"
	txn.RawTransactionSignature = "invalid"

	valid, _ := v.VerifyTransaction(ctx, txn)
	if valid {
		t.Errorf("expected receipt to be invalid, got valid")
	}
}
