package memory

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"

	"github.com/code-payments/flipchat-purchases/transaction"
	"github.com/code-payments/flipchat-purchases/verify"
)

// MemoryVerifier checks an ed25519 signature over the raw transaction data. It
// pairs with the memory connector, which signs the payloads it issues.
type MemoryVerifier struct {
	publicKey ed25519.PublicKey
}

func NewMemoryVerifier(pubKey ed25519.PublicKey) verify.Verifier {
	return &MemoryVerifier{publicKey: pubKey}
}

func (m *MemoryVerifier) VerifyTransaction(_ context.Context, txn *transaction.Transaction) (bool, error) {
	signature, err := base64.StdEncoding.DecodeString(txn.RawTransactionSignature)
	if err != nil {
		// Not returning an error here: an undecodable signature is simply an
		// invalid receipt.
		return false, nil
	}

	return ed25519.Verify(m.publicKey, []byte(txn.RawTransactionData), signature), nil
}

func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign returns the base64 signature of payload, in the form stored in
// RawTransactionSignature.
func Sign(owner ed25519.PrivateKey, payload string) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(owner, []byte(payload)))
}
