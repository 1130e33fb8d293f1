package googleplay

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/flipchat-purchases/transaction"
	"github.com/code-payments/flipchat-purchases/verify/tests"
)

func TestSignatureVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	verifier, err := NewSignatureVerifier(base64.StdEncoding.EncodeToString(der))
	require.NoError(t, err)

	validTxnFunc := func() *transaction.Transaction {
		payload := `{"orderId":"GPA.1234-5678","packageName":"xyz.flipchat.app","productId":"coins_100","purchaseState":0,"purchaseToken":"token"}`
		digest := sha1.Sum([]byte(payload))
		signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA1, digest[:])
		require.NoError(t, err)

		return &transaction.Transaction{
			Identifier:              "coins_100",
			OrderID:                 "GPA.1234-5678",
			StoreName:               "GooglePlay",
			RawTransactionData:      payload,
			RawTransactionSignature: base64.StdEncoding.EncodeToString(signature),
		}
	}

	tests.RunGenericVerifierTests(t, verifier, validTxnFunc, func() {})
}

func TestNewSignatureVerifier_InvalidKeys(t *testing.T) {
	_, err := NewSignatureVerifier("not base64!")
	require.Error(t, err)

	_, err = NewSignatureVerifier(base64.StdEncoding.EncodeToString([]byte("not a key")))
	require.Error(t, err)

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	_, err = NewSignatureVerifier(base64.StdEncoding.EncodeToString(der))
	require.Error(t, err)
}
