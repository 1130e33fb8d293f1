package googleplay

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"

	"github.com/pkg/errors"

	"github.com/code-payments/flipchat-purchases/transaction"
	"github.com/code-payments/flipchat-purchases/verify"
)

// PublicKeyParam is the per-store config key holding the base64 license key
// from the Play Console.
const PublicKeyParam = "publicKey"

// SignatureVerifier checks the SHA1withRSA signature Play attaches to the
// purchase JSON (INAPP_PURCHASE_DATA / INAPP_DATA_SIGNATURE).
type SignatureVerifier struct {
	publicKey *rsa.PublicKey
}

// NewSignatureVerifier parses the base64-encoded X.509 public key from the Play
// Console.
func NewSignatureVerifier(base64PublicKey string) (verify.Verifier, error) {
	der, err := base64.StdEncoding.DecodeString(base64PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode play public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse play public key")
	}

	publicKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("play public key is not an rsa key")
	}

	return &SignatureVerifier{publicKey: publicKey}, nil
}

func (v *SignatureVerifier) VerifyTransaction(_ context.Context, txn *transaction.Transaction) (bool, error) {
	if txn.RawTransactionData == "" || txn.RawTransactionSignature == "" {
		return false, nil
	}

	signature, err := base64.StdEncoding.DecodeString(txn.RawTransactionSignature)
	if err != nil {
		return false, nil
	}

	digest := sha1.Sum([]byte(txn.RawTransactionData))
	if err := rsa.VerifyPKCS1v15(v.publicKey, crypto.SHA1, digest[:], signature); err != nil {
		return false, nil
	}
	return true, nil
}
