package android

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"github.com/code-payments/flipchat-purchases/transaction"
	"github.com/code-payments/flipchat-purchases/verify"
)

// Per-store config keys read when building an AndroidVerifier.
const (
	ServiceAccountFileParam = "serviceAccountFile"
	PackageNameParam        = "packageName"
)

// AndroidVerifier uses the Google Play Developer API to verify purchase tokens.
type AndroidVerifier struct {

	// The contents of a service account JSON file.
	serviceAccountJSON []byte

	// PackageName is the Android app's package name.
	packageName string

	opts []option.ClientOption
}

func NewAndroidVerifier(serviceAccountJSON []byte, pkgName string, opts ...option.ClientOption) verify.Verifier {
	return &AndroidVerifier{
		serviceAccountJSON: serviceAccountJSON,
		packageName:        pkgName,
		opts:               opts,
	}
}

// purchaseData is the subset of the Play purchase JSON needed to query the
// Developer API.
type purchaseData struct {
	OrderID       string `json:"orderId"`
	PackageName   string `json:"packageName"`
	ProductID     string `json:"productId"`
	PurchaseToken string `json:"purchaseToken"`
}

func parsePurchaseData(raw string) (*purchaseData, error) {
	var data purchaseData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	if data.ProductID == "" || data.PurchaseToken == "" {
		return nil, fmt.Errorf("purchase data is missing productId or purchaseToken")
	}
	return &data, nil
}

func (v *AndroidVerifier) VerifyTransaction(ctx context.Context, txn *transaction.Transaction) (bool, error) {
	data, err := parsePurchaseData(txn.RawTransactionData)
	if err != nil {
		// Not returning an error: unparseable purchase data is an invalid
		// receipt, not a failure to verify.
		return false, nil
	}
	if data.PackageName != "" && data.PackageName != v.packageName {
		return false, nil
	}

	opts := append([]option.ClientOption{}, v.opts...)
	if len(v.serviceAccountJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(v.serviceAccountJSON))
	}

	svc, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return false, fmt.Errorf("failed to create android publisher client: %w", err)
	}

	call := svc.Purchases.Products.Get(v.packageName, data.ProductID, data.PurchaseToken)

	productPurchase, err := call.Context(ctx).Do()
	if err != nil {
		// If the API call fails (e.g., 404 purchase token not found), return false.
		return false, nil
	}

	// PurchaseState: 0 purchased, 1 canceled, 2 pending.
	if productPurchase.PurchaseState != 0 {
		return false, nil
	}

	// Play omits the order id for test purchases; only compare when present.
	if productPurchase.OrderId != "" && data.OrderID != "" && productPurchase.OrderId != data.OrderID {
		return false, nil
	}

	return true, nil
}
