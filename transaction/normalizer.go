package transaction

import (
	"errors"
	"fmt"

	"github.com/code-payments/flipchat-purchases/connector"
	"github.com/code-payments/flipchat-purchases/offer"
)

var (
	ErrUnknownProduct = errors.New("purchase is for a product outside the catalog")
	ErrMissingOrderID = errors.New("purchase has neither an order id nor a purchase token")
	ErrSKUMismatch    = errors.New("purchase sku does not match the requested offer")
)

// Normalizer converts store purchase records into Transactions for one store.
type Normalizer struct {
	catalog   *offer.Catalog
	storeName string
}

func NewNormalizer(catalog *offer.Catalog, storeName string) *Normalizer {
	return &Normalizer{
		catalog:   catalog,
		storeName: storeName,
	}
}

// Normalize resolves the record's offer from its SKU.
//
// ErrUnknownProduct is returned if no offer in the catalog uses the SKU.
func (n *Normalizer) Normalize(record *connector.RawPurchase) (*offer.Offer, *Transaction, error) {
	o, ok := n.catalog.ByStoreIdentifier(n.storeName, record.SKU)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownProduct, record.SKU)
	}

	txn, err := n.NormalizeFor(o, record)
	if err != nil {
		return nil, nil, err
	}
	return o, txn, nil
}

// NormalizeFor converts a record known to belong to o. A record with an empty
// SKU is accepted as belonging to o.
func (n *Normalizer) NormalizeFor(o *offer.Offer, record *connector.RawPurchase) (*Transaction, error) {
	if record.SKU != "" && record.SKU != o.StoreIdentifier(n.storeName) {
		return nil, fmt.Errorf("%w: got %q for %s", ErrSKUMismatch, record.SKU, o.Identifier)
	}

	orderID := record.OrderID
	if orderID == "" {
		orderID = record.PurchaseToken
	}
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	txn := &Transaction{
		Identifier:              o.Identifier,
		OrderID:                 orderID,
		StoreName:               n.storeName,
		UserID:                  record.UserID,
		PurchaseTime:            record.PurchaseTime,
		ReversalText:            record.ReversalText,
		RawTransactionData:      record.Payload,
		RawTransactionSignature: record.Signature,
		PurchaseCost:            record.Cost,
		PurchaseCostCurrency:    record.CostCurrency,
	}
	if record.ReversalTime != nil {
		reversal := *record.ReversalTime
		txn.ReversalTime = &reversal
	}
	if !txn.PurchaseCost.Valid {
		txn.PurchaseCostCurrency = ""
	}

	return txn, nil
}
