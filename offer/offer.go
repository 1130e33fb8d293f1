package offer

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyIdentifier          = errors.New("offer identifier is empty")
	ErrDuplicateIdentifier      = errors.New("offer identifier already exists")
	ErrDuplicateStoreIdentifier = errors.New("store identifier is used by another offer")
	ErrUnknownType              = errors.New("unknown offer type")
)

type Type uint8

const (
	TypeUnknown Type = iota
	TypeEntitlement
	TypeConsumable
	TypeSubscription
)

func (t Type) String() string {
	switch t {
	case TypeEntitlement:
		return "ENTITLEMENT"
	case TypeConsumable:
		return "CONSUMABLE"
	case TypeSubscription:
		return "SUBSCRIPTION"
	default:
		return "UNKNOWN"
	}
}

// ParseType is the inverse of Type.String. Matching is case-sensitive.
func ParseType(s string) (Type, error) {
	switch s {
	case "ENTITLEMENT":
		return TypeEntitlement, nil
	case "CONSUMABLE":
		return TypeConsumable, nil
	case "SUBSCRIPTION":
		return TypeSubscription, nil
	default:
		return TypeUnknown, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Offer is a purchasable product keyed by an application-chosen identifier.
type Offer struct {
	Identifier string
	Type       Type

	// storeIdentifiers maps a store name to that store's SKU.
	storeIdentifiers map[string]string
}

func New(identifier string, t Type) *Offer {
	return &Offer{
		Identifier:       identifier,
		Type:             t,
		storeIdentifiers: map[string]string{},
	}
}

// WithStoreIdentifier sets the SKU used for the named store. It returns the offer
// so declarations can be chained.
func (o *Offer) WithStoreIdentifier(store, sku string) *Offer {
	if o.storeIdentifiers == nil {
		o.storeIdentifiers = map[string]string{}
	}
	o.storeIdentifiers[store] = sku
	return o
}

// StoreIdentifier returns the SKU for the named store, falling back to the
// canonical identifier.
func (o *Offer) StoreIdentifier(store string) string {
	if sku, ok := o.storeIdentifiers[store]; ok && sku != "" {
		return sku
	}
	return o.Identifier
}

// stores returns the stores the offer declares a SKU for.
func (o *Offer) stores() []string {
	stores := make([]string, 0, len(o.storeIdentifiers))
	for store := range o.storeIdentifiers {
		stores = append(stores, store)
	}
	return stores
}

func (o *Offer) IsConsumable() bool {
	return o.Type == TypeConsumable
}

func (o *Offer) Clone() *Offer {
	cloned := New(o.Identifier, o.Type)
	for store, sku := range o.storeIdentifiers {
		cloned.storeIdentifiers[store] = sku
	}
	return cloned
}

func (o *Offer) String() string {
	return fmt.Sprintf("%s(%s)", o.Identifier, o.Type)
}
