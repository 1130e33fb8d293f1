package offer

import "fmt"

// Catalog is an immutable, ordered set of offers.
type Catalog struct {
	offers []*Offer
	byID   map[string]*Offer
}

// NewCatalog clones the provided offers into a new catalog. Order is kept for
// batching; lookups are by identifier.
func NewCatalog(offers ...*Offer) (*Catalog, error) {
	c := &Catalog{
		byID: make(map[string]*Offer, len(offers)),
	}

	for _, o := range offers {
		if o == nil || o.Identifier == "" {
			return nil, ErrEmptyIdentifier
		}
		if o.Type == TypeUnknown {
			return nil, fmt.Errorf("%w: offer %q", ErrUnknownType, o.Identifier)
		}
		if _, ok := c.byID[o.Identifier]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateIdentifier, o.Identifier)
		}

		cloned := o.Clone()
		c.offers = append(c.offers, cloned)
		c.byID[cloned.Identifier] = cloned
	}

	if err := c.checkStoreIdentifiers(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkStoreIdentifiers rejects two offers resolving to the same SKU in any
// store one of them names. Stores named by no offer use the identifiers, which
// are already unique.
func (c *Catalog) checkStoreIdentifiers() error {
	stores := map[string]struct{}{}
	for _, o := range c.offers {
		for _, store := range o.stores() {
			stores[store] = struct{}{}
		}
	}

	for store := range stores {
		owners := make(map[string]string, len(c.offers))
		for _, o := range c.offers {
			sku := o.StoreIdentifier(store)
			if other, ok := owners[sku]; ok {
				return fmt.Errorf("%w: %s sku %q of %q and %q", ErrDuplicateStoreIdentifier, store, sku, other, o.Identifier)
			}
			owners[sku] = o.Identifier
		}
	}
	return nil
}

func (c *Catalog) Len() int {
	return len(c.offers)
}

func (c *Catalog) Lookup(identifier string) (*Offer, bool) {
	o, ok := c.byID[identifier]
	return o, ok
}

// Offers returns the catalog's offers in declaration order.
func (c *Catalog) Offers() []*Offer {
	out := make([]*Offer, len(c.offers))
	copy(out, c.offers)
	return out
}

// ByStoreIdentifier resolves a store SKU back to its offer. SKUs are unique per
// store within a catalog.
func (c *Catalog) ByStoreIdentifier(store, sku string) (*Offer, bool) {
	for _, o := range c.offers {
		if o.StoreIdentifier(store) == sku {
			return o, true
		}
	}
	return nil, false
}

// StoreIdentifiers returns the SKUs for a store, in catalog order.
func (c *Catalog) StoreIdentifiers(store string) []string {
	skus := make([]string, len(c.offers))
	for i, o := range c.offers {
		skus[i] = o.StoreIdentifier(store)
	}
	return skus
}

// Types returns the distinct offer types present in the catalog.
func (c *Catalog) Types() []Type {
	seen := map[Type]struct{}{}
	var types []Type
	for _, o := range c.offers {
		if _, ok := seen[o.Type]; ok {
			continue
		}
		seen[o.Type] = struct{}{}
		types = append(types, o.Type)
	}
	return types
}
