package purchase

import (
	"github.com/code-payments/flipchat-purchases/offer"
)

// Config is the application-owned description of what can be sold. Offer order
// determines the order of product detail fetches.
type Config struct {
	Offers []*offer.Offer

	// StoreParams holds opaque per-store parameters, such as public keys, keyed
	// by store name and then parameter name.
	StoreParams map[string]map[string]string
}

func NewConfig(offers ...*offer.Offer) *Config {
	return &Config{
		Offers:      offers,
		StoreParams: make(map[string]map[string]string),
	}
}

func (c *Config) AddOffer(o *offer.Offer) *Config {
	c.Offers = append(c.Offers, o)
	return c
}

func (c *Config) SetStoreParam(store, key, value string) *Config {
	if c.StoreParams == nil {
		c.StoreParams = make(map[string]map[string]string)
	}
	if c.StoreParams[store] == nil {
		c.StoreParams[store] = make(map[string]string)
	}
	c.StoreParams[store][key] = value
	return c
}

func (c *Config) StoreParam(store, key string) (string, bool) {
	params, ok := c.StoreParams[store]
	if !ok {
		return "", false
	}
	value, ok := params[key]
	return value, ok
}

// catalog validates the offers against the connector and builds the catalog
// used for the lifetime of an install.
func (c *Config) catalog(supports func(offer.Type) bool) (*offer.Catalog, *Error) {
	if c == nil {
		return nil, newError(KindConfiguration, "", "missing config")
	}

	catalog, err := offer.NewCatalog(c.Offers...)
	if err != nil {
		return nil, newError(KindConfiguration, "", err.Error())
	}

	for _, o := range catalog.Offers() {
		if !supports(o.Type) {
			return nil, newError(KindConfiguration, o.Identifier, "offer type "+o.Type.String()+" is not supported by the store")
		}
	}

	return catalog, nil
}
