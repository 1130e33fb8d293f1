// Package config loads a purchase catalog from YAML, with per-store parameters
// overridable from the environment.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/code-payments/flipchat-purchases/offer"
	"github.com/code-payments/flipchat-purchases/purchase"
)

const envPrefix = "IAP_"

// File is the on-disk catalog format:
//
//	offers:
//	  - id: coins
//	    type: consumable
//	    stores:
//	      GooglePlay: com.example.coins
//	stores:
//	  GooglePlay:
//	    publicKey: MIIBIjANBg...
type File struct {
	Offers []OfferEntry                 `yaml:"offers"`
	Stores map[string]map[string]string `yaml:"stores"`
}

type OfferEntry struct {
	ID     string            `yaml:"id"`
	Type   string            `yaml:"type"`
	Stores map[string]string `yaml:"stores"`
}

// Load reads the catalog at path and applies environment overrides.
func Load(path string) (*purchase.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}

	ApplyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. With no files, ".env" is loaded.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, "failed to load env files")
	}
	return nil
}

func Parse(data []byte) (*purchase.Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse yaml")
	}

	cfg := purchase.NewConfig()
	for i, entry := range f.Offers {
		if entry.ID == "" {
			return nil, errors.Errorf("offer %d: %v", i, offer.ErrEmptyIdentifier)
		}

		t, err := offer.ParseType(strings.ToUpper(strings.TrimSpace(entry.Type)))
		if err != nil {
			return nil, errors.Wrapf(err, "offer %s", entry.ID)
		}

		o := offer.New(entry.ID, t)
		for store, sku := range entry.Stores {
			o.WithStoreIdentifier(store, sku)
		}
		cfg.AddOffer(o)
	}

	for store, params := range f.Stores {
		for key, value := range params {
			cfg.SetStoreParam(store, key, value)
		}
	}

	return cfg, nil
}

// EnvName returns the variable that overrides a store parameter, e.g.
// IAP_GOOGLEPLAY_PUBLICKEY.
func EnvName(store, key string) string {
	return envPrefix + sanitize(store) + "_" + sanitize(key)
}

// ApplyEnv overrides declared store parameters with the variables named by
// EnvName.
func ApplyEnv(cfg *purchase.Config, lookup func(string) (string, bool)) {
	for store, params := range cfg.StoreParams {
		for key := range params {
			if value, ok := lookup(EnvName(store, key)); ok {
				params[key] = value
			}
		}
	}
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
