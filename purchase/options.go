package purchase

import (
	"time"

	"github.com/code-payments/flipchat-purchases/event"
	"github.com/code-payments/flipchat-purchases/information"
	"github.com/code-payments/flipchat-purchases/verify"
)

const (
	DefaultFetchBatchSize     = 20
	DefaultConsumeConcurrency = 4
)

// Diagnostic reports a failure that is logged rather than delivered to the
// observer, such as a failed consumption.
type Diagnostic struct {
	Kind       Kind
	Identifier string
	OrderID    string
	Err        *Error
	Timestamp  time.Time
}

type Option func(*Manager)

// WithInformationStore replaces the default in-memory information store.
func WithInformationStore(store information.Store) Option {
	return func(m *Manager) {
		m.infos = store
	}
}

// WithVerifier checks every purchased and restored transaction before it is
// delivered.
func WithVerifier(verifier verify.Verifier) Option {
	return func(m *Manager) {
		m.verifier = verifier
	}
}

// WithDiagnostics publishes otherwise silent failures on bus, keyed by offer
// identifier.
func WithDiagnostics(bus *event.Bus[string, *Diagnostic]) Option {
	return func(m *Manager) {
		m.diagnostics = bus
	}
}

func WithFetchBatchSize(size int) Option {
	return func(m *Manager) {
		if size > 0 {
			m.fetchBatchSize = size
		}
	}
}

// WithConsumeConcurrency bounds the consumptions a restore runs at once.
func WithConsumeConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.consumeConcurrency = n
		}
	}
}
