package purchase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/code-payments/flipchat-purchases/connector"
	"github.com/code-payments/flipchat-purchases/event"
	"github.com/code-payments/flipchat-purchases/information"
	infomemory "github.com/code-payments/flipchat-purchases/information/memory"
	"github.com/code-payments/flipchat-purchases/model"
	"github.com/code-payments/flipchat-purchases/offer"
	"github.com/code-payments/flipchat-purchases/transaction"
	"github.com/code-payments/flipchat-purchases/verify"
)

var errNoResult = errors.New("store closed the result channel without a value")

// Manager reconciles one store connector with the application. All outcomes are
// delivered to the Observer registered by Install.
type Manager struct {
	log  *zap.Logger
	conn connector.Connector

	infos              information.Store
	verifier           verify.Verifier
	diagnostics        *event.Bus[string, *Diagnostic]
	fetchBatchSize     int
	consumeConcurrency int

	mu       sync.Mutex
	state    State
	session  *session
	observer Observer
}

func NewManager(log *zap.Logger, conn connector.Connector, opts ...Option) *Manager {
	m := &Manager{
		log:                log.With(zap.String("store", conn.Name())),
		conn:               conn,
		infos:              infomemory.NewInMemory(),
		fetchBatchSize:     DefaultFetchBatchSize,
		consumeConcurrency: DefaultConsumeConcurrency,
		state:              StateUninstalled,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) StoreName() string {
	return m.conn.Name()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *Manager) Installed() bool {
	return m.State() == StateInstalled
}

// Install connects to the store and reports the result to observer. Installing
// while connecting is ignored; installing while installed starts over.
func (m *Manager) Install(observer Observer, config *Config, autoFetchInformation bool) {
	m.mu.Lock()

	var previous *session
	switch m.state {
	case StateConnecting:
		m.mu.Unlock()
		m.log.Warn("Ignoring install, already connecting")
		return
	case StateInstalled:
		m.log.Debug("Reinstalling")
		previous = m.teardownLocked()
		m.setStateLocked(StateUninstalled)
	case StateDisposed:
		m.setStateLocked(StateUninstalled)
	}

	m.observer = observer

	catalog, configErr := config.catalog(m.conn.Supports)
	if configErr != nil {
		m.mu.Unlock()
		if previous != nil {
			previous.close()
		}

		m.log.Warn("Rejecting install, invalid config", zap.Error(configErr))
		if observer != nil {
			observer.HandleInstallError(configErr)
		}
		return
	}

	id := model.MustGenerateSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	log := m.log.With(zap.String("session_id", id))
	sess := &session{
		id:         id,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		observer:   observer,
		catalog:    catalog,
		normalizer: transaction.NewNormalizer(catalog, m.conn.Name()),
		tracker:    newTracker(ctx),
	}
	sess.done = sync.NewCond(&sess.mu)
	sess.consumer = newConsumer(log, m.conn, m.publish)

	m.session = sess
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	if previous != nil {
		previous.close()
	}

	go m.connect(sess, autoFetchInformation)
}

func (m *Manager) connect(sess *session, autoFetchInformation bool) {
	res, ok := connector.Await(sess.ctx, m.conn.Connect(sess.ctx))
	if !ok {
		if sess.ctx.Err() != nil {
			return
		}
		res.Err = errNoResult
	}

	if res.Err != nil {
		err := connectionError(res.Err)
		sess.log.Warn("Failed to connect", zap.Error(res.Err))

		m.mu.Lock()
		if m.session != sess {
			m.mu.Unlock()
			return
		}
		m.session = nil
		m.setStateLocked(StateUninstalled)
		m.mu.Unlock()

		sess.deliver(func(o Observer) { o.HandleInstallError(err) })
		sess.close()
		return
	}

	if autoFetchInformation {
		m.fetchInformation(sess)
	}

	m.mu.Lock()
	if m.session != sess || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateInstalled)
	m.mu.Unlock()

	sess.log.Debug(
		"Installed",
		zap.Int("offers", sess.catalog.Len()),
		zap.Stringers("types", sess.catalog.Types()),
	)
	sess.deliver(func(o Observer) { o.HandleInstall() })
}

// fetchInformation loads product details for the whole catalog in batches.
// Failures leave the affected offers unavailable.
func (m *Manager) fetchInformation(sess *session) {
	skus := sess.catalog.StoreIdentifiers(m.conn.Name())

	for start := 0; start < len(skus); start += m.fetchBatchSize {
		end := start + m.fetchBatchSize
		if end > len(skus) {
			end = len(skus)
		}
		batch := skus[start:end]

		res, ok := connector.Await(sess.ctx, m.conn.FetchProductDetails(sess.ctx, batch))
		if !ok {
			if sess.ctx.Err() != nil {
				return
			}
			res.Err = errNoResult
		}
		if res.Err != nil {
			err := translate(KindFetchItemInformation, "", res.Err)
			sess.log.Warn("Failed to fetch item information", zap.Error(res.Err), zap.Strings("skus", batch))
			m.publish(&Diagnostic{Kind: KindFetchItemInformation, Err: err})
			continue
		}

		for sku, info := range res.Value {
			o, ok := sess.catalog.ByStoreIdentifier(m.conn.Name(), sku)
			if !ok {
				sess.log.Debug("Ignoring information for unknown sku", zap.String("sku", sku))
				continue
			}

			if !m.storeInformation(sess, o.Identifier, info) {
				return
			}
		}
	}
}

// storeInformation writes info unless sess was torn down, which also clears
// the store. It reports whether sess is still current.
func (m *Manager) storeInformation(sess *session, identifier string, info information.Information) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != sess || sess.ctx.Err() != nil {
		sess.log.Debug("Dropping item information for a closed session", zap.String("offer", identifier))
		return false
	}

	if err := m.infos.PutInformation(sess.ctx, identifier, info); err != nil {
		sess.log.Warn("Failed to store item information", zap.Error(err), zap.String("offer", identifier))
	}
	return true
}

// GetInformation returns the fetched information for identifier, or
// information.Unavailable.
func (m *Manager) GetInformation(identifier string) information.Information {
	info, err := m.infos.GetInformation(context.Background(), identifier)
	if err == information.ErrNotFound {
		return information.Unavailable
	} else if err != nil {
		m.log.Warn("Failed to get item information", zap.Error(err), zap.String("offer", identifier))
		return information.Unavailable
	}
	return info
}

// Purchase starts a purchase of the offer. At most one purchase per offer is in
// flight; the outcome is delivered to the observer.
func (m *Manager) Purchase(identifier string) {
	log := m.log.With(zap.String("offer", identifier))

	sess, ok := m.installedSession()
	if !ok {
		err := newError(KindNotInstalled, identifier, "purchase requires an installed manager")
		log.Warn("Rejecting purchase, not installed", zap.String("state", m.State().String()))
		m.reject(func(o Observer) { o.HandlePurchaseError(err) })
		return
	}

	o, ok := sess.catalog.Lookup(identifier)
	if !ok {
		log.Warn("Rejecting purchase, unknown offer")
		sess.deliver(func(obs Observer) { obs.HandlePurchaseError(newError(KindInvalidItem, identifier, "offer is not configured")) })
		return
	}

	token, ctx, ok := sess.tracker.begin(identifier)
	if !ok {
		log.Warn("Rejecting purchase, already in progress")
		sess.deliver(func(obs Observer) { obs.HandlePurchaseError(newError(KindPurchaseInProgress, identifier, "")) })
		return
	}

	go m.purchase(ctx, sess, o, token)
}

func (m *Manager) purchase(ctx context.Context, sess *session, o *offer.Offer, token uint64) {
	sku := o.StoreIdentifier(m.conn.Name())
	log := sess.log.With(
		zap.String("offer", o.Identifier),
		zap.String("sku", sku),
	)

	fail := func(err *Error) {
		if sess.tracker.finish(o.Identifier, token) {
			sess.deliver(func(obs Observer) { obs.HandlePurchaseError(err) })
		}
	}

	log.Debug("Starting purchase")

	res, ok := connector.Await(ctx, m.conn.StartPurchase(ctx, sku))
	if !ok {
		if ctx.Err() != nil {
			sess.tracker.finish(o.Identifier, token)
			return
		}
		res.Err = errNoResult
	}

	if res.Err != nil {
		if connector.OutcomeOf(res.Err) == connector.OutcomeUserCanceled {
			log.Debug("Purchase canceled by user")
			if sess.tracker.finish(o.Identifier, token) {
				sess.deliver(func(obs Observer) { obs.HandlePurchaseCanceled() })
			}
			return
		}

		log.Warn("Failed to purchase", zap.Error(res.Err))
		fail(purchaseError(o.Identifier, res.Err))
		return
	}

	txn, err := sess.normalizer.NormalizeFor(o, res.Value)
	if err != nil {
		log.Warn("Failed to normalize purchase", zap.Error(err))
		fail(translate(KindPurchase, o.Identifier, err))
		return
	}

	log = log.With(zap.String("order_id", txn.OrderID))

	if verr := m.verify(ctx, log, txn); verr != nil {
		fail(verr)
		return
	}

	if o.IsConsumable() {
		// The result is only logged; a paid purchase is delivered regardless.
		_ = sess.consumer.ensureConsumed(ctx, res.Value, txn)
	}

	if !sess.tracker.finish(o.Identifier, token) {
		return
	}

	log.Debug("Purchased")
	sess.deliver(func(obs Observer) { obs.HandlePurchase(txn) })
}

// verify returns a VerificationError if a verifier is configured and txn does
// not pass it.
func (m *Manager) verify(ctx context.Context, log *zap.Logger, txn *transaction.Transaction) *Error {
	if m.verifier == nil {
		return nil
	}

	valid, err := m.verifier.VerifyTransaction(ctx, txn)
	if err != nil {
		log.Warn("Failed to verify transaction", zap.Error(err))
	} else if !valid {
		log.Warn("Transaction failed verification")
	} else {
		return nil
	}

	verr := newError(KindVerification, txn.Identifier, "transaction receipt failed verification")
	if err != nil {
		verr = translate(KindVerification, txn.Identifier, err)
	}
	m.publish(&Diagnostic{
		Kind:       KindVerification,
		Identifier: txn.Identifier,
		OrderID:    txn.OrderID,
		Err:        verr,
	})
	return verr
}

// Dispose cancels outstanding work, disconnects and forgets the observer. Later
// store results are dropped. Disposing twice is a no-op.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.state == StateDisposed {
		m.mu.Unlock()
		return
	}

	sess := m.teardownLocked()
	m.observer = nil
	m.setStateLocked(StateDisposed)
	m.mu.Unlock()

	if sess != nil {
		sess.close()
	}

	m.log.Debug("Disposed")
}

// teardownLocked detaches the current session and disconnects if a connection
// was requested. The caller closes the returned session after releasing m.mu,
// since closing waits for running observer callbacks.
func (m *Manager) teardownLocked() *session {
	sess := m.session
	m.session = nil
	if sess != nil {
		sess.cancel()
	}

	if m.state == StateConnecting || m.state == StateInstalled {
		m.conn.Disconnect()
	}

	if err := m.infos.Clear(context.Background()); err != nil {
		m.log.Warn("Failed to clear item information", zap.Error(err))
	}
	return sess
}

func (m *Manager) setStateLocked(next State) {
	if !m.state.canTransitionTo(next) {
		m.log.DPanic("Invalid state transition", zap.Stringer("from", m.state), zap.Stringer("to", next))
	}

	m.log.Debug("State transition", zap.Stringer("from", m.state), zap.Stringer("to", next))
	m.state = next
}

func (m *Manager) installedSession() (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateInstalled || m.session == nil {
		return nil, false
	}
	return m.session, true
}

// reject delivers a precondition failure outside of any session.
func (m *Manager) reject(fn func(Observer)) {
	m.mu.Lock()
	observer := m.observer
	m.mu.Unlock()

	if observer != nil {
		fn(observer)
	}
}

func (m *Manager) publish(d *Diagnostic) {
	if m.diagnostics == nil {
		return
	}

	d.Timestamp = time.Now()
	_ = m.diagnostics.OnEvent(d.Identifier, d)
}
