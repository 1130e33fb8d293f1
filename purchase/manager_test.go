package purchase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/code-payments/flipchat-purchases/connector"
	"github.com/code-payments/flipchat-purchases/connector/googleplay"
	"github.com/code-payments/flipchat-purchases/connector/memory"
	"github.com/code-payments/flipchat-purchases/event"
	"github.com/code-payments/flipchat-purchases/information"
	infocache "github.com/code-payments/flipchat-purchases/information/cache"
	infomemory "github.com/code-payments/flipchat-purchases/information/memory"
	"github.com/code-payments/flipchat-purchases/offer"
	"github.com/code-payments/flipchat-purchases/testutil"
	"github.com/code-payments/flipchat-purchases/transaction"
	"github.com/code-payments/flipchat-purchases/verify"
	verifymemory "github.com/code-payments/flipchat-purchases/verify/memory"
)

const settle = 50 * time.Millisecond

var testProducts = map[string]information.Information{
	"full_edition": {
		LocalName:         "Full Edition",
		LocalDescription:  "Unlocks everything",
		LocalPricing:      "$4.99",
		PriceCurrencyCode: "USD",
		Price:             decimal.NewNullDecimal(decimal.RequireFromString("4.99")),
	},
	"sku.coins": {
		LocalName:         "100 Coins",
		LocalPricing:      "$0.99",
		PriceCurrencyCode: "USD",
		Price:             decimal.NewNullDecimal(decimal.RequireFromString("0.99")),
	},
}

func testConfig() *Config {
	return NewConfig(
		offer.New("full_edition", offer.TypeEntitlement),
		offer.New("coins", offer.TypeConsumable).WithStoreIdentifier(memory.StoreName, "sku.coins"),
		offer.New("premium", offer.TypeSubscription),
	)
}

type testEnv struct {
	conn     *memory.Connector
	manager  *Manager
	observer *testutil.RecordingObserver
}

func newTestEnv(connOpts []memory.Option, opts ...Option) *testEnv {
	conn := memory.New(append([]memory.Option{memory.WithProducts(testProducts)}, connOpts...)...)
	return &testEnv{
		conn:     conn,
		manager:  NewManager(zap.NewNop(), conn, opts...),
		observer: testutil.NewRecordingObserver(),
	}
}

func (e *testEnv) install(t *testing.T, config *Config) {
	t.Helper()

	e.manager.Install(e.observer, config, true)
	testutil.Receive(t, e.observer.Installs)
	require.True(t, e.manager.Installed())
}

func newDiagnostics() (*event.Bus[string, *Diagnostic], *event.ChannelStream[*Diagnostic, *Diagnostic]) {
	bus := event.NewBus[string, *Diagnostic]()
	stream := event.NewChannelStream[*Diagnostic, *Diagnostic]("test", 16, func(d *Diagnostic) (*Diagnostic, bool) {
		return d, true
	})
	bus.AddHandler(event.StreamHandler[string, *Diagnostic](stream, time.Second))
	return bus, stream
}

func receiveDiagnostic(t *testing.T, stream *event.ChannelStream[*Diagnostic, *Diagnostic]) *Diagnostic {
	t.Helper()

	select {
	case d := <-stream.Channel():
		return d
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for diagnostic")
	}
	return nil
}

func TestInstall_FetchesInformationBeforeInstall(t *testing.T) {
	env := newTestEnv(nil)

	assert.Equal(t, StateUninstalled, env.manager.State())
	assert.Equal(t, memory.StoreName, env.manager.StoreName())

	env.install(t, testConfig())

	info := env.manager.GetInformation("full_edition")
	assert.True(t, info.IsAvailable())
	assert.Equal(t, "Full Edition", info.LocalName)

	info = env.manager.GetInformation("coins")
	assert.Equal(t, "100 Coins", info.LocalName)

	assert.Equal(t, [][]string{{"full_edition", "sku.coins", "premium"}}, env.conn.FetchCalls())
}

func TestInstall_FetchBatches(t *testing.T) {
	config := NewConfig()
	for i := 0; i < 45; i++ {
		config.AddOffer(offer.New(fmt.Sprintf("offer-%02d", i), offer.TypeEntitlement))
	}

	env := newTestEnv(nil)
	env.install(t, config)

	calls := env.conn.FetchCalls()
	require.Len(t, calls, 3)
	assert.Len(t, calls[0], 20)
	assert.Len(t, calls[1], 20)
	assert.Len(t, calls[2], 5)
	assert.Equal(t, "offer-00", calls[0][0])
	assert.Equal(t, "offer-44", calls[2][4])

	env = newTestEnv(nil, WithFetchBatchSize(10))
	env.install(t, config)
	assert.Len(t, env.conn.FetchCalls(), 5)
}

func TestInstall_WithoutAutoFetch(t *testing.T) {
	env := newTestEnv(nil)

	env.manager.Install(env.observer, testConfig(), false)
	testutil.Receive(t, env.observer.Installs)

	assert.Empty(t, env.conn.FetchCalls())
	assert.Equal(t, information.Unavailable, env.manager.GetInformation("full_edition"))
}

func TestInstall_FetchFailureDoesNotBlock(t *testing.T) {
	bus, stream := newDiagnostics()
	env := newTestEnv(nil, WithDiagnostics(bus))
	env.conn.FailFetch(googleplay.NewError(googleplay.ServiceUnavailable, "unavailable"))

	env.install(t, testConfig())

	assert.Equal(t, information.Unavailable, env.manager.GetInformation("full_edition"))

	d := receiveDiagnostic(t, stream)
	assert.Equal(t, KindFetchItemInformation, d.Kind)
	assert.ErrorIs(t, d.Err, ErrFetchItemInformation)
	assert.Equal(t, "SERVICE_UNAVAILABLE", d.Err.Code)
	assert.False(t, d.Timestamp.IsZero())

	testutil.RequireNone(t, env.observer.InstallErrors, settle)
}

func TestInstall_ConnectFailure(t *testing.T) {
	env := newTestEnv(nil)
	env.conn.FailConnect(googleplay.NewError(googleplay.ServiceDisconnected, "disconnected"))

	env.manager.Install(env.observer, testConfig(), true)

	err := testutil.Receive(t, env.observer.InstallErrors)
	require.ErrorIs(t, err, ErrConnection)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Retryable)
	assert.Equal(t, "SERVICE_DISCONNECTED", perr.Code)
	assert.Equal(t, StateUninstalled, env.manager.State())
	testutil.RequireNone(t, env.observer.Installs, settle)

	env.install(t, testConfig())
}

func TestInstall_ConnectFailureAccountKinds(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want error
	}{
		{name: "login", err: connector.NewError(connector.OutcomeLoginRequired, "60050", "not signed in"), want: ErrLoginRequired},
		{name: "region", err: googleplay.NewError(googleplay.BillingUnavailable, "no billing"), want: ErrRegionNotSupported},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(nil)
			env.conn.FailConnect(tc.err)

			env.manager.Install(env.observer, testConfig(), true)

			err := testutil.Receive(t, env.observer.InstallErrors)
			require.ErrorIs(t, err, tc.want)
			assert.NotErrorIs(t, err, ErrConnection)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.False(t, perr.Retryable)
			assert.Equal(t, StateUninstalled, env.manager.State())
		})
	}
}

func TestInstall_IgnoredWhileConnecting(t *testing.T) {
	env := newTestEnv(nil)
	env.conn.HoldConnect()

	env.manager.Install(env.observer, testConfig(), true)
	require.Eventually(t, func() bool { return env.conn.PendingConnects() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StateConnecting, env.manager.State())

	other := testutil.NewRecordingObserver()
	env.manager.Install(other, testConfig(), true)
	time.Sleep(settle)
	assert.Equal(t, 1, env.conn.PendingConnects())

	env.conn.ReleaseConnect()
	testutil.Receive(t, env.observer.Installs)
	assert.True(t, env.manager.Installed())

	testutil.RequireNone(t, env.observer.Installs, settle)
	assert.Zero(t, other.Calls())
}

func TestInstall_Reinstall(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.conn.HoldPurchases()
	env.manager.Purchase("full_edition")
	require.Eventually(t, func() bool { return env.conn.PendingPurchases("full_edition") == 1 }, time.Second, time.Millisecond)

	env.install(t, testConfig())
	assert.Equal(t, 1, env.conn.Disconnects())
	assert.True(t, env.conn.Connected())

	// The purchase from the first install is dropped.
	_, ok := env.conn.CompletePurchase("full_edition", "stale")
	require.True(t, ok)
	testutil.RequireNone(t, env.observer.Purchases, settle)

	env.manager.Purchase("full_edition")
	require.Eventually(t, func() bool { return env.conn.PendingPurchases("full_edition") == 1 }, time.Second, time.Millisecond)
	_, ok = env.conn.CompletePurchase("full_edition", "fresh")
	require.True(t, ok)

	txn := testutil.Receive(t, env.observer.Purchases)
	assert.Equal(t, "fresh", txn.OrderID)
}

func TestInstall_ConfigurationErrors(t *testing.T) {
	for _, tc := range []struct {
		name       string
		config     *Config
		connOpts   []memory.Option
		identifier string
	}{
		{
			name: "nil config",
		},
		{
			name: "duplicate identifier",
			config: NewConfig(
				offer.New("coins", offer.TypeConsumable),
				offer.New("coins", offer.TypeEntitlement),
			),
		},
		{
			name: "shared store identifier",
			config: NewConfig(
				offer.New("coins", offer.TypeConsumable).WithStoreIdentifier(memory.StoreName, "sku.coins"),
				offer.New("gems", offer.TypeConsumable).WithStoreIdentifier(memory.StoreName, "sku.coins"),
			),
		},
		{
			name:   "empty identifier",
			config: NewConfig(offer.New("", offer.TypeConsumable)),
		},
		{
			name:       "unsupported offer type",
			config:     testConfig(),
			connOpts:   []memory.Option{memory.WithUnsupportedTypes(offer.TypeSubscription)},
			identifier: "premium",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(tc.connOpts)

			env.manager.Install(env.observer, tc.config, true)

			err := testutil.Receive(t, env.observer.InstallErrors)
			require.ErrorIs(t, err, ErrConfiguration)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tc.identifier, perr.Identifier)
			assert.False(t, perr.Retryable)

			assert.Equal(t, StateUninstalled, env.manager.State())
			assert.False(t, env.conn.Connected())
			testutil.RequireNone(t, env.observer.Installs, settle)
		})
	}
}

func TestInstall_AfterDispose(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.manager.Dispose()
	assert.Equal(t, StateDisposed, env.manager.State())

	env.install(t, testConfig())
	assert.Equal(t, StateInstalled, env.manager.State())
	assert.True(t, env.manager.GetInformation("full_edition").IsAvailable())
}

func TestDispose(t *testing.T) {
	env := newTestEnv(nil)

	// Disposing an uninstalled manager does not disconnect.
	env.manager.Dispose()
	assert.Zero(t, env.conn.Disconnects())

	env.install(t, testConfig())
	require.True(t, env.manager.GetInformation("full_edition").IsAvailable())

	env.manager.Dispose()
	assert.False(t, env.manager.Installed())
	assert.Equal(t, StateDisposed, env.manager.State())
	assert.Equal(t, 1, env.conn.Disconnects())
	assert.Equal(t, information.Unavailable, env.manager.GetInformation("full_edition"))

	env.manager.Dispose()
	assert.Equal(t, 1, env.conn.Disconnects())

	// The observer is dropped, so precondition failures go nowhere.
	calls := env.observer.Calls()
	env.manager.Purchase("full_edition")
	env.manager.PurchaseRestore()
	time.Sleep(settle)
	assert.Equal(t, calls, env.observer.Calls())
}

func TestDispose_DropsLatePurchase(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.conn.HoldPurchases()
	env.manager.Purchase("full_edition")
	require.Eventually(t, func() bool { return env.conn.PendingPurchases("full_edition") == 1 }, time.Second, time.Millisecond)

	calls := env.observer.Calls()
	env.manager.Dispose()

	_, ok := env.conn.CompletePurchase("full_edition", "X")
	require.True(t, ok)

	testutil.RequireNone(t, env.observer.Purchases, settle)
	assert.Equal(t, calls, env.observer.Calls())
}

func TestDispose_DropsLateConnect(t *testing.T) {
	env := newTestEnv(nil)
	env.conn.HoldConnect()

	env.manager.Install(env.observer, testConfig(), true)
	require.Eventually(t, func() bool { return env.conn.PendingConnects() == 1 }, time.Second, time.Millisecond)

	env.manager.Dispose()
	env.conn.ReleaseConnect()

	testutil.RequireNone(t, env.observer.Installs, settle)
	assert.Zero(t, env.observer.Calls())
	assert.Equal(t, StateDisposed, env.manager.State())
}

func TestDispose_DropsLateConsume(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.conn.HoldConsume()
	env.manager.Purchase("coins")
	require.Eventually(t, func() bool { return env.conn.PendingConsumes() == 1 }, time.Second, time.Millisecond)

	env.manager.Dispose()
	env.conn.ReleaseConsume()

	testutil.RequireNone(t, env.observer.Purchases, settle)
	testutil.RequireNone(t, env.observer.PurchaseErrors, settle)
}

func TestDispose_DropsLateRestore(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.conn.AddOwned(owned("full_edition", "A"))
	env.conn.HoldOwned()
	env.manager.PurchaseRestore()
	require.Eventually(t, func() bool { return env.conn.PendingOwned() == 1 }, time.Second, time.Millisecond)

	calls := env.observer.Calls()
	env.manager.Dispose()
	env.conn.ReleaseOwned()

	testutil.RequireNone(t, env.observer.Restores, settle)
	testutil.RequireNone(t, env.observer.RestoreErrors, settle)
	assert.Equal(t, calls, env.observer.Calls())
}

func TestDispose_DropsLateInformation(t *testing.T) {
	env := newTestEnv(nil)
	env.conn.HoldFetch()

	env.manager.Install(env.observer, testConfig(), true)
	require.Eventually(t, func() bool { return env.conn.PendingFetches() == 1 }, time.Second, time.Millisecond)

	env.manager.Dispose()
	env.conn.ReleaseFetch()

	testutil.RequireNone(t, env.observer.Installs, settle)
	assert.Zero(t, env.observer.Calls())
	assert.Equal(t, information.Unavailable, env.manager.GetInformation("full_edition"))
}

// disposingConnector disposes the manager while answering the product details
// query, so the answer is ready when the manager picks it up.
type disposingConnector struct {
	*memory.Connector
	manager *Manager
}

func (c *disposingConnector) FetchProductDetails(ctx context.Context, skus []string) <-chan connector.Result[map[string]information.Information] {
	ch := c.Connector.FetchProductDetails(ctx, skus)
	c.manager.Dispose()

	details := make(map[string]information.Information, len(skus))
	for _, sku := range skus {
		if info, ok := testProducts[sku]; ok {
			details[sku] = info
		}
	}
	<-ch
	return connector.Resolve(connector.Ok(details))
}

func TestDispose_DuringInformationFetch(t *testing.T) {
	for i := 0; i < 50; i++ {
		conn := &disposingConnector{Connector: memory.New(memory.WithProducts(testProducts))}
		conn.manager = NewManager(zap.NewNop(), conn)
		observer := testutil.NewRecordingObserver()

		conn.manager.Install(observer, testConfig(), true)

		require.Eventually(t, func() bool { return conn.manager.State() == StateDisposed }, time.Second, time.Millisecond)
		time.Sleep(5 * time.Millisecond)

		require.Equal(t, information.Unavailable, conn.manager.GetInformation("full_edition"), "run %d", i)
		require.Zero(t, observer.Calls())
	}
}

func TestPurchase_NotInstalled(t *testing.T) {
	env := newTestEnv(nil)

	// No observer is registered yet; the failure is only logged.
	env.manager.Purchase("full_edition")
	env.manager.PurchaseRestore()

	env.conn.FailConnect(errors.New("unreachable"))
	env.manager.Install(env.observer, testConfig(), true)
	testutil.Receive(t, env.observer.InstallErrors)

	env.manager.Purchase("full_edition")
	err := testutil.Receive(t, env.observer.PurchaseErrors)
	assert.ErrorIs(t, err, ErrNotInstalled)

	env.manager.PurchaseRestore()
	err = testutil.Receive(t, env.observer.RestoreErrors)
	assert.ErrorIs(t, err, ErrNotInstalled)

	assert.Zero(t, env.conn.PurchaseCalls("full_edition"))
	assert.Empty(t, env.conn.OwnedRequests())
}

func TestPurchase_InvalidItem(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.manager.Purchase("missing")

	err := testutil.Receive(t, env.observer.PurchaseErrors)
	require.ErrorIs(t, err, ErrInvalidItem)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "missing", perr.Identifier)
	assert.Zero(t, env.conn.PurchaseCalls("missing"))
}

func TestPurchase_SingleFlight(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, NewConfig(offer.New("full_edition", offer.TypeEntitlement)))

	env.conn.HoldPurchases()
	env.manager.Purchase("full_edition")
	env.manager.Purchase("full_edition")

	err := testutil.Receive(t, env.observer.PurchaseErrors)
	require.ErrorIs(t, err, ErrPurchaseInProgress)

	require.Eventually(t, func() bool { return env.conn.PendingPurchases("full_edition") == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, env.conn.PurchaseCalls("full_edition"))

	_, ok := env.conn.CompletePurchase("full_edition", "X")
	require.True(t, ok)

	txn := testutil.Receive(t, env.observer.Purchases)
	assert.Equal(t, "X", txn.OrderID)
	assert.Equal(t, "full_edition", txn.Identifier)
	assert.Equal(t, memory.StoreName, txn.StoreName)

	testutil.RequireNone(t, env.observer.Purchases, settle)
	testutil.RequireNone(t, env.observer.PurchaseErrors, settle)

	// The lock is released once the outcome is delivered.
	env.manager.Purchase("full_edition")
	require.Eventually(t, func() bool { return env.conn.PendingPurchases("full_edition") == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 2, env.conn.PurchaseCalls("full_edition"))
}

func TestPurchase_ConcurrentCalls(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())
	env.conn.HoldPurchases()

	const callers = 20

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.manager.Purchase("full_edition")
		}()
	}
	wg.Wait()

	for i := 0; i < callers-1; i++ {
		err := testutil.Receive(t, env.observer.PurchaseErrors)
		require.ErrorIs(t, err, ErrPurchaseInProgress)
	}

	require.Eventually(t, func() bool { return env.conn.PendingPurchases("full_edition") == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, env.conn.PurchaseCalls("full_edition"))
	testutil.RequireNone(t, env.observer.PurchaseErrors, settle)
}

func TestPurchase_Outcomes(t *testing.T) {
	for _, tc := range []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
		canceled  bool
	}{
		{name: "user canceled", err: googleplay.NewError(googleplay.UserCanceled, ""), canceled: true},
		{name: "already owned", err: googleplay.NewError(googleplay.ItemAlreadyOwned, ""), kind: KindItemAlreadyOwned},
		{name: "invalid product", err: googleplay.NewError(googleplay.ItemUnavailable, ""), kind: KindInvalidItem},
		{name: "transient", err: googleplay.NewError(googleplay.NetworkError, ""), kind: KindPurchase, retryable: true},
		{name: "login required", err: connector.NewError(connector.OutcomeLoginRequired, "", "sign in"), kind: KindLoginRequired},
		{name: "region", err: googleplay.NewError(googleplay.BillingUnavailable, ""), kind: KindRegionNotSupported},
		{name: "failure", err: googleplay.NewError(googleplay.DeveloperError, "bad request"), kind: KindPurchase},
		{name: "unclassified", err: errors.New("boom"), kind: KindPurchase},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(nil)
			env.install(t, testConfig())

			env.conn.FailNextPurchase("full_edition", tc.err)
			env.manager.Purchase("full_edition")

			if tc.canceled {
				testutil.Receive(t, env.observer.Cancels)
				testutil.RequireNone(t, env.observer.PurchaseErrors, settle)
			} else {
				err := testutil.Receive(t, env.observer.PurchaseErrors)

				var perr *Error
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tc.kind, perr.Kind)
				assert.Equal(t, tc.retryable, perr.Retryable)
				assert.Equal(t, "full_edition", perr.Identifier)
			}

			// Every outcome releases the purchase lock.
			env.manager.Purchase("full_edition")
			txn := testutil.Receive(t, env.observer.Purchases)
			assert.Equal(t, "full_edition", txn.Identifier)
		})
	}
}

func TestPurchase_StoreIdentifier(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.manager.Purchase("coins")

	txn := testutil.Receive(t, env.observer.Purchases)
	assert.Equal(t, "coins", txn.Identifier)
	assert.Equal(t, 1, env.conn.PurchaseCalls("sku.coins"))
	assert.Zero(t, env.conn.PurchaseCalls("coins"))

	require.True(t, txn.PurchaseCost.Valid)
	assert.True(t, decimal.RequireFromString("0.99").Equal(txn.PurchaseCost.Decimal))
	assert.Equal(t, "USD", txn.PurchaseCostCurrency)
	assert.NotEmpty(t, txn.RawTransactionData)
	assert.False(t, txn.IsReversed())
}

func TestPurchase_EntitlementNotConsumed(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.manager.Purchase("full_edition")

	txn := testutil.Receive(t, env.observer.Purchases)
	assert.Zero(t, env.conn.ConsumeCount(txn.OrderID))
}

func TestPurchase_ConsumedBeforeDelivery(t *testing.T) {
	env := newTestEnv(nil)
	env.install(t, testConfig())

	env.conn.HoldConsume()
	env.manager.Purchase("coins")
	require.Eventually(t, func() bool { return env.conn.PendingConsumes() == 1 }, time.Second, time.Millisecond)

	testutil.RequireNone(t, env.observer.Purchases, settle)

	// Still in flight while consuming.
	env.manager.Purchase("coins")
	err := testutil.Receive(t, env.observer.PurchaseErrors)
	require.ErrorIs(t, err, ErrPurchaseInProgress)

	env.conn.ReleaseConsume()

	txn := testutil.Receive(t, env.observer.Purchases)
	assert.Equal(t, 1, env.conn.ConsumeCount(txn.OrderID))
}

func TestPurchase_ConsumeFailureStillDelivered(t *testing.T) {
	bus, stream := newDiagnostics()
	env := newTestEnv(nil, WithDiagnostics(bus))
	env.install(t, testConfig())

	env.conn.FailConsume(googleplay.NewError(googleplay.ServiceTimeout, "timeout"))
	env.manager.Purchase("coins")

	txn := testutil.Receive(t, env.observer.Purchases)
	assert.Equal(t, "coins", txn.Identifier)
	assert.Zero(t, env.conn.ConsumeCount(txn.OrderID))
	testutil.RequireNone(t, env.observer.PurchaseErrors, settle)

	d := receiveDiagnostic(t, stream)
	assert.Equal(t, KindConsumption, d.Kind)
	assert.Equal(t, "coins", d.Identifier)
	assert.Equal(t, txn.OrderID, d.OrderID)
	assert.ErrorIs(t, d.Err, ErrConsumption)
}

func TestPurchase_Verification(t *testing.T) {
	pub, priv, err := verifymemory.GenerateKeyPair()
	require.NoError(t, err)
	otherPub, _, err := verifymemory.GenerateKeyPair()
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		env := newTestEnv([]memory.Option{memory.WithSigner(priv)}, WithVerifier(verifymemory.NewMemoryVerifier(pub)))
		env.install(t, testConfig())

		env.manager.Purchase("full_edition")
		txn := testutil.Receive(t, env.observer.Purchases)
		assert.NotEmpty(t, txn.RawTransactionSignature)
	})

	t.Run("invalid", func(t *testing.T) {
		bus, stream := newDiagnostics()
		env := newTestEnv(
			[]memory.Option{memory.WithSigner(priv)},
			WithVerifier(verifymemory.NewMemoryVerifier(otherPub)),
			WithDiagnostics(bus),
		)
		env.install(t, testConfig())
		env.conn.HoldConsume()

		env.manager.Purchase("coins")
		err := testutil.Receive(t, env.observer.PurchaseErrors)
		require.ErrorIs(t, err, ErrVerification)
		testutil.RequireNone(t, env.observer.Purchases, settle)

		d := receiveDiagnostic(t, stream)
		assert.Equal(t, KindVerification, d.Kind)
		assert.Equal(t, "coins", d.Identifier)

		// Unverified consumables are not consumed.
		assert.Zero(t, env.conn.PendingConsumes())

		env.manager.Purchase("coins")
		require.ErrorIs(t, testutil.Receive(t, env.observer.PurchaseErrors), ErrVerification)
	})

	t.Run("verifier failure", func(t *testing.T) {
		env := newTestEnv(nil, WithVerifier(verify.VerifierFunc(func(context.Context, *transaction.Transaction) (bool, error) {
			return false, errors.New("verification backend unavailable")
		})))
		env.install(t, testConfig())

		env.manager.Purchase("full_edition")
		err := testutil.Receive(t, env.observer.PurchaseErrors)
		require.ErrorIs(t, err, ErrVerification)
		assert.Contains(t, err.Error(), "verification backend unavailable")
	})
}

type failingStore struct {
	information.Store
}

func (s *failingStore) GetInformation(_ context.Context, _ string) (information.Information, error) {
	return information.Information{}, errors.New("store unavailable")
}

func TestGetInformation(t *testing.T) {
	env := newTestEnv(nil)

	assert.Equal(t, information.Unavailable, env.manager.GetInformation("full_edition"))

	env.install(t, testConfig())
	assert.True(t, env.manager.GetInformation("full_edition").IsAvailable())
	assert.Equal(t, information.Unavailable, env.manager.GetInformation("premium"))
	assert.Equal(t, information.Unavailable, env.manager.GetInformation("missing"))
	assert.Equal(t, information.Unavailable, env.manager.GetInformation(""))

	failing := newTestEnv(nil, WithInformationStore(&failingStore{Store: infomemory.NewInMemory()}))
	failing.install(t, testConfig())
	assert.Equal(t, information.Unavailable, failing.manager.GetInformation("full_edition"))
}

func TestGetInformation_CachedStore(t *testing.T) {
	env := newTestEnv(nil, WithInformationStore(infocache.NewInCache(infomemory.NewInMemory(), time.Minute)))
	env.install(t, testConfig())

	info := env.manager.GetInformation("coins")
	assert.Equal(t, "100 Coins", info.LocalName)

	env.manager.Dispose()
	assert.Equal(t, information.Unavailable, env.manager.GetInformation("coins"))
}
