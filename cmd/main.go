package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/code-payments/flipchat-purchases/config"
	"github.com/code-payments/flipchat-purchases/connector/memory"
	"github.com/code-payments/flipchat-purchases/event"
	"github.com/code-payments/flipchat-purchases/information"
	infocache "github.com/code-payments/flipchat-purchases/information/cache"
	infomemory "github.com/code-payments/flipchat-purchases/information/memory"
	"github.com/code-payments/flipchat-purchases/offer"
	"github.com/code-payments/flipchat-purchases/purchase"
	"github.com/code-payments/flipchat-purchases/transaction"
	"github.com/code-payments/flipchat-purchases/verify"
	"github.com/code-payments/flipchat-purchases/verify/android"
	googleplayverify "github.com/code-payments/flipchat-purchases/verify/googleplay"
	verifymemory "github.com/code-payments/flipchat-purchases/verify/memory"
)

type options struct {
	configPath string
	envFiles   []string
	storeName  string
	trial      string
	cacheTTL   time.Duration
	timeout    time.Duration
	verbose    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "iapdemo",
		Short:        "Drive the purchase manager against an in-memory store",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "catalog yaml; a built-in catalog is used when empty")
	flags.StringSliceVar(&opts.envFiles, "env", nil, ".env files loaded before the catalog")
	flags.StringVar(&opts.storeName, "store", memory.StoreName, "store name reported by the connector")
	flags.StringVar(&opts.trial, "trial", "P1W", "iso-8601 free trial period offered on subscriptions")
	flags.DurationVar(&opts.cacheTTL, "cache-ttl", 10*time.Minute, "product information cache ttl")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Second, "how long to wait for each store callback")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "development logging")

	cmd.AddCommand(
		newCatalogCommand(opts),
		newPurchaseCommand(opts),
		newRestoreCommand(opts),
	)
	return cmd
}

func newCatalogCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Install with information fetching and print the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := setup(opts, true)
			if err != nil {
				return err
			}
			defer d.close()

			for _, o := range d.config.Offers {
				info := d.manager.GetInformation(o.Identifier)
				if !info.IsAvailable() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-12s unavailable\n", o.Identifier, o.Type)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-12s %s (%s)\n", o.Identifier, o.Type, info.LocalPricing, info.LocalName)
			}
			return nil
		},
	}
}

func newPurchaseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purchase <identifier>...",
		Short: "Purchase offers one after another",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(opts, false)
			if err != nil {
				return err
			}
			defer d.close()

			return d.purchaseAll(cmd.OutOrStdout(), args)
		},
	}
}

func newRestoreCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [identifier]...",
		Short: "Purchase the given offers, then restore everything owned",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(opts, false)
			if err != nil {
				return err
			}
			defer d.close()

			if err := d.purchaseAll(io.Discard, args); err != nil {
				return err
			}

			d.manager.PurchaseRestore()

			e, err := d.observer.await(opts.timeout)
			if err != nil {
				return err
			}
			if e.err != nil {
				return e.err
			}

			for _, txn := range e.txns {
				printTransaction(cmd.OutOrStdout(), txn)
			}
			return nil
		},
	}
}

type demo struct {
	log      *zap.Logger
	opts     *options
	config   *purchase.Config
	manager  *purchase.Manager
	observer *channelObserver
	stream   *event.ChannelStream[*purchase.Diagnostic, *purchase.Diagnostic]
}

func setup(opts *options, autoFetch bool) (*demo, error) {
	log, err := newLogger(opts.verbose)
	if err != nil {
		return nil, err
	}

	if len(opts.envFiles) > 0 {
		if err := config.LoadEnv(opts.envFiles...); err != nil {
			return nil, err
		}
	}

	cfg := defaultConfig()
	if opts.configPath != "" {
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	pub, priv, err := verifymemory.GenerateKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate signing key")
	}

	trial, err := information.ParsePeriod(opts.trial)
	if err != nil {
		return nil, err
	}

	conn := memory.New(
		memory.WithStoreName(opts.storeName),
		memory.WithProducts(demoProducts(cfg, opts.storeName, trial)),
		memory.WithSigner(priv),
	)

	verifier, err := newVerifier(log, cfg, opts.storeName, pub)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus[string, *purchase.Diagnostic]()
	stream := event.NewChannelStream[*purchase.Diagnostic, *purchase.Diagnostic]("iapdemo", 64, func(d *purchase.Diagnostic) (*purchase.Diagnostic, bool) {
		return d, true
	})
	bus.AddHandler(event.StreamHandler[string, *purchase.Diagnostic](stream, time.Second))
	go logDiagnostics(log, stream)

	d := &demo{
		log:    log,
		opts:   opts,
		config: cfg,
		manager: purchase.NewManager(
			log,
			conn,
			purchase.WithInformationStore(infocache.NewInCache(infomemory.NewInMemory(), opts.cacheTTL)),
			purchase.WithVerifier(verifier),
			purchase.WithDiagnostics(bus),
		),
		observer: newChannelObserver(log),
		stream:   stream,
	}

	d.manager.Install(d.observer, cfg, autoFetch)

	e, err := d.observer.await(opts.timeout)
	if err != nil {
		d.close()
		return nil, err
	}
	if e.err != nil {
		d.close()
		return nil, e.err
	}

	return d, nil
}

func (d *demo) purchaseAll(out io.Writer, identifiers []string) error {
	for _, identifier := range identifiers {
		d.manager.Purchase(identifier)

		e, err := d.observer.await(d.opts.timeout)
		if err != nil {
			return err
		}

		switch {
		case e.canceled:
			fmt.Fprintf(out, "%s: canceled\n", identifier)
		case e.err != nil:
			return e.err
		default:
			printTransaction(out, e.txn)
		}
	}
	return nil
}

func (d *demo) close() {
	d.manager.Dispose()
	d.stream.Close()
	_ = d.log.Sync()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func defaultConfig() *purchase.Config {
	return purchase.NewConfig(
		offer.New("full_edition", offer.TypeEntitlement),
		offer.New("coins", offer.TypeConsumable).WithStoreIdentifier(memory.StoreName, "sku.coins"),
		offer.New("premium", offer.TypeSubscription),
	)
}

func demoProducts(cfg *purchase.Config, storeName string, trial *information.FreeTrialPeriod) map[string]information.Information {
	products := map[string]information.Information{}
	for i, o := range cfg.Offers {
		price := decimal.New(int64(99+i*100), -2)
		info := information.Information{
			LocalName:         o.Identifier,
			LocalDescription:  fmt.Sprintf("%s %s", o.Identifier, o.Type),
			LocalPricing:      "$" + price.StringFixed(2),
			PriceCurrencyCode: "USD",
			Price:             decimal.NewNullDecimal(price),
		}
		if o.Type == offer.TypeSubscription && trial != nil {
			period := *trial
			info.FreeTrialPeriod = &period
		}
		products[o.StoreIdentifier(storeName)] = info
	}
	return products
}

// newVerifier picks a verifier from the store's parameters. Without any, the
// demo key that signs memory purchases is used.
func newVerifier(log *zap.Logger, cfg *purchase.Config, storeName string, pub ed25519.PublicKey) (verify.Verifier, error) {
	if key, ok := cfg.StoreParam(storeName, googleplayverify.PublicKeyParam); ok {
		log.Info("Verifying play signatures", zap.String("store", storeName))
		return googleplayverify.NewSignatureVerifier(key)
	}

	if path, ok := cfg.StoreParam(storeName, android.ServiceAccountFileParam); ok {
		pkg, _ := cfg.StoreParam(storeName, android.PackageNameParam)
		serviceAccount, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read service account")
		}

		log.Info("Verifying with the play developer api", zap.String("store", storeName), zap.String("package", pkg))
		return android.NewAndroidVerifier(serviceAccount, pkg), nil
	}

	return verifymemory.NewMemoryVerifier(pub), nil
}

func logDiagnostics(log *zap.Logger, stream *event.ChannelStream[*purchase.Diagnostic, *purchase.Diagnostic]) {
	for d := range stream.Channel() {
		log.Warn(
			"Purchase diagnostic",
			zap.Stringer("kind", d.Kind),
			zap.String("identifier", d.Identifier),
			zap.String("order_id", d.OrderID),
			zap.Error(d.Err),
		)
	}
}

func printTransaction(out io.Writer, txn *transaction.Transaction) {
	cost := "-"
	if txn.PurchaseCost.Valid {
		cost = txn.PurchaseCost.Decimal.StringFixed(2) + " " + txn.PurchaseCostCurrency
	}
	fmt.Fprintf(out, "%-20s %-24s %s %s\n", txn.Identifier, txn.OrderID, txn.PurchaseTime.Format(time.RFC3339), cost)
}

type outcome struct {
	txn      *transaction.Transaction
	txns     []*transaction.Transaction
	canceled bool
	err      error
}

// channelObserver turns observer callbacks into a stream of outcomes for the
// command that is waiting on them.
type channelObserver struct {
	log      *zap.Logger
	outcomes chan outcome
}

func newChannelObserver(log *zap.Logger) *channelObserver {
	return &channelObserver{
		log:      log,
		outcomes: make(chan outcome, 16),
	}
}

func (o *channelObserver) await(timeout time.Duration) (outcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case e := <-o.outcomes:
		return e, nil
	case <-ctx.Done():
		return outcome{}, errors.New("timed out waiting for the store")
	}
}

func (o *channelObserver) HandleInstall() {
	o.log.Debug("Installed")
	o.outcomes <- outcome{}
}

func (o *channelObserver) HandleInstallError(err error) {
	o.log.Warn("Failed to install", zap.Error(err))
	o.outcomes <- outcome{err: err}
}

func (o *channelObserver) HandleRestore(txns []*transaction.Transaction) {
	o.log.Debug("Restored", zap.Int("count", len(txns)))
	o.outcomes <- outcome{txns: txns}
}

func (o *channelObserver) HandleRestoreError(err error) {
	o.log.Warn("Failed to restore", zap.Error(err))
	o.outcomes <- outcome{err: err}
}

func (o *channelObserver) HandlePurchase(txn *transaction.Transaction) {
	o.log.Debug("Purchased", zap.String("identifier", txn.Identifier), zap.String("order_id", txn.OrderID))
	o.outcomes <- outcome{txn: txn}
}

func (o *channelObserver) HandlePurchaseError(err error) {
	o.log.Warn("Failed to purchase", zap.Error(err))
	o.outcomes <- outcome{err: err}
}

func (o *channelObserver) HandlePurchaseCanceled() {
	o.log.Debug("Purchase canceled")
	o.outcomes <- outcome{canceled: true}
}
