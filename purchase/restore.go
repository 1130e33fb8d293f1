package purchase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/code-payments/flipchat-purchases/connector"
	"github.com/code-payments/flipchat-purchases/offer"
	"github.com/code-payments/flipchat-purchases/transaction"
)

var errCursorNotAdvancing = errors.New("owned purchases cursor did not advance")

// PurchaseRestore queries every purchase the user owns and delivers them in one
// HandleRestore call. Any failed page fails the whole restore.
func (m *Manager) PurchaseRestore() {
	sess, ok := m.installedSession()
	if !ok {
		err := newError(KindNotInstalled, "", "restore requires an installed manager")
		m.log.Warn("Rejecting restore, not installed", zap.String("state", m.State().String()))
		m.reject(func(o Observer) { o.HandleRestoreError(err) })
		return
	}

	go m.restore(sess)
}

type restored struct {
	offer  *offer.Offer
	record *connector.RawPurchase
	txn    *transaction.Transaction
}

func (m *Manager) restore(sess *session) {
	ctx := sess.ctx
	log := sess.log.With(zap.String("operation", "restore"))

	records, err := m.fetchOwned(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		log.Warn("Failed to fetch owned purchases", zap.Error(err))
		restoreErr := translate(KindRestore, "", err)
		sess.deliver(func(o Observer) { o.HandleRestoreError(restoreErr) })
		return
	}

	items := m.merge(log, sess, records)

	var verified []*restored
	for _, item := range items {
		itemLog := log.With(zap.String("offer", item.txn.Identifier), zap.String("order_id", item.txn.OrderID))
		if m.verify(ctx, itemLog, item.txn) != nil {
			continue
		}
		verified = append(verified, item)
	}

	if err := m.consumeRestored(ctx, sess, verified); err != nil {
		log.Warn(
			"Failed to consume restored purchases",
			zap.Error(err),
			zap.Int("failures", len(multierr.Errors(err))),
		)
	}

	if ctx.Err() != nil {
		return
	}

	transactions := make([]*transaction.Transaction, len(verified))
	for i, item := range verified {
		transactions[i] = item.txn
	}

	log.Debug("Restored purchases", zap.Int("records", len(records)), zap.Int("transactions", len(transactions)))
	sess.deliver(func(o Observer) { o.HandleRestore(transactions) })
}

// fetchOwned follows the owned purchases cursor to the last page.
func (m *Manager) fetchOwned(ctx context.Context) ([]*connector.RawPurchase, error) {
	var records []*connector.RawPurchase

	cursor := connector.FirstPage
	seen := map[connector.Cursor]struct{}{cursor: {}}
	for {
		res, ok := connector.Await(ctx, m.conn.FetchOwnedPurchases(ctx, cursor))
		if !ok {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errNoResult
		}
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Value == nil {
			return nil, errNoResult
		}

		records = append(records, res.Value.Purchases...)
		if !res.Value.HasMore() {
			return records, nil
		}

		if _, ok := seen[res.Value.Next]; ok {
			return nil, fmt.Errorf("%w: %q", errCursorNotAdvancing, res.Value.Next)
		}
		seen[res.Value.Next] = struct{}{}
		cursor = res.Value.Next
	}
}

// merge normalizes records in arrival order, keeping the first record for each
// order id. Records outside the catalog are skipped.
func (m *Manager) merge(log *zap.Logger, sess *session, records []*connector.RawPurchase) []*restored {
	seen := make(map[string]struct{}, len(records))

	var items []*restored
	for _, record := range records {
		o, txn, err := sess.normalizer.Normalize(record)
		if errors.Is(err, transaction.ErrUnknownProduct) {
			log.Debug("Skipping restored purchase for unknown sku", zap.String("sku", record.SKU))
			continue
		} else if err != nil {
			log.Warn("Skipping restored purchase", zap.Error(err), zap.String("sku", record.SKU))
			continue
		}

		if _, ok := seen[txn.OrderID]; ok {
			continue
		}
		seen[txn.OrderID] = struct{}{}

		items = append(items, &restored{
			offer:  o,
			record: record,
			txn:    txn,
		})
	}
	return items
}

// consumeRestored consumes every consumable item with bounded concurrency. All
// consumptions are attempted; their failures are combined.
func (m *Manager) consumeRestored(ctx context.Context, sess *session, items []*restored) error {
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(m.consumeConcurrency)
	for i, item := range items {
		if !item.offer.IsConsumable() {
			continue
		}

		g.Go(func() error {
			errs[i] = sess.consumer.ensureConsumed(ctx, item.record, item.txn)
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}
