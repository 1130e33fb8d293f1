package purchase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/code-payments/flipchat-purchases/connector"
	"github.com/code-payments/flipchat-purchases/transaction"
)

// consumer acknowledges consumable purchases with the store. Order ids that were
// consumed in this session are not consumed again, and a caller that finds an
// order id being consumed waits for that consumption. A failed consumption is
// forgotten so a later restore can retry it.
type consumer struct {
	log     *zap.Logger
	conn    connector.Connector
	publish func(*Diagnostic)

	mu     sync.Mutex
	orders map[string]*consumption
}

// consumption is closed once the store answered; err is set before done closes.
type consumption struct {
	done chan struct{}
	err  error
}

func newConsumer(log *zap.Logger, conn connector.Connector, publish func(*Diagnostic)) *consumer {
	return &consumer{
		log:     log,
		conn:    conn,
		publish: publish,
		orders:  make(map[string]*consumption),
	}
}

// ensureConsumed blocks until the store acknowledged record or ctx is done. The
// returned error is for logging only; the transaction is delivered either way.
func (c *consumer) ensureConsumed(ctx context.Context, record *connector.RawPurchase, txn *transaction.Transaction) error {
	log := c.log.With(
		zap.String("offer", txn.Identifier),
		zap.String("order_id", txn.OrderID),
	)

	c.mu.Lock()
	if existing, ok := c.orders[txn.OrderID]; ok {
		c.mu.Unlock()

		select {
		case <-existing.done:
			log.Debug("Skipping consumption, already consumed")
			return existing.err
		default:
		}

		log.Debug("Waiting for consumption in progress")
		select {
		case <-existing.done:
			return existing.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	current := &consumption{done: make(chan struct{})}
	c.orders[txn.OrderID] = current
	c.mu.Unlock()

	err := c.consume(ctx, log, record, txn)
	if err != nil {
		c.forget(txn.OrderID, current)
	}
	current.err = err
	close(current.done)
	return err
}

func (c *consumer) consume(ctx context.Context, log *zap.Logger, record *connector.RawPurchase, txn *transaction.Transaction) error {
	res, ok := connector.Await(ctx, c.conn.Consume(ctx, record))
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res.Err = errNoResult
	}
	if res.Err != nil {
		err := translate(KindConsumption, txn.Identifier, res.Err)
		log.Warn("Failed to consume purchase", zap.Error(res.Err))
		c.publish(&Diagnostic{
			Kind:       KindConsumption,
			Identifier: txn.Identifier,
			OrderID:    txn.OrderID,
			Err:        err,
		})
		return err
	}

	log.Debug("Consumed purchase")
	return nil
}

func (c *consumer) forget(orderID string, current *consumption) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.orders[orderID] == current {
		delete(c.orders, orderID)
	}
}
