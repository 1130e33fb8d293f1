package memory

import (
	"github.com/code-payments/flipchat-purchases/connector"
)

// FailConnect queues errors returned by the next Connect calls, one per call.
func (c *Connector) FailConnect(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connectErrs = append(c.connectErrs, errs...)
}

// HoldConnect makes later Connect calls pend until ReleaseConnect.
func (c *Connector) HoldConnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdConnect = true
}

// ReleaseConnect stops holding and resolves every pending Connect call.
func (c *Connector) ReleaseConnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdConnect = false
	for _, ch := range c.pendingConnect {
		ch <- c.connectLocked()
	}
	c.pendingConnect = nil
}

func (c *Connector) PendingConnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pendingConnect)
}

func (c *Connector) FailFetch(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetchErr = err
}

// HoldFetch makes later FetchProductDetails calls pend until ReleaseFetch.
func (c *Connector) HoldFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdFetch = true
}

func (c *Connector) ReleaseFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdFetch = false
	for _, pending := range c.pendingFetches {
		pending.ch <- c.fetchLocked(pending.skus)
	}
	c.pendingFetches = nil
}

func (c *Connector) PendingFetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pendingFetches)
}

// FetchCalls returns the SKU batches passed to FetchProductDetails.
func (c *Connector) FetchCalls() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	calls := make([][]string, len(c.fetchCalls))
	for i, call := range c.fetchCalls {
		calls[i] = append([]string(nil), call...)
	}
	return calls
}

// FailNextPurchase queues an error for the next StartPurchase call for sku.
func (c *Connector) FailNextPurchase(sku string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purchaseErrs[sku] = append(c.purchaseErrs[sku], err)
}

// HoldPurchases makes later StartPurchase calls pend until they are resolved.
func (c *Connector) HoldPurchases() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdPurchases = true
}

func (c *Connector) PendingPurchases(sku string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pendingPurchases[sku])
}

// CompletePurchase resolves the oldest pending purchase for sku with a new owned
// purchase. An empty orderID is generated. It returns false if nothing is
// pending.
func (c *Connector) CompletePurchase(sku, orderID string) (*connector.RawPurchase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.popPendingPurchaseLocked(sku)
	if !ok {
		return nil, false
	}

	purchase := c.issueLocked(sku, orderID)
	ch <- connector.Ok(purchase.Clone())
	return purchase, true
}

// FailPurchase resolves the oldest pending purchase for sku with err.
func (c *Connector) FailPurchase(sku string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.popPendingPurchaseLocked(sku)
	if !ok {
		return false
	}

	ch <- connector.Fail[*connector.RawPurchase](err)
	return true
}

func (c *Connector) popPendingPurchaseLocked(sku string) (chan connector.Result[*connector.RawPurchase], bool) {
	pending := c.pendingPurchases[sku]
	if len(pending) == 0 {
		return nil, false
	}

	c.pendingPurchases[sku] = pending[1:]
	return pending[0], true
}

func (c *Connector) PurchaseCalls(sku string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.purchaseCalls[sku]
}

// AddOwned appends purchases to the owned set served by FetchOwnedPurchases.
func (c *Connector) AddOwned(purchases ...*connector.RawPurchase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range purchases {
		c.owned = append(c.owned, p.Clone())
	}
}

// SetOwnedPages replaces pagination of the owned set with explicit pages, which
// may repeat purchases across pages.
func (c *Connector) SetOwnedPages(pages ...[]*connector.RawPurchase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pages = make([][]*connector.RawPurchase, len(pages))
	for i, page := range pages {
		for _, p := range page {
			c.pages[i] = append(c.pages[i], p.Clone())
		}
	}
}

// FailOwnedPage makes the query for the page at index fail with err.
func (c *Connector) FailOwnedPage(index int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pageErrs[index] = err
}

// HoldOwned makes later FetchOwnedPurchases calls pend until ReleaseOwned.
func (c *Connector) HoldOwned() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdOwned = true
}

func (c *Connector) ReleaseOwned() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdOwned = false
	for _, pending := range c.pendingOwned {
		pending.ch <- c.ownedPageLocked(pending.cursor)
	}
	c.pendingOwned = nil
}

func (c *Connector) PendingOwned() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pendingOwned)
}

// OwnedRequests returns the cursors passed to FetchOwnedPurchases.
func (c *Connector) OwnedRequests() []connector.Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]connector.Cursor(nil), c.ownedRequests...)
}

func (c *Connector) FailConsume(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consumeErr = err
}

// HoldConsume makes later Consume calls pend until ReleaseConsume.
func (c *Connector) HoldConsume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdConsume = true
}

func (c *Connector) ReleaseConsume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holdConsume = false
	for _, pending := range c.pendingConsumes {
		pending.ch <- c.consumeLocked(pending.purchase)
	}
	c.pendingConsumes = nil
}

func (c *Connector) PendingConsumes() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pendingConsumes)
}

func (c *Connector) ConsumeCount(orderID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.consumed[orderID]
}

func (c *Connector) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

func (c *Connector) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.disconnects
}
