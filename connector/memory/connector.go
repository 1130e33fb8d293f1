package memory

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/flipchat-purchases/connector"
	"github.com/code-payments/flipchat-purchases/information"
	"github.com/code-payments/flipchat-purchases/model"
	"github.com/code-payments/flipchat-purchases/offer"
	verifymemory "github.com/code-payments/flipchat-purchases/verify/memory"
)

const StoreName = "Memory"

var (
	ErrNotConnected  = errors.New("memory connector is not connected")
	ErrInvalidCursor = errors.New("invalid owned purchases cursor")
)

type Option func(*Connector)

func WithStoreName(name string) Option {
	return func(c *Connector) {
		c.name = name
	}
}

// WithProducts sets the product details served by FetchProductDetails, keyed by
// SKU.
func WithProducts(products map[string]information.Information) Option {
	return func(c *Connector) {
		for sku, info := range products {
			c.products[sku] = info.Clone()
		}
	}
}

func WithUnsupportedTypes(types ...offer.Type) Option {
	return func(c *Connector) {
		for _, t := range types {
			c.unsupported[t] = struct{}{}
		}
	}
}

// WithSigner signs issued purchase payloads so they pass a memory verifier.
func WithSigner(key ed25519.PrivateKey) Option {
	return func(c *Connector) {
		c.signer = key
	}
}

// WithPageSize bounds the number of purchases per owned purchases page.
func WithPageSize(size int) Option {
	return func(c *Connector) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// Connector is a scriptable, in-memory store backend. By default every
// operation completes immediately and successfully; tests hold or fail
// individual operations to drive the purchase manager through its edge cases.
type Connector struct {
	mu sync.Mutex

	name        string
	unsupported map[offer.Type]struct{}
	products    map[string]information.Information
	signer      ed25519.PrivateKey
	pageSize    int

	connected      bool
	disconnects    int
	connectErrs    []error
	holdConnect    bool
	pendingConnect []chan connector.Result[connector.Connected]

	fetchErr       error
	fetchCalls     [][]string
	holdFetch      bool
	pendingFetches []pendingFetch

	holdPurchases    bool
	purchaseErrs     map[string][]error
	pendingPurchases map[string][]chan connector.Result[*connector.RawPurchase]
	purchaseCalls    map[string]int

	owned         []*connector.RawPurchase
	pages         [][]*connector.RawPurchase
	pageErrs      map[int]error
	holdOwned     bool
	pendingOwned  []pendingOwned
	ownedRequests []connector.Cursor

	consumeErr      error
	holdConsume     bool
	pendingConsumes []pendingConsume
	consumed        map[string]int
}

type pendingFetch struct {
	ch   chan connector.Result[map[string]information.Information]
	skus []string
}

type pendingOwned struct {
	ch     chan connector.Result[*connector.OwnedPage]
	cursor connector.Cursor
}

type pendingConsume struct {
	ch       chan connector.Result[connector.Consumed]
	purchase *connector.RawPurchase
}

func New(opts ...Option) *Connector {
	c := &Connector{
		name:             StoreName,
		unsupported:      map[offer.Type]struct{}{},
		products:         map[string]information.Information{},
		pageSize:         100,
		purchaseErrs:     map[string][]error{},
		pendingPurchases: map[string][]chan connector.Result[*connector.RawPurchase]{},
		purchaseCalls:    map[string]int{},
		pageErrs:         map[int]error{},
		consumed:         map[string]int{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connector) Name() string {
	return c.name
}

func (c *Connector) Supports(t offer.Type) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, unsupported := c.unsupported[t]
	return !unsupported
}

func (c *Connector) Connect(_ context.Context) <-chan connector.Result[connector.Connected] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holdConnect {
		ch := make(chan connector.Result[connector.Connected], 1)
		c.pendingConnect = append(c.pendingConnect, ch)
		return ch
	}

	return connector.Resolve(c.connectLocked())
}

func (c *Connector) connectLocked() connector.Result[connector.Connected] {
	if len(c.connectErrs) > 0 {
		err := c.connectErrs[0]
		c.connectErrs = c.connectErrs[1:]
		return connector.Fail[connector.Connected](err)
	}

	c.connected = true
	return connector.Ok(connector.Connected{})
}

func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.disconnects++
}

func (c *Connector) FetchProductDetails(_ context.Context, skus []string) <-chan connector.Result[map[string]information.Information] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetchCalls = append(c.fetchCalls, append([]string(nil), skus...))

	if c.holdFetch {
		ch := make(chan connector.Result[map[string]information.Information], 1)
		c.pendingFetches = append(c.pendingFetches, pendingFetch{ch: ch, skus: append([]string(nil), skus...)})
		return ch
	}

	return connector.Resolve(c.fetchLocked(skus))
}

func (c *Connector) fetchLocked(skus []string) connector.Result[map[string]information.Information] {
	if !c.connected {
		return connector.Fail[map[string]information.Information](ErrNotConnected)
	}
	if c.fetchErr != nil {
		return connector.Fail[map[string]information.Information](c.fetchErr)
	}

	details := make(map[string]information.Information, len(skus))
	for _, sku := range skus {
		if info, ok := c.products[sku]; ok {
			details[sku] = info.Clone()
		}
	}
	return connector.Ok(details)
}

func (c *Connector) StartPurchase(_ context.Context, sku string) <-chan connector.Result[*connector.RawPurchase] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purchaseCalls[sku]++

	if !c.connected {
		return connector.Resolve(connector.Fail[*connector.RawPurchase](ErrNotConnected))
	}

	if errs := c.purchaseErrs[sku]; len(errs) > 0 {
		c.purchaseErrs[sku] = errs[1:]
		return connector.Resolve(connector.Fail[*connector.RawPurchase](errs[0]))
	}

	if c.holdPurchases {
		ch := make(chan connector.Result[*connector.RawPurchase], 1)
		c.pendingPurchases[sku] = append(c.pendingPurchases[sku], ch)
		return ch
	}

	return connector.Resolve(connector.Ok(c.issueLocked(sku, "")))
}

func (c *Connector) FetchOwnedPurchases(_ context.Context, cursor connector.Cursor) <-chan connector.Result[*connector.OwnedPage] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ownedRequests = append(c.ownedRequests, cursor)

	if c.holdOwned {
		ch := make(chan connector.Result[*connector.OwnedPage], 1)
		c.pendingOwned = append(c.pendingOwned, pendingOwned{ch: ch, cursor: cursor})
		return ch
	}

	return connector.Resolve(c.ownedPageLocked(cursor))
}

func (c *Connector) ownedPageLocked(cursor connector.Cursor) connector.Result[*connector.OwnedPage] {
	if !c.connected {
		return connector.Fail[*connector.OwnedPage](ErrNotConnected)
	}

	index := 0
	if cursor != connector.FirstPage {
		parsed, err := strconv.Atoi(strings.TrimPrefix(string(cursor), "page-"))
		if err != nil || parsed <= 0 {
			return connector.Fail[*connector.OwnedPage](errors.Wrapf(ErrInvalidCursor, "cursor %q", cursor))
		}
		index = parsed
	}

	if err, ok := c.pageErrs[index]; ok {
		return connector.Fail[*connector.OwnedPage](err)
	}

	pages := c.pages
	if pages == nil {
		pages = paginate(c.owned, c.pageSize)
	}
	if index >= len(pages) {
		if index == 0 {
			return connector.Ok(&connector.OwnedPage{})
		}
		return connector.Fail[*connector.OwnedPage](errors.Wrapf(ErrInvalidCursor, "cursor %q", cursor))
	}

	page := &connector.OwnedPage{}
	for _, p := range pages[index] {
		page.Purchases = append(page.Purchases, p.Clone())
	}
	if index+1 < len(pages) {
		page.Next = connector.Cursor("page-" + strconv.Itoa(index+1))
	}
	return connector.Ok(page)
}

func paginate(purchases []*connector.RawPurchase, size int) [][]*connector.RawPurchase {
	var pages [][]*connector.RawPurchase
	for start := 0; start < len(purchases); start += size {
		end := start + size
		if end > len(purchases) {
			end = len(purchases)
		}
		pages = append(pages, purchases[start:end])
	}
	return pages
}

func (c *Connector) Consume(_ context.Context, purchase *connector.RawPurchase) <-chan connector.Result[connector.Consumed] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holdConsume {
		ch := make(chan connector.Result[connector.Consumed], 1)
		c.pendingConsumes = append(c.pendingConsumes, pendingConsume{ch: ch, purchase: purchase.Clone()})
		return ch
	}

	return connector.Resolve(c.consumeLocked(purchase))
}

func (c *Connector) consumeLocked(purchase *connector.RawPurchase) connector.Result[connector.Consumed] {
	if !c.connected {
		return connector.Fail[connector.Consumed](ErrNotConnected)
	}
	if c.consumeErr != nil {
		return connector.Fail[connector.Consumed](c.consumeErr)
	}

	c.consumed[purchase.OrderID]++
	for i, owned := range c.owned {
		if owned.OrderID == purchase.OrderID {
			c.owned = append(c.owned[:i:i], c.owned[i+1:]...)
			break
		}
	}
	return connector.Ok(connector.Consumed{})
}

// issueLocked records a new owned purchase for sku. An empty orderID is
// generated.
func (c *Connector) issueLocked(sku, orderID string) *connector.RawPurchase {
	if orderID == "" {
		orderID = model.MustGenerateOrderID("MEM.")
	}

	purchase := &connector.RawPurchase{
		SKU:           sku,
		OrderID:       orderID,
		PurchaseToken: orderID,
		PurchaseTime:  time.Now().UTC(),
	}
	if info, ok := c.products[sku]; ok && info.Price.Valid {
		purchase.Cost = info.Price
		purchase.CostCurrency = info.PriceCurrencyCode
	}

	payload, err := json.Marshal(struct {
		OrderID       string `json:"orderId"`
		ProductID     string `json:"productId"`
		PurchaseTime  int64  `json:"purchaseTime"`
		PurchaseToken string `json:"purchaseToken"`
	}{
		OrderID:       purchase.OrderID,
		ProductID:     sku,
		PurchaseTime:  purchase.PurchaseTime.UnixMilli(),
		PurchaseToken: purchase.PurchaseToken,
	})
	if err != nil {
		panic(errors.Wrap(err, "failed to marshal purchase payload"))
	}
	purchase.Payload = string(payload)
	if c.signer != nil {
		purchase.Signature = verifymemory.Sign(c.signer, purchase.Payload)
	}

	c.owned = append(c.owned, purchase)
	return purchase.Clone()
}
