package connector

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/code-payments/flipchat-purchases/information"
	"github.com/code-payments/flipchat-purchases/offer"
)

// Result is the single value delivered on a connector operation's channel.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Resolve returns a buffered channel that already holds r. Connectors that
// complete synchronously can return it directly.
func Resolve[T any](r Result[T]) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	ch <- r
	return ch
}

// Cursor is an opaque owned-purchases paging token. FirstPage starts a query.
type Cursor string

const FirstPage Cursor = ""

// RawPurchase is a vendor purchase record before normalization.
type RawPurchase struct {
	// SKU is the store-specific product identifier.
	SKU string

	OrderID string

	// PurchaseToken identifies the purchase on stores that issue tokens. It is
	// used in place of OrderID when the store omits one (e.g. test purchases).
	PurchaseToken string

	UserID       string
	PurchaseTime time.Time

	ReversalTime *time.Time
	ReversalText string

	// Payload and Signature are the opaque vendor receipt and its signature.
	Payload   string
	Signature string

	Cost         decimal.NullDecimal
	CostCurrency string
}

func (p *RawPurchase) Clone() *RawPurchase {
	cloned := *p
	if p.ReversalTime != nil {
		reversal := *p.ReversalTime
		cloned.ReversalTime = &reversal
	}
	return &cloned
}

// OwnedPage is one page of an owned-purchases query.
type OwnedPage struct {
	Purchases []*RawPurchase

	// Next is the cursor for the following page, or FirstPage when there are no
	// more pages.
	Next Cursor
}

func (p *OwnedPage) HasMore() bool {
	return p.Next != FirstPage
}

type Connected struct{}

type Consumed struct{}

// Connector binds one vendor backend. Every asynchronous operation delivers
// exactly one Result on the returned channel, possibly from another goroutine.
// A connector that never delivers leaves the operation pending.
type Connector interface {
	// Name is the store name used to select per-store SKUs, e.g. "GooglePlay".
	Name() string

	// Supports reports whether the backend can sell offers of the given type.
	Supports(t offer.Type) bool

	Connect(ctx context.Context) <-chan Result[Connected]

	// Disconnect is best-effort and does not fail.
	Disconnect()

	// FetchProductDetails returns information keyed by SKU. SKUs unknown to the
	// store are omitted from the result.
	FetchProductDetails(ctx context.Context, skus []string) <-chan Result[map[string]information.Information]

	StartPurchase(ctx context.Context, sku string) <-chan Result[*RawPurchase]

	FetchOwnedPurchases(ctx context.Context, cursor Cursor) <-chan Result[*OwnedPage]

	Consume(ctx context.Context, purchase *RawPurchase) <-chan Result[Consumed]
}

// Await blocks until the connector delivers a result or ctx is done. The boolean
// is false when ctx finished first or the channel was closed without a value.
func Await[T any](ctx context.Context, ch <-chan Result[T]) (Result[T], bool) {
	select {
	case <-ctx.Done():
		return Result[T]{}, false
	case r, ok := <-ch:
		if !ok {
			return Result[T]{}, false
		}
		return r, true
	}
}
