package purchase

import (
	"context"
	"sync"
)

type pendingPurchase struct {
	token  uint64
	cancel context.CancelFunc
}

// tracker holds the single in-flight purchase allowed per offer identifier.
type tracker struct {
	parent context.Context

	mu        sync.Mutex
	nextToken uint64
	pending   map[string]*pendingPurchase
}

func newTracker(parent context.Context) *tracker {
	return &tracker{
		parent:  parent,
		pending: make(map[string]*pendingPurchase),
	}
}

// begin registers a purchase for identifier. It returns false, without side
// effects, if one is already in flight.
func (t *tracker) begin(identifier string) (uint64, context.Context, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[identifier]; ok {
		return 0, nil, false
	}

	t.nextToken++
	ctx, cancel := context.WithCancel(t.parent)
	t.pending[identifier] = &pendingPurchase{
		token:  t.nextToken,
		cancel: cancel,
	}
	return t.nextToken, ctx, true
}

// finish releases the purchase started with token. It returns false if the
// entry was already released or belongs to a newer request.
func (t *tracker) finish(identifier string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[identifier]
	if !ok || p.token != token {
		return false
	}

	delete(t.pending, identifier)
	p.cancel()
	return true
}

func (t *tracker) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for identifier, p := range t.pending {
		p.cancel()
		delete(t.pending, identifier)
	}
}
