package purchase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/code-payments/flipchat-purchases/offer"
	"github.com/code-payments/flipchat-purchases/transaction"
)

// session is the state of one install. Closing it cancels outstanding store
// operations and silences every delivery that has not happened yet.
type session struct {
	id  string
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	observer   Observer
	catalog    *offer.Catalog
	normalizer *transaction.Normalizer
	tracker    *tracker
	consumer   *consumer

	// mu guards closed and active. close waits on done until no delivery is
	// running.
	mu     sync.Mutex
	done   *sync.Cond
	closed bool
	active int
}

// close cancels the session and returns once no observer callback of this
// session is running. It must not be called from inside one.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	s.tracker.cancelAll()
	s.cancel()

	for s.active > 0 {
		s.done.Wait()
	}
}

// deliver calls fn with the observer unless the session was closed. It reports
// whether fn was called. A close that starts while fn runs waits for it.
func (s *session) deliver(fn func(Observer)) bool {
	if s.observer == nil {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.active++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		if s.active == 0 {
			s.done.Broadcast()
		}
		s.mu.Unlock()
	}()

	fn(s.observer)
	return true
}
