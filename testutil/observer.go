package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/flipchat-purchases/transaction"
)

const (
	defaultWait  = 2 * time.Second
	observerSize = 64
)

// RecordingObserver records every observer callback on a buffered channel so
// tests can wait for asynchronous deliveries.
type RecordingObserver struct {
	Installs       chan struct{}
	InstallErrors  chan error
	Restores       chan []*transaction.Transaction
	RestoreErrors  chan error
	Purchases      chan *transaction.Transaction
	PurchaseErrors chan error
	Cancels        chan struct{}

	calls atomic.Int64
}

func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{
		Installs:       make(chan struct{}, observerSize),
		InstallErrors:  make(chan error, observerSize),
		Restores:       make(chan []*transaction.Transaction, observerSize),
		RestoreErrors:  make(chan error, observerSize),
		Purchases:      make(chan *transaction.Transaction, observerSize),
		PurchaseErrors: make(chan error, observerSize),
		Cancels:        make(chan struct{}, observerSize),
	}
}

// Calls returns the number of callbacks received so far.
func (o *RecordingObserver) Calls() int64 {
	return o.calls.Load()
}

func (o *RecordingObserver) HandleInstall() {
	o.calls.Add(1)
	o.Installs <- struct{}{}
}

func (o *RecordingObserver) HandleInstallError(err error) {
	o.calls.Add(1)
	o.InstallErrors <- err
}

func (o *RecordingObserver) HandleRestore(transactions []*transaction.Transaction) {
	o.calls.Add(1)
	o.Restores <- transactions
}

func (o *RecordingObserver) HandleRestoreError(err error) {
	o.calls.Add(1)
	o.RestoreErrors <- err
}

func (o *RecordingObserver) HandlePurchase(txn *transaction.Transaction) {
	o.calls.Add(1)
	o.Purchases <- txn
}

func (o *RecordingObserver) HandlePurchaseError(err error) {
	o.calls.Add(1)
	o.PurchaseErrors <- err
}

func (o *RecordingObserver) HandlePurchaseCanceled() {
	o.calls.Add(1)
	o.Cancels <- struct{}{}
}

// Receive waits for the next value on ch.
func Receive[T any](t *testing.T, ch chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(defaultWait):
		require.FailNow(t, "timed out waiting for observer callback")
	}

	var zero T
	return zero
}

// RequireNone asserts that nothing arrives on ch within wait.
func RequireNone[T any](t *testing.T, ch chan T, wait time.Duration) {
	t.Helper()

	select {
	case v := <-ch:
		require.FailNow(t, "unexpected observer callback", "%v", v)
	case <-time.After(wait):
	}
}
