package purchase

import (
	"github.com/code-payments/flipchat-purchases/transaction"
)

// Observer receives every outcome of a Manager. Calls arrive on whichever
// goroutine received the store's result, possibly concurrently, so
// implementations must be safe for concurrent use.
//
// Dispose, and an Install that replaces an installed session, wait for running
// callbacks to return. Calling either from inside a callback deadlocks; hand
// them to another goroutine instead.
type Observer interface {
	HandleInstall()
	HandleInstallError(err error)

	HandleRestore(transactions []*transaction.Transaction)
	HandleRestoreError(err error)

	HandlePurchase(txn *transaction.Transaction)
	HandlePurchaseError(err error)

	// HandlePurchaseCanceled is called when the user backs out of a purchase.
	// It is not an error.
	HandlePurchaseCanceled()
}
