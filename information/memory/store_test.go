package memory

import (
	"testing"

	"github.com/code-payments/flipchat-purchases/information/tests"
)

func TestInformation_MemoryStore(t *testing.T) {
	testStore := NewInMemory()
	teardown := func() {
		testStore.(*InMemoryStore).reset()
	}
	tests.RunStoreTests(t, testStore, teardown)
}
