package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/flipchat-purchases/information"
	"github.com/code-payments/flipchat-purchases/information/memory"
	"github.com/code-payments/flipchat-purchases/information/tests"
)

func TestInformation_CacheStore(t *testing.T) {
	db := memory.NewInMemory()
	testStore := NewInCache(db, time.Minute)
	teardown := func() {
		require.NoError(t, testStore.Clear(context.Background()))
	}
	tests.RunStoreTests(t, testStore, teardown)
}

func TestInformation_CacheServesFromCache(t *testing.T) {
	ctx := context.Background()

	db := memory.NewInMemory()
	store := NewInCache(db, time.Minute)

	require.NoError(t, store.PutInformation(ctx, "coins", information.Information{LocalName: "Coins"}))

	// Clearing the backing store directly leaves the cached copy in place.
	require.NoError(t, db.Clear(ctx))

	actual, err := store.GetInformation(ctx, "coins")
	require.NoError(t, err)
	require.Equal(t, "Coins", actual.LocalName)
}
