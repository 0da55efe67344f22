package redisstore_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	redisstore "rampcore/internal/infrastructure/redis"
)

func testClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func pendingTx(id string, dir domain.Direction) domain.PendingTransaction {
	return domain.PendingTransaction{
		ID:                  id,
		Provider:            domain.ProviderMoonPay,
		Direction:           dir,
		Amount:              decimal.NewFromInt(100),
		SourceCurrency:      "EUR",
		DestinationCurrency: "BTC",
		Status:              domain.StatusPending,
		StartedAt:           time.Now().UTC().Truncate(time.Second),
	}
}

func TestPendingStore_SaveGetDelete(t *testing.T) {
	_, client := testClient(t)
	store := redisstore.NewPendingStore(client, time.Hour)
	ctx := context.Background()

	tx := pendingTx("tx-1", domain.DirectionBuy)
	require.NoError(t, store.Save(ctx, "sess-1", tx))

	got, err := store.Get(ctx, "sess-1", domain.DirectionBuy)
	require.NoError(t, err)
	require.Equal(t, "tx-1", got.ID)
	require.True(t, got.Amount.Equal(tx.Amount))

	_, err = store.Get(ctx, "sess-1", domain.DirectionSell)
	require.ErrorIs(t, err, application.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "sess-1", domain.DirectionBuy))
	_, err = store.Get(ctx, "sess-1", domain.DirectionBuy)
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestPendingStore_OneRecordPerDirection(t *testing.T) {
	_, client := testClient(t)
	store := redisstore.NewPendingStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", pendingTx("buy-1", domain.DirectionBuy)))
	require.NoError(t, store.Save(ctx, "sess-1", pendingTx("sell-1", domain.DirectionSell)))
	// A second save for the same direction replaces the first.
	require.NoError(t, store.Save(ctx, "sess-1", pendingTx("buy-2", domain.DirectionBuy)))

	got, err := store.Get(ctx, "sess-1", domain.DirectionBuy)
	require.NoError(t, err)
	require.Equal(t, "buy-2", got.ID)

	got, err = store.Get(ctx, "sess-1", domain.DirectionSell)
	require.NoError(t, err)
	require.Equal(t, "sell-1", got.ID)
}

func TestPendingStore_UpdateStateKeepsRecord(t *testing.T) {
	_, client := testClient(t)
	store := redisstore.NewPendingStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", pendingTx("tx-1", domain.DirectionSwap)))
	st := domain.TransactionState{Status: domain.StatusProcessing, Phase: domain.PhaseExchanging}
	require.NoError(t, store.UpdateState(ctx, "sess-1", domain.DirectionSwap, st))

	got, err := store.Get(ctx, "sess-1", domain.DirectionSwap)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, got.Status)
	require.Equal(t, domain.PhaseExchanging, got.Phase)
	require.Equal(t, "tx-1", got.ID)

	err = store.UpdateState(ctx, "missing", domain.DirectionSwap, st)
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestPendingStore_ListAllGroupsBySession(t *testing.T) {
	_, client := testClient(t)
	store := redisstore.NewPendingStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", pendingTx("a", domain.DirectionBuy)))
	require.NoError(t, store.Save(ctx, "sess-1", pendingTx("b", domain.DirectionSell)))
	require.NoError(t, store.Save(ctx, "sess-2", pendingTx("c", domain.DirectionSwap)))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all["sess-1"], 2)
	require.Len(t, all["sess-2"], 1)
	require.Equal(t, "c", all["sess-2"][0].ID)
}

func TestPendingStore_ExpiryRemovesRecord(t *testing.T) {
	mr, client := testClient(t)
	store := redisstore.NewPendingStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", pendingTx("tx-1", domain.DirectionBuy)))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "sess-1", domain.DirectionBuy)
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestReferenceCache_RoundTripAndMiss(t *testing.T) {
	_, client := testClient(t)
	cache := redisstore.NewReferenceCache(client, 24*time.Hour)
	ctx := context.Background()

	var out []domain.AssetCode
	hit, err := cache.Get(ctx, "assets:moonpay", &out)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Set(ctx, "assets:moonpay", []domain.AssetCode{"BTC", "ETH"}))
	hit, err = cache.Get(ctx, "assets:moonpay", &out)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []domain.AssetCode{"BTC", "ETH"}, out)
}

func TestIdempotencyStore_TryReserve(t *testing.T) {
	mr, client := testClient(t)
	store := redisstore.NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	ok, err := store.TryReserve(ctx, "checkout:k1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.TryReserve(ctx, "checkout:k1")
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = store.TryReserve(ctx, "checkout:k1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIdempotencyStore_ReleaseFreesKey(t *testing.T) {
	_, client := testClient(t)
	store := redisstore.NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	ok, err := store.TryReserve(ctx, "checkout:k2")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "checkout:k2"))

	ok, err = store.TryReserve(ctx, "checkout:k2")
	require.NoError(t, err)
	require.True(t, ok)
}
