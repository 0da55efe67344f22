package pg_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/pg"
)

func record(sessionID, txID string, finished time.Time) domain.TransactionRecord {
	return domain.TransactionRecord{
		SessionID:           sessionID,
		TransactionID:       txID,
		Provider:            domain.ProviderMoonPay,
		Direction:           domain.DirectionBuy,
		Amount:              decimal.RequireFromString("100.50"),
		SourceCurrency:      "EUR",
		DestinationCurrency: "BTC",
		FinalStatus:         domain.StatusCompleted,
		StartedAt:           finished.Add(-10 * time.Minute),
		FinishedAt:          finished,
	}
}

func TestArchiveRepo_AppendAndHistory(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()

	repo := pg.NewArchiveRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.Append(ctx, record("sess-1", "tx-1", now.Add(-time.Hour))))
	require.NoError(t, repo.Append(ctx, record("sess-1", "tx-2", now)))
	require.NoError(t, repo.Append(ctx, record("sess-2", "tx-3", now)))

	recs, err := repo.History(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Newest first.
	require.Equal(t, "tx-2", recs[0].TransactionID)
	require.Equal(t, "tx-1", recs[1].TransactionID)
	require.True(t, recs[0].Amount.Equal(decimal.RequireFromString("100.50")))

	recs, err = repo.History(ctx, "sess-1", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	recs, err = repo.History(ctx, "unknown", 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestArchiveRepo_AppendIsIdempotent(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()

	repo := pg.NewArchiveRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := record("sess-1", "tx-1", now)
	require.NoError(t, repo.Append(ctx, rec))
	require.NoError(t, repo.Append(ctx, rec))

	recs, err := repo.History(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}
