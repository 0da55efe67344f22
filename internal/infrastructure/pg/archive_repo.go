package pg

import (
	"context"

	"rampcore/internal/application"
	"rampcore/internal/domain"
)

// ArchiveRepo stores terminal transactions; the pending record in Redis is
// deleted once a row lands here.
type ArchiveRepo struct{ db *DB }

var _ application.ArchiveRepo = (*ArchiveRepo)(nil)

func NewArchiveRepo(db *DB) *ArchiveRepo { return &ArchiveRepo{db: db} }

func (r *ArchiveRepo) Append(ctx context.Context, rec domain.TransactionRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
        INSERT INTO transactions(
            session_id, transaction_id, provider, direction, amount,
            source_currency, destination_currency, final_status,
            started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (provider, transaction_id) DO NOTHING
    `, rec.SessionID, rec.TransactionID, rec.Provider, rec.Direction,
		rec.Amount, rec.SourceCurrency, rec.DestinationCurrency,
		rec.FinalStatus, rec.StartedAt, rec.FinishedAt)
	return err
}

func (r *ArchiveRepo) History(ctx context.Context, sessionID string, limit int) ([]domain.TransactionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, `
        SELECT session_id, transaction_id, provider, direction, amount,
               source_currency, destination_currency, final_status,
               started_at, finished_at
        FROM transactions
        WHERE session_id = $1
        ORDER BY finished_at DESC
        LIMIT $2
    `, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TransactionRecord
	for rows.Next() {
		var rec domain.TransactionRecord
		if err := rows.Scan(&rec.SessionID, &rec.TransactionID, &rec.Provider,
			&rec.Direction, &rec.Amount, &rec.SourceCurrency,
			&rec.DestinationCurrency, &rec.FinalStatus,
			&rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
