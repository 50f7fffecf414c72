// Package transactionlog implements transactionlog.Repository against
// Postgres.
package transactionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/walletledger/service/internal/apperr"
	domain "github.com/walletledger/service/internal/domain/transactionlog"
	"github.com/walletledger/service/pkg/dbtx"
	"github.com/walletledger/service/pkg/otelutil"
)

// Repository is the Postgres-backed transactionlog.Repository
// implementation. db is typically a dbresolver.DB; tests substitute a
// sqlmock-backed *sql.DB.
type Repository struct {
	db dbtx.Executor
}

// NewRepository builds a Repository over db.
func NewRepository(db dbtx.Executor) *Repository {
	return &Repository{db: db}
}

// InsertPending implements transactionlog.Repository. It always runs
// against r.db directly rather than any transaction in ctx, so the PENDING
// row commits independently of, and before, the caller's main debit/credit
// transaction.
func (r *Repository) InsertPending(ctx context.Context, log *domain.TransactionLog) error {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.transactionlog.insert_pending")
	defer span.End()

	metadata, err := json.Marshal(log.Metadata)
	if err != nil {
		otelutil.HandleSpanError(span, "metadata marshal failed", err)
		return apperr.Wrap(apperr.KindInternalError, "failed to marshal transaction metadata", err)
	}

	const query = `
		INSERT INTO transaction_logs
			(id, from_wallet_id, to_wallet_id, amount, status, idempotency_key, metadata, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, now(), now())
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID, log.FromWalletID, log.ToWalletID, log.Amount, domain.StatusPending, log.IdempotencyKey, metadata)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "transaction_logs_idempotency_key_key" {
			wrapped := apperr.Wrap(apperr.KindDuplicateRequest, "idempotencyKey already used", err)
			otelutil.HandleSpanError(span, "duplicate idempotency key", wrapped)

			return wrapped
		}

		otelutil.HandleSpanError(span, "insert pending log failed", err)

		return apperr.Wrap(apperr.KindInternalError, "failed to insert pending transaction log", err)
	}

	return nil
}

// FinalizeSuccess implements transactionlog.Repository. It participates in
// the caller's transaction via ctx so it commits atomically with the
// balance updates.
func (r *Repository) FinalizeSuccess(ctx context.Context, idempotencyKey string, extraMetadata map[string]any) error {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.transactionlog.finalize_success")
	defer span.End()

	exec := dbtx.GetExecutor(ctx, r.db)

	return r.mergeMetadataAndSetStatus(ctx, exec, span, idempotencyKey, domain.StatusSuccess, nil, extraMetadata)
}

// MarkFailed implements transactionlog.Repository. It always runs against
// r.db directly, in its own committed statement, independent of whatever
// transaction the caller's debit/credit attempt rolled back.
func (r *Repository) MarkFailed(ctx context.Context, idempotencyKey string, errorMessage string, extraMetadata map[string]any) error {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.transactionlog.mark_failed")
	defer span.End()

	return r.mergeMetadataAndSetStatus(ctx, r.db, span, idempotencyKey, domain.StatusFailed, &errorMessage, extraMetadata)
}

func (r *Repository) mergeMetadataAndSetStatus(ctx context.Context, exec dbtx.Executor, span interface{ End() }, idempotencyKey string, status domain.Status, errorMessage *string, extraMetadata map[string]any) error {
	existing, err := r.findRawByIdempotencyKey(ctx, exec, idempotencyKey)
	if err != nil {
		return err
	}

	merged := existing.Metadata
	if merged == nil {
		merged = map[string]any{}
	}

	for k, v := range extraMetadata {
		merged[k] = v
	}

	metadataJSON, err := json.Marshal(merged)
	if err != nil {
		return apperr.Wrap(apperr.KindInternalError, "failed to marshal transaction metadata", err)
	}

	builder := squirrel.Update("transaction_logs").
		Set("status", status).
		Set("metadata", metadataJSON).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"idempotency_key": idempotencyKey}).
		PlaceholderFormat(squirrel.Dollar)

	if errorMessage != nil {
		builder = builder.Set("error_message", *errorMessage)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return apperr.Wrap(apperr.KindInternalError, "failed to build update query", err)
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return apperr.Wrap(apperr.KindInternalError, "failed to finalize transaction log", err)
	}

	return nil
}

// FindByIdempotencyKey implements transactionlog.Repository.
func (r *Repository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.TransactionLog, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.transactionlog.find_by_idempotency_key")
	defer span.End()

	exec := dbtx.GetExecutor(ctx, r.db)

	log, err := r.findRawByIdempotencyKey(ctx, exec, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		otelutil.HandleSpanError(span, "find log by idempotency key failed", err)
		return nil, err
	}

	return log, nil
}

func (r *Repository) findRawByIdempotencyKey(ctx context.Context, exec dbtx.Executor, key string) (*domain.TransactionLog, error) {
	const query = `
		SELECT id, from_wallet_id, to_wallet_id, amount, status, idempotency_key, error_message, metadata, created_at, updated_at
		FROM transaction_logs
		WHERE idempotency_key = $1
	`

	return scanLog(exec.QueryRowContext(ctx, query, key))
}

// RecentForWallet implements transactionlog.Repository.
func (r *Repository) RecentForWallet(ctx context.Context, walletID string, limit int) ([]*domain.TransactionLog, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.transactionlog.recent_for_wallet")
	defer span.End()

	exec := dbtx.GetExecutor(ctx, r.db)

	query, args, err := squirrel.Select(
		"id", "from_wallet_id", "to_wallet_id", "amount", "status", "idempotency_key", "error_message", "metadata", "created_at", "updated_at",
	).
		From("transaction_logs").
		Where(squirrel.Or{
			squirrel.Eq{"from_wallet_id": walletID},
			squirrel.Eq{"to_wallet_id": walletID},
		}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternalError, "failed to build history query", err)
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		otelutil.HandleSpanError(span, "recent logs query failed", err)
		return nil, apperr.Wrap(apperr.KindInternalError, "failed to load transaction history", err)
	}
	defer rows.Close()

	var logs []*domain.TransactionLog

	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			otelutil.HandleSpanError(span, "scanning log row failed", err)
			return nil, apperr.Wrap(apperr.KindInternalError, "failed to scan transaction history", err)
		}

		logs = append(logs, log)
	}

	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (*domain.TransactionLog, error) {
	var (
		log          domain.TransactionLog
		amount       decimal.Decimal
		errorMessage sql.NullString
		metadataRaw  []byte
	)

	if err := row.Scan(
		&log.ID, &log.FromWalletID, &log.ToWalletID, &amount, &log.Status,
		&log.IdempotencyKey, &errorMessage, &metadataRaw, &log.CreatedAt, &log.UpdatedAt,
	); err != nil {
		return nil, err
	}

	log.Amount = amount

	if errorMessage.Valid {
		log.ErrorMessage = &errorMessage.String
	}

	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &log.Metadata); err != nil {
			return nil, err
		}
	}

	return &log, nil
}
