package ratelimit

import (
	"context"
	"database/sql"
	"time"

	"github.com/easymo/deeplinks/internal/database"
	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// sqlDialect holds the statements that differ between PostgreSQL and MySQL.
type sqlDialect struct {
	ensure string
	lock   string
	update string
	purge  string
}

var postgresDialect = sqlDialect{
	ensure: `INSERT INTO rate_limit_buckets (bucket_key, count, window_expires_at)
			 VALUES ($1, 0, $2) ON CONFLICT (bucket_key) DO NOTHING`,
	lock: `SELECT count, window_expires_at FROM rate_limit_buckets
		   WHERE bucket_key = $1 FOR UPDATE`,
	update: `UPDATE rate_limit_buckets SET count = $1, window_expires_at = $2
			 WHERE bucket_key = $3`,
	purge: `DELETE FROM rate_limit_buckets WHERE window_expires_at < $1`,
}

var mysqlDialect = sqlDialect{
	ensure: `INSERT IGNORE INTO rate_limit_buckets (bucket_key, count, window_expires_at)
			 VALUES (?, 0, ?)`,
	lock: `SELECT count, window_expires_at FROM rate_limit_buckets
		   WHERE bucket_key = ? FOR UPDATE`,
	update: `UPDATE rate_limit_buckets SET count = ?, window_expires_at = ?
			 WHERE bucket_key = ?`,
	purge: `DELETE FROM rate_limit_buckets WHERE window_expires_at < ?`,
}

// SQLLimiter shares fixed-window counters between instances through the
// rate_limit_buckets table. Each Check runs in a transaction and locks the
// key's row, so concurrent increments on one key serialize.
type SQLLimiter struct {
	db        *sql.DB
	txManager database.TxManager
	dialect   sqlDialect
}

// NewPostgreSQLLimiter creates a limiter backed by PostgreSQL.
func NewPostgreSQLLimiter(db *sql.DB, txManager database.TxManager) *SQLLimiter {
	return &SQLLimiter{db: db, txManager: txManager, dialect: postgresDialect}
}

// NewMySQLLimiter creates a limiter backed by MySQL.
func NewMySQLLimiter(db *sql.DB, txManager database.TxManager) *SQLLimiter {
	return &SQLLimiter{db: db, txManager: txManager, dialect: mysqlDialect}
}

// Check counts one request against key.
func (s *SQLLimiter) Check(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
	now time.Time,
) (Result, error) {
	now = now.UTC()

	var result Result
	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, s.db)

		// A placeholder row whose window already ended; advance resets it.
		if _, err := querier.ExecContext(ctx, s.dialect.ensure, key, now); err != nil {
			return apperrors.Wrap(err, "failed to ensure rate limit bucket")
		}

		var current bucket
		if err := querier.QueryRowContext(ctx, s.dialect.lock, key).Scan(
			&current.count,
			&current.expiresAt,
		); err != nil {
			return apperrors.Wrap(err, "failed to lock rate limit bucket")
		}

		next, res, changed := advance(current, true, limit, window, now)
		result = res
		if !changed {
			return nil
		}

		if _, err := querier.ExecContext(ctx, s.dialect.update, next.count, next.expiresAt, key); err != nil {
			return apperrors.Wrap(err, "failed to update rate limit bucket")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

// PurgeExpired deletes buckets whose window ended before the given time.
func (s *SQLLimiter) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, s.db)

	res, err := querier.ExecContext(ctx, s.dialect.purge, before.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to purge rate limit buckets")
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count purged rate limit buckets")
	}
	return count, nil
}
