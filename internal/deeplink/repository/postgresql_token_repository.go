package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/easymo/deeplinks/internal/database"
	"github.com/easymo/deeplinks/internal/deeplink/domain"
	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// PostgreSQLTokenRepository implements token record persistence for PostgreSQL.
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// Create inserts a new token record.
func (p *PostgreSQLTokenRepository) Create(ctx context.Context, record *domain.TokenRecord) error {
	querier := database.GetTx(ctx, p.db)

	payload, err := marshalDocument(record.Payload, "token payload")
	if err != nil {
		return err
	}

	query := `INSERT INTO deeplink_tokens
			  (id, flow, token, token_hash, payload, msisdn_e164, expires_at, multi_use, created_by, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = querier.ExecContext(
		ctx,
		query,
		record.ID,
		string(record.Flow),
		record.Token,
		TokenHash(record.Token),
		payload,
		record.MSISDN,
		record.ExpiresAt,
		record.MultiUse,
		record.CreatedBy,
		record.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create deeplink token")
	}
	return nil
}

// GetByToken retrieves a token record by its signed token string.
func (p *PostgreSQLTokenRepository) GetByToken(ctx context.Context, token string) (*domain.TokenRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, flow, token, payload, msisdn_e164, expires_at, multi_use,
			  created_by, consumed_at, consumed_by, created_at
			  FROM deeplink_tokens
			  WHERE token_hash = $1`

	var record domain.TokenRecord
	var flow string
	var payload []byte

	err := querier.QueryRowContext(ctx, query, TokenHash(token)).Scan(
		&record.ID,
		&flow,
		&record.Token,
		&payload,
		&record.MSISDN,
		&record.ExpiresAt,
		&record.MultiUse,
		&record.CreatedBy,
		&record.ConsumedAt,
		&record.ConsumedBy,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get deeplink token")
	}

	if record.Payload, err = unmarshalFields(payload, "token payload"); err != nil {
		return nil, err
	}
	record.Flow = domain.Flow(flow)
	return &record, nil
}

// Claim marks a single-use token consumed. The conditional update makes
// concurrent claims race on the row; only one sees a changed row.
func (p *PostgreSQLTokenRepository) Claim(
	ctx context.Context,
	id uuid.UUID,
	consumedBy string,
	at time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE deeplink_tokens SET consumed_at = $1, consumed_by = $2
			  WHERE id = $3 AND consumed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, at, consumedBy, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim deeplink token")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows == 1, nil
}

// DeleteExpired deletes token records that expired before olderThan.
func (p *PostgreSQLTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM deeplink_tokens WHERE expires_at < $1`

	result, err := querier.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired deeplink tokens")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return count, nil
}

// CountExpired counts token records that expired before olderThan.
func (p *PostgreSQLTokenRepository) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM deeplink_tokens WHERE expires_at < $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, olderThan).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired deeplink tokens")
	}
	return count, nil
}

// NewPostgreSQLTokenRepository creates a new PostgreSQL token repository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db}
}
