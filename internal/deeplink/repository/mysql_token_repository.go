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

// MySQLTokenRepository implements token record persistence for MySQL. UUIDs are
// stored as BINARY(16).
type MySQLTokenRepository struct {
	db *sql.DB
}

// Create inserts a new token record.
func (m *MySQLTokenRepository) Create(ctx context.Context, record *domain.TokenRecord) error {
	querier := database.GetTx(ctx, m.db)

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal deeplink token id")
	}

	payload, err := marshalDocument(record.Payload, "token payload")
	if err != nil {
		return err
	}

	query := `INSERT INTO deeplink_tokens
			  (id, flow, token, token_hash, payload, msisdn_e164, expires_at, multi_use, created_by, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLTokenRepository) GetByToken(ctx context.Context, token string) (*domain.TokenRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, flow, token, payload, msisdn_e164, expires_at, multi_use,
			  created_by, consumed_at, consumed_by, created_at
			  FROM deeplink_tokens
			  WHERE token_hash = ?`

	var record domain.TokenRecord
	var id, payload []byte
	var flow string

	err := querier.QueryRowContext(ctx, query, TokenHash(token)).Scan(
		&id,
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

	if err := record.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal deeplink token id")
	}
	if record.Payload, err = unmarshalFields(payload, "token payload"); err != nil {
		return nil, err
	}
	record.Flow = domain.Flow(flow)
	return &record, nil
}

// Claim marks a single-use token consumed.
func (m *MySQLTokenRepository) Claim(
	ctx context.Context,
	id uuid.UUID,
	consumedBy string,
	at time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal deeplink token id")
	}

	query := `UPDATE deeplink_tokens SET consumed_at = ?, consumed_by = ?
			  WHERE id = ? AND consumed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, at, consumedBy, binID)
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
func (m *MySQLTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM deeplink_tokens WHERE expires_at < ?`

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
func (m *MySQLTokenRepository) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM deeplink_tokens WHERE expires_at < ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, olderThan).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired deeplink tokens")
	}
	return count, nil
}

// NewMySQLTokenRepository creates a new MySQL token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}
