package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/easymo/deeplinks/internal/database"
	"github.com/easymo/deeplinks/internal/deeplink/domain"
	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// PostgreSQLEventRepository implements audit event persistence for PostgreSQL.
// Events are append-only.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// Create inserts a new audit event.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *domain.AuditEvent) error {
	querier := database.GetTx(ctx, p.db)

	metadata, err := marshalDocument(event.Metadata, "event metadata")
	if err != nil {
		return err
	}

	query := `INSERT INTO deeplink_events (id, token_id, flow, event_type, actor_msisdn, metadata, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.TokenID,
		string(event.Flow),
		string(event.Kind),
		event.ActorIdentity,
		metadata,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create deeplink event")
	}
	return nil
}

// DeleteOlderThan deletes events created before the given time.
func (p *PostgreSQLEventRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM deeplink_events WHERE created_at < $1`

	result, err := querier.ExecContext(ctx, query, before)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete deeplink events")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return count, nil
}

// CountOlderThan counts events created before the given time.
func (p *PostgreSQLEventRepository) CountOlderThan(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM deeplink_events WHERE created_at < $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, before).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count deeplink events")
	}
	return count, nil
}

// NewPostgreSQLEventRepository creates a new PostgreSQL audit event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}
