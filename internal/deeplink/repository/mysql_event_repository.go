package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/easymo/deeplinks/internal/database"
	"github.com/easymo/deeplinks/internal/deeplink/domain"
	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// MySQLEventRepository implements audit event persistence for MySQL.
type MySQLEventRepository struct {
	db *sql.DB
}

// Create inserts a new audit event.
func (m *MySQLEventRepository) Create(ctx context.Context, event *domain.AuditEvent) error {
	querier := database.GetTx(ctx, m.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal deeplink event id")
	}
	tokenID, err := event.TokenID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal deeplink token id")
	}
	metadata, err := marshalDocument(event.Metadata, "event metadata")
	if err != nil {
		return err
	}

	query := `INSERT INTO deeplink_events (id, token_id, flow, event_type, actor_msisdn, metadata, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tokenID,
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
func (m *MySQLEventRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM deeplink_events WHERE created_at < ?`

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
func (m *MySQLEventRepository) CountOlderThan(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM deeplink_events WHERE created_at < ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, before).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count deeplink events")
	}
	return count, nil
}

// NewMySQLEventRepository creates a new MySQL audit event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}
