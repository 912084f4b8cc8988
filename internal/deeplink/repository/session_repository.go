package repository

import (
	"context"
	"database/sql"

	"github.com/easymo/deeplinks/internal/database"
	"github.com/easymo/deeplinks/internal/deeplink/domain"
	apperrors "github.com/easymo/deeplinks/internal/errors"
)

const (
	postgresSessionUpsert = `INSERT INTO chat_sessions (phone, state, updated_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (phone) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`

	mysqlSessionUpsert = `INSERT INTO chat_sessions (phone, state, updated_at)
			  VALUES (?, ?, ?)
			  ON DUPLICATE KEY UPDATE state = VALUES(state), updated_at = VALUES(updated_at)`
)

// SQLSessionRepository writes chat sessions, one row per phone number.
type SQLSessionRepository struct {
	db     *sql.DB
	upsert string
}

// Upsert replaces the session stored for session.Phone.
func (s *SQLSessionRepository) Upsert(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, s.db)

	state, err := marshalDocument(session.State, "session state")
	if err != nil {
		return err
	}

	if _, err := querier.ExecContext(ctx, s.upsert, session.Phone, state, session.UpdatedAt); err != nil {
		return apperrors.Wrap(err, "failed to upsert chat session")
	}
	return nil
}

// NewPostgreSQLSessionRepository creates a session repository for PostgreSQL.
func NewPostgreSQLSessionRepository(db *sql.DB) *SQLSessionRepository {
	return &SQLSessionRepository{db: db, upsert: postgresSessionUpsert}
}

// NewMySQLSessionRepository creates a session repository for MySQL.
func NewMySQLSessionRepository(db *sql.DB) *SQLSessionRepository {
	return &SQLSessionRepository{db: db, upsert: mysqlSessionUpsert}
}
