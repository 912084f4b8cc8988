package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/easymo/deeplinks/internal/database"
	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// SQLFlagRepository reads feature flags from the feature_flags table.
type SQLFlagRepository struct {
	db    *sql.DB
	query string
}

// Get returns the flag value and whether a row exists for key.
func (s *SQLFlagRepository) Get(ctx context.Context, key string) (bool, bool, error) {
	querier := database.GetTx(ctx, s.db)

	var enabled bool
	err := querier.QueryRowContext(ctx, s.query, key).Scan(&enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, apperrors.Wrap(err, "failed to get feature flag")
	}
	return enabled, true, nil
}

// NewPostgreSQLFlagRepository creates a flag repository for PostgreSQL.
func NewPostgreSQLFlagRepository(db *sql.DB) *SQLFlagRepository {
	return &SQLFlagRepository{db: db, query: `SELECT enabled FROM feature_flags WHERE flag_key = $1`}
}

// NewMySQLFlagRepository creates a flag repository for MySQL.
func NewMySQLFlagRepository(db *sql.DB) *SQLFlagRepository {
	return &SQLFlagRepository{db: db, query: `SELECT enabled FROM feature_flags WHERE flag_key = ?`}
}
