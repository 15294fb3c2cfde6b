package hubspot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/gtmskills/internal/apperr"
)

// MySQLStore implements Store on hubspot_connections.
type MySQLStore struct {
	db *sqlx.DB
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore { return &MySQLStore{db: db} }

func (s *MySQLStore) Upsert(ctx context.Context, c *Connection) error {
	const q = `INSERT INTO hubspot_connections
	    (portal_id, user_id, portal_name, user_email, access_token, refresh_token,
	     expires_at, is_active)
	  VALUES
	    (:portal_id, :user_id, :portal_name, :user_email, :access_token, :refresh_token,
	     :expires_at, 1)
	  ON DUPLICATE KEY UPDATE
	    user_id       = VALUES(user_id),
	    portal_name   = COALESCE(VALUES(portal_name), portal_name),
	    user_email    = COALESCE(VALUES(user_email), user_email),
	    access_token  = VALUES(access_token),
	    refresh_token = VALUES(refresh_token),
	    expires_at    = VALUES(expires_at),
	    is_active     = 1`
	if _, err := s.db.NamedExecContext(ctx, q, c); err != nil {
		return fmt.Errorf("upsert connection: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetActive(ctx context.Context, portalID int64) (Connection, error) {
	var c Connection
	err := s.db.GetContext(ctx, &c,
		`SELECT portal_id, user_id, portal_name, user_email, access_token, refresh_token,
		        expires_at, is_active, created_at, updated_at
		   FROM hubspot_connections
		  WHERE portal_id = ? AND is_active = 1`, portalID)
	if errors.Is(err, sql.ErrNoRows) {
		return Connection{}, apperr.ErrNotFound
	}
	if err != nil {
		return Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return c, nil
}

func (s *MySQLStore) UpdateTokens(ctx context.Context, portalID int64, access, refresh string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hubspot_connections
		    SET access_token = ?, refresh_token = ?, expires_at = ?
		  WHERE portal_id = ? AND is_active = 1`,
		access, refresh, expiresAt, portalID)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *MySQLStore) Deactivate(ctx context.Context, portalID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hubspot_connections SET is_active = 0 WHERE portal_id = ?`, portalID)
	if err != nil {
		return false, fmt.Errorf("deactivate connection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *MySQLStore) ListActive(ctx context.Context) ([]Summary, error) {
	out := []Summary{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT portal_id, portal_name, user_email, is_active, created_at AS connected_at
		   FROM hubspot_connections
		  WHERE is_active = 1
		  ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return out, nil
}
