// Package hubspot manages the OAuth lifecycle of HubSpot portal connections
// and the authenticated calls made on their behalf.
//
// A portal moves Disconnected → Connecting → Connected and back.  Expiry is
// not persisted: a token whose expires_at falls inside RefreshBuffer is
// refreshed on the next GetValidAccessToken call.
package hubspot

import (
	"context"
	"time"
)

// RefreshBuffer is how close to expiry a stored token may get before it is
// refreshed instead of handed out.
const RefreshBuffer = 5 * time.Minute

// Connection is one row of hubspot_connections.
type Connection struct {
	PortalID     int64     `db:"portal_id"`
	UserID       int64     `db:"user_id"`
	PortalName   *string   `db:"portal_name"`
	UserEmail    *string   `db:"user_email"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// NeedsRefresh reports whether the access token expires within
// RefreshBuffer of now, or already has.
func (c Connection) NeedsRefresh(now time.Time) bool {
	return !c.ExpiresAt.After(now.Add(RefreshBuffer))
}

// Summary is the token-free view returned by the connections listing.
type Summary struct {
	PortalID    int64     `db:"portal_id"    json:"portal_id"`
	PortalName  *string   `db:"portal_name"  json:"portal_name"`
	UserEmail   *string   `db:"user_email"   json:"user_email"`
	IsActive    bool      `db:"is_active"    json:"is_active"`
	ConnectedAt time.Time `db:"connected_at" json:"connected_at"`
}

// Store persists connections.  Implementations return apperr.ErrNotFound
// when GetActive finds no active row.
type Store interface {
	// Upsert writes c keyed by portal_id, replacing tokens and reactivating
	// the row in a single statement.
	Upsert(ctx context.Context, c *Connection) error
	GetActive(ctx context.Context, portalID int64) (Connection, error)
	UpdateTokens(ctx context.Context, portalID int64, access, refresh string, expiresAt time.Time) error
	// Deactivate reports whether a row existed.
	Deactivate(ctx context.Context, portalID int64) (bool, error)
	ListActive(ctx context.Context) ([]Summary, error)
}
