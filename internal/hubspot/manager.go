package hubspot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/gtmskills/internal/apperr"
	"github.com/yanizio/gtmskills/internal/config"
	"github.com/yanizio/gtmskills/internal/metrics"
)

// Manager drives install, refresh, and disconnect for HubSpot portals.
// It holds no per-portal state; the Store is the only source of truth.
type Manager struct {
	store   Store
	oauth   oauth2.Config
	apiBase string
	http    *http.Client
	log     *zap.SugaredLogger
	now     func() time.Time
	timeout time.Duration

	sf singleflight.Group
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager builds a Manager from the hubspot config section.  Blank
// credentials are accepted; BeginInstall and CompleteInstall then fail with
// apperr.ErrConfiguration.
func NewManager(cfg config.HubSpot, store Store, client *http.Client, log *zap.SugaredLogger, opts ...Option) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.S()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	m := &Manager{
		store: store,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.APIBase + "/oauth/v1/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: cfg.APIBase,
		http:    client,
		log:     log.With("component", "hubspot"),
		now:     time.Now,
		timeout: timeout,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Configured reports whether client credentials are present.
func (m *Manager) Configured() bool {
	return m.oauth.ClientID != "" && m.oauth.ClientSecret != ""
}

/*──────────────────────────── install ─────────────────────────────────────*/

// BeginInstall mints a state value and returns the authorization URL that
// carries it.  The caller stores state in the browser, never server-side.
func (m *Manager) BeginInstall() (redirectURL, state string, err error) {
	if m.oauth.ClientID == "" {
		return "", "", fmt.Errorf("begin install: %w: hubspot client_id unset", apperr.ErrConfiguration)
	}
	state = uuid.NewString()
	return m.oauth.AuthCodeURL(state), state, nil
}

// Callback is what HubSpot sent back plus the state the browser held.
type Callback struct {
	Code             string
	State            string
	CookieState      string
	Error            string
	ErrorDescription string
}

// CompleteInstall validates the callback, exchanges the code, resolves the
// portal identity, and upserts the connection.  Checks run in a fixed order
// and nothing is written unless every step before the upsert succeeds.
func (m *Manager) CompleteInstall(ctx context.Context, cb Callback) (Connection, error) {
	conn, err := m.completeInstall(ctx, cb)
	metrics.HubSpotInstallsTotal.WithLabelValues(installMetricLabel(err)).Inc()
	return conn, err
}

func (m *Manager) completeInstall(ctx context.Context, cb Callback) (Connection, error) {
	if cb.Error != "" {
		m.log.Warnw("hubspot oauth error", "error", cb.Error, "description", cb.ErrorDescription)
		return Connection{}, &apperr.ProviderError{Code: cb.Error, Description: cb.ErrorDescription}
	}
	if cb.Code == "" {
		return Connection{}, apperr.ErrMissingCode
	}
	if cb.CookieState == "" ||
		subtle.ConstantTimeCompare([]byte(cb.CookieState), []byte(cb.State)) != 1 {
		return Connection{}, apperr.ErrInvalidState
	}
	if !m.Configured() {
		return Connection{}, fmt.Errorf("complete install: %w: hubspot credentials unset", apperr.ErrConfiguration)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	tok, err := m.oauth.Exchange(m.clientContext(ctx), cb.Code)
	if err != nil {
		return Connection{}, m.tokenError("exchange", err)
	}

	id, err := m.identity(ctx, tok.AccessToken)
	if err != nil {
		return Connection{}, err
	}

	conn := Connection{
		PortalID:     id.HubID,
		UserID:       id.UserID,
		PortalName:   optional(id.HubDomain),
		UserEmail:    optional(id.User),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    m.expiry(tok),
		IsActive:     true,
	}
	if err := m.store.Upsert(ctx, &conn); err != nil {
		return Connection{}, fmt.Errorf("store connection: %w: %w", apperr.ErrStoreUnavailable, err)
	}

	m.log.Infow("hubspot connected", "portal_id", conn.PortalID, "user_id", conn.UserID)
	return conn, nil
}

// InstallResult is the redirect code for an install outcome.
// Provider-reported errors collapse to "provider_error" here; the redirect
// carries the provider's own message instead.
func InstallResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperr.ErrProviderReported):
		return "provider_error"
	case errors.Is(err, apperr.ErrMissingCode):
		return "missing_code"
	case errors.Is(err, apperr.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperr.ErrConfiguration):
		return "not_configured"
	default:
		return "token_exchange_failed"
	}
}

// installMetricLabel refines InstallResult for the installs counter so that
// store and identity failures are not counted as rejected exchanges.
func installMetricLabel(err error) string {
	switch {
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, apperr.ErrProviderUnavailable) && !errors.Is(err, apperr.ErrTokenExchangeFailed):
		return "provider_unavailable"
	default:
		return InstallResult(err)
	}
}

/*──────────────────────────── token access ────────────────────────────────*/

// GetValidAccessToken returns a usable access token for portalID, refreshing
// it first when it is inside RefreshBuffer.  apperr.ErrNotConnected means
// there is no active row or the refresh failed.  Callers must not keep the
// token past the call that needed it.
func (m *Manager) GetValidAccessToken(ctx context.Context, portalID int64) (string, error) {
	conn, err := m.active(ctx, portalID)
	if err != nil {
		return "", err
	}
	if !conn.NeedsRefresh(m.now()) {
		return conn.AccessToken, nil
	}

	refreshed, err := m.Refresh(ctx, portalID)
	if err != nil {
		if errors.Is(err, apperr.ErrStoreUnavailable) || ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("portal %d: %w: %w", portalID, apperr.ErrNotConnected, err)
	}
	return refreshed.AccessToken, nil
}

// Refresh trades the stored refresh token for a new pair and overwrites the
// row in place.  On failure the row is left as it was.  Concurrent refreshes
// of one portal share a single provider call, which runs detached from the
// callers' cancellation and is bounded by the manager timeout.  A caller
// whose ctx ends first returns ctx.Err() without waiting.
func (m *Manager) Refresh(ctx context.Context, portalID int64) (Connection, error) {
	detached := context.WithoutCancel(ctx)
	ch := m.sf.DoChan(strconv.FormatInt(portalID, 10), func() (any, error) {
		return m.refresh(detached, portalID)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return Connection{}, r.Err
		}
		return r.Val.(Connection), nil
	case <-ctx.Done():
		return Connection{}, fmt.Errorf("refresh portal %d: %w", portalID, ctx.Err())
	}
}

func (m *Manager) refresh(ctx context.Context, portalID int64) (Connection, error) {
	conn, err := m.active(ctx, portalID)
	if err != nil {
		return Connection{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	src := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: conn.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		metrics.HubSpotRefreshTotal.WithLabelValues("failed").Inc()
		return Connection{}, m.tokenError("refresh", err)
	}

	conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		conn.RefreshToken = tok.RefreshToken
	}
	conn.ExpiresAt = m.expiry(tok)

	if err := m.store.UpdateTokens(ctx, portalID, conn.AccessToken, conn.RefreshToken, conn.ExpiresAt); err != nil {
		metrics.HubSpotRefreshTotal.WithLabelValues("failed").Inc()
		return Connection{}, fmt.Errorf("store tokens: %w: %w", apperr.ErrStoreUnavailable, err)
	}
	metrics.HubSpotRefreshTotal.WithLabelValues("success").Inc()
	m.log.Infow("hubspot token refreshed", "portal_id", portalID, "expires_at", conn.ExpiresAt)
	return conn, nil
}

/*──────────────────────────── admin ───────────────────────────────────────*/

// Disconnect soft-deletes the connection.  The provider token is not
// revoked.
func (m *Manager) Disconnect(ctx context.Context, portalID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ok, err := m.store.Deactivate(ctx, portalID)
	if err != nil {
		return false, fmt.Errorf("disconnect: %w: %w", apperr.ErrStoreUnavailable, err)
	}
	if ok {
		m.log.Infow("hubspot disconnected", "portal_id", portalID)
	}
	return ok, nil
}

// ListConnected returns active connections, newest first.
func (m *Manager) ListConnected(ctx context.Context) ([]Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	out, err := m.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w: %w", apperr.ErrStoreUnavailable, err)
	}
	return out, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func (m *Manager) active(ctx context.Context, portalID int64) (Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	conn, err := m.store.GetActive(ctx, portalID)
	if errors.Is(err, apperr.ErrNotFound) {
		return Connection{}, fmt.Errorf("portal %d: %w", portalID, apperr.ErrNotConnected)
	}
	if err != nil {
		return Connection{}, fmt.Errorf("load connection: %w: %w", apperr.ErrStoreUnavailable, err)
	}
	return conn, nil
}

// clientContext routes x/oauth2 token requests through m.http.
func (m *Manager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.http)
}

// expiry prefers expires_in measured from m.now so tests with a fixed clock
// see a stable value.
func (m *Manager) expiry(tok *oauth2.Token) time.Time {
	if tok.ExpiresIn > 0 {
		return m.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	return m.now()
}

// tokenError logs the provider's raw body and returns a wrapped sentinel
// that carries none of it.
func (m *Manager) tokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		m.log.Errorw("hubspot token "+op+" rejected", "status", status, "body", string(re.Body))
		return fmt.Errorf("%s: %w", op, apperr.ErrTokenExchangeFailed)
	}
	m.log.Errorw("hubspot token "+op+" failed", "err", err)
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrTokenExchangeFailed, apperr.ErrProviderUnavailable)
}

type identity struct {
	HubID     int64  `json:"hub_id"`
	UserID    int64  `json:"user_id"`
	HubDomain string `json:"hub_domain"`
	User      string `json:"user"`
}

// identity resolves the portal behind an access token.
func (m *Manager) identity(ctx context.Context, accessToken string) (identity, error) {
	var id identity
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.apiBase+"/oauth/v1/access-tokens/"+url.PathEscape(accessToken), nil)
	if err != nil {
		return id, fmt.Errorf("identity request: %w", err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		m.log.Errorw("hubspot identity lookup failed", "err", err)
		return id, fmt.Errorf("identity: %w", apperr.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		m.log.Errorw("hubspot identity lookup rejected", "status", resp.StatusCode, "body", string(body))
		return id, fmt.Errorf("identity: status %d: %w", resp.StatusCode, apperr.ErrProviderUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return id, fmt.Errorf("identity decode: %w: %w", apperr.ErrProviderUnavailable, err)
	}
	if id.HubID == 0 {
		return id, fmt.Errorf("identity: missing hub_id: %w", apperr.ErrProviderUnavailable)
	}
	return id, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
