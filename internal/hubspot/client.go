package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/yanizio/gtmskills/internal/apperr"
)

// TokenSource hands out a credential for one call.  *Manager satisfies it.
type TokenSource interface {
	GetValidAccessToken(ctx context.Context, portalID int64) (string, error)
}

// Client makes authenticated HubSpot API calls for a portal.
type Client struct {
	tokens TokenSource
	base   string
	http   *http.Client
	log    *zap.SugaredLogger
}

func NewClient(tokens TokenSource, apiBase string, httpClient *http.Client, log *zap.SugaredLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.S()
	}
	return &Client{tokens: tokens, base: apiBase, http: httpClient, log: log}
}

// Do sends method path with body encoded as JSON and decodes the response
// into out when out is non-nil.  A fresh token is obtained on every call.
func (c *Client) Do(ctx context.Context, portalID int64, method, path string, body, out any) error {
	tok, err := c.tokens.GetValidAccessToken(ctx, portalID)
	if err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Errorw("hubspot api call failed", "portal_id", portalID, "path", path, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, apperr.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		c.log.Errorw("hubspot api error", "portal_id", portalID, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, apperr.ErrProviderUnavailable)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w: %w", path, apperr.ErrProviderUnavailable, err)
	}
	return nil
}

// DealStage fetches the dealstage property of a deal.
func (c *Client) DealStage(ctx context.Context, portalID int64, dealID string) (string, error) {
	var deal struct {
		Properties struct {
			DealStage string `json:"dealstage"`
		} `json:"properties"`
	}
	path := "/crm/v3/objects/deals/" + url.PathEscape(dealID) + "?properties=dealstage"
	if err := c.Do(ctx, portalID, http.MethodGet, path, nil, &deal); err != nil {
		return "", err
	}
	return deal.Properties.DealStage, nil
}
