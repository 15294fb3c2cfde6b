package hubspot

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/gtmskills/internal/apperr"
	"github.com/yanizio/gtmskills/internal/httpx"
	hs "github.com/yanizio/gtmskills/internal/hubspot"
	"github.com/yanizio/gtmskills/internal/logger"
	"github.com/yanizio/gtmskills/internal/session"
)

// stageLookupTimeout bounds the best-effort deal stage fetch.
const stageLookupTimeout = 2 * time.Second

/*──────────────────────────── install flow ────────────────────────────────*/

func (c *Comp) install(w http.ResponseWriter, r *http.Request) {
	redirect, state, err := c.mgr.BeginInstall()
	if errors.Is(err, apperr.ErrConfiguration) {
		logger.FromContext(r.Context()).Errorw("hubspot install unavailable", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError,
			httpx.ErrorBody{Error: "HubSpot integration not configured"})
		return
	}
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	session.SetOAuthState(w, state)
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (c *Comp) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cookieState, _ := session.OAuthState(r)

	_, err := c.mgr.CompleteInstall(r.Context(), hs.Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		CookieState:      cookieState,
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		var pe *apperr.ProviderError
		code := hs.InstallResult(err)
		if errors.As(err, &pe) {
			code = pe.Message()
		} else if code == "token_exchange_failed" {
			logger.FromContext(r.Context()).Errorw("hubspot install failed", "err", err)
		}
		c.redirectIntegration(w, r, url.Values{"error": {code}})
		return
	}

	session.ClearOAuthState(w)
	c.redirectIntegration(w, r, url.Values{"success": {"true"}})
}

// redirectIntegration merges v into any query integrationPath already has.
func (c *Comp) redirectIntegration(w http.ResponseWriter, r *http.Request, v url.Values) {
	u, err := url.Parse(c.integrationPath)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("bad integration path", "path", c.integrationPath, "err", err)
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	for k, vs := range v {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

/*──────────────────────────── CRM card ────────────────────────────────────*/

func (c *Comp) crmCard(w http.ResponseWriter, r *http.Request) {
	req := hs.ParseCardRequest(r.URL.Query())

	if req.ObjectType == hs.ObjectDeal && req.DealStage == "" &&
		req.PortalID != 0 && req.ObjectID != 0 && c.deals != nil {
		req.DealStage = c.lookupStage(r.Context(), req)
	}

	w.Header().Set("Cache-Control", "max-age=60")
	httpx.WriteJSON(w, http.StatusOK, hs.BuildCard(c.siteURL, req))
}

// lookupStage returns "" on any failure; the card falls back to the
// default actions.
func (c *Comp) lookupStage(ctx context.Context, req hs.CardRequest) string {
	ctx, cancel := context.WithTimeout(ctx, stageLookupTimeout)
	defer cancel()

	stage, err := c.deals.DealStage(ctx, req.PortalID, strconv.FormatInt(req.ObjectID, 10))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotConnected) {
			logger.FromContext(ctx).Warnw("deal stage lookup failed",
				"portal_id", req.PortalID, "deal_id", req.ObjectID, "err", err)
		}
		return ""
	}
	return stage
}

/*──────────────────────────── admin ───────────────────────────────────────*/

func (c *Comp) connections(w http.ResponseWriter, r *http.Request) {
	list, err := c.mgr.ListConnected(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (c *Comp) disconnect(w http.ResponseWriter, r *http.Request) {
	portalID, err := strconv.ParseInt(chi.URLParam(r, "portalId"), 10, 64)
	if err != nil || portalID <= 0 {
		httpx.WriteError(w, r, apperr.Invalid("portalId must be a positive integer"))
		return
	}
	ok, err := c.mgr.Disconnect(r.Context(), portalID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if !ok {
		httpx.WriteError(w, r, apperr.ErrNotConnected)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
