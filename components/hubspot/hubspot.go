// components/hubspot/hubspot.go
//
// HubSpot Component – OAuth install flow, CRM sidebar card, and operator
// connection management.
//
// Routes (under /api/hubspot):
//
//	GET    /install                 redirect to HubSpot authorization
//	GET    /callback                finish install, redirect to the integration page
//	GET    /crm-card                sidebar card JSON (CORS, cached 60s)
//	GET    /connections             active portals        (admin token)
//	DELETE /connections/{portalId}  soft-disconnect       (admin token)
package hubspot

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/gtmskills/internal/acl"
	"github.com/yanizio/gtmskills/internal/component"
	hs "github.com/yanizio/gtmskills/internal/hubspot"
	"github.com/yanizio/gtmskills/internal/middleware"
)

// manager is the slice of *hs.Manager the handlers use.
type manager interface {
	Configured() bool
	BeginInstall() (redirectURL, state string, err error)
	CompleteInstall(ctx context.Context, cb hs.Callback) (hs.Connection, error)
	Disconnect(ctx context.Context, portalID int64) (bool, error)
	ListConnected(ctx context.Context) ([]hs.Summary, error)
}

// dealStages looks up the stage of a deal the card was opened on.
type dealStages interface {
	DealStage(ctx context.Context, portalID int64, dealID string) (string, error)
}

// compile-time assertions
var (
	_ component.Component = (*Comp)(nil)
	_ manager             = (*hs.Manager)(nil)
	_ dealStages          = (*hs.Client)(nil)
)

// Comp implements component.Component.
type Comp struct {
	mgr             manager
	deals           dealStages
	siteURL         string
	integrationPath string
	adminToken      string
	log             *zap.SugaredLogger
}

func init() { component.Register(&Comp{}) }

func (c *Comp) Name() string   { return "hubspot" }
func (c *Comp) Prefix() string { return "/api/hubspot" }

// Init builds the token manager and API client over the MySQL store.
func (c *Comp) Init(d component.Deps) error {
	if d.DB == nil {
		return errors.New("database handle required")
	}
	if d.Config == nil {
		return errors.New("config required")
	}
	log := d.Log
	if log == nil {
		log = zap.S()
	}
	cfg := d.Config.HubSpot

	mgr := hs.NewManager(cfg, hs.NewMySQLStore(d.DB), d.HTTPClient, log)
	c.mgr = mgr
	c.deals = hs.NewClient(mgr, cfg.APIBase, d.HTTPClient, log)
	c.siteURL = strings.TrimRight(d.Config.HTTP.PublicURL, "/")
	c.integrationPath = cfg.IntegrationPath
	c.adminToken = d.Config.Admin.Token
	c.log = log.With("component", "hubspot")

	if !mgr.Configured() {
		c.log.Warnw("hubspot credentials unset; install is disabled")
	}
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/install", c.install)
	r.Get("/callback", c.callback)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS([]string{http.MethodGet}))
		r.Get("/crm-card", c.crmCard)
		r.Options("/crm-card", middleware.Preflight)
	})

	r.Group(func(r chi.Router) {
		r.Use(acl.RequireToken(c.adminToken))
		r.Get("/connections", c.connections)
		r.Delete("/connections/{portalId}", c.disconnect)
	})

	return r
}
