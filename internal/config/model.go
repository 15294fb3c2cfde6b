// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the tree that loader.go builds from
// three overlay layers:
//
//   • optional `conf/.env`                 - dotenv values,
//   • `conf/global.yaml`                   - primary static file,
//   • `GTM_`-prefixed environment overrides - highest precedence.
//
// Any string value beginning with `vault:` is resolved through a
// SecretResolver before unmarshalling, so the model only ever holds plain
// strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`; Koanf ignores `yaml` tags.
//   • Durations accept Go syntax ("10s", "5m").
//   • `Paths` is filled at runtime; YAML must not try to set it.
package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	PublicURL       string        `koanf:"public_url"       validate:"required,url"`
	ForceHTTPS      bool          `koanf:"force_https"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

//
// Database section
//

// Database holds the MySQL DSN and pool sizing.  The password is kept apart
// from the DSN so it can live in Vault while host and flags stay in YAML.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
	Migrate  bool   `koanf:"migrate"`
}

//
// HubSpot section
//

// HubSpot configures the OAuth app.  ClientID and ClientSecret may be blank;
// the install endpoint then reports a configuration error instead of the
// process refusing to boot.
type HubSpot struct {
	ClientID        string        `koanf:"client_id"`
	ClientSecret    string        `koanf:"client_secret"`
	RedirectURI     string        `koanf:"redirect_uri"     validate:"omitempty,url"`
	Scopes          []string      `koanf:"scopes"`
	AuthorizeURL    string        `koanf:"authorize_url"    validate:"required,url"`
	APIBase         string        `koanf:"api_base"         validate:"required,url"`
	Timeout         time.Duration `koanf:"timeout"`
	IntegrationPath string        `koanf:"integration_path" validate:"required,startswith=/"`
}

//
// Leaderboard section
//

// Leaderboard tunes the vote/scoring engine.
type Leaderboard struct {
	StoreTimeout time.Duration `koanf:"store_timeout"`
	StatsTTL     time.Duration `koanf:"stats_ttl"`
}

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

// Admin guards operator-only endpoints.  An empty token disables them.
type Admin struct {
	Token string `koanf:"token"`
}

// Logging controls the file sink.
type Logging struct {
	Dir string `koanf:"dir"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // GTM_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP        HTTP        `koanf:"http"`
	Database    Database    `koanf:"database"`
	HubSpot     HubSpot     `koanf:"hubspot"`
	Leaderboard Leaderboard `koanf:"leaderboard"`
	GeoIP       GeoIP       `koanf:"geoip"`
	Admin       Admin       `koanf:"admin"`
	Logging     Logging     `koanf:"logging"`
	Paths       Paths       `koanf:"-"`
}

// applyDefaults fills zero values that YAML may omit.
func (c *Config) applyDefaults() {
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.HubSpot.AuthorizeURL == "" {
		c.HubSpot.AuthorizeURL = "https://app.hubspot.com/oauth/authorize"
	}
	if c.HubSpot.APIBase == "" {
		c.HubSpot.APIBase = "https://api.hubapi.com"
	}
	if c.HubSpot.Timeout == 0 {
		c.HubSpot.Timeout = 10 * time.Second
	}
	if c.HubSpot.IntegrationPath == "" {
		c.HubSpot.IntegrationPath = "/integrations/hubspot"
	}
	if len(c.HubSpot.Scopes) == 0 {
		c.HubSpot.Scopes = []string{
			"crm.objects.deals.read",
			"crm.objects.contacts.read",
			"crm.objects.companies.read",
		}
	}
	if c.HubSpot.RedirectURI == "" && c.HTTP.PublicURL != "" {
		c.HubSpot.RedirectURI = c.HTTP.PublicURL + "/api/hubspot/callback"
	}
	if c.Leaderboard.StoreTimeout == 0 {
		c.Leaderboard.StoreTimeout = 5 * time.Second
	}
	if c.Leaderboard.StatsTTL == 0 {
		c.Leaderboard.StatsTTL = time.Minute
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}
