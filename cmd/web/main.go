// cmd/web/main.go
//
// GTM Skills API – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (host-wide file → conf/.env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Connect to Vault when VAULT_ADDR is set, then load config; any
//     `vault:` reference in YAML or env is resolved here.
//
//  4. Open the MySQL pool and, when database.migrate is on, apply the
//     embedded goose migrations.
//
//  5. Open the optional GeoLite2 database used for copy metrics.
//
//  6. Build the chi router:
//
//     • RequestID → AccessLog       – request_id logger, latency histogram
//     • requestinfo.Enrich          – UA, language, IP, geo, client hints
//     • Security → ForceHTTPS       – headers, 308 to https off localhost
//     • components                  – leaderboard (/api/v1), hubspot (/api/hubspot)
//     • /healthz, /metrics
//
//  7. Serve until SIGINT/SIGTERM, then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/gtmskills/internal/component"
	"github.com/yanizio/gtmskills/internal/config"
	"github.com/yanizio/gtmskills/internal/database"
	"github.com/yanizio/gtmskills/internal/logger"
	"github.com/yanizio/gtmskills/internal/middleware"
	"github.com/yanizio/gtmskills/internal/requestinfo"
	"github.com/yanizio/gtmskills/internal/server"
	"github.com/yanizio/gtmskills/internal/vault"

	_ "github.com/yanizio/gtmskills/components/hubspot"
	_ "github.com/yanizio/gtmskills/components/leaderboard"
)

const serverEnvPath = "/usr/local/etc/gtmskills/global.env"

// loadEnv prefers the host-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// logDir honours GTM_LOGGING__DIR before config exists, so boot errors
// land in the same directory as everything after.
func logDir(root string) string {
	if d := os.Getenv("GTM_LOGGING__DIR"); d != "" {
		if filepath.IsAbs(d) {
			return d
		}
		return filepath.Join(root, d)
	}
	return filepath.Join(root, "logs")
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.RootDir()
	logOut, err := logger.New(logDir(root), runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 1.  Secrets + config ────────────────────────────────────────────
	//
	var secrets config.SecretResolver
	if vault.Enabled() {
		vc, err := vault.New(ctx, logOut)
		if err != nil {
			logOut.Fatalw("connect vault", "err", err)
		}
		secrets = vc
	}
	cfg, err := config.LoadFrom(ctx, root, secrets)
	if err != nil {
		logOut.Fatalw("load config", "err", err)
	}

	//
	// ── 2.  Database ────────────────────────────────────────────────────
	//
	db, err := database.Open(ctx, database.Options{
		DSN:          cfg.Database.DSN,
		Password:     cfg.Database.Password,
		MaxOpenConns: cfg.Database.MaxOpen,
		MaxIdleConns: cfg.Database.MaxIdle,
	})
	if err != nil {
		logOut.Fatalw("connect database", "err", err)
	}
	defer db.Close()
	logOut.Infow("database online")

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			logOut.Fatalw("migrate database", "err", err)
		}
	}

	//
	// ── 3.  GeoIP (optional) ────────────────────────────────────────────
	//
	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			logOut.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	//
	// ── 4.  Router + components ─────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		middleware.AccessLog(logOut),
		requestinfo.Enrich,
		middleware.Security,
		middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS),
	)

	deps := component.Deps{
		DB:         db,
		Config:     cfg,
		Log:        logOut,
		HTTPClient: &http.Client{Timeout: cfg.HubSpot.Timeout},
	}
	if err := component.Mount(r, deps); err != nil {
		logOut.Fatalw("mount components", "err", err)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP, r)
	if err := server.Run(ctx, srv, cfg.HTTP.ShutdownTimeout, logOut); err != nil {
		logOut.Fatalw("http server", "err", err)
	}
	logOut.Infow("shutdown complete")
}
