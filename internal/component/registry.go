// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web blank-imports the
// components, calls Init(deps) on every registered one, and mounts each
// component's Routes() under its Prefix().  Prefixes must be distinct.

package component

import (
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/gtmskills/internal/config"
)

// Deps are the shared resources handed to every component during Init.
type Deps struct {
	DB         *sqlx.DB
	Config     *config.Config
	Log        *zap.SugaredLogger
	HTTPClient *http.Client // outbound calls; nil means http.DefaultClient
}

// Component contract.
//
// Routes() paths are relative to Prefix(), e.g. with Prefix "/api/v1":
//
//	r := chi.NewRouter()
//	r.Get("/leaderboard", h.list)
//	return r
type Component interface {
	Name() string
	Prefix() string
	Init(Deps) error
	Routes() chi.Router
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  A second
// registration under the same name replaces the first.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so boot order
// and log lines are deterministic.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component and mounts its routes on r.
// The first Init error aborts.
func Mount(r chi.Router, deps Deps) error {
	for _, c := range All() {
		if err := c.Init(deps); err != nil {
			return &InitError{Component: c.Name(), Err: err}
		}
		r.Mount(c.Prefix(), c.Routes())
		if deps.Log != nil {
			deps.Log.Infow("component mounted", "component", c.Name(), "prefix", c.Prefix())
		}
	}
	return nil
}

// InitError names the component whose Init failed.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string { return "component " + e.Component + ": " + e.Err.Error() }
func (e *InitError) Unwrap() error { return e.Err }
