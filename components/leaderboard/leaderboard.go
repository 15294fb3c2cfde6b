// components/leaderboard/leaderboard.go
//
// Leaderboard Component – public JSON API for the prompt leaderboard.
//
// Routes (under /api/v1):
//
//	GET  /leaderboard             ranked listing (?stats=true adds totals)
//	GET  /leaderboard/categories  approved prompts per category
//	GET  /prompts/{id}/vote       caller's current vote
//	POST /prompts/{id}/vote       toggle vote, body {vote_type}
//	POST /prompts/{id}/copy       record a copy, body {source?}
//	POST /prompts/{id}/outcome    self-reported outcome
//	POST /prompts/submit          new prompt, pending moderation
//
// Every route answers OPTIONS with the CORS set of its group.
package leaderboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/gtmskills/internal/component"
	lb "github.com/yanizio/gtmskills/internal/leaderboard"
	"github.com/yanizio/gtmskills/internal/middleware"
)

// engine is the slice of *lb.Service the handlers use.
type engine interface {
	ListRanked(ctx context.Context, q lb.ListQuery) (lb.Page, error)
	Stats(ctx context.Context) (lb.Stats, error)
	Categories(ctx context.Context) ([]lb.CategoryCount, error)
	CastVote(ctx context.Context, promptID string, vt lb.VoteType, fingerprint string) (lb.VoteResult, error)
	GetUserVote(ctx context.Context, promptID, fingerprint string) (*lb.VoteType, error)
	TrackCopy(ctx context.Context, promptID, source string) error
	SubmitOutcome(ctx context.Context, promptID string, in lb.OutcomeSubmission) error
	SubmitPrompt(ctx context.Context, in lb.Submission) (string, error)
}

// compile-time assertions
var (
	_ component.Component = (*Comp)(nil)
	_ engine              = (*lb.Service)(nil)
)

// Comp implements component.Component.
type Comp struct {
	svc engine
}

func init() { component.Register(&Comp{}) }

func (c *Comp) Name() string   { return "leaderboard" }
func (c *Comp) Prefix() string { return "/api/v1" }

// Init wires the MySQL-backed service.
func (c *Comp) Init(d component.Deps) error {
	if d.DB == nil {
		return errors.New("database handle required")
	}
	var opts []lb.Option
	if d.Config != nil {
		opts = append(opts,
			lb.WithStoreTimeout(d.Config.Leaderboard.StoreTimeout),
			lb.WithStatsTTL(d.Config.Leaderboard.StatsTTL),
		)
	}
	c.svc = lb.NewService(lb.NewMySQLStore(d.DB), d.Log, opts...)
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS([]string{http.MethodGet}))
		r.Get("/leaderboard", c.list)
		r.Options("/leaderboard", middleware.Preflight)
		r.Get("/leaderboard/categories", c.categories)
		r.Options("/leaderboard/categories", middleware.Preflight)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS([]string{http.MethodGet, http.MethodPost}, lb.FingerprintHeader))
		r.Get("/prompts/{id}/vote", c.userVote)
		r.Post("/prompts/{id}/vote", c.vote)
		r.Options("/prompts/{id}/vote", middleware.Preflight)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS([]string{http.MethodPost}))
		r.Post("/prompts/{id}/copy", c.copy)
		r.Options("/prompts/{id}/copy", middleware.Preflight)
		r.Post("/prompts/{id}/outcome", c.outcome)
		r.Options("/prompts/{id}/outcome", middleware.Preflight)
		r.Post("/prompts/submit", c.submit)
		r.Options("/prompts/submit", middleware.Preflight)
	})

	return r
}
