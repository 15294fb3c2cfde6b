package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/gtmskills/internal/apperr"
	"github.com/yanizio/gtmskills/internal/cache"
	"github.com/yanizio/gtmskills/internal/metrics"
	"github.com/yanizio/gtmskills/internal/requestinfo"
	"github.com/yanizio/gtmskills/internal/validate"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultStatsTTL     = time.Minute

	statsKey      = "stats"
	categoriesKey = "categories"
)

// Service is safe for concurrent use.
type Service struct {
	store   Store
	log     *zap.SugaredLogger
	memo    *cache.Memo
	now     func() time.Time
	timeout time.Duration
	ttl     time.Duration
}

// Option tunes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithStatsTTL sets how long stats and category counts are memoised.
func WithStatsTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewService builds a Service over store.
func NewService(store Store, log *zap.SugaredLogger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Service{
		store:   store,
		log:     log,
		now:     time.Now,
		timeout: defaultStoreTimeout,
		ttl:     defaultStatsTTL,
	}
	for _, o := range opts {
		o(s)
	}
	s.memo = cache.New(s.ttl)
	return s
}

/*──────────────────────────── voting ──────────────────────────────────────*/

// CastVote applies toggle semantics for one voter on one prompt:
//
//   - no vote yet           → record vt
//   - same vote again       → remove it (UserVote == nil)
//   - opposite vote present → replace it
//
// Counts and hot_score are rewritten in the same transaction, so a failure
// leaves nothing visible.
func (s *Service) CastVote(ctx context.Context, promptID string, vt VoteType, fingerprint string) (VoteResult, error) {
	if _, err := ParseVoteType(string(vt)); err != nil {
		return VoteResult{}, err
	}
	if strings.TrimSpace(fingerprint) == "" {
		return VoteResult{}, apperr.Invalid("Voter fingerprint is required")
	}
	if !validID(promptID) {
		return VoteResult{}, apperr.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		res    VoteResult
		effect string
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		tl, err := tx.LockPrompt(ctx, promptID)
		if err != nil {
			return err
		}
		prev, had, err := tx.FindVote(ctx, promptID, fingerprint)
		if err != nil {
			return err
		}

		up, down := tl.Upvotes, tl.Downvotes
		switch {
		case !had:
			if err := tx.InsertVote(ctx, promptID, fingerprint, vt, s.now()); err != nil {
				return err
			}
			up, down = adjust(up, down, vt, +1)
			res.UserVote = &vt
			effect = "added"
		case prev == vt:
			if err := tx.DeleteVote(ctx, promptID, fingerprint); err != nil {
				return err
			}
			up, down = adjust(up, down, vt, -1)
			effect = "removed"
		default:
			if err := tx.DeleteVote(ctx, promptID, fingerprint); err != nil {
				return err
			}
			if err := tx.InsertVote(ctx, promptID, fingerprint, vt, s.now()); err != nil {
				return err
			}
			up, down = adjust(up, down, prev, -1)
			up, down = adjust(up, down, vt, +1)
			res.UserVote = &vt
			effect = "switched"
		}

		if err := tx.UpdateTally(ctx, promptID, up, down, HotScore(up, down, tl.CreatedAt)); err != nil {
			return err
		}
		res.Upvotes, res.Downvotes = up, down
		return nil
	})
	if err != nil {
		return VoteResult{}, s.storeErr(ctx, "cast vote", err)
	}

	metrics.VotesTotal.WithLabelValues(string(vt), effect).Inc()
	return res, nil
}

// adjust moves the counter for vt by delta, never below zero.
func adjust(up, down int, vt VoteType, delta int) (int, int) {
	if vt == VoteUp {
		return max(up+delta, 0), down
	}
	return up, max(down+delta, 0)
}

// GetUserVote reports the caller's current vote, or nil.
func (s *Service) GetUserVote(ctx context.Context, promptID, fingerprint string) (*VoteType, error) {
	if !validID(promptID) || fingerprint == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vt, ok, err := s.store.FindVote(ctx, promptID, fingerprint)
	if err != nil {
		return nil, s.storeErr(ctx, "get user vote", err)
	}
	if !ok {
		return nil, nil
	}
	return &vt, nil
}

/*──────────────────────────── listing ─────────────────────────────────────*/

// ListRanked returns one page of approved prompts.  Rank is continuous
// across pages: the first item of offset 40 is rank 41.
func (s *Service) ListRanked(ctx context.Context, q ListQuery) (Page, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	q.Limit = min(q.Limit, MaxLimit)
	if q.Offset < 0 {
		return Page{}, invalidParam("offset", "must be a non-negative integer")
	}
	if q.Sort == "" {
		q.Sort = SortHot
	}
	if q.Timeframe == "" {
		q.Timeframe = TimeframeAll
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompts, total, err := s.store.List(ctx, q, q.Timeframe.Since(s.now().UTC()))
	if err != nil {
		return Page{}, s.storeErr(ctx, "list prompts", err)
	}

	items := make([]RankedPrompt, len(prompts))
	for i, p := range prompts {
		items[i] = RankedPrompt{Rank: q.Offset + i + 1, Prompt: p}
	}
	return Page{
		Items:   items,
		Total:   total,
		Query:   q,
		HasMore: q.Offset+len(items) < total,
	}, nil
}

// Stats returns site-wide totals, memoised for the stats TTL.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := cache.GetOrLoad(ctx, s.memo, statsKey, s.loadStats)
	if err != nil {
		return Stats{}, s.storeErr(ctx, "stats", err)
	}
	return st, nil
}

func (s *Service) loadStats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { st.TotalPrompts, err = s.store.CountApproved(gctx); return })
	g.Go(func() (err error) { st.TotalVotes, err = s.store.CountVotes(gctx); return })
	g.Go(func() (err error) { st.TotalCopies, err = s.store.CountCopies(gctx); return })
	g.Go(func() (err error) {
		st.TotalOutcomes, st.TotalPipelineValue, err = s.store.OutcomeTotals(gctx)
		return
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// Categories returns approved-prompt counts per category, largest first.
func (s *Service) Categories(ctx context.Context) ([]CategoryCount, error) {
	cc, err := cache.GetOrLoad(ctx, s.memo, categoriesKey, func(ctx context.Context) ([]CategoryCount, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.store.CategoryCounts(ctx)
	})
	if err != nil {
		return nil, s.storeErr(ctx, "categories", err)
	}
	return cc, nil
}

/*──────────────────────────── copies ──────────────────────────────────────*/

// knownSources keeps the copy metric's source label bounded.
var knownSources = map[string]bool{"website": true, "extension": true, "api": true, "hubspot": true}

// TrackCopy records that an approved prompt was copied.  An empty source
// means "website".
func (s *Service) TrackCopy(ctx context.Context, promptID, source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		source = "website"
	}
	if len(source) > 64 {
		return &apperr.ValidationError{
			Summary: "source must be at most 64 characters",
			Fields:  []apperr.Field{{Name: "source", Message: "must be at most 64 characters"}},
		}
	}
	if !validID(promptID) {
		return apperr.ErrNotFound
	}

	country := requestinfo.FromContext(ctx).Country()

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.TrackCopy(sctx, promptID, source, s.now()); err != nil {
		return s.storeErr(sctx, "track copy", err)
	}

	label := source
	if !knownSources[label] {
		label = "other"
	}
	metrics.CopiesTotal.WithLabelValues(label, country).Inc()
	return nil
}

/*──────────────────────────── outcomes ────────────────────────────────────*/

var outcomeTypes = []string{
	"meeting_booked",
	"reply_received",
	"demo_completed",
	"proposal_sent",
	"deal_won",
}

// OutcomeTypes lists the accepted outcome_type values.
func OutcomeTypes() []string { return append([]string(nil), outcomeTypes...) }

// OutcomeSubmission is the body of an outcome report.
type OutcomeSubmission struct {
	OutcomeType  string   `json:"outcome_type"`
	OutcomeValue *float64 `json:"outcome_value,omitempty" validate:"omitempty,gte=0"`
	Testimonial  *string  `json:"testimonial,omitempty"   validate:"omitempty,max=2000"`
	UserEmail    *string  `json:"user_email,omitempty"    validate:"omitempty,email,max=255"`
	IsPublic     *bool    `json:"is_public,omitempty"`
}

// SubmitOutcome stores a self-reported outcome.  An unknown outcome_type is
// rejected before any store call, and the error names the valid set.
func (s *Service) SubmitOutcome(ctx context.Context, promptID string, in OutcomeSubmission) error {
	if !isOutcomeType(in.OutcomeType) {
		msg := "must be one of: " + strings.Join(outcomeTypes, ", ")
		return &apperr.ValidationError{
			Summary: "Invalid outcome_type",
			Fields:  []apperr.Field{{Name: "outcome_type", Message: msg}},
		}
	}
	if err := validate.Struct(in); err != nil {
		return err
	}
	if !validID(promptID) {
		return apperr.ErrNotFound
	}

	o := &Outcome{
		PromptID:           promptID,
		OutcomeType:        in.OutcomeType,
		OutcomeValue:       in.OutcomeValue,
		Testimonial:        in.Testimonial,
		UserEmail:          in.UserEmail,
		IsPublic:           in.IsPublic != nil && *in.IsPublic,
		VerificationStatus: VerificationSelfReported,
		CreatedAt:          s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.InsertOutcome(ctx, o); err != nil {
		return s.storeErr(ctx, "submit outcome", err)
	}
	metrics.OutcomesTotal.WithLabelValues(o.OutcomeType).Inc()
	return nil
}

func isOutcomeType(t string) bool {
	for _, v := range outcomeTypes {
		if v == t {
			return true
		}
	}
	return false
}

/*──────────────────────────── submissions ─────────────────────────────────*/

// Submission is the body of a new prompt.  Lengths count characters.
type Submission struct {
	Title       string   `json:"title"                  validate:"required,min=5,max=255"`
	Content     string   `json:"content"                validate:"required,min=20,max=10000"`
	Category    string   `json:"category"               validate:"required,max=64"`
	Subcategory *string  `json:"subcategory,omitempty"  validate:"omitempty,max=64"`
	AuthorName  *string  `json:"author_name,omitempty"  validate:"omitempty,max=128"`
	AuthorEmail *string  `json:"author_email,omitempty" validate:"omitempty,email,max=255"`
	Tags        []string `json:"tags,omitempty"         validate:"omitempty,max=20,dive,max=64"`
	UseCases    []string `json:"use_cases,omitempty"    validate:"omitempty,max=20,dive,max=128"`
}

// SubmitPrompt stores a pending prompt and returns its id.
func (s *Service) SubmitPrompt(ctx context.Context, in Submission) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", err
	}

	now := s.now().UTC()
	p := &Prompt{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Content:     in.Content,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Status:      StatusPending,
		Tags:        nonNil(in.Tags),
		UseCases:    nonNil(in.UseCases),
		Variables:   ExtractVariables(in.Content),
		HotScore:    HotScore(0, 0, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.InsertPrompt(ctx, p); err != nil {
		return "", s.storeErr(ctx, "submit prompt", err)
	}

	metrics.SubmissionsTotal.Inc()
	s.log.Infow("prompt submitted", "prompt_id", p.ID, "category", p.Category)
	return p.ID, nil
}

func nonNil(v []string) StringList {
	if v == nil {
		return StringList{}
	}
	return StringList(v)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// validID rejects ids that cannot exist, so garbage never reaches SQL.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// storeErr passes domain errors through and classifies everything else as
// the store being unavailable.  Detail is logged here and nowhere else.
func (s *Service) storeErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidInput) {
		return err
	}
	s.log.Errorw("leaderboard store failure", "op", op, "err", err, "ctx_err", ctx.Err())
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStoreUnavailable, err)
}
