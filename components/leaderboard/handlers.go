package leaderboard

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/gtmskills/internal/apperr"
	"github.com/yanizio/gtmskills/internal/httpx"
	lb "github.com/yanizio/gtmskills/internal/leaderboard"
)

const listCacheControl = "public, s-maxage=60, stale-while-revalidate=120"

/*──────────────────────────── listing ─────────────────────────────────────*/

type promptView struct {
	Rank        int           `json:"rank"`
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Category    string        `json:"category"`
	Subcategory *string       `json:"subcategory"`
	AuthorName  *string       `json:"author_name"`
	Upvotes     int           `json:"upvotes"`
	Downvotes   int           `json:"downvotes"`
	Score       int           `json:"score"`
	CopyCount   int           `json:"copy_count"`
	HotScore    float64       `json:"hot_score"`
	Tags        lb.StringList `json:"tags"`
	Variables   lb.StringList `json:"variables"`
	CreatedAt   time.Time     `json:"created_at"`
}

type pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type filters struct {
	Sort      lb.Sort      `json:"sort"`
	Timeframe lb.Timeframe `json:"timeframe"`
	Category  string       `json:"category,omitempty"`
}

type listResponse struct {
	Data       []promptView `json:"data"`
	Pagination pagination   `json:"pagination"`
	Filters    filters      `json:"filters"`
	Stats      *lb.Stats    `json:"stats,omitempty"`
}

func (c *Comp) list(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q, err := lb.ParseListQuery(qs.Get("sort"), qs.Get("timeframe"), qs.Get("category"),
		qs.Get("limit"), qs.Get("offset"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	page, err := c.svc.ListRanked(r.Context(), q)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	resp := listResponse{
		Data: make([]promptView, 0, len(page.Items)),
		Pagination: pagination{
			Total:   page.Total,
			Limit:   page.Query.Limit,
			Offset:  page.Query.Offset,
			HasMore: page.HasMore,
		},
		Filters: filters{Sort: page.Query.Sort, Timeframe: page.Query.Timeframe, Category: page.Query.Category},
	}
	for _, it := range page.Items {
		resp.Data = append(resp.Data, promptView{
			Rank:        it.Rank,
			ID:          it.ID,
			Title:       it.Title,
			Content:     it.Content,
			Category:    it.Category,
			Subcategory: it.Subcategory,
			AuthorName:  it.AuthorName,
			Upvotes:     it.Upvotes,
			Downvotes:   it.Downvotes,
			Score:       it.Score(),
			CopyCount:   it.CopyCount,
			HotScore:    it.HotScore,
			Tags:        it.Tags,
			Variables:   it.Variables,
			CreatedAt:   it.CreatedAt,
		})
	}

	if qs.Get("stats") == "true" {
		st, err := c.svc.Stats(r.Context())
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		resp.Stats = &st
	}

	w.Header().Set("Cache-Control", listCacheControl)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (c *Comp) categories(w http.ResponseWriter, r *http.Request) {
	cc, err := c.svc.Categories(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", listCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": cc})
}

/*──────────────────────────── voting ──────────────────────────────────────*/

type voteRequest struct {
	VoteType string `json:"vote_type"`
}

type voteResponse struct {
	Success   bool         `json:"success"`
	Upvotes   int          `json:"upvotes"`
	Downvotes int          `json:"downvotes"`
	Score     int          `json:"score"`
	UserVote  *lb.VoteType `json:"user_vote"`
}

func (c *Comp) vote(w http.ResponseWriter, r *http.Request) {
	var body voteRequest
	if err := httpx.DecodeStrict(r, &body, true); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	vt, err := lb.ParseVoteType(body.VoteType)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	fp, err := lb.Fingerprint(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	res, err := c.svc.CastVote(r.Context(), chi.URLParam(r, "id"), vt, fp)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, voteResponse{
		Success:   true,
		Upvotes:   res.Upvotes,
		Downvotes: res.Downvotes,
		Score:     res.Score(),
		UserVote:  res.UserVote,
	})
}

func (c *Comp) userVote(w http.ResponseWriter, r *http.Request) {
	fp, err := lb.Fingerprint(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	vt, err := c.svc.GetUserVote(r.Context(), chi.URLParam(r, "id"), fp)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]*lb.VoteType{"user_vote": vt})
}

/*──────────────────────────── copies & outcomes ───────────────────────────*/

type copyRequest struct {
	Source string `json:"source"`
}

func (c *Comp) copy(w http.ResponseWriter, r *http.Request) {
	var body copyRequest
	if err := httpx.DecodeStrict(r, &body, true); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := c.svc.TrackCopy(r.Context(), chi.URLParam(r, "id"), body.Source); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type outcomeError struct {
	Error      string         `json:"error"`
	ValidTypes []string       `json:"valid_types"`
	Fields     []apperr.Field `json:"fields,omitempty"`
}

func (c *Comp) outcome(w http.ResponseWriter, r *http.Request) {
	var body lb.OutcomeSubmission
	if err := httpx.DecodeStrict(r, &body, false); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	err := c.svc.SubmitOutcome(r.Context(), chi.URLParam(r, "id"), body)
	var ve *apperr.ValidationError
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Outcome recorded successfully. Thank you for sharing!",
		})
	case errors.As(err, &ve) && len(ve.Fields) > 0 && ve.Fields[0].Name == "outcome_type":
		httpx.WriteJSON(w, http.StatusBadRequest, outcomeError{
			Error:      ve.Error(),
			ValidTypes: lb.OutcomeTypes(),
			Fields:     ve.Fields,
		})
	default:
		httpx.WriteError(w, r, err)
	}
}

/*──────────────────────────── submissions ─────────────────────────────────*/

func (c *Comp) submit(w http.ResponseWriter, r *http.Request) {
	var body lb.Submission
	if err := httpx.DecodeStrict(r, &body, false); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id, err := c.svc.SubmitPrompt(r.Context(), body)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Prompt submitted successfully. It will appear on the leaderboard after moderation.",
		"id":      id,
	})
}
