package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/gtmskills/internal/apperr"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func approved(id string, up, down int, created time.Time) Prompt {
	return Prompt{
		ID:        id,
		Title:     "Cold open " + id[:4],
		Content:   "Hi [FIRST_NAME], saw [COMPANY] is hiring.",
		Category:  "cold-email",
		Status:    StatusApproved,
		Upvotes:   up,
		Downvotes: down,
		HotScore:  HotScore(up, down, created),
		CreatedAt: created,
	}
}

func newSvc(t *testing.T, st *memStore) *Service {
	t.Helper()
	return NewService(st, nil, WithClock(func() time.Time { return fixedNow }))
}

/*──────────────────────────── voting ──────────────────────────────────────*/

func TestCastVote_ToggleOff(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 3, 1, fixedNow.Add(-time.Hour)))
	svc := newSvc(t, st)
	ctx := context.Background()

	res, err := svc.CastVote(ctx, id, VoteUp, "fp-a")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Upvotes)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, VoteUp, *res.UserVote)

	res, err = svc.CastVote(ctx, id, VoteUp, "fp-a")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Upvotes)
	assert.Equal(t, 1, res.Downvotes)
	assert.Nil(t, res.UserVote)
	assert.Equal(t, 0, st.voteRows(id, "fp-a"))
}

func TestCastVote_Switch(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 3, 1, fixedNow.Add(-time.Hour)))
	svc := newSvc(t, st)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, id, VoteUp, "fp-a")
	require.NoError(t, err)
	res, err := svc.CastVote(ctx, id, VoteDown, "fp-a")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Upvotes, "upvotes back to baseline")
	assert.Equal(t, 2, res.Downvotes, "downvotes baseline+1")
	require.NotNil(t, res.UserVote)
	assert.Equal(t, VoteDown, *res.UserVote)
	assert.Equal(t, 1, res.Score())
}

func TestCastVote_SingleLiveVote(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 0, 0, fixedNow.Add(-time.Hour)))
	svc := newSvc(t, st)
	ctx := context.Background()

	seq := []VoteType{VoteUp, VoteDown, VoteDown, VoteUp, VoteUp, VoteDown, VoteUp}
	for _, vt := range seq {
		_, err := svc.CastVote(ctx, id, vt, "fp-z")
		require.NoError(t, err)
		assert.LessOrEqual(t, st.voteRows(id, "fp-z"), 1)
	}

	p := st.prompt(id)
	assert.Equal(t, 1, p.Upvotes+p.Downvotes, "exactly one live vote reflected in counts")
}

func TestCastVote_UpdatesHotScore(t *testing.T) {
	id := uuid.NewString()
	created := fixedNow.Add(-2 * time.Hour)
	st := newMemStore(approved(id, 9, 0, created))
	svc := newSvc(t, st)

	_, err := svc.CastVote(context.Background(), id, VoteUp, "fp-a")
	require.NoError(t, err)
	assert.Equal(t, HotScore(10, 0, created), st.prompt(id).HotScore)
}

func TestCastVote_Errors(t *testing.T) {
	id := uuid.NewString()
	pending := approved(id, 0, 0, fixedNow)
	pending.Status = StatusPending
	st := newMemStore(pending)
	svc := newSvc(t, st)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, id, "sideways", "fp")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.CastVote(ctx, id, VoteUp, "  ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.CastVote(ctx, id, VoteUp, "fp")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "pending prompt")

	_, err = svc.CastVote(ctx, uuid.NewString(), VoteUp, "fp")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "missing prompt")

	_, err = svc.CastVote(ctx, "not-a-uuid", VoteUp, "fp")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 2, st.calls["InTx"], "invalid id never reaches the store")
}

func TestCastVote_StoreFailureLeavesNothing(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 2, 0, fixedNow))
	svc := newSvc(t, st)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, id, VoteUp, "fp")
	require.NoError(t, err)

	// switching deletes then inserts; a failed insert must roll back the delete
	st.calls["failInsertVote"] = 1
	_, err = svc.CastVote(ctx, id, VoteDown, "fp")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	vt, ok, _ := st.FindVote(ctx, id, "fp")
	assert.True(t, ok)
	assert.Equal(t, VoteUp, vt)
	assert.Equal(t, 3, st.prompt(id).Upvotes)
	assert.Equal(t, 0, st.prompt(id).Downvotes)

	st.calls["failInsertVote"] = 0
	st.failNext = errors.New("connection refused")
	_, err = svc.CastVote(ctx, id, VoteDown, "fp")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestGetUserVote(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 0, 0, fixedNow))
	svc := newSvc(t, st)
	ctx := context.Background()

	got, err := svc.GetUserVote(ctx, id, "fp")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.CastVote(ctx, id, VoteDown, "fp")
	require.NoError(t, err)
	got, err = svc.GetUserVote(ctx, id, "fp")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, VoteDown, *got)
}

/*──────────────────────────── listing ─────────────────────────────────────*/

func seedListing(n int) *memStore {
	prompts := make([]Prompt, 0, n)
	for i := 0; i < n; i++ {
		// several share the same upvote count to exercise tie-breaking
		prompts = append(prompts, approved(uuid.NewString(), i%4, 0,
			fixedNow.Add(-time.Duration(i%7)*time.Hour)))
	}
	return newMemStore(prompts...)
}

func TestListRanked_PaginationCompleteness(t *testing.T) {
	st := seedListing(47)
	svc := newSvc(t, st)
	ctx := context.Background()

	for _, sort := range []Sort{SortHot, SortTop, SortNew, SortCopies} {
		seen := map[string]bool{}
		offset, total := 0, -1
		for {
			page, err := svc.ListRanked(ctx, ListQuery{Sort: sort, Limit: 10, Offset: offset})
			require.NoError(t, err)
			total = page.Total
			for i, it := range page.Items {
				assert.Equal(t, offset+i+1, it.Rank)
				assert.False(t, seen[it.ID], "duplicate %s in sort %s", it.ID, sort)
				seen[it.ID] = true
			}
			if !page.HasMore {
				break
			}
			offset += len(page.Items)
		}
		assert.Equal(t, 47, total)
		assert.Len(t, seen, total, "sort %s", sort)
	}
}

func TestListRanked_RankNumbering(t *testing.T) {
	svc := newSvc(t, seedListing(70))
	page, err := svc.ListRanked(context.Background(), ListQuery{Sort: SortTop, Limit: 20, Offset: 40})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, 41, page.Items[0].Rank)
	assert.True(t, page.HasMore)
}

func TestListRanked_DefaultsAndCap(t *testing.T) {
	svc := newSvc(t, seedListing(3))

	page, err := svc.ListRanked(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, page.Query.Limit)
	assert.Equal(t, SortHot, page.Query.Sort)
	assert.Equal(t, TimeframeAll, page.Query.Timeframe)

	page, err = svc.ListRanked(context.Background(), ListQuery{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, page.Query.Limit)
	assert.False(t, page.HasMore)
}

func TestListRanked_TimeframeAndCategory(t *testing.T) {
	fresh := approved(uuid.NewString(), 1, 0, fixedNow.Add(-2*time.Hour))
	old := approved(uuid.NewString(), 50, 0, fixedNow.AddDate(0, 0, -10))
	other := approved(uuid.NewString(), 1, 0, fixedNow.Add(-time.Hour))
	other.Category = "discovery"
	svc := newSvc(t, newMemStore(fresh, old, other))
	ctx := context.Background()

	page, err := svc.ListRanked(ctx, ListQuery{Sort: SortTop, Timeframe: TimeframeWeek, Category: "cold-email"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, fresh.ID, page.Items[0].ID)

	page, err = svc.ListRanked(ctx, ListQuery{Sort: SortTop, Category: "cold-email"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, old.ID, page.Items[0].ID, "top ignores recency")
}

func TestListRanked_HotFavoursRecent(t *testing.T) {
	recent := approved(uuid.NewString(), 5, 0, fixedNow.Add(-time.Hour))
	stale := approved(uuid.NewString(), 40, 0, fixedNow.AddDate(0, 0, -30))
	svc := newSvc(t, newMemStore(recent, stale))

	page, err := svc.ListRanked(context.Background(), ListQuery{Sort: SortHot})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, recent.ID, page.Items[0].ID)
}

func TestListRanked_StoreError(t *testing.T) {
	st := seedListing(1)
	st.failNext = errors.New("timeout")
	_, err := newSvc(t, st).ListRanked(context.Background(), ListQuery{})
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.Equal(t, "Internal server error", apperr.Public(err))
}

/*──────────────────────────── stats & categories ──────────────────────────*/

func TestStatsMemoised(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 0, 0, fixedNow))
	v := 1500.0
	st.outcomes = []Outcome{{PromptID: id, OutcomeValue: &v}, {PromptID: id}}
	st.copies = []string{"website"}
	svc := newSvc(t, st)
	ctx := context.Background()

	got, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalPrompts: 1, TotalVotes: 0, TotalCopies: 1,
		TotalOutcomes: 2, TotalPipelineValue: 1500,
	}, got)

	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.calls["CountApproved"], "second call served from cache")
}

func TestCategories(t *testing.T) {
	a := approved(uuid.NewString(), 0, 0, fixedNow)
	b := approved(uuid.NewString(), 0, 0, fixedNow)
	c := approved(uuid.NewString(), 0, 0, fixedNow)
	c.Category = "discovery"
	d := approved(uuid.NewString(), 0, 0, fixedNow)
	d.Status = StatusPending

	got, err := newSvc(t, newMemStore(a, b, c, d)).Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{
		{Category: "cold-email", Count: 2},
		{Category: "discovery", Count: 1},
	}, got)
}

/*──────────────────────────── copies & outcomes ───────────────────────────*/

func TestTrackCopy(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 0, 0, fixedNow))
	svc := newSvc(t, st)
	ctx := context.Background()

	require.NoError(t, svc.TrackCopy(ctx, id, ""))
	require.NoError(t, svc.TrackCopy(ctx, id, "extension"))
	assert.Equal(t, []string{"website", "extension"}, st.copies)
	assert.Equal(t, 2, st.prompt(id).CopyCount)
	assert.Equal(t, 0, st.prompt(id).Upvotes, "copies never touch votes")

	assert.ErrorIs(t, svc.TrackCopy(ctx, uuid.NewString(), "api"), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.TrackCopy(ctx, id, strings.Repeat("x", 65)), apperr.ErrInvalidInput)
}

func TestSubmitOutcome_InvalidType(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 0, 0, fixedNow))
	err := newSvc(t, st).SubmitOutcome(context.Background(), id, OutcomeSubmission{OutcomeType: "bogus"})

	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	for _, typ := range OutcomeTypes() {
		assert.Contains(t, ve.Fields[0].Message, typ)
	}
	assert.Zero(t, st.calls["InsertOutcome"])
}

func TestSubmitOutcome_StoresSelfReported(t *testing.T) {
	id := uuid.NewString()
	st := newMemStore(approved(id, 0, 0, fixedNow))
	val := 25000.0
	pub := true

	err := newSvc(t, st).SubmitOutcome(context.Background(), id, OutcomeSubmission{
		OutcomeType:  "deal_won",
		OutcomeValue: &val,
		IsPublic:     &pub,
	})
	require.NoError(t, err)
	require.Len(t, st.outcomes, 1)
	o := st.outcomes[0]
	assert.Equal(t, VerificationSelfReported, o.VerificationStatus)
	assert.True(t, o.IsPublic)
	assert.Equal(t, 25000.0, *o.OutcomeValue)
}

func TestSubmitOutcome_MissingPrompt(t *testing.T) {
	err := newSvc(t, newMemStore()).SubmitOutcome(context.Background(), uuid.NewString(),
		OutcomeSubmission{OutcomeType: "meeting_booked"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

/*──────────────────────────── submissions ─────────────────────────────────*/

func validSubmission() Submission {
	return Submission{
		Title:    "Trigger-event opener",
		Content:  "Congrats on the [EVENT], [FIRST_NAME]. Quick idea for [COMPANY].",
		Category: "cold-email",
	}
}

func TestSubmitPrompt_LengthBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		mut     func(*Submission)
		wantErr bool
	}{
		{"title 4", func(s *Submission) { s.Title = strings.Repeat("a", 4) }, true},
		{"title 5", func(s *Submission) { s.Title = strings.Repeat("a", 5) }, false},
		{"title 255", func(s *Submission) { s.Title = strings.Repeat("a", 255) }, false},
		{"title 256", func(s *Submission) { s.Title = strings.Repeat("a", 256) }, true},
		{"content 19", func(s *Submission) { s.Content = strings.Repeat("c", 19) }, true},
		{"content 20", func(s *Submission) { s.Content = strings.Repeat("c", 20) }, false},
		{"content 10000", func(s *Submission) { s.Content = strings.Repeat("c", 10000) }, false},
		{"content 10001", func(s *Submission) { s.Content = strings.Repeat("c", 10001) }, true},
		{"no category", func(s *Submission) { s.Category = "" }, true},
		{"bad email", func(s *Submission) { e := "nope"; s.AuthorEmail = &e }, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st := newMemStore()
			in := validSubmission()
			c.mut(&in)
			_, err := newSvc(t, st).SubmitPrompt(context.Background(), in)
			if c.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidInput)
				assert.Zero(t, st.calls["InsertPrompt"])
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSubmitPrompt_Stored(t *testing.T) {
	st := newMemStore()
	id, err := newSvc(t, st).SubmitPrompt(context.Background(), validSubmission())
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	require.Len(t, st.inserted, 1)
	p := st.inserted[0]
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, StringList{"EVENT", "FIRST_NAME", "COMPANY"}, p.Variables)
	assert.Equal(t, StringList{}, p.Tags)
	assert.Equal(t, HotScore(0, 0, fixedNow), p.HotScore)
}

func TestSubmitPrompt_StoreError(t *testing.T) {
	st := newMemStore()
	st.failNext = fmt.Errorf("deadlock")
	_, err := newSvc(t, st).SubmitPrompt(context.Background(), validSubmission())
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}
