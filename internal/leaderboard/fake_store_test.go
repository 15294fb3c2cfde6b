package leaderboard

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yanizio/gtmskills/internal/apperr"
)

// memStore is an in-memory Store.  InTx stages writes on a copy and swaps
// them in only when fn succeeds, mirroring rollback.
type memStore struct {
	mu       sync.Mutex
	prompts  map[string]*Prompt
	votes    map[voteKey]VoteType
	copies   []string
	outcomes []Outcome
	inserted []*Prompt

	failNext error // returned by the next method call, then cleared
	calls    map[string]int
}

type voteKey struct{ prompt, fp string }

func newMemStore(prompts ...Prompt) *memStore {
	m := &memStore{
		prompts: map[string]*Prompt{},
		votes:   map[voteKey]VoteType{},
		calls:   map[string]int{},
	}
	for i := range prompts {
		p := prompts[i]
		m.prompts[p.ID] = &p
	}
	return m
}

func (m *memStore) hit(name string) error {
	m.calls[name]++
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	return nil
}

func (m *memStore) InTx(_ context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InTx"); err != nil {
		return err
	}

	tx := &memTx{
		prompts: map[string]Prompt{},
		votes:   map[voteKey]VoteType{},
		src:     m,
	}
	for k, v := range m.prompts {
		tx.prompts[k] = *v
	}
	for k, v := range m.votes {
		tx.votes[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.prompts {
		p := v
		m.prompts[k] = &p
	}
	m.votes = tx.votes
	return nil
}

func (m *memStore) List(_ context.Context, q ListQuery, since time.Time) ([]Prompt, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("List"); err != nil {
		return nil, 0, err
	}

	var all []Prompt
	for _, p := range m.prompts {
		if p.Status != StatusApproved {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if !since.IsZero() && p.CreatedAt.Before(since) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		var ka, kb float64
		switch q.Sort {
		case SortTop:
			ka, kb = float64(a.Upvotes), float64(b.Upvotes)
		case SortCopies:
			ka, kb = float64(a.CopyCount), float64(b.CopyCount)
		case SortHot:
			ka, kb = a.HotScore, b.HotScore
		}
		if ka != kb {
			return ka > kb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	total := len(all)
	if q.Offset >= total {
		return []Prompt{}, total, nil
	}
	end := min(q.Offset+q.Limit, total)
	return all[q.Offset:end], total, nil
}

func (m *memStore) CategoryCounts(context.Context) ([]CategoryCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CategoryCounts"); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, p := range m.prompts {
		if p.Status == StatusApproved {
			counts[p.Category]++
		}
	}
	out := []CategoryCount{}
	for c, n := range counts {
		out = append(out, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (m *memStore) CountApproved(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CountApproved"); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range m.prompts {
		if p.Status == StatusApproved {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountVotes(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.votes), m.hit("CountVotes")
}

func (m *memStore) CountCopies(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.copies), m.hit("CountCopies")
}

func (m *memStore) OutcomeTotals(context.Context) (int, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	for _, o := range m.outcomes {
		if o.OutcomeValue != nil {
			sum += *o.OutcomeValue
		}
	}
	return len(m.outcomes), sum, m.hit("OutcomeTotals")
}

func (m *memStore) InsertPrompt(_ context.Context, p *Prompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertPrompt"); err != nil {
		return err
	}
	cp := *p
	m.prompts[p.ID] = &cp
	m.inserted = append(m.inserted, &cp)
	return nil
}

func (m *memStore) approved(id string) bool {
	p, ok := m.prompts[id]
	return ok && p.Status == StatusApproved
}

func (m *memStore) InsertOutcome(_ context.Context, o *Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertOutcome"); err != nil {
		return err
	}
	if !m.approved(o.PromptID) {
		return apperr.ErrNotFound
	}
	m.outcomes = append(m.outcomes, *o)
	return nil
}

func (m *memStore) TrackCopy(_ context.Context, promptID, source string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("TrackCopy"); err != nil {
		return err
	}
	if !m.approved(promptID) {
		return apperr.ErrNotFound
	}
	m.prompts[promptID].CopyCount++
	m.copies = append(m.copies, source)
	return nil
}

func (m *memStore) FindVote(_ context.Context, promptID, fp string) (VoteType, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("FindVote"); err != nil {
		return "", false, err
	}
	vt, ok := m.votes[voteKey{promptID, fp}]
	return vt, ok, nil
}

// voteRows counts live vote records for one pair.
func (m *memStore) voteRows(promptID, fp string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.votes[voteKey{promptID, fp}]; ok {
		return 1
	}
	return 0
}

func (m *memStore) prompt(id string) Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.prompts[id]
}

type memTx struct {
	prompts map[string]Prompt
	votes   map[voteKey]VoteType
	src     *memStore
}

func (t *memTx) LockPrompt(_ context.Context, id string) (Tally, error) {
	p, ok := t.prompts[id]
	if !ok || p.Status != StatusApproved {
		return Tally{}, apperr.ErrNotFound
	}
	return Tally{Upvotes: p.Upvotes, Downvotes: p.Downvotes, CreatedAt: p.CreatedAt}, nil
}

func (t *memTx) FindVote(_ context.Context, id, fp string) (VoteType, bool, error) {
	vt, ok := t.votes[voteKey{id, fp}]
	return vt, ok, nil
}

func (t *memTx) DeleteVote(_ context.Context, id, fp string) error {
	delete(t.votes, voteKey{id, fp})
	return nil
}

func (t *memTx) InsertVote(_ context.Context, id, fp string, vt VoteType, _ time.Time) error {
	if t.src.calls["failInsertVote"] > 0 {
		return errors.New("duplicate key")
	}
	k := voteKey{id, fp}
	if _, dup := t.votes[k]; dup {
		return errors.New("duplicate key")
	}
	t.votes[k] = vt
	return nil
}

func (t *memTx) UpdateTally(_ context.Context, id string, up, down int, hot float64) error {
	p := t.prompts[id]
	p.Upvotes, p.Downvotes, p.HotScore = up, down, hot
	t.prompts[id] = p
	return nil
}
