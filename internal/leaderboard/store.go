package leaderboard

import (
	"context"
	"time"
)

// Store is the persistence collaborator.  Implementations return
// apperr.ErrNotFound for a missing or unapproved prompt.  Any other error
// is treated as the store being unavailable.
type Store interface {
	// InTx runs fn in one transaction.  fn's error rolls back.
	InTx(ctx context.Context, fn func(Tx) error) error

	List(ctx context.Context, q ListQuery, since time.Time) ([]Prompt, int, error)
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)

	CountApproved(ctx context.Context) (int, error)
	CountVotes(ctx context.Context) (int, error)
	CountCopies(ctx context.Context) (int, error)
	OutcomeTotals(ctx context.Context) (count int, pipeline float64, err error)

	InsertPrompt(ctx context.Context, p *Prompt) error
	InsertOutcome(ctx context.Context, o *Outcome) error
	TrackCopy(ctx context.Context, promptID, source string, at time.Time) error
	FindVote(ctx context.Context, promptID, fingerprint string) (VoteType, bool, error)
}

// Tx is the vote read-modify-write surface.  LockPrompt must hold the
// prompt row until commit so concurrent votes on one prompt serialise.
type Tx interface {
	LockPrompt(ctx context.Context, promptID string) (Tally, error)
	FindVote(ctx context.Context, promptID, fingerprint string) (VoteType, bool, error)
	DeleteVote(ctx context.Context, promptID, fingerprint string) error
	InsertVote(ctx context.Context, promptID, fingerprint string, vt VoteType, at time.Time) error
	UpdateTally(ctx context.Context, promptID string, upvotes, downvotes int, hot float64) error
}
