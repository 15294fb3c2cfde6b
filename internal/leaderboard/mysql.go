package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/gtmskills/internal/apperr"
)

// MySQLStore implements Store on the leaderboard_* and prompt_* tables.
type MySQLStore struct {
	db *sqlx.DB
}

// NewMySQLStore wraps db.
func NewMySQLStore(db *sqlx.DB) *MySQLStore { return &MySQLStore{db: db} }

const promptCols = `id, title, content, category, subcategory, author_name, author_email,
	status, tags, use_cases, variables, upvotes, downvotes, copy_count, hot_score,
	created_at, updated_at`

// orderBy maps each Sort onto a fixed ORDER BY clause.  Every clause ends
// with created_at and id so pages never overlap.
var orderBy = map[Sort]string{
	SortHot:    "hot_score DESC, created_at DESC, id DESC",
	SortTop:    "upvotes DESC, created_at DESC, id DESC",
	SortNew:    "created_at DESC, id DESC",
	SortCopies: "copy_count DESC, created_at DESC, id DESC",
}

func (s *MySQLStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error { return fn(&mysqlTx{tx: tx}) })
}

func (s *MySQLStore) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *MySQLStore) List(ctx context.Context, q ListQuery, since time.Time) ([]Prompt, int, error) {
	where := []string{"status = ?"}
	args := []any{StatusApproved}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if !since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, since)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM leaderboard_prompts WHERE "+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count prompts: %w", err)
	}
	if total == 0 || q.Offset >= total {
		return []Prompt{}, total, nil
	}

	order, ok := orderBy[q.Sort]
	if !ok {
		order = orderBy[SortHot]
	}
	query := "SELECT " + promptCols + " FROM leaderboard_prompts WHERE " + cond +
		" ORDER BY " + order + " LIMIT ? OFFSET ?"

	out := []Prompt{}
	if err := s.db.SelectContext(ctx, &out, query, append(args, q.Limit, q.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("list prompts: %w", err)
	}
	return out, total, nil
}

func (s *MySQLStore) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	const q = `SELECT category, COUNT(*) AS count
	             FROM leaderboard_prompts
	            WHERE status = ?
	            GROUP BY category
	            ORDER BY count DESC, category ASC`
	out := []CategoryCount{}
	if err := s.db.SelectContext(ctx, &out, q, StatusApproved); err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	return out, nil
}

func (s *MySQLStore) CountApproved(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM leaderboard_prompts WHERE status = ?", StatusApproved)
}

func (s *MySQLStore) CountVotes(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM prompt_votes")
}

func (s *MySQLStore) CountCopies(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM prompt_copies")
}

func (s *MySQLStore) OutcomeTotals(ctx context.Context) (int, float64, error) {
	var row struct {
		Count    int     `db:"n"`
		Pipeline float64 `db:"pipeline"`
	}
	const q = `SELECT COUNT(*) AS n, COALESCE(SUM(outcome_value), 0) AS pipeline FROM prompt_outcomes`
	if err := s.db.GetContext(ctx, &row, q); err != nil {
		return 0, 0, fmt.Errorf("outcome totals: %w", err)
	}
	return row.Count, row.Pipeline, nil
}

func (s *MySQLStore) count(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *MySQLStore) InsertPrompt(ctx context.Context, p *Prompt) error {
	const q = `INSERT INTO leaderboard_prompts
	    (id, title, content, category, subcategory, author_name, author_email,
	     status, tags, use_cases, variables, upvotes, downvotes, copy_count,
	     hot_score, created_at, updated_at)
	  VALUES
	    (:id, :title, :content, :category, :subcategory, :author_name, :author_email,
	     :status, :tags, :use_cases, :variables, :upvotes, :downvotes, :copy_count,
	     :hot_score, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, q, p); err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

// InsertOutcome writes the row only when the prompt exists and is approved.
func (s *MySQLStore) InsertOutcome(ctx context.Context, o *Outcome) error {
	const q = `INSERT INTO prompt_outcomes
	    (prompt_id, outcome_type, outcome_value, testimonial, user_email,
	     is_public, verification_status, created_at)
	  SELECT id, ?, ?, ?, ?, ?, ?, ?
	    FROM leaderboard_prompts
	   WHERE id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, q,
		o.OutcomeType, o.OutcomeValue, o.Testimonial, o.UserEmail,
		o.IsPublic, o.VerificationStatus, o.CreatedAt,
		o.PromptID, StatusApproved)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return requireRow(res)
}

// TrackCopy appends a copy event and bumps copy_count atomically.
func (s *MySQLStore) TrackCopy(ctx context.Context, promptID, source string, at time.Time) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE leaderboard_prompts SET copy_count = copy_count + 1
			  WHERE id = ? AND status = ?`, promptID, StatusApproved)
		if err != nil {
			return fmt.Errorf("bump copy_count: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO prompt_copies (prompt_id, source, created_at) VALUES (?, ?, ?)`,
			promptID, source, at); err != nil {
			return fmt.Errorf("insert copy: %w", err)
		}
		return nil
	})
}

func (s *MySQLStore) FindVote(ctx context.Context, promptID, fingerprint string) (VoteType, bool, error) {
	return findVote(ctx, s.db, promptID, fingerprint)
}

/*──────────────────────────── transaction ─────────────────────────────────*/

type mysqlTx struct {
	tx *sqlx.Tx
}

func (t *mysqlTx) LockPrompt(ctx context.Context, promptID string) (Tally, error) {
	var tl Tally
	err := t.tx.GetContext(ctx, &tl,
		`SELECT upvotes, downvotes, created_at
		   FROM leaderboard_prompts
		  WHERE id = ? AND status = ?
		  FOR UPDATE`, promptID, StatusApproved)
	if errors.Is(err, sql.ErrNoRows) {
		return Tally{}, apperr.ErrNotFound
	}
	if err != nil {
		return Tally{}, fmt.Errorf("lock prompt: %w", err)
	}
	return tl, nil
}

func (t *mysqlTx) FindVote(ctx context.Context, promptID, fingerprint string) (VoteType, bool, error) {
	return findVote(ctx, t.tx, promptID, fingerprint)
}

func (t *mysqlTx) DeleteVote(ctx context.Context, promptID, fingerprint string) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM prompt_votes WHERE prompt_id = ? AND voter_fingerprint = ?`,
		promptID, fingerprint); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

func (t *mysqlTx) InsertVote(ctx context.Context, promptID, fingerprint string, vt VoteType, at time.Time) error {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO prompt_votes (prompt_id, voter_fingerprint, vote_type, created_at)
		 VALUES (?, ?, ?, ?)`, promptID, fingerprint, vt, at); err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (t *mysqlTx) UpdateTally(ctx context.Context, promptID string, up, down int, hot float64) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE leaderboard_prompts SET upvotes = ?, downvotes = ?, hot_score = ? WHERE id = ?`,
		up, down, hot, promptID); err != nil {
		return fmt.Errorf("update tally: %w", err)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func findVote(ctx context.Context, q sqlx.QueryerContext, promptID, fingerprint string) (VoteType, bool, error) {
	var vt VoteType
	err := sqlx.GetContext(ctx, q, &vt,
		`SELECT vote_type FROM prompt_votes WHERE prompt_id = ? AND voter_fingerprint = ?`,
		promptID, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find vote: %w", err)
	}
	return vt, true, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
