// Package leaderboard is the vote and scoring engine behind the prompt
// leaderboard: fingerprint-keyed toggle voting, a stored time-decayed hot
// score, ranked listings, copy tracking, self-reported outcomes, and
// moderated submissions.
package leaderboard

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yanizio/gtmskills/internal/apperr"
)

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// ParseVoteType accepts exactly "up" or "down".
func ParseVoteType(s string) (VoteType, error) {
	switch VoteType(s) {
	case VoteUp, VoteDown:
		return VoteType(s), nil
	}
	return "", &apperr.ValidationError{
		Summary: `Invalid vote_type. Must be "up" or "down"`,
		Fields:  []apperr.Field{{Name: "vote_type", Message: `must be "up" or "down"`}},
	}
}

// Status is the moderation state of a prompt.  Only approved prompts are
// listed, voted on, copied, or given outcomes.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Prompt is one leaderboard row.
type Prompt struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	Content     string     `db:"content"`
	Category    string     `db:"category"`
	Subcategory *string    `db:"subcategory"`
	AuthorName  *string    `db:"author_name"`
	AuthorEmail *string    `db:"author_email"`
	Status      Status     `db:"status"`
	Tags        StringList `db:"tags"`
	UseCases    StringList `db:"use_cases"`
	Variables   StringList `db:"variables"`
	Upvotes     int        `db:"upvotes"`
	Downvotes   int        `db:"downvotes"`
	CopyCount   int        `db:"copy_count"`
	HotScore    float64    `db:"hot_score"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Score is the net vote count.
func (p Prompt) Score() int { return p.Upvotes - p.Downvotes }

// Tally is the locked vote state of a prompt inside a vote transaction.
type Tally struct {
	Upvotes   int       `db:"upvotes"`
	Downvotes int       `db:"downvotes"`
	CreatedAt time.Time `db:"created_at"`
}

// RankedPrompt is a Prompt with its 1-based position in a listing.
type RankedPrompt struct {
	Rank int
	Prompt
}

// Page is one slice of a ranked listing.
type Page struct {
	Items   []RankedPrompt
	Total   int
	Query   ListQuery
	HasMore bool
}

// VoteResult is returned by CastVote.  UserVote is nil after an un-vote.
type VoteResult struct {
	Upvotes   int
	Downvotes int
	UserVote  *VoteType
}

// Score is the net vote count.
func (v VoteResult) Score() int { return v.Upvotes - v.Downvotes }

// Stats are site-wide totals shown above the leaderboard.
type Stats struct {
	TotalPrompts       int     `json:"totalPrompts"`
	TotalVotes         int     `json:"totalVotes"`
	TotalCopies        int     `json:"totalCopies"`
	TotalOutcomes      int     `json:"totalOutcomes"`
	TotalPipelineValue float64 `json:"totalPipelineValue"`
}

// CategoryCount is the number of approved prompts in one category.
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count"    json:"count"`
}

// Outcome is a self-reported result attributed to a prompt.
type Outcome struct {
	PromptID           string
	OutcomeType        string
	OutcomeValue       *float64
	Testimonial        *string
	UserEmail          *string
	IsPublic           bool
	VerificationStatus string
	CreatedAt          time.Time
}

// VerificationSelfReported is the only status this service ever writes.
const VerificationSelfReported = "self_reported"

// StringList is a []string stored as a JSON array column.
type StringList []string

// Value implements driver.Valuer.  A nil list is stored as "[]".
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringList: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return errors.Join(errors.New("StringList: bad JSON"), err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}
