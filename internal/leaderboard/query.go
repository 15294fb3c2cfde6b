package leaderboard

import (
	"strconv"
	"time"

	"github.com/yanizio/gtmskills/internal/apperr"
)

// Sort selects the primary listing order.
type Sort string

const (
	SortHot    Sort = "hot"
	SortTop    Sort = "top"
	SortNew    Sort = "new"
	SortCopies Sort = "copies"
)

// Timeframe restricts a listing to prompts created within a sliding
// window ending now.
type Timeframe string

const (
	TimeframeAll   Timeframe = "all"
	TimeframeYear  Timeframe = "year"
	TimeframeMonth Timeframe = "month"
	TimeframeWeek  Timeframe = "week"
	TimeframeDay   Timeframe = "day"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListQuery is a validated listing request.
type ListQuery struct {
	Sort      Sort
	Timeframe Timeframe
	Category  string
	Limit     int
	Offset    int
}

// Since returns the lower creation bound for the timeframe, or the zero
// time for "all".
func (t Timeframe) Since(now time.Time) time.Time {
	switch t {
	case TimeframeDay:
		return now.AddDate(0, 0, -1)
	case TimeframeWeek:
		return now.AddDate(0, 0, -7)
	case TimeframeMonth:
		return now.AddDate(0, -1, 0)
	case TimeframeYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

// ParseListQuery validates raw query-string values.  Empty values take
// their defaults; a limit above MaxLimit is clamped.
func ParseListQuery(sort, timeframe, category, limit, offset string) (ListQuery, error) {
	q := ListQuery{
		Sort:      SortHot,
		Timeframe: TimeframeAll,
		Category:  category,
		Limit:     DefaultLimit,
	}

	if sort != "" {
		switch s := Sort(sort); s {
		case SortHot, SortTop, SortNew, SortCopies:
			q.Sort = s
		default:
			return q, invalidParam("sort", "must be one of: hot, top, new, copies")
		}
	}
	if timeframe != "" {
		switch t := Timeframe(timeframe); t {
		case TimeframeAll, TimeframeYear, TimeframeMonth, TimeframeWeek, TimeframeDay:
			q.Timeframe = t
		default:
			return q, invalidParam("timeframe", "must be one of: all, year, month, week, day")
		}
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return q, invalidParam("limit", "must be a positive integer")
		}
		q.Limit = min(n, MaxLimit)
	}
	if offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return q, invalidParam("offset", "must be a non-negative integer")
		}
		q.Offset = n
	}
	return q, nil
}

func invalidParam(name, msg string) error {
	return &apperr.ValidationError{
		Summary: "Invalid " + name + ": " + msg,
		Fields:  []apperr.Field{{Name: name, Message: msg}},
	}
}
