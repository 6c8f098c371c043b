// Package core provides filtering, sorting, and lookup over toast rows.
package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/output"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidFilter   = errors.New("invalid filter condition")
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // kind, title, body, state, reason, duration, created
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex    *regexp.Regexp // Compiled for ~=
	duration int            // Parsed milliseconds for duration
	cutoff   time.Time      // Parsed instant for created
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies simple criteria for filtering rows.
type FilterOptions struct {
	Since time.Duration // Rows created after now-since (0=all)
	Kind  model.Kind    // Exact kind (empty=any)
	Limit int           // Maximum results (0=unlimited)
}

// Filter returns the rows matching opts, keeping their order.
func Filter(rows []output.Row, opts FilterOptions, now time.Time) []output.Row {
	result := make([]output.Row, 0, len(rows))
	for _, r := range rows {
		if opts.Since > 0 && r.CreatedAt.Before(now.Add(-opts.Since)) {
			continue
		}
		if opts.Kind != "" && r.Kind != string(opts.Kind) {
			continue
		}
		result = append(result, r)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	for suffix, unit := range map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour} {
		if n, found := strings.CutSuffix(s, suffix); found {
			v, err := strconv.Atoi(n)
			if err != nil || v < 0 {
				return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
			}
			return time.Duration(v) * unit, nil
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
	}
	return d, nil
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
//
// Supported fields: kind, title, body, state, reason, duration, created
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "kind=error" - error toasts
//   - "title~deploy" - title contains "deploy"
//   - "reason=dismissed" - toasts the user dismissed
//   - "duration>=5000" - shown for at least five seconds
//   - "created>1h" - raised in the last hour
func ParseFilter(expr string, now time.Time) (*FilterExpr, error) {
	filter := &FilterExpr{}
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cond, err := parseCondition(part, now)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}
	return filter, nil
}

// parseCondition parses a single condition like "kind=error".
func parseCondition(s string, now time.Time) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx <= 0 {
			continue
		}
		cond := FilterCondition{
			Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
			Operator: op,
			Value:    strings.TrimSpace(s[idx+len(op):]),
		}
		if err := cond.init(now); err != nil {
			return FilterCondition{}, err
		}
		return cond, nil
	}

	return FilterCondition{}, fmt.Errorf("%w: %s (missing operator)", ErrInvalidFilter, s)
}

// init normalises the field name and pre-parses the value.
func (c *FilterCondition) init(now time.Time) error {
	switch c.Field {
	case "kind", "type":
		c.Field = "kind"
	case "title", "summary":
		c.Field = "title"
	case "body", "message":
		c.Field = "body"
	case "state", "reason":
	case "duration", "duration_ms":
		c.Field = "duration"
		ms, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("%w: duration must be milliseconds: %s", ErrInvalidFilter, c.Value)
		}
		c.duration = ms
	case "created", "timestamp", "time":
		c.Field = "created"
		d, err := ParseDuration(c.Value)
		if err != nil {
			return err
		}
		c.cutoff = now.Add(-d)
	default:
		return fmt.Errorf("%w: unknown field %s", ErrInvalidFilter, c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		c.regex = re
	}
	return nil
}

// Match tests if a row matches every condition.
func (f *FilterExpr) Match(r output.Row) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(r) {
			return false
		}
	}
	return true
}

// Match tests if a row matches this single condition.
func (c *FilterCondition) Match(r output.Row) bool {
	switch c.Field {
	case "kind":
		return c.matchString(r.Kind)
	case "title":
		return c.matchString(r.Title)
	case "body":
		return c.matchString(r.Body)
	case "state":
		return c.matchString(r.State)
	case "reason":
		return c.matchString(r.Reason)
	case "duration":
		return c.matchInt(r.DurationMs, c.duration)
	case "created":
		return c.matchTime(r.CreatedAt)
	default:
		return false
	}
}

func (c *FilterCondition) matchString(v string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return strings.EqualFold(v, c.Value)
	case FilterOpNotEqual:
		return !strings.EqualFold(v, c.Value)
	case FilterOpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(v)
	default:
		return false
	}
}

func (c *FilterCondition) matchInt(v, want int) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == want
	case FilterOpNotEqual:
		return v != want
	case FilterOpGreater:
		return v > want
	case FilterOpLess:
		return v < want
	case FilterOpGreaterEq:
		return v >= want
	case FilterOpLessEq:
		return v <= want
	default:
		return false
	}
}

// matchTime compares against the cutoff: "created>1h" means newer than an
// hour ago.
func (c *FilterCondition) matchTime(v time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return v.After(c.cutoff)
	case FilterOpLess:
		return v.Before(c.cutoff)
	case FilterOpGreaterEq:
		return !v.Before(c.cutoff)
	case FilterOpLessEq:
		return !v.After(c.cutoff)
	default:
		return false
	}
}

// FilterWithExpr returns the rows matching expr.
func FilterWithExpr(rows []output.Row, expr *FilterExpr) []output.Row {
	if expr == nil || len(expr.Conditions) == 0 {
		return rows
	}
	result := make([]output.Row, 0, len(rows))
	for _, r := range rows {
		if expr.Match(r) {
			result = append(result, r)
		}
	}
	return result
}
