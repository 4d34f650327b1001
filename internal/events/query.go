// Package events searches the remote activity log.
package events

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fruitsalade/silosync/internal/faults"
)

// Occurrence selects which matches a search returns. Positive values pick
// the n-th match counting from the newest.
type Occurrence int

const (
	// All returns every match, newest first.
	All Occurrence = 0
	// First returns the newest match.
	First Occurrence = 1
	// Last returns the oldest match.
	Last Occurrence = -1
)

// Nth returns the selector for the n-th newest match. Nth(-1) is Last.
func Nth(n int) Occurrence { return Occurrence(n) }

// ParseOccurrence accepts "all", "first", "last" or a non-zero integer.
func ParseOccurrence(s string) (Occurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "first":
		return First, nil
	case "last":
		return Last, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return All, faults.Validationf("parse occurrence", "invalid occurrence %q", s)
	}
	if n == 0 {
		return All, faults.Validationf("parse occurrence", "occurrence 0 is not a position; use \"all\"")
	}
	occ := Nth(n)
	if err := occ.validate(); err != nil {
		return All, err
	}
	return occ, nil
}

func (o Occurrence) validate() error {
	if o < Last {
		return faults.Validationf("event query", "invalid occurrence %d", int(o))
	}
	return nil
}

func (o Occurrence) String() string {
	switch o {
	case All:
		return "all"
	case First:
		return "first"
	case Last:
		return "last"
	default:
		return strconv.Itoa(int(o))
	}
}

// CodeMatch selects how Query.Code is compared with an event code.
type CodeMatch string

const (
	CodeExact    CodeMatch = "exact"
	CodeContains CodeMatch = "contains"
)

// TimeWindow bounds event creation times, inclusively. A zero bound is open.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the window.
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Descriptive holds the parts of a free-text event description, such as
// "Jane Doe uploaded Clip One to Summer Promos". Empty query fields match
// anything.
type Descriptive struct {
	Username string `json:"username,omitempty"`
	Action   string `json:"action,omitempty"`
	Object1  string `json:"object1,omitempty"`
	Object2  string `json:"object2,omitempty"`
}

func (d Descriptive) empty() bool {
	return d == Descriptive{}
}

// A description is capitalized words (who), lowercase words (what),
// capitalized words (object) and optionally lowercase words followed by
// capitalized words (second object).
var descriptionPattern = regexp.MustCompile(
	`^([A-Z]\S*(?:\s+[A-Z]\S*)*)\s+([a-z]\S*(?:\s+[a-z]\S*)*)\s+([A-Z]\S*(?:\s+[A-Z]\S*)*)(?:\s+[a-z]\S*(?:\s+[a-z]\S*)*\s+([A-Z]\S*(?:\s+[A-Z]\S*)*))?`)

// ParseDescription splits an event description into its parts.
func ParseDescription(s string) (Descriptive, bool) {
	m := descriptionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Descriptive{}, false
	}
	return Descriptive{Username: m[1], Action: m[2], Object1: m[3], Object2: m[4]}, true
}

// Query filters events. Zero-valued filters are not applied.
type Query struct {
	Code        string
	CodeMatch   CodeMatch
	Window      *TimeWindow
	Descriptive *Descriptive
	Occurrence  Occurrence
}

// Validate checks the query before any event is fetched.
func (q Query) Validate() error {
	switch q.CodeMatch {
	case "", CodeExact, CodeContains:
	default:
		return faults.Validationf("event query", "unsupported code match %q", q.CodeMatch)
	}
	if q.Window != nil && !q.Window.Start.IsZero() && !q.Window.End.IsZero() && q.Window.End.Before(q.Window.Start) {
		return faults.Validationf("event query", "time window ends before it starts")
	}
	return q.Occurrence.validate()
}

func (q Query) matchCode(code string) bool {
	if q.Code == "" {
		return true
	}
	if q.CodeMatch == CodeContains {
		return strings.Contains(code, q.Code)
	}
	return code == q.Code
}
