package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/silosync/internal/events"
	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/pkg/models"
)

func newEventsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		GroupID: groupLibrary,
		Short:   "Search the activity log",
	}
	cmd.AddCommand(newEventsSearchCommand(a))
	return cmd
}

type eventFlags struct {
	code        string
	contains    bool
	since       string
	until       string
	description string
	desc        events.Descriptive
	occurrence  string
}

func (f *eventFlags) query() (events.Query, error) {
	q := events.Query{Code: f.code, CodeMatch: events.CodeExact}
	if f.contains {
		q.CodeMatch = events.CodeContains
	}

	if f.since != "" || f.until != "" {
		var w events.TimeWindow
		var err error
		if w.Start, err = parseTime(f.since, false); err != nil {
			return q, err
		}
		if w.End, err = parseTime(f.until, true); err != nil {
			return q, err
		}
		q.Window = &w
	}

	d := f.desc
	if f.description != "" {
		parsed, ok := events.ParseDescription(f.description)
		if !ok {
			return q, faults.Validationf("events search", "cannot parse description %q", f.description)
		}
		d = merge(parsed, d)
	}
	if d != (events.Descriptive{}) {
		q.Descriptive = &d
	}

	occ, err := events.ParseOccurrence(f.occurrence)
	if err != nil {
		return q, err
	}
	q.Occurrence = occ
	return q, q.Validate()
}

// merge fills the empty fields of explicit from parsed.
func merge(parsed, explicit events.Descriptive) events.Descriptive {
	if explicit.Username == "" {
		explicit.Username = parsed.Username
	}
	if explicit.Action == "" {
		explicit.Action = parsed.Action
	}
	if explicit.Object1 == "" {
		explicit.Object1 = parsed.Object1
	}
	if explicit.Object2 == "" {
		explicit.Object2 = parsed.Object2
	}
	return explicit
}

// parseTime accepts RFC 3339 or a bare date; empty is an open bound. A
// bare date used as an upper bound covers the whole day.
func parseTime(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return t, nil
	}
	return time.Time{}, faults.Validationf("events search", "invalid time %q (want RFC 3339 or YYYY-MM-DD)", s)
}

func newEventsSearchCommand(a *app) *cobra.Command {
	var ef eventFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find events by code, time window and description",
		Example: `  silosync events search --code upload --contains --since 2024-05-01 --occurrence first
  silosync events search --description "Jane Doe uploaded Clip One" -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := ef.query()
			if err != nil {
				return err
			}
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			users := events.WithUserCache(a.cfg.Search.UserCacheSize, a.cfg.Search.UserCacheTTL)
			found, err := events.NewService(svc, a.logger, users).Search(cmd.Context(), q)
			if errors.Is(err, events.ErrNoMatch) {
				return &faults.Error{Kind: faults.NotFound, Op: "events search", Cause: err}
			}
			if err != nil {
				return err
			}
			if found == nil {
				found = []models.Event{}
			}
			return a.render(cmd, found, func(w io.Writer) error {
				for _, e := range found {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Created.UTC().Format(time.RFC3339), e.Code, e.ID, e.Description)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&ef.code, "code", "", "Event code")
	f.BoolVar(&ef.contains, "contains", false, "Match codes containing --code")
	f.StringVar(&ef.since, "since", "", "Earliest creation time, inclusive")
	f.StringVar(&ef.until, "until", "", "Latest creation time, inclusive")
	f.StringVar(&ef.description, "description", "", "Example description to match, e.g. \"Jane Doe uploaded Clip One\"")
	f.StringVar(&ef.desc.Username, "user", "", "Acting username")
	f.StringVar(&ef.desc.Action, "action", "", "Action words")
	f.StringVar(&ef.desc.Object1, "object", "", "Primary object")
	f.StringVar(&ef.desc.Object2, "target", "", "Secondary object")
	f.StringVar(&ef.occurrence, "occurrence", "all", "all, first, last or the n-th newest match")
	return cmd
}
